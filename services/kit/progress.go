package kit

import (
	"math"

	"incentivehub/services/campaign"
	"incentivehub/services/submission"
)

type RequirementProgress struct {
	RequirementID string                   `json:"requirementId"`
	Description   string                   `json:"description"`
	Type          campaign.RequirementType `json:"type"`
	Target        float64                  `json:"target"`
	Current       float64                  `json:"current"`
	Progress      float64                  `json:"progress"`
	Completed     bool                     `json:"completed"`
}

type Progress struct {
	KitID        string                `json:"kitId"`
	Overall      float64               `json:"overallProgress"`
	Requirements []RequirementProgress `json:"requirements"`
}

// OverallStrategy folds per-requirement progress into the single number
// shown to sellers. Requirement point weights are deliberately ignored by
// the default; swap the strategy if that policy changes.
type OverallStrategy interface {
	Overall(requirements []RequirementProgress) float64
}

// UnweightedMean averages requirement progress, treating a campaign with no
// requirements as trivially complete.
type UnweightedMean struct{}

func (UnweightedMean) Overall(requirements []RequirementProgress) float64 {
	if len(requirements) == 0 {
		return 100
	}
	var sum float64
	for _, r := range requirements {
		sum += r.Progress
	}
	return math.Round(sum / float64(len(requirements)))
}

type Calculator struct {
	strategy OverallStrategy
}

func NewCalculator(strategy OverallStrategy) *Calculator {
	if strategy == nil {
		strategy = UnweightedMean{}
	}
	return &Calculator{strategy: strategy}
}

// Compute derives condition-aware progress from a kit's VALIDATED
// submissions. QUANTITY requirements count matching submissions; VALUE
// requirements sum each match's monetary value.
func (c *Calculator) Compute(kitID string, requirements []campaign.GoalRequirement, submissions []*submission.CampaignSubmission) Progress {
	validated := make([]*submission.CampaignSubmission, 0, len(submissions))
	for _, s := range submissions {
		if s.Status == submission.StatusValidated {
			validated = append(validated, s)
		}
	}

	result := Progress{
		KitID:        kitID,
		Requirements: make([]RequirementProgress, 0, len(requirements)),
	}

	for i := range requirements {
		req := &requirements[i]

		var current float64
		for _, s := range validated {
			if !req.SatisfiedBy(s) {
				continue
			}
			switch req.Type {
			case campaign.RequirementQuantity:
				current++
			case campaign.RequirementValue:
				current += s.Value
			}
		}

		progress := 100.0
		if req.TargetValue > 0 {
			progress = math.Min(100, current/req.TargetValue*100)
		}

		result.Requirements = append(result.Requirements, RequirementProgress{
			RequirementID: req.RequirementID,
			Description:   req.Description,
			Type:          req.Type,
			Target:        req.TargetValue,
			Current:       current,
			Progress:      progress,
			Completed:     current >= req.TargetValue,
		})
	}

	result.Overall = c.strategy.Overall(result.Requirements)
	return result
}
