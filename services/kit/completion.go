package kit

import (
	"incentivehub/services/campaign"
	"incentivehub/services/submission"
)

// completionSatisfied decides whether a kit's validated submissions fill
// every requirement slot. Unlike the progress calculator, this check is
// condition-blind: it sums quantities by the requirement a submission was
// filed against, without re-evaluating conditions, answering "did they
// submit enough against this slot" rather than "what percentage do we show".
// Keep the two in sync deliberately or not at all; do not merge them
// casually, as they disagree on purpose.
func completionSatisfied(requirements []campaign.GoalRequirement, submissions []*submission.CampaignSubmission) bool {
	quantityByRequirement := make(map[string]float64, len(requirements))
	for _, s := range submissions {
		if s.Status != submission.StatusValidated {
			continue
		}
		quantityByRequirement[s.RequirementID] += s.Quantity
	}

	for i := range requirements {
		req := &requirements[i]
		if quantityByRequirement[req.RequirementID] < req.TargetValue {
			return false
		}
	}
	return true
}
