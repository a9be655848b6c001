package kit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"incentivehub/services/campaign"
	"incentivehub/services/submission"
)

func validatedSubmission(requirementID string, quantity, value float64, details map[string]any) *submission.CampaignSubmission {
	return &submission.CampaignSubmission{
		RequirementID: requirementID,
		Status:        submission.StatusValidated,
		Quantity:      quantity,
		Value:         value,
		Details:       datatypes.JSONMap(details),
	}
}

func TestComputeNoRequirements(t *testing.T) {
	calc := NewCalculator(nil)

	progress := calc.Compute("kit_1", nil, nil)
	require.Equal(t, 100.0, progress.Overall)
	require.Empty(t, progress.Requirements)
}

func TestComputeZeroTarget(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		{RequirementID: "req_1", Type: campaign.RequirementQuantity, TargetValue: 0},
	}

	progress := calc.Compute("kit_1", reqs, nil)
	require.Equal(t, 100.0, progress.Requirements[0].Progress)
	require.True(t, progress.Requirements[0].Completed)
	require.Equal(t, 100.0, progress.Overall)
}

func TestComputeQuantityCountsMatches(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		{
			RequirementID: "req_1",
			Type:          campaign.RequirementQuantity,
			TargetValue:   4,
			Conditions: []campaign.GoalCondition{
				{Field: "category", Operator: campaign.OpEquals, ComparisonValue: "LAPTOP"},
			},
		},
	}

	subs := []*submission.CampaignSubmission{
		// Counts as one match despite quantity 3; QUANTITY counts matches.
		validatedSubmission("req_1", 3, 0, map[string]any{"category": "LAPTOP"}),
		validatedSubmission("req_1", 1, 0, map[string]any{"category": "LAPTOP"}),
		// Wrong category, filtered by the condition.
		validatedSubmission("req_1", 1, 0, map[string]any{"category": "PHONE"}),
		// Pending, filtered by status.
		{RequirementID: "req_1", Status: submission.StatusPending,
			Details: datatypes.JSONMap{"category": "LAPTOP"}},
	}

	progress := calc.Compute("kit_1", reqs, subs)
	require.Equal(t, 2.0, progress.Requirements[0].Current)
	require.Equal(t, 50.0, progress.Requirements[0].Progress)
	require.False(t, progress.Requirements[0].Completed)
}

func TestComputeValueSumsMatches(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		{RequirementID: "req_1", Type: campaign.RequirementValue, TargetValue: 1000},
	}

	subs := []*submission.CampaignSubmission{
		validatedSubmission("req_1", 1, 300, nil),
		validatedSubmission("req_1", 1, 450, nil),
	}

	progress := calc.Compute("kit_1", reqs, subs)
	require.Equal(t, 750.0, progress.Requirements[0].Current)
	require.Equal(t, 75.0, progress.Requirements[0].Progress)
}

func TestComputeProgressCappedAt100(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		{RequirementID: "req_1", Type: campaign.RequirementValue, TargetValue: 100},
	}

	subs := []*submission.CampaignSubmission{
		validatedSubmission("req_1", 1, 500, nil),
	}

	progress := calc.Compute("kit_1", reqs, subs)
	require.Equal(t, 100.0, progress.Requirements[0].Progress)
	require.True(t, progress.Requirements[0].Completed)
}

func TestComputeOverallIsUnweightedMean(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		// Heavy points on the unmet requirement must not skew the mean.
		{RequirementID: "req_1", Type: campaign.RequirementQuantity, TargetValue: 2, PointsAwarded: 1000,
			Conditions: []campaign.GoalCondition{{Field: "category", Operator: campaign.OpEquals, ComparisonValue: "PHONE"}}},
		{RequirementID: "req_2", Type: campaign.RequirementValue, TargetValue: 100, PointsAwarded: 1,
			Conditions: []campaign.GoalCondition{{Field: "category", Operator: campaign.OpEquals, ComparisonValue: "MONITOR"}}},
	}

	subs := []*submission.CampaignSubmission{
		validatedSubmission("req_2", 1, 100, map[string]any{"category": "MONITOR"}),
	}

	progress := calc.Compute("kit_1", reqs, subs)
	require.Equal(t, 50.0, progress.Overall)
}

func TestComputeOverallRounds(t *testing.T) {
	calc := NewCalculator(nil)
	reqs := []campaign.GoalRequirement{
		{RequirementID: "req_1", Type: campaign.RequirementQuantity, TargetValue: 3,
			Conditions: []campaign.GoalCondition{{Field: "category", Operator: campaign.OpEquals, ComparisonValue: "PHONE"}}},
		{RequirementID: "req_2", Type: campaign.RequirementQuantity, TargetValue: 3,
			Conditions: []campaign.GoalCondition{{Field: "category", Operator: campaign.OpEquals, ComparisonValue: "MONITOR"}}},
	}

	subs := []*submission.CampaignSubmission{
		validatedSubmission("req_1", 1, 0, map[string]any{"category": "PHONE"}),
		validatedSubmission("req_2", 1, 0, map[string]any{"category": "MONITOR"}),
	}

	// Each requirement sits at 33.33..%; the mean rounds to 33.
	progress := calc.Compute("kit_1", reqs, subs)
	require.Equal(t, 33.0, progress.Overall)
}
