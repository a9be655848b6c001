package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"incentivehub/pkg/errutil"
	"incentivehub/pkg/sequence"
	"incentivehub/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Campaign{}, &GoalRequirement{}, &GoalCondition{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node, Seq: sequence.NewLocalGenerator()})
}

func validCreateParams() CreateParams {
	return CreateParams{
		Title:                   "Q3 Electronics Push",
		Description:             "Sell electronics bundles",
		PointsOnCompletion:      500,
		ManagerPointsPercentage: 10,
		Requirements: []RequirementParams{
			{
				Description:   "Sell 10 laptops",
				Type:          RequirementQuantity,
				TargetValue:   10,
				PointsAwarded: 100,
				Conditions: []ConditionParams{
					{Field: "category", Operator: OpEquals, ComparisonValue: "LAPTOP"},
				},
			},
			{
				Description:   "Reach 5000 in accessories",
				Type:          RequirementValue,
				TargetValue:   5000,
				PointsAwarded: 50,
			},
		},
	}
}

func TestCreateCampaign(t *testing.T) {
	svc := newTestService(t)

	c, err := svc.Create(context.Background(), validCreateParams())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, c.Status)
	require.NotEmpty(t, c.CampaignID)
	require.NotEmpty(t, c.Code)
	require.Len(t, c.Requirements, 2)
	require.Len(t, c.Requirements[0].Conditions, 1)
	require.Equal(t, 0, c.Requirements[0].Position)
	require.Equal(t, 1, c.Requirements[1].Position)
}

func TestCreateCampaignValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := validCreateParams()
	p.Title = "  "
	_, err := svc.Create(ctx, p)
	require.Error(t, err)

	p = validCreateParams()
	start := time.Now()
	end := start.Add(-time.Hour)
	p.StartDate, p.EndDate = &start, &end
	_, err = svc.Create(ctx, p)
	require.Error(t, err)

	p = validCreateParams()
	p.ManagerPointsPercentage = 120
	_, err = svc.Create(ctx, p)
	require.Error(t, err)

	p = validCreateParams()
	p.Requirements[0].Conditions[0].Operator = Operator("LIKE")
	_, err = svc.Create(ctx, p)
	require.Error(t, err)

	p = validCreateParams()
	p.EligibilityExpression = "region =="
	_, err = svc.Create(ctx, p)
	require.Error(t, err)
}

func TestGetCampaignNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusNotFound, base.Code)
}

func TestActivateLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	c, err = svc.Activate(ctx, c.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, c.Status)

	// Already active, DRAFT-only transition.
	_, err = svc.Activate(ctx, c.CampaignID)
	require.Error(t, err)

	c, err = svc.Deactivate(ctx, c.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, c.Status)

	// INACTIVE is terminal.
	_, err = svc.Activate(ctx, c.CampaignID)
	require.Error(t, err)
	_, err = svc.Deactivate(ctx, c.CampaignID)
	require.Error(t, err)
}

func TestActivateRejectsEndedCampaign(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := validCreateParams()
	start := time.Now().Add(-48 * time.Hour)
	end := time.Now().Add(-24 * time.Hour)
	p.StartDate, p.EndDate = &start, &end

	c, err := svc.Create(ctx, p)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, c.CampaignID)
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusUnprocessableEntity, base.Code)
}

func TestExpireOnRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p := validCreateParams()
	end := time.Now().Add(time.Minute)
	p.EndDate = &end

	c, err := svc.Create(ctx, p)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, c.CampaignID)
	require.NoError(t, err)

	// Push the end date into the past behind the service's back.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, svc.db.Model(&Campaign{}).
		Where("campaign_id = ?", c.CampaignID).
		Update("end_date", past).Error)

	got, err := svc.Get(ctx, c.CampaignID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, got.Status)
}

func TestUpdateReplacesRequirements(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	oldRequirementID := c.Requirements[0].RequirementID

	updated, err := svc.Update(ctx, c.CampaignID, UpdateParams{
		Title: "Q3 Electronics Push v2",
		Requirements: []RequirementParams{
			{
				Description:   "Sell 3 monitors",
				Type:          RequirementQuantity,
				TargetValue:   3,
				PointsAwarded: 30,
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Q3 Electronics Push v2", updated.Title)
	require.Len(t, updated.Requirements, 1)
	require.NotEqual(t, oldRequirementID, updated.Requirements[0].RequirementID)

	var orphaned int64
	require.NoError(t, svc.db.Model(&GoalCondition{}).Count(&orphaned).Error)
	require.Zero(t, orphaned)
}

func TestUpdateKeepsRequirementsWhenOmitted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, c.CampaignID, UpdateParams{Description: "new copy"})
	require.NoError(t, err)
	require.Equal(t, "new copy", updated.Description)
	require.Len(t, updated.Requirements, 2)
}

func TestUpdateInactiveCampaign(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	_, err = svc.Activate(ctx, c.CampaignID)
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, c.CampaignID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.CampaignID, UpdateParams{Title: "too late"})
	require.Error(t, err)
}

func TestCloneCampaign(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	_, err = svc.Activate(ctx, c.CampaignID)
	require.NoError(t, err)

	clone, err := svc.Clone(ctx, c.CampaignID, "Q4 Electronics Push")
	require.NoError(t, err)
	require.NotEqual(t, c.CampaignID, clone.CampaignID)
	require.NotEqual(t, c.Code, clone.Code)
	require.Equal(t, StatusDraft, clone.Status)
	require.Equal(t, "Q4 Electronics Push", clone.Title)
	require.Len(t, clone.Requirements, 2)
	require.NotEqual(t, c.Requirements[0].RequirementID, clone.Requirements[0].RequirementID)
}

func TestDeleteDraftOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, c.CampaignID))
	_, err = svc.Get(ctx, c.CampaignID)
	require.Error(t, err)

	c, err = svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	_, err = svc.Activate(ctx, c.CampaignID)
	require.NoError(t, err)
	require.Error(t, svc.Delete(ctx, c.CampaignID))
}

func TestListOnlyActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	active, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	_, err = svc.Activate(ctx, active.CampaignID)
	require.NoError(t, err)

	all, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyActive, err := svc.List(ctx, ListParams{OnlyActive: true})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	require.Equal(t, active.CampaignID, onlyActive[0].CampaignID)
	require.NotEqual(t, draft.CampaignID, onlyActive[0].CampaignID)
}

func TestEligible(t *testing.T) {
	attrs := map[string]any{
		"name":        "Ana",
		"document":    "52998224725",
		"region":      "SOUTH",
		"role":        "seller",
		"has_manager": true,
	}

	open := &Campaign{}
	ok, err := Eligible(open, attrs)
	require.NoError(t, err)
	require.True(t, ok)

	gated := &Campaign{EligibilityExpression: `region == "SOUTH" && has_manager`}
	ok, err = Eligible(gated, attrs)
	require.NoError(t, err)
	require.True(t, ok)

	gated = &Campaign{EligibilityExpression: `region == "NORTH"`}
	ok, err = Eligible(gated, attrs)
	require.NoError(t, err)
	require.False(t, ok)
}
