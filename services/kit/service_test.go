package kit

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/internal/config"
	"incentivehub/pkg/sequence"
	"incentivehub/services/campaign"
	"incentivehub/services/submission"
	"incentivehub/services/testutil"
	"incentivehub/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type testEnv struct {
	db        *gorm.DB
	kits      *Service
	campaigns *campaign.Service
	users     *user.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t,
		&campaign.Campaign{}, &campaign.GoalRequirement{}, &campaign.GoalCondition{},
		&user.User{}, &CampaignKit{}, &submission.CampaignSubmission{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	campaigns := campaign.NewService(campaign.ServiceParams{
		DB: db, Node: node, Seq: sequence.NewLocalGenerator(),
	})
	users := user.NewService(user.ServiceParams{DB: db, Node: node})
	kits := NewService(ServiceParams{
		DB: db, Node: node, Config: &config.Config{},
		Campaigns: campaigns, Users: users,
	})

	return &testEnv{db: db, kits: kits, campaigns: campaigns, users: users}
}

func (e *testEnv) createActiveCampaign(t *testing.T, expression string) *campaign.Campaign {
	t.Helper()
	ctx := context.Background()

	c, err := e.campaigns.Create(ctx, campaign.CreateParams{
		Title:                   "Monitor Blitz",
		PointsOnCompletion:      100,
		ManagerPointsPercentage: 10,
		EligibilityExpression:   expression,
		Requirements: []campaign.RequirementParams{
			{Description: "Sell 2 monitors", Type: campaign.RequirementQuantity, TargetValue: 2, PointsAwarded: 50},
		},
	})
	require.NoError(t, err)

	c, err = e.campaigns.Activate(ctx, c.CampaignID)
	require.NoError(t, err)
	return c
}

func (e *testEnv) createSeller(t *testing.T, region string) *user.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), user.CreateParams{
		Name:     "Ana Souza",
		Email:    "ana@example.com",
		Document: "529.982.247-25",
		Region:   region,
	})
	require.NoError(t, err)
	return u
}

func TestGetOrCreateEnrollsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")

	first, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, first.Status)

	second, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)
	require.Equal(t, first.KitID, second.KitID)

	var count int64
	require.NoError(t, env.db.Model(&CampaignKit{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGetOrCreateRequiresActiveCampaign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.campaigns.Create(ctx, campaign.CreateParams{Title: "Still Draft"})
	require.NoError(t, err)
	seller := env.createSeller(t, "SOUTH")

	_, err = env.kits.GetOrCreate(ctx, draft.CampaignID, seller.ID)
	require.Error(t, err)
}

func TestGetOrCreateEligibilityGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, `region == "NORTH"`)
	seller := env.createSeller(t, "SOUTH")

	_, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.Error(t, err)

	open := env.createActiveCampaign(t, `region == "SOUTH"`)
	kit, err := env.kits.GetOrCreate(ctx, open.CampaignID, seller.ID)
	require.NoError(t, err)
	require.NotEmpty(t, kit.KitID)
}

func (e *testEnv) seedSubmission(t *testing.T, kitID, campaignID, sellerID, requirementID string, quantity float64, status submission.Status) {
	t.Helper()
	require.NoError(t, e.db.Create(&submission.CampaignSubmission{
		SubmissionID:  uuid.NewString(),
		KitID:         kitID,
		CampaignID:    campaignID,
		SellerID:      sellerID,
		RequirementID: requirementID,
		OrderNumber:   "ORD-" + uuid.NewString(),
		Quantity:      quantity,
		Status:        status,
	}).Error)
}

func TestRecheckCompletionTransitionsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")
	kit, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)

	reqID := c.Requirements[0].RequirementID
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 2, submission.StatusValidated)

	var completed bool
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = env.kits.RecheckCompletion(ctx, tx, kit.KitID)
		return err
	}))
	require.True(t, completed)

	got, err := env.kits.Get(ctx, kit.KitID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Already completed: no second transition.
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = env.kits.RecheckCompletion(ctx, tx, kit.KitID)
		return err
	}))
	require.False(t, completed)
}

func TestRecheckCompletionRollsBackWithCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")
	kit, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)

	reqID := c.Requirements[0].RequirementID
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 2, submission.StatusValidated)

	// The test pool holds a single connection, so any recheck read that
	// escaped the caller's transaction would block here; the rollback then
	// proves the transition itself rode the same transaction.
	err = env.db.Transaction(func(tx *gorm.DB) error {
		completed, err := env.kits.RecheckCompletion(ctx, tx, kit.KitID)
		require.NoError(t, err)
		require.True(t, completed)
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)

	got, err := env.kits.Get(ctx, kit.KitID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)
	require.Nil(t, got.CompletedAt)
}

func TestRecheckCompletionBelowTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")
	kit, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)

	reqID := c.Requirements[0].RequirementID
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 1, submission.StatusValidated)
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 5, submission.StatusPending)

	var completed bool
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		completed, err = env.kits.RecheckCompletion(ctx, tx, kit.KitID)
		return err
	}))
	require.False(t, completed)

	got, err := env.kits.Get(ctx, kit.KitID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)
}

func TestGetProgressEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")
	kit, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)

	reqID := c.Requirements[0].RequirementID
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 1, submission.StatusValidated)

	progress, err := env.kits.GetProgress(ctx, kit.KitID)
	require.NoError(t, err)
	require.Len(t, progress.Requirements, 1)
	require.Equal(t, 1.0, progress.Requirements[0].Current)
	require.Equal(t, 50.0, progress.Overall)
}

func TestGetStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := env.createActiveCampaign(t, "")
	seller := env.createSeller(t, "SOUTH")
	kit, err := env.kits.GetOrCreate(ctx, c.CampaignID, seller.ID)
	require.NoError(t, err)

	reqID := c.Requirements[0].RequirementID
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 2, submission.StatusValidated)
	env.seedSubmission(t, kit.KitID, c.CampaignID, seller.ID, reqID, 1, submission.StatusPending)

	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.kits.RecheckCompletion(ctx, tx, kit.KitID)
		return err
	}))

	stats, err := env.kits.GetStatistics(ctx, c.CampaignID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.TotalKits)
	require.EqualValues(t, 1, stats.CompletedKits)
	require.EqualValues(t, 2, stats.TotalSubmissions)
	require.EqualValues(t, 1, stats.ValidatedSubmissions)
	require.Equal(t, 100.0, stats.CompletionRate)
}
