package submission

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/pkg/sequence"
	"incentivehub/services/campaign"
	"incentivehub/services/earning"
	"incentivehub/services/testutil"
	"incentivehub/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type resolverStub struct {
	kit *KitInfo
	err error
}

func (r *resolverStub) ResolveKit(context.Context, string) (*KitInfo, error) {
	return r.kit, r.err
}

type recheckerStub struct {
	completed bool
	err       error
	calls     int
}

func (r *recheckerStub) RecheckCompletion(context.Context, *gorm.DB, string) (bool, error) {
	r.calls++
	return r.completed, r.err
}

type workflowEnv struct {
	db        *gorm.DB
	svc       *Service
	campaigns *campaign.Service
	users     *user.Service
	rechecker *recheckerStub
	campaign  *campaign.Campaign
	seller    *user.User
}

func newWorkflowEnv(t *testing.T) *workflowEnv {
	t.Helper()
	db := testutil.NewTestDB(t,
		&campaign.Campaign{}, &campaign.GoalRequirement{}, &campaign.GoalCondition{},
		&user.User{}, &CampaignSubmission{}, &Activity{}, &earning.Earning{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	campaigns := campaign.NewService(campaign.ServiceParams{
		DB: db, Node: node, Seq: sequence.NewLocalGenerator(),
	})
	users := user.NewService(user.ServiceParams{DB: db, Node: node})

	manager, err := users.Create(ctx, user.CreateParams{
		Name: "Rui Costa", Document: "111.444.777-35", Role: "manager",
	})
	require.NoError(t, err)
	seller, err := users.Create(ctx, user.CreateParams{
		Name: "Ana Souza", Document: "529.982.247-25", ManagerID: &manager.ID,
	})
	require.NoError(t, err)

	c, err := campaigns.Create(ctx, campaign.CreateParams{
		Title:                   "Monitor Blitz",
		PointsOnCompletion:      100,
		ManagerPointsPercentage: 10,
		Requirements: []campaign.RequirementParams{
			{Description: "Sell 2 monitors", Type: campaign.RequirementQuantity, TargetValue: 2, PointsAwarded: 50},
		},
	})
	require.NoError(t, err)
	c, err = campaigns.Activate(ctx, c.CampaignID)
	require.NoError(t, err)

	rechecker := &recheckerStub{}
	resolver := &resolverStub{kit: &KitInfo{
		KitID: "kit_1", CampaignID: c.CampaignID, SellerID: seller.ID,
	}}

	svc := NewService(ServiceParams{
		DB: db, Node: node, Logger: zap.NewNop(),
		Campaigns: campaigns, Users: users,
		Resolver: resolver, Rechecker: rechecker,
		Distributor: earning.NewDistributor(node, zap.NewNop()),
	})

	return &workflowEnv{
		db: db, svc: svc, campaigns: campaigns, users: users,
		rechecker: rechecker, campaign: c, seller: seller,
	}
}

func (e *workflowEnv) createSubmission(t *testing.T, orderNumber string) *CampaignSubmission {
	t.Helper()
	sub, err := e.svc.Create(context.Background(), CreateParams{
		KitID:         "kit_1",
		RequirementID: e.campaign.Requirements[0].RequirementID,
		OrderNumber:   orderNumber,
		Quantity:      1,
		Value:         300,
		Details:       map[string]any{"category": "MONITOR"},
	})
	require.NoError(t, err)
	return sub
}

func TestCreateSubmission(t *testing.T) {
	env := newWorkflowEnv(t)

	sub := env.createSubmission(t, "ORD-1")
	require.Equal(t, StatusPending, sub.Status)
	require.Equal(t, env.seller.ID, sub.SellerID)
	require.Equal(t, "MONITOR", sub.Details["category"])

	activities, err := env.svc.ListActivities(context.Background(), "kit_1")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, ActivitySubmissionCreated, activities[0].Type)
	require.Equal(t, "api", activities[0].Metadata["channel"])
}

func TestCreateSubmissionValidation(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, CreateParams{KitID: "kit_1", OrderNumber: " "})
	require.Error(t, err)

	_, err = env.svc.Create(ctx, CreateParams{
		KitID: "kit_1", RequirementID: "missing", OrderNumber: "ORD-1",
	})
	require.Error(t, err)
}

func TestCreateSubmissionCompletedKit(t *testing.T) {
	env := newWorkflowEnv(t)

	completed := &resolverStub{kit: &KitInfo{
		KitID: "kit_1", CampaignID: env.campaign.CampaignID,
		SellerID: env.seller.ID, Completed: true,
	}}
	env.svc.resolver = completed

	_, err := env.svc.Create(context.Background(), CreateParams{
		KitID:         "kit_1",
		RequirementID: env.campaign.Requirements[0].RequirementID,
		OrderNumber:   "ORD-1",
	})
	require.Error(t, err)
}

func TestCreateSubmissionDuplicateOrder(t *testing.T) {
	env := newWorkflowEnv(t)

	env.createSubmission(t, "ORD-1")

	_, err := env.svc.Create(context.Background(), CreateParams{
		KitID:         "kit_1",
		RequirementID: env.campaign.Requirements[0].RequirementID,
		OrderNumber:   "ORD-1",
	})
	require.Error(t, err)
}

func TestCreateSubmissionDefaultsQuantity(t *testing.T) {
	env := newWorkflowEnv(t)

	sub, err := env.svc.Create(context.Background(), CreateParams{
		KitID:         "kit_1",
		RequirementID: env.campaign.Requirements[0].RequirementID,
		OrderNumber:   "ORD-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, sub.Quantity)
}

func TestValidateSubmission(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	sub := env.createSubmission(t, "ORD-1")

	validated, err := env.svc.Validate(ctx, sub.SubmissionID, "checked manually")
	require.NoError(t, err)
	require.Equal(t, StatusValidated, validated.Status)
	require.Equal(t, "checked manually", validated.ValidationMessage)
	require.NotNil(t, validated.ValidatedAt)
	require.Equal(t, 1, env.rechecker.calls)

	// The message is on the row itself, not just in activity metadata.
	stored, err := env.svc.Get(ctx, sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, "checked manually", stored.ValidationMessage)

	// Seller and manager earnings landed in the same transaction.
	var earnings []*earning.Earning
	require.NoError(t, env.db.Order("role DESC").Find(&earnings).Error)
	require.Len(t, earnings, 2)
	require.Equal(t, earning.RoleSeller, earnings[0].Role)
	require.Equal(t, earning.RoleManager, earnings[1].Role)
	require.Equal(t, "Ana Souza", earnings[1].SourceSellerName)

	activities, err := env.svc.ListActivities(ctx, "kit_1")
	require.NoError(t, err)
	require.Len(t, activities, 2)
}

func TestValidateIsTerminal(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	sub := env.createSubmission(t, "ORD-1")
	_, err := env.svc.Validate(ctx, sub.SubmissionID, "")
	require.NoError(t, err)

	_, err = env.svc.Validate(ctx, sub.SubmissionID, "")
	require.Error(t, err)
	_, err = env.svc.Reject(ctx, sub.SubmissionID, "nope")
	require.Error(t, err)
}

func TestValidateEmitsKitCompletedActivity(t *testing.T) {
	env := newWorkflowEnv(t)
	env.rechecker.completed = true

	sub := env.createSubmission(t, "ORD-1")
	_, err := env.svc.Validate(context.Background(), sub.SubmissionID, "")
	require.NoError(t, err)

	activities, err := env.svc.ListActivities(context.Background(), "kit_1")
	require.NoError(t, err)

	var types []ActivityType
	for _, a := range activities {
		types = append(types, a.Type)
	}
	require.Contains(t, types, ActivityKitCompleted)
}

func TestValidateRollsBackOnRecheckFailure(t *testing.T) {
	env := newWorkflowEnv(t)
	env.rechecker.err = gorm.ErrInvalidData

	sub := env.createSubmission(t, "ORD-1")
	_, err := env.svc.Validate(context.Background(), sub.SubmissionID, "")
	require.Error(t, err)

	// The status flip and the earnings both rolled back.
	got, err := env.svc.Get(context.Background(), sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)

	var count int64
	require.NoError(t, env.db.Model(&earning.Earning{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRejectSubmission(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	sub := env.createSubmission(t, "ORD-1")

	rejected, err := env.svc.Reject(ctx, sub.SubmissionID, "invoice missing")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "invoice missing", rejected.RejectionReason)
	require.Zero(t, env.rechecker.calls)

	// No earnings on rejection.
	var count int64
	require.NoError(t, env.db.Model(&earning.Earning{}).Count(&count).Error)
	require.Zero(t, count)

	_, err = env.svc.Validate(ctx, sub.SubmissionID, "")
	require.Error(t, err)
}

func TestBulkValidateContinuesPastFailures(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	first := env.createSubmission(t, "ORD-1")
	second := env.createSubmission(t, "ORD-2")

	// Pre-reject the second so bulk validation fails on it.
	_, err := env.svc.Reject(ctx, second.SubmissionID, "bad invoice")
	require.NoError(t, err)

	result, err := env.svc.BulkValidate(ctx, []string{
		first.SubmissionID, "missing", second.SubmissionID,
	}, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 2, result.Failed)
	require.Len(t, result.Outcomes, 3)
	require.True(t, result.Outcomes[0].Success)
	require.False(t, result.Outcomes[1].Success)
	require.NotEmpty(t, result.Outcomes[1].Error)
	require.False(t, result.Outcomes[2].Success)
}

func TestBulkValidateHonorsCancellation(t *testing.T) {
	env := newWorkflowEnv(t)

	sub := env.createSubmission(t, "ORD-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.BulkValidate(ctx, []string{sub.SubmissionID}, "")
	require.ErrorIs(t, err, context.Canceled)

	got, err := env.svc.Get(context.Background(), sub.SubmissionID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}
