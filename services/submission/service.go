package submission

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"incentivehub/pkg/db/option"
	"incentivehub/pkg/errutil"
	"incentivehub/pkg/middleware"
	"incentivehub/pkg/repository"
	"incentivehub/services/campaign"
	"incentivehub/services/earning"
	"incentivehub/services/user"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	logger *zap.Logger

	submissions repository.Repository[CampaignSubmission]
	activities  repository.Repository[Activity]

	campaigns   *campaign.Service
	users       *user.Service
	resolver    KitResolver
	rechecker   CompletionRechecker
	distributor *earning.Distributor
}

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Logger      *zap.Logger
	Campaigns   *campaign.Service
	Users       *user.Service
	Resolver    KitResolver
	Rechecker   CompletionRechecker
	Distributor *earning.Distributor
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          p.DB,
		node:        p.Node,
		logger:      logger,
		submissions: repository.ProvideStore[CampaignSubmission](p.DB),
		activities:  repository.ProvideStore[Activity](p.DB),
		campaigns:   p.Campaigns,
		users:       p.Users,
		resolver:    p.Resolver,
		rechecker:   p.Rechecker,
		distributor: p.Distributor,
	}
}

type CreateParams struct {
	KitID         string         `json:"kitId"`
	RequirementID string         `json:"requirementId"`
	OrderNumber   string         `json:"orderNumber"`
	Quantity      float64        `json:"quantity"`
	Value         float64        `json:"value"`
	Details       map[string]any `json:"details"`
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*CampaignSubmission, error) {
	if strings.TrimSpace(p.OrderNumber) == "" {
		return nil, errutil.BadRequest("orderNumber is required", nil)
	}
	if p.Quantity < 0 || p.Value < 0 {
		return nil, errutil.BadRequest("quantity and value must not be negative", nil)
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}

	kit, err := s.resolver.ResolveKit(ctx, p.KitID)
	if err != nil {
		return nil, err
	}
	if kit.Completed {
		return nil, errutil.UnprocessableEntity("kit is already completed", nil)
	}

	c, err := s.campaigns.Get(ctx, kit.CampaignID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive(time.Now()) {
		return nil, errutil.UnprocessableEntity("campaign is not accepting submissions", nil)
	}
	if !requirementBelongs(c, p.RequirementID) {
		return nil, errutil.NotFound("requirement not found in campaign", nil)
	}

	duplicate, err := s.submissions.FindOne(ctx, &CampaignSubmission{
		CampaignID:  kit.CampaignID,
		OrderNumber: p.OrderNumber,
	})
	if err != nil {
		return nil, err
	}
	if duplicate != nil {
		return nil, errutil.Conflict("order number already submitted for this campaign", nil)
	}

	sub := &CampaignSubmission{
		SubmissionID:  s.node.Generate().String(),
		KitID:         kit.KitID,
		CampaignID:    kit.CampaignID,
		SellerID:      kit.SellerID,
		RequirementID: p.RequirementID,
		OrderNumber:   p.OrderNumber,
		Status:        StatusPending,
		Quantity:      p.Quantity,
		Value:         p.Value,
		Details:       datatypes.JSONMap(p.Details),
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.submissions.WithTrx(tx).Create(ctx, sub); err != nil {
			return err
		}
		return s.recordActivity(ctx, tx, kit.KitID, ActivitySubmissionCreated,
			"submission created for order "+sub.OrderNumber,
			map[string]any{"submission_id": sub.SubmissionID})
	}); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *Service) Get(ctx context.Context, submissionID string) (*CampaignSubmission, error) {
	sub, err := s.submissions.FindOne(ctx, &CampaignSubmission{SubmissionID: submissionID})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errutil.NotFound("submission not found", nil)
	}
	return sub, nil
}

func (s *Service) ListByKit(ctx context.Context, kitID string) ([]*CampaignSubmission, error) {
	return s.submissions.Find(ctx, &CampaignSubmission{KitID: kitID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}))
}

// Validate moves a PENDING submission to VALIDATED, distributes earnings and
// rechecks kit completion, all in one transaction. VALIDATED is terminal.
func (s *Service) Validate(ctx context.Context, submissionID, message string) (*CampaignSubmission, error) {
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusPending {
		return nil, errutil.UnprocessableEntity("only pending submissions may be validated", nil)
	}

	c, err := s.campaigns.Get(ctx, sub.CampaignID)
	if err != nil {
		return nil, err
	}
	seller, err := s.users.Get(ctx, sub.SellerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&CampaignSubmission{}).
			Where("submission_id = ? AND status = ?", submissionID, StatusPending).
			Updates(map[string]any{
				"status":             StatusValidated,
				"validation_message": message,
				"validated_at":       now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errutil.UnprocessableEntity("only pending submissions may be validated", nil)
		}

		if _, err := s.distributor.Distribute(ctx, tx, earning.DistributeParams{
			KitID:              sub.KitID,
			CampaignID:         sub.CampaignID,
			SubmissionID:       sub.SubmissionID,
			SellerID:           seller.ID,
			SellerName:         seller.Name,
			ManagerID:          seller.ManagerID,
			Quantity:           sub.Quantity,
			PointsOnCompletion: c.PointsOnCompletion,
			ManagerPercentage:  c.ManagerPointsPercentage,
		}); err != nil {
			return err
		}

		completed, err := s.rechecker.RecheckCompletion(ctx, tx, sub.KitID)
		if err != nil {
			return err
		}

		meta := map[string]any{"submission_id": sub.SubmissionID}
		if message != "" {
			meta["message"] = message
		}
		if err := s.recordActivity(ctx, tx, sub.KitID, ActivitySubmissionValidated,
			"submission validated for order "+sub.OrderNumber, meta); err != nil {
			return err
		}
		if completed {
			if err := s.recordActivity(ctx, tx, sub.KitID, ActivityKitCompleted,
				"kit completed", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span := trace.SpanFromContext(ctx)
	s.logger.Info("submission validated",
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("submission_id", sub.SubmissionID),
		zap.String("kit_id", sub.KitID),
		zap.String("order_number", sub.OrderNumber))

	sub.Status = StatusValidated
	sub.ValidationMessage = message
	sub.ValidatedAt = &now
	return sub, nil
}

// Reject moves a PENDING submission to REJECTED. No earnings, no completion
// recheck. REJECTED is terminal.
func (s *Service) Reject(ctx context.Context, submissionID, reason string) (*CampaignSubmission, error) {
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusPending {
		return nil, errutil.UnprocessableEntity("only pending submissions may be rejected", nil)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&CampaignSubmission{}).
			Where("submission_id = ? AND status = ?", submissionID, StatusPending).
			Updates(map[string]any{"status": StatusRejected, "rejection_reason": reason})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errutil.UnprocessableEntity("only pending submissions may be rejected", nil)
		}

		meta := map[string]any{"submission_id": sub.SubmissionID}
		if reason != "" {
			meta["reason"] = reason
		}
		return s.recordActivity(ctx, tx, sub.KitID, ActivitySubmissionRejected,
			"submission rejected for order "+sub.OrderNumber, meta)
	})
	if err != nil {
		return nil, err
	}

	sub.Status = StatusRejected
	sub.RejectionReason = reason
	return sub, nil
}

type BulkOutcome struct {
	SubmissionID string `json:"submissionId"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []BulkOutcome `json:"outcomes"`
}

// BulkValidate applies the validation workflow independently per id. One bad
// id never aborts the batch; cancellation is honored between items.
func (s *Service) BulkValidate(ctx context.Context, submissionIDs []string, message string) (*BulkResult, error) {
	result := &BulkResult{Outcomes: make([]BulkOutcome, 0, len(submissionIDs))}

	for _, id := range submissionIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := BulkOutcome{SubmissionID: id, Success: true}
		if _, err := s.Validate(ctx, id, message); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			result.Failed++
			s.logger.Warn("bulk validation item failed",
				zap.String("submission_id", id), zap.Error(err))
		} else {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (s *Service) ListActivities(ctx context.Context, kitID string) ([]*Activity, error) {
	return s.activities.Find(ctx, &Activity{KitID: kitID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}))
}

func (s *Service) recordActivity(ctx context.Context, tx *gorm.DB, kitID string, typ ActivityType, description string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["channel"] = middleware.GetChannel(ctx)

	return s.activities.WithTrx(tx).Create(ctx, &Activity{
		ActivityID:  s.node.Generate().String(),
		KitID:       kitID,
		Type:        typ,
		Description: description,
		Metadata:    datatypes.JSONMap(metadata),
	})
}

func requirementBelongs(c *campaign.Campaign, requirementID string) bool {
	for i := range c.Requirements {
		if c.Requirements[i].RequirementID == requirementID {
			return true
		}
	}
	return false
}

var Module = fx.Module("submission",
	fx.Provide(NewService),
)
