package kit

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/internal/config"
	"incentivehub/pkg/cache"
	"incentivehub/pkg/db/option"
	"incentivehub/pkg/errutil"
	"incentivehub/pkg/repository"
	"incentivehub/services/campaign"
	"incentivehub/services/submission"
	"incentivehub/services/user"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	logger *zap.Logger

	kits        repository.Repository[CampaignKit]
	submissions repository.Repository[submission.CampaignSubmission]
	calculator  *Calculator

	campaigns *campaign.Service
	users     *user.Service

	// campaignCache keeps the campaign-with-requirements read off the hot
	// progress path. Invalidated by TTL only; requirement sets rarely
	// change once a campaign is live.
	campaignCache *cache.Cache[*campaign.Campaign]
}

type ServiceParams struct {
	fx.In

	DB        *gorm.DB
	Node      *snowflake.Node
	Logger    *zap.Logger
	Config    *config.Config
	Campaigns *campaign.Service
	Users     *user.Service
	Strategy  OverallStrategy `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := 30 * time.Second
	if p.Config != nil && p.Config.Cache.TTL > 0 {
		ttl = p.Config.Cache.TTL
	}
	return &Service{
		db:            p.DB,
		node:          p.Node,
		logger:        logger,
		kits:          repository.ProvideStore[CampaignKit](p.DB),
		submissions:   repository.ProvideStore[submission.CampaignSubmission](p.DB),
		calculator:    NewCalculator(p.Strategy),
		campaigns:     p.Campaigns,
		users:         p.Users,
		campaignCache: cache.New[*campaign.Campaign]("kit_campaign", ttl),
	}
}

// GetOrCreate returns the seller's kit for a campaign, enrolling the seller
// on first qualifying access. Enrollment requires an ACTIVE campaign inside
// its window and an eligible seller.
func (s *Service) GetOrCreate(ctx context.Context, campaignID, sellerID string) (*CampaignKit, error) {
	existing, err := s.kits.FindOne(ctx, &CampaignKit{CampaignID: campaignID, SellerID: sellerID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive(time.Now()) {
		return nil, errutil.UnprocessableEntity("campaign is not accepting enrollments", nil)
	}

	seller, err := s.users.Get(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	eligible, err := campaign.Eligible(c, seller.EligibilityAttributes())
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, errutil.Forbidden("seller is not eligible for this campaign", nil)
	}

	kit := &CampaignKit{
		KitID:      s.node.Generate().String(),
		CampaignID: campaignID,
		SellerID:   sellerID,
		Status:     StatusInProgress,
	}
	if err := s.kits.Create(ctx, kit); err != nil {
		return nil, err
	}

	s.logger.Info("kit created",
		zap.String("kit_id", kit.KitID),
		zap.String("campaign_id", campaignID),
		zap.String("seller_id", sellerID))

	return kit, nil
}

func (s *Service) Get(ctx context.Context, kitID string) (*CampaignKit, error) {
	kit, err := s.kits.FindOne(ctx, &CampaignKit{KitID: kitID})
	if err != nil {
		return nil, err
	}
	if kit == nil {
		return nil, errutil.NotFound("kit not found", nil)
	}
	return kit, nil
}

func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]*CampaignKit, error) {
	return s.kits.Find(ctx, &CampaignKit{SellerID: sellerID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}))
}

// GetProgress computes the condition-aware percentages shown to sellers.
func (s *Service) GetProgress(ctx context.Context, kitID string) (*Progress, error) {
	kit, err := s.Get(ctx, kitID)
	if err != nil {
		return nil, err
	}

	c, err := s.campaignCache.GetOrLoad(kit.CampaignID, func() (*campaign.Campaign, error) {
		return s.campaigns.Get(ctx, kit.CampaignID)
	})
	if err != nil {
		return nil, err
	}

	subs, err := s.submissions.Find(ctx, &submission.CampaignSubmission{KitID: kitID})
	if err != nil {
		return nil, err
	}

	progress := s.calculator.Compute(kitID, c.Requirements, subs)
	return &progress, nil
}

// ResolveKit implements the submission workflow's kit lookup.
func (s *Service) ResolveKit(ctx context.Context, kitID string) (*submission.KitInfo, error) {
	kit, err := s.Get(ctx, kitID)
	if err != nil {
		return nil, err
	}
	return &submission.KitInfo{
		KitID:      kit.KitID,
		CampaignID: kit.CampaignID,
		SellerID:   kit.SellerID,
		Completed:  kit.Status == StatusCompleted,
	}, nil
}

// RecheckCompletion re-evaluates the condition-blind completion rule inside
// the caller's transaction. Returns true only on the IN_PROGRESS to
// COMPLETED transition; an already completed kit reports false.
func (s *Service) RecheckCompletion(ctx context.Context, tx *gorm.DB, kitID string) (bool, error) {
	kits := s.kits.WithTrx(tx)

	kit, err := kits.FindOne(ctx, &CampaignKit{KitID: kitID}, option.WithLockingUpdate())
	if err != nil {
		return false, err
	}
	if kit == nil {
		return false, errutil.NotFound("kit not found", nil)
	}
	if kit.Status == StatusCompleted {
		return false, nil
	}

	// The requirement set must come from the same transaction as the kit and
	// submission reads; going through the campaign service would use a second
	// pool connection and escape the transaction's snapshot.
	c, err := repository.ProvideStore[campaign.Campaign](tx).FindOne(ctx,
		&campaign.Campaign{CampaignID: kit.CampaignID}, option.WithPreload("Requirements"))
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, errutil.NotFound("campaign not found", nil)
	}

	subs, err := s.submissions.WithTrx(tx).Find(ctx, &submission.CampaignSubmission{KitID: kitID})
	if err != nil {
		return false, err
	}

	if !completionSatisfied(c.Requirements, subs) {
		return false, nil
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&CampaignKit{}).
		Where("kit_id = ? AND status = ?", kitID, StatusInProgress).
		Updates(map[string]any{"status": StatusCompleted, "completed_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	s.logger.Info("kit completed", zap.String("kit_id", kitID))
	return true, nil
}

// Statistics summarizes a campaign's kits and submissions for reporting.
type Statistics struct {
	CampaignID           string  `json:"campaignId"`
	TotalKits            int64   `json:"totalKits"`
	CompletedKits        int64   `json:"completedKits"`
	TotalSubmissions     int64   `json:"totalSubmissions"`
	ValidatedSubmissions int64   `json:"validatedSubmissions"`
	CompletionRate       float64 `json:"completionRate"`
}

func (s *Service) GetStatistics(ctx context.Context, campaignID string) (*Statistics, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, err
	}

	stats := &Statistics{CampaignID: campaignID}

	var err error
	if stats.TotalKits, err = s.kits.Count(ctx, &CampaignKit{CampaignID: campaignID}); err != nil {
		return nil, err
	}
	if stats.CompletedKits, err = s.kits.Count(ctx, &CampaignKit{CampaignID: campaignID, Status: StatusCompleted}); err != nil {
		return nil, err
	}
	if stats.TotalSubmissions, err = s.submissions.Count(ctx, &submission.CampaignSubmission{CampaignID: campaignID}); err != nil {
		return nil, err
	}
	if stats.ValidatedSubmissions, err = s.submissions.Count(ctx, &submission.CampaignSubmission{CampaignID: campaignID, Status: submission.StatusValidated}); err != nil {
		return nil, err
	}

	if stats.TotalKits > 0 {
		stats.CompletionRate = float64(stats.CompletedKits) / float64(stats.TotalKits) * 100
	}
	return stats, nil
}
