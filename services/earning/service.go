package earning

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/pkg/db/option"
	"incentivehub/pkg/errutil"
	"incentivehub/pkg/repository"
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	repo   repository.Repository[Earning]
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Logger *zap.Logger
}

func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     p.DB,
		logger: logger,
		repo:   repository.ProvideStore[Earning](p.DB),
	}
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Earning, error) {
	return s.repo.Find(ctx, &Earning{UserID: userID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}))
}

func (s *Service) ListByKit(ctx context.Context, kitID string) ([]*Earning, error) {
	return s.repo.Find(ctx, &Earning{KitID: kitID})
}

// MarkPaid settles a PENDING earning. The status guard in the UPDATE makes
// the transition single-fire under concurrent settlement attempts.
func (s *Service) MarkPaid(ctx context.Context, earningID string) (*Earning, error) {
	e, err := s.repo.FindOne(ctx, &Earning{EarningID: earningID})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errutil.NotFound("earning not found", nil)
	}

	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&Earning{}).
		Where("earning_id = ? AND status = ?", earningID, StatusPending).
		Updates(map[string]any{"status": StatusPaid, "paid_at": now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errutil.UnprocessableEntity("earning is not pending", nil)
	}

	e.Status = StatusPaid
	e.PaidAt = &now
	return e, nil
}
