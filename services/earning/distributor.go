package earning

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"incentivehub/pkg/repository"
)

var oneHundred = decimal.NewFromInt(100)

// DistributeParams carries everything the distributor needs so it never has
// to read campaign, kit or user state itself; the caller resolves those
// inside the same transaction before calling Distribute.
type DistributeParams struct {
	KitID        string
	CampaignID   string
	SubmissionID string
	SellerID     string
	SellerName   string
	ManagerID    *string
	// Quantity is the validated submission's unit count; the seller award
	// is PointsOnCompletion multiplied by it.
	Quantity           float64
	PointsOnCompletion float64
	ManagerPercentage  float64
}

// Distributor writes PENDING earnings when a submission is validated. It
// always runs inside the caller's transaction so earnings land atomically
// with the submission's status flip.
type Distributor struct {
	node   *snowflake.Node
	logger *zap.Logger
}

func NewDistributor(node *snowflake.Node, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{node: node, logger: logger}
}

// Distribute creates the seller earning and, when the seller has a manager
// and the percentage is positive, the manager earning. A campaign without
// pointsOnCompletion distributes nothing and returns an empty slice.
func (d *Distributor) Distribute(ctx context.Context, tx *gorm.DB, p DistributeParams) ([]*Earning, error) {
	if p.PointsOnCompletion <= 0 {
		return nil, nil
	}

	sellerAmount := decimal.NewFromFloat(p.PointsOnCompletion).
		Mul(decimal.NewFromFloat(p.Quantity))

	earnings := []*Earning{{
		EarningID:    d.node.Generate().String(),
		KitID:        p.KitID,
		CampaignID:   p.CampaignID,
		SubmissionID: p.SubmissionID,
		UserID:       p.SellerID,
		Role:         RoleSeller,
		Amount:       sellerAmount,
		Status:       StatusPending,
	}}

	if p.ManagerID != nil && *p.ManagerID != "" && p.ManagerPercentage > 0 {
		managerAmount := sellerAmount.
			Mul(decimal.NewFromFloat(p.ManagerPercentage)).
			Div(oneHundred).
			Round(2)
		earnings = append(earnings, &Earning{
			EarningID:        d.node.Generate().String(),
			KitID:            p.KitID,
			CampaignID:       p.CampaignID,
			SubmissionID:     p.SubmissionID,
			UserID:           *p.ManagerID,
			Role:             RoleManager,
			Amount:           managerAmount,
			SourceSellerName: p.SellerName,
			Status:           StatusPending,
		})
	}

	repo := repository.ProvideStore[Earning](tx)
	if err := repo.BatchCreate(ctx, earnings); err != nil {
		return nil, err
	}

	d.logger.Info("earnings distributed",
		zap.String("kit_id", p.KitID),
		zap.String("submission_id", p.SubmissionID),
		zap.String("seller_id", p.SellerID),
		zap.Int("count", len(earnings)))

	return earnings, nil
}
