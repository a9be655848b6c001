package earning

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleSeller  Role = "SELLER"
	RoleManager Role = "MANAGER"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// Earning is a points payout owed to a user for a validated submission.
// Seller earnings carry the full award; manager earnings carry the
// configured percentage cut of their seller's award.
type Earning struct {
	EarningID    string          `gorm:"column:earning_id;primaryKey"`
	KitID        string          `gorm:"column:kit_id;index;not null"`
	CampaignID   string          `gorm:"column:campaign_id;index;not null"`
	SubmissionID string          `gorm:"column:submission_id;index"`
	UserID       string          `gorm:"column:user_id;index;not null"`
	Role         Role            `gorm:"column:role;not null"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null"`
	// SourceSellerName is set on MANAGER earnings so a manager's statement
	// shows which seller produced the cut.
	SourceSellerName string     `gorm:"column:source_seller_name"`
	Status           Status     `gorm:"column:status;default:PENDING"`
	PaidAt           *time.Time `gorm:"column:paid_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Earning) TableName() string {
	return "earnings"
}
