package kit

import "time"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// CampaignKit is a seller's enrollment in one campaign. A seller holds at
// most one kit per campaign.
type CampaignKit struct {
	KitID      string `gorm:"column:kit_id;primaryKey"`
	CampaignID string `gorm:"column:campaign_id;uniqueIndex:idx_kit_campaign_seller;not null"`
	SellerID   string `gorm:"column:seller_id;uniqueIndex:idx_kit_campaign_seller;not null"`
	Status     Status `gorm:"column:status;default:IN_PROGRESS"`

	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignKit) TableName() string {
	return "campaign_kits"
}
