package submission

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusRejected  Status = "REJECTED"
)

// CampaignSubmission is a sale reported against a kit requirement. Only
// VALIDATED submissions count toward progress and completion.
type CampaignSubmission struct {
	SubmissionID  string `gorm:"column:submission_id;primaryKey"`
	KitID         string `gorm:"column:kit_id;index;not null"`
	CampaignID    string `gorm:"column:campaign_id;index;not null"`
	SellerID      string `gorm:"column:seller_id;index;not null"`
	RequirementID string `gorm:"column:requirement_id;index;not null"`
	OrderNumber   string `gorm:"column:order_number;index;not null"`
	Status        Status `gorm:"column:status;default:PENDING"`

	// Quantity and Value are the units this submission contributes to
	// QUANTITY and VALUE requirements respectively.
	Quantity float64 `gorm:"column:quantity"`
	Value    float64 `gorm:"column:value"`

	// Details carries free-form sale attributes (category, product,
	// region, whatever the campaign's conditions reference).
	Details datatypes.JSONMap `gorm:"column:details"`

	ValidationMessage string     `gorm:"column:validation_message"`
	RejectionReason   string     `gorm:"column:rejection_reason"`
	ValidatedAt       *time.Time `gorm:"column:validated_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignSubmission) TableName() string {
	return "campaign_submissions"
}

// FieldValue resolves a condition field against this submission. Detail
// attributes win over the built-in columns so campaigns can shadow them.
func (s *CampaignSubmission) FieldValue(field string) any {
	if s.Details != nil {
		if v, ok := s.Details[field]; ok {
			return v
		}
	}
	switch field {
	case "order_number":
		return s.OrderNumber
	case "quantity":
		return s.Quantity
	case "value":
		return s.Value
	case "seller_id":
		return s.SellerID
	default:
		return nil
	}
}

type ActivityType string

const (
	ActivitySubmissionCreated   ActivityType = "SUBMISSION_CREATED"
	ActivitySubmissionValidated ActivityType = "SUBMISSION_VALIDATED"
	ActivitySubmissionRejected  ActivityType = "SUBMISSION_REJECTED"
	ActivityKitCompleted        ActivityType = "KIT_COMPLETED"
)

// Activity is the per-kit audit trail. Rows are append-only.
type Activity struct {
	ActivityID  string            `gorm:"column:activity_id;primaryKey"`
	KitID       string            `gorm:"column:kit_id;index;not null"`
	Type        ActivityType      `gorm:"column:type;not null"`
	Description string            `gorm:"column:description"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Activity) TableName() string {
	return "kit_activities"
}
