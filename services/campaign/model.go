package campaign

import "time"

// ENUM-LIKE constants
type Status string
type RequirementType string
type Operator string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"

	RequirementQuantity RequirementType = "QUANTITY"
	RequirementValue    RequirementType = "VALUE"

	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
	OpContains    Operator = "CONTAINS"
	OpNotContains Operator = "NOT_CONTAINS"
)

// ValidOperator reports whether op is one of the supported condition operators.
func ValidOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpNotContains:
		return true
	}
	return false
}

// Campaign is an incentive campaign definition: a time window, an ordered
// set of goal requirements and the points paid out per validated sale.
type Campaign struct {
	CampaignID  string `gorm:"column:campaign_id;primaryKey"`
	Code        string `gorm:"column:code"`
	Title       string `gorm:"column:title;type:varchar(255);not null"`
	Description string `gorm:"column:description;type:text"`
	Status      Status `gorm:"column:status;type:varchar(50);not null;default:'DRAFT'"`

	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`

	PointsOnCompletion      float64 `gorm:"column:points_on_completion"`
	ManagerPointsPercentage float64 `gorm:"column:manager_points_percentage"` // 0..100

	// EligibilityExpression is an optional CEL expression over seller
	// attributes; empty means every seller qualifies.
	EligibilityExpression string `gorm:"column:eligibility_expression;type:text"`

	Requirements []GoalRequirement `gorm:"foreignKey:CampaignID;references:CampaignID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Campaign) TableName() string { return "campaigns" }

// IsActive checks if the campaign is currently active based on time range & status.
func (c *Campaign) IsActive(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	return !c.Ended(now)
}

// Ended reports whether now falls at or past the campaign end. The window is
// half-open: [StartDate, EndDate).
func (c *Campaign) Ended(now time.Time) bool {
	return c.EndDate != nil && !now.Before(*c.EndDate)
}

// GoalRequirement is one measurable target within a campaign, e.g. "5
// validated sales of product X". Conditions gate which submissions count.
type GoalRequirement struct {
	RequirementID string          `gorm:"column:requirement_id;primaryKey"`
	CampaignID    string          `gorm:"column:campaign_id;index;not null"`
	Description   string          `gorm:"column:description;type:text"`
	Type          RequirementType `gorm:"column:type;type:varchar(50);not null;default:'QUANTITY'"`
	TargetValue   float64         `gorm:"column:target_value"`
	PointsAwarded float64         `gorm:"column:points_awarded"`
	Position      int             `gorm:"column:position"`

	Conditions []GoalCondition `gorm:"foreignKey:RequirementID;references:RequirementID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (GoalRequirement) TableName() string { return "goal_requirements" }

// GoalCondition is a single field/operator/value predicate. All conditions
// of a requirement are AND-combined.
type GoalCondition struct {
	ConditionID     string   `gorm:"column:condition_id;primaryKey"`
	RequirementID   string   `gorm:"column:requirement_id;index;not null"`
	Field           string   `gorm:"column:field;not null"`
	Operator        Operator `gorm:"column:operator;type:varchar(50);not null"`
	ComparisonValue string   `gorm:"column:comparison_value"`
}

func (GoalCondition) TableName() string { return "goal_conditions" }
