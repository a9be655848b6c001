package user

import "time"

// User is a campaign participant: a seller, optionally reporting to a
// manager who shares in validated-sale earnings.
type User struct {
	ID        string  `gorm:"column:user_id;primaryKey"`
	Name      string  `gorm:"column:name;type:varchar(255);not null"`
	Email     string  `gorm:"column:email"`
	Document  string  `gorm:"column:document;index"` // canonical digits-only personal id
	Region    string  `gorm:"column:region"`
	Role      string  `gorm:"column:role;default:'seller'"`
	ManagerID *string `gorm:"column:manager_id;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// EligibilityAttributes exposes the seller attributes campaign eligibility
// expressions may reference.
func (u *User) EligibilityAttributes() map[string]any {
	return map[string]any{
		"name":        u.Name,
		"document":    u.Document,
		"region":      u.Region,
		"role":        u.Role,
		"has_manager": u.ManagerID != nil,
	}
}
