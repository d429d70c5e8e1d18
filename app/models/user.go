package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER     = "user"
	ROLE_CREATOR  = "creator"
	ROLE_ADMIN    = "admin"
	STATUS_ACTIVE = "active"
)

// User is the subset of the platform profile this service reads and writes.
// SubscriberCount and LifetimeEarningsCents are denormalized aggregates that
// must only ever be mutated through the atomic repository primitives.
type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                 string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Role                  string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user creator admin"`
	Status                string         `gorm:"type:varchar(50);default:'active'" json:"status"`
	SubscriberCount       int64          `gorm:"not null;default:0" json:"subscriber_count"`
	LifetimeEarningsCents int64          `gorm:"not null;default:0" json:"lifetime_earnings_cents"`
	PayoutAccountID       string         `gorm:"type:varchar(191);default:''" json:"-"`
	PayoutsEnabled        bool           `gorm:"default:false" json:"payouts_enabled"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// PayoutReady reports whether funds may be transferred to this creator.
// Both conditions are required; creators still onboarding fail one or both.
func (u *User) PayoutReady() bool {
	return u.PayoutAccountID != "" && u.PayoutsEnabled
}
