package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder. PasswordHash is nil for OAuth-only
// accounts; GoogleID is nil for password-only accounts. Creation sites must
// never leave both empty.
type User struct {
	BaseModel
	Email                string     `gorm:"uniqueIndex;not null" json:"email"`
	Name                 string     `json:"name"`
	PasswordHash         *string    `json:"-"`
	GoogleID             *string    `gorm:"uniqueIndex" json:"-"`
	ProfileURL           string     `json:"profileUrl"`
	Roles                string     `gorm:"default:user" json:"roles"`
	IsVerified           bool       `json:"isVerified"`
	AgreeToTerms         bool       `json:"agreeToTerms"`
	AgreeToPrivacyPolicy bool       `json:"agreeToPrivacyPolicy"`
	LastLogin            *time.Time `json:"lastLogin"`
	Reviews              []Review   `json:"-"`
}

// OTP keeps track of pending email verification codes. Rows are deleted on
// successful verification; an expired row is never reused.
type OTP struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Code      string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}
