package db_models

import (
	"clubhub/pkg/authz"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string
	Role         authz.Role `gorm:"type:varchar(32);index;not null"`
	Gender       Gender     `gorm:"type:varchar(16);index"`
	IsActive     bool       `gorm:"index"`

	// Username is minted on final approval and cleared on rejection.
	IsApproved bool
	Username   *string `gorm:"uniqueIndex;size:16"`

	FailedLoginAttempts int
	LockedUntil         *int64 // unix seconds
}

// IsLocked reports whether the lockout window is still open at now (unix seconds).
func (a *Account) IsLocked(now int64) bool {
	return a.LockedUntil != nil && *a.LockedUntil > now
}
