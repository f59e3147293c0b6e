package db_models

import (
	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalPending            ApprovalStatus = "pending"
	ApprovalEbmApproved        ApprovalStatus = "ebm_approved"
	ApprovalMembershipApproved ApprovalStatus = "membership_approved"
	ApprovalAdminApproved      ApprovalStatus = "admin_approved"
	ApprovalRejected           ApprovalStatus = "rejected"
)

// ApprovalRecord tracks the human sign-offs for one account.
type ApprovalRecord struct {
	BaseModel
	AccountID uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null"`
	Status    ApprovalStatus `gorm:"type:varchar(32);index;not null"`

	AssignedEbmID *uuid.UUID `gorm:"type:uuid;index"`
	EbmAssignedAt *int64     `gorm:"index"`
	EbmApprovedAt *int64

	AssignedMembershipHeadID *uuid.UUID `gorm:"type:uuid;index"`
	MembershipHeadAssignedAt *int64     `gorm:"index"`
	MembershipHeadApprovedAt *int64

	Remarks    string     `gorm:"type:text"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid"`
	DecidedAt  *int64
}

// UsernameSequence holds the last allocated sequence number per username prefix.
// Rows are only read and written under FOR UPDATE.
type UsernameSequence struct {
	Prefix    string `gorm:"primaryKey;size:8"`
	LastValue int    `gorm:"not null"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

type ApprovalTier string

const (
	TierEBM            ApprovalTier = "ebm"
	TierMembershipHead ApprovalTier = "membership_head"
	TierAdmin          ApprovalTier = "admin"
)

func ParseApprovalTier(s string) (ApprovalTier, bool) {
	switch t := ApprovalTier(s); t {
	case TierEBM, TierMembershipHead, TierAdmin:
		return t, true
	}
	return "", false
}

// Approved reports whether the record is in a terminal approved state.
// ebm_approved is terminal only when no second tier is required.
func (s ApprovalStatus) Approved(requireSecondTier bool) bool {
	switch s {
	case ApprovalMembershipApproved, ApprovalAdminApproved:
		return true
	case ApprovalEbmApproved:
		return !requireSecondTier
	}
	return false
}
