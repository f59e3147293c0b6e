package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

type PayableKind string

const (
	PayablePublicRegistration PayableKind = "public_registration"
	PayableMemberRegistration PayableKind = "member_registration"
)

type PaymentOrder struct {
	BaseModel
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"` // public payment reference

	PayableType PayableKind `gorm:"type:varchar(32);index:idx_payable;not null"`
	PayableID   uuid.UUID   `gorm:"type:uuid;index:idx_payable;not null"`

	// Payer snapshot taken at order creation; never rewritten.
	PayerName       string
	PayerIdentifier string

	ProviderOrderID   string  `gorm:"uniqueIndex;not null"`
	ProviderPaymentID *string `gorm:"index"`
	ProviderSignature *string

	Amount   int64  `gorm:"not null"` // minor units
	Currency string `gorm:"size:3"`

	AccessTokenHash string        `gorm:"size:64;not null"`
	Status          PaymentStatus `gorm:"type:varchar(16);index;not null"`
	PaymentMethod   *string
	FailureReason   *string
	PaidAt          *int64

	ProviderOrder   datatypes.JSON
	GatewayResponse datatypes.JSON
}
