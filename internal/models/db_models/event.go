package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event struct {
	BaseModel
	Name     string
	Fee      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	StartsAt int64
	IsActive bool
}

type PublicParticipant struct {
	BaseModel
	Name    string
	Email   string `gorm:"index"`
	Phone   string
	College string
}

type PaidState string

const (
	PaidStatePaid    PaidState = "paid"
	PaidStateNotPaid PaidState = "not_paid"
)

// PublicRegistration is an outside participant's registration for an event.
type PublicRegistration struct {
	BaseModel
	EventID       uuid.UUID     `gorm:"type:uuid;index;not null"`
	ParticipantID uuid.UUID     `gorm:"type:uuid;index;not null"`
	IsPaid        PaidState     `gorm:"type:varchar(16);not null"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null"`

	Event       Event             `gorm:"foreignKey:EventID"`
	Participant PublicParticipant `gorm:"foreignKey:ParticipantID"`
}

// MemberRegistration is a club member's registration for an event.
type MemberRegistration struct {
	BaseModel
	EventID       uuid.UUID     `gorm:"type:uuid;index;not null"`
	AccountID     uuid.UUID     `gorm:"type:uuid;index;not null"`
	IsPaid        PaidState     `gorm:"type:varchar(16);not null"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null"`

	Event   Event   `gorm:"foreignKey:EventID"`
	Account Account `gorm:"foreignKey:AccountID"`
}
