package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clubhub/internal/models/db_models"
)

// PayableRef names the thing being paid for.
type PayableRef struct {
	Kind db_models.PayableKind
	ID   uuid.UUID
}

// PayableTarget is a locked payable with what the payment engine needs from it.
type PayableTarget struct {
	Ref             PayableRef
	EventName       string
	Fee             decimal.Decimal
	PayerName       string
	PayerIdentifier string
	IsPaid          bool
}

// PayableResolver loads one kind of payable. Lock returns nil when the
// payable, its event or its payer is missing.
type PayableResolver interface {
	Kind() db_models.PayableKind
	Lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*PayableTarget, error)
	MarkPaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status db_models.PaymentStatus) error
}

func lockRow(ctx context.Context, tx *gorm.DB, dest interface{}, id uuid.UUID, preloads ...string) (bool, error) {
	q := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	for _, p := range preloads {
		q = q.Preload(p)
	}
	err := q.Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func paymentStatusFields(status db_models.PaymentStatus) map[string]interface{} {
	fields := map[string]interface{}{"payment_status": status}
	if status == db_models.PaymentSuccess {
		fields["is_paid"] = db_models.PaidStatePaid
	}
	return fields
}

// markRegistration never downgrades a paid registration.
func markRegistration(ctx context.Context, tx *gorm.DB, model interface{}, id uuid.UUID, status db_models.PaymentStatus) error {
	q := tx.WithContext(ctx).Model(model).Where("id = ?", id)
	if status != db_models.PaymentSuccess {
		q = q.Where("is_paid <> ?", db_models.PaidStatePaid)
	}
	return q.Updates(paymentStatusFields(status)).Error
}

type publicRegistrationResolver struct{}

func NewPublicRegistrationResolver() PayableResolver { return publicRegistrationResolver{} }

func (publicRegistrationResolver) Kind() db_models.PayableKind {
	return db_models.PayablePublicRegistration
}

func (r publicRegistrationResolver) Lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*PayableTarget, error) {
	var reg db_models.PublicRegistration
	found, err := lockRow(ctx, tx, &reg, id, "Event", "Participant")
	if err != nil {
		return nil, fmt.Errorf("lock public registration: %w", err)
	}
	if !found || reg.Event.ID == uuid.Nil || reg.Participant.ID == uuid.Nil {
		return nil, nil
	}
	return &PayableTarget{
		Ref:             PayableRef{Kind: r.Kind(), ID: reg.ID},
		EventName:       reg.Event.Name,
		Fee:             reg.Event.Fee,
		PayerName:       reg.Participant.Name,
		PayerIdentifier: reg.Participant.Email,
		IsPaid:          reg.IsPaid == db_models.PaidStatePaid,
	}, nil
}

func (publicRegistrationResolver) MarkPaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status db_models.PaymentStatus) error {
	return markRegistration(ctx, tx, &db_models.PublicRegistration{}, id, status)
}

type memberRegistrationResolver struct{}

func NewMemberRegistrationResolver() PayableResolver { return memberRegistrationResolver{} }

func (memberRegistrationResolver) Kind() db_models.PayableKind {
	return db_models.PayableMemberRegistration
}

func (r memberRegistrationResolver) Lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*PayableTarget, error) {
	var reg db_models.MemberRegistration
	found, err := lockRow(ctx, tx, &reg, id, "Event", "Account")
	if err != nil {
		return nil, fmt.Errorf("lock member registration: %w", err)
	}
	if !found || reg.Event.ID == uuid.Nil || reg.Account.ID == uuid.Nil {
		return nil, nil
	}
	identifier := reg.Account.Email
	if reg.Account.Username != nil {
		identifier = *reg.Account.Username
	}
	return &PayableTarget{
		Ref:             PayableRef{Kind: r.Kind(), ID: reg.ID},
		EventName:       reg.Event.Name,
		Fee:             reg.Event.Fee,
		PayerName:       reg.Account.Name,
		PayerIdentifier: identifier,
		IsPaid:          reg.IsPaid == db_models.PaidStatePaid,
	}, nil
}

func (memberRegistrationResolver) MarkPaymentStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status db_models.PaymentStatus) error {
	return markRegistration(ctx, tx, &db_models.MemberRegistration{}, id, status)
}

// ToMinorUnits converts a two-decimal currency amount, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
