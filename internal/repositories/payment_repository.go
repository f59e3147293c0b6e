package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clubhub/internal/models/db_models"
)

type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Insert(ctx context.Context, order *db_models.PaymentOrder) error
	FindByProviderOrderId(ctx context.Context, providerOrderID string) (*db_models.PaymentOrder, error)
	LockByProviderOrderId(ctx context.Context, providerOrderID string) (*db_models.PaymentOrder, error)
	LockPendingForPayable(ctx context.Context, kind db_models.PayableKind, payableID uuid.UUID) (*db_models.PaymentOrder, error)
	CountSuccessForPayable(ctx context.Context, kind db_models.PayableKind, payableID uuid.UUID, excludeID uuid.UUID) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Insert(ctx context.Context, order *db_models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *paymentRepository) first(ctx context.Context, query *gorm.DB) (*db_models.PaymentOrder, error) {
	var order db_models.PaymentOrder
	if err := query.WithContext(ctx).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *paymentRepository) FindByProviderOrderId(ctx context.Context, providerOrderID string) (*db_models.PaymentOrder, error) {
	return r.first(ctx, r.db.Where("provider_order_id = ?", providerOrderID))
}

// LockByProviderOrderId must run after the payable of the order is locked.
func (r *paymentRepository) LockByProviderOrderId(ctx context.Context, providerOrderID string) (*db_models.PaymentOrder, error) {
	return r.first(ctx, r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_order_id = ?", providerOrderID))
}

// LockPendingForPayable returns the most recent pending order of the payable.
func (r *paymentRepository) LockPendingForPayable(ctx context.Context, kind db_models.PayableKind, payableID uuid.UUID) (*db_models.PaymentOrder, error) {
	return r.first(ctx, r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payable_type = ? AND payable_id = ? AND status = ?", kind, payableID, db_models.PaymentPending).
		Order("created_at DESC"))
}

func (r *paymentRepository) CountSuccessForPayable(ctx context.Context, kind db_models.PayableKind, payableID uuid.UUID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db_models.PaymentOrder{}).
		Where("payable_type = ? AND payable_id = ? AND status = ?", kind, payableID, db_models.PaymentSuccess).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count, err
}

func (r *paymentRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&db_models.PaymentOrder{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
