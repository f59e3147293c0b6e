package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clubhub/internal/models/db_models"
	"clubhub/pkg/authz"
)

type AccountRepository interface {
	WithTx(tx *gorm.DB) AccountRepository
	InsertTx(account *db_models.Account, ctx context.Context) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)
	FindByLogin(ctx context.Context, identifier string) (*db_models.Account, error)
	LockById(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	ListActiveByRole(ctx context.Context, role authz.Role) ([]db_models.Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) WithTx(tx *gorm.DB) AccountRepository {
	return &accountRepository{db: tx}
}

func (a *accountRepository) InsertTx(account *db_models.Account, ctx context.Context) error {
	return a.db.WithContext(ctx).Create(account).Error
}

func (a *accountRepository) first(ctx context.Context, query *gorm.DB) (*db_models.Account, error) {
	var account db_models.Account
	err := query.WithContext(ctx).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	return a.first(ctx, a.db.Where("id = ?", id))
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	return a.first(ctx, a.db.Where("email = ?", email))
}

// FindByLogin accepts either an email address or a minted username.
func (a *accountRepository) FindByLogin(ctx context.Context, identifier string) (*db_models.Account, error) {
	return a.first(ctx, a.db.Where("email = ? OR username = ?", identifier, identifier))
}

func (a *accountRepository) LockById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	return a.first(ctx, a.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// ListActiveByRole returns the role's active accounts in a stable order.
func (a *accountRepository) ListActiveByRole(ctx context.Context, role authz.Role) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := a.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Order("created_at ASC").
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

func (a *accountRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := a.db.WithContext(ctx).Model(&db_models.Account{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *accountRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return a.db.WithContext(ctx).Unscoped().Delete(&db_models.Account{}, "id = ?", id).Error
}
