package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/infra"
	"clubhub/internal/models/db_models"
	"clubhub/internal/models/request_models"
	"clubhub/internal/models/response_models"
	"clubhub/internal/repositories"
	"clubhub/pkg/authz"
	mem "clubhub/pkg/memcache"
	"clubhub/pkg/metrics"
	"clubhub/pkg/utils"
)

type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, request request_models.SignUpRequest) (*response_models.AccountResponse, error)
	Login(ctx context.Context, request request_models.LoginRequest, sourceIP string) (*response_models.AccountLoginResponse, error)
	UnlockAccount(ctx context.Context, actor authz.Actor, accountID uuid.UUID) error
	DeleteAccount(ctx context.Context, actor authz.Actor, accountID uuid.UUID) error
}

type LoginOptions struct {
	MaxAttempts int
	Lockout     time.Duration
}

type AccountService struct {
	db           *gorm.DB
	accountRepo  repositories.AccountRepository
	approvalRepo repositories.ApprovalRepository
	attempts     mem.LoginAttemptStore
	signer       *utils.JWTSigner
	opts         LoginOptions
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewAccountService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	attempts mem.LoginAttemptStore,
	signer *utils.JWTSigner,
	opts LoginOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AccountService {
	return &AccountService{
		db:           db,
		accountRepo:  accountRepo,
		approvalRepo: approvalRepo,
		attempts:     attempts,
		signer:       signer,
		opts:         opts,
		logger:       logger.Named("account"),
		metrics:      m,
		now:          time.Now,
	}
}

// CreateAccount registers a member together with its pending approval record.
func (a *AccountService) CreateAccount(ctx context.Context, request request_models.SignUpRequest) (*response_models.AccountResponse, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	existingAccount, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: find account: %v", utils.ErrDatabaseError, err)
	}
	if existingAccount != nil {
		return nil, utils.ErrEmailAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(request.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", utils.ErrDatabaseError, err)
	}

	newAccount := &db_models.Account{
		Name:         strings.TrimSpace(request.DisplayName),
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         authz.RoleMember,
		Gender:       db_models.Gender(request.Gender),
		IsActive:     true,
	}

	err = infra.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		if err := a.accountRepo.WithTx(tx).InsertTx(newAccount, ctx); err != nil {
			return err
		}
		return a.approvalRepo.WithTx(tx).Insert(ctx, &db_models.ApprovalRecord{
			AccountID: newAccount.ID,
			Status:    db_models.ApprovalPending,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create account: %v", utils.ErrDatabaseError, err)
	}

	a.logger.Info("account registered", zap.String("op", "register"), zap.Stringer("subject_id", newAccount.ID))
	return &response_models.AccountResponse{
		ID:             newAccount.ID,
		Name:           newAccount.Name,
		Email:          newAccount.Email,
		Role:           newAccount.Role.String(),
		IsApproved:     false,
		ApprovalStatus: db_models.ApprovalPending,
	}, nil
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest, sourceIP string) (*response_models.AccountLoginResponse, error) {
	resp, err := a.login(ctx, request, sourceIP)
	a.metrics.LoginAttempts.WithLabelValues(loginOutcome(err)).Inc()
	return resp, err
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, utils.ErrTooManyAttempts):
		return "throttled"
	case errors.Is(err, utils.ErrAccountLocked):
		return "locked"
	case errors.Is(err, utils.ErrInvalidCredentials):
		return "invalid"
	}
	return "error"
}

func (a *AccountService) login(ctx context.Context, request request_models.LoginRequest, sourceIP string) (*response_models.AccountLoginResponse, error) {
	now := a.now()
	key := mem.LoginKey(request.Login, sourceIP)

	if blocked, wait := a.attempts.Blocked(key, now); blocked {
		a.logger.Warn("login throttled",
			zap.String("op", "login"),
			zap.String("source_ip", sourceIP),
			zap.Duration("retry_after", wait),
		)
		return nil, utils.ErrTooManyAttempts
	}

	account, err := a.accountRepo.FindByLogin(ctx, strings.ToLower(strings.TrimSpace(request.Login)))
	if err != nil {
		return nil, fmt.Errorf("%w: find account: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		a.attempts.Hit(key, now)
		return nil, utils.ErrInvalidCredentials
	}
	if account.IsLocked(now.Unix()) {
		return nil, utils.ErrAccountLocked
	}

	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		a.attempts.Hit(key, now)
		if err := a.recordFailedLogin(ctx, account.ID, now); err != nil {
			return nil, err
		}
		return nil, utils.ErrInvalidCredentials
	}

	if account.FailedLoginAttempts != 0 || account.LockedUntil != nil {
		if err := a.accountRepo.UpdateFields(ctx, account.ID, resetLockFields()); err != nil {
			return nil, fmt.Errorf("%w: reset login attempts: %v", utils.ErrDatabaseError, err)
		}
	}
	a.attempts.Clear(key)

	token, err := a.signer.CreateToken(account.ID, account.Role.String())
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", utils.ErrDatabaseError, err)
	}

	a.logger.Info("login succeeded", zap.String("op", "login"), zap.Stringer("subject_id", account.ID))
	return &response_models.AccountLoginResponse{
		Token:      token,
		IsApproved: account.IsApproved,
	}, nil
}

// recordFailedLogin increments the counter under a row lock and opens the
// lockout window once the limit is reached.
func (a *AccountService) recordFailedLogin(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	return infra.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		repo := a.accountRepo.WithTx(tx)
		account, err := repo.LockById(ctx, accountID)
		if err != nil {
			return fmt.Errorf("%w: lock account: %v", utils.ErrDatabaseError, err)
		}
		if account == nil {
			return utils.ErrInvalidCredentials
		}

		attempts := account.FailedLoginAttempts + 1
		fields := map[string]interface{}{}
		if account.LockedUntil != nil && !account.IsLocked(now.Unix()) {
			// expired lockout starts a fresh count
			attempts = 1
			fields["locked_until"] = nil
		}
		fields["failed_login_attempts"] = attempts
		if attempts >= a.opts.MaxAttempts {
			fields["locked_until"] = now.Add(a.opts.Lockout).Unix()
			a.metrics.AccountLockouts.Inc()
			a.logger.Warn("account locked after failed logins",
				zap.String("op", "login"),
				zap.Stringer("subject_id", accountID),
				zap.Int("attempts", attempts),
			)
		}
		if err := repo.UpdateFields(ctx, accountID, fields); err != nil {
			return fmt.Errorf("%w: record failed login: %v", utils.ErrDatabaseError, err)
		}
		return nil
	})
}

func resetLockFields() map[string]interface{} {
	return map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}
}

func (a *AccountService) UnlockAccount(ctx context.Context, actor authz.Actor, accountID uuid.UUID) error {
	if !actor.Can(authz.CapUnlockAccount) {
		return utils.ErrForbidden
	}

	err := infra.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		repo := a.accountRepo.WithTx(tx)
		account, err := repo.LockById(ctx, accountID)
		if err != nil {
			return fmt.Errorf("%w: lock account: %v", utils.ErrDatabaseError, err)
		}
		if account == nil {
			return utils.ErrAccountNotFound
		}
		if !account.IsLocked(a.now().Unix()) {
			return utils.ErrAccountNotLocked
		}
		if err := repo.UpdateFields(ctx, accountID, resetLockFields()); err != nil {
			return fmt.Errorf("%w: unlock account: %v", utils.ErrDatabaseError, err)
		}
		return nil
	})

	log := a.logger.With(zap.String("op", "unlock"), zap.Stringer("actor_id", actor.ID), zap.Stringer("subject_id", accountID))
	if err != nil {
		log.Warn("unlock failed", zap.Error(err))
		return err
	}
	log.Info("account unlocked")
	return nil
}

// DeleteAccount physically removes the account with its approval record
// and event registrations.
func (a *AccountService) DeleteAccount(ctx context.Context, actor authz.Actor, accountID uuid.UUID) error {
	if actor.ID == accountID {
		return utils.ErrSelfApproval
	}
	if !actor.Can(authz.CapDeleteAccount) {
		return utils.ErrForbidden
	}

	err := infra.WithTransaction(ctx, a.db, func(tx *gorm.DB) error {
		repo := a.accountRepo.WithTx(tx)
		account, err := repo.LockById(ctx, accountID)
		if err != nil {
			return fmt.Errorf("%w: lock account: %v", utils.ErrDatabaseError, err)
		}
		if account == nil {
			return utils.ErrAccountNotFound
		}
		if err := a.approvalRepo.WithTx(tx).DeleteByAccountId(ctx, accountID); err != nil {
			return fmt.Errorf("%w: delete approval: %v", utils.ErrDatabaseError, err)
		}
		if err := tx.WithContext(ctx).Unscoped().
			Where("account_id = ?", accountID).
			Delete(&db_models.MemberRegistration{}).Error; err != nil {
			return fmt.Errorf("%w: delete registrations: %v", utils.ErrDatabaseError, err)
		}
		if err := repo.HardDelete(ctx, accountID); err != nil {
			return fmt.Errorf("%w: delete account: %v", utils.ErrDatabaseError, err)
		}
		return nil
	})

	log := a.logger.With(zap.String("op", "delete_account"), zap.Stringer("actor_id", actor.ID), zap.Stringer("subject_id", accountID))
	if err != nil {
		log.Warn("account deletion failed", zap.Error(err))
		return err
	}
	log.Info("account deleted")
	return nil
}
