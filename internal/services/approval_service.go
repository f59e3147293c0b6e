package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/infra"
	"clubhub/internal/models/db_models"
	"clubhub/internal/models/response_models"
	"clubhub/internal/repositories"
	"clubhub/pkg/authz"
	"clubhub/pkg/metrics"
	"clubhub/pkg/utils"
)

const (
	minRemarksLen = 10
	maxRemarksLen = 255
)

type ApprovalServiceInterface interface {
	Approve(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, error)
	Reject(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, error)
	ListQueue(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier) ([]response_models.ApprovalQueueItem, error)
}

type ApprovalOptions struct {
	RequireSecondTier bool
}

type ApprovalService struct {
	db           *gorm.DB
	accountRepo  repositories.AccountRepository
	approvalRepo repositories.ApprovalRepository
	usernames    UsernameAllocator
	mailer       DecisionMailer
	opts         ApprovalOptions
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewApprovalService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	usernames UsernameAllocator,
	mailer DecisionMailer,
	opts ApprovalOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ApprovalService {
	return &ApprovalService{
		db:           db,
		accountRepo:  accountRepo,
		approvalRepo: approvalRepo,
		usernames:    usernames,
		mailer:       mailer,
		opts:         opts,
		logger:       logger.Named("approval"),
		metrics:      m,
		now:          time.Now,
	}
}

var tierCapability = map[db_models.ApprovalTier]authz.Capability{
	db_models.TierEBM:            authz.CapApproveFirstTier,
	db_models.TierMembershipHead: authz.CapApproveSecondTier,
	db_models.TierAdmin:          authz.CapApproveAsAdmin,
}

func validateRemarks(remarks string) (string, error) {
	remarks = strings.TrimSpace(remarks)
	if n := utf8.RuneCountInString(remarks); n < minRemarksLen || n > maxRemarksLen {
		return "", utils.ErrInvalidRemarks
	}
	return remarks, nil
}

func authorizeTier(actor authz.Actor, tier db_models.ApprovalTier, subject uuid.UUID) error {
	capability, ok := tierCapability[tier]
	if !ok {
		return utils.ErrUnknownTier
	}
	if actor.ID == subject {
		return utils.ErrSelfApproval
	}
	if !actor.Can(capability) {
		return utils.ErrForbidden
	}
	return nil
}

// lockSubject row-locks the account and its approval record, account first.
func (s *ApprovalService) lockSubject(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*db_models.Account, *db_models.ApprovalRecord, error) {
	account, err := s.accountRepo.WithTx(tx).LockById(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lock account: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, nil, utils.ErrAccountNotFound
	}
	record, err := s.approvalRepo.WithTx(tx).LockByAccountId(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lock approval: %v", utils.ErrDatabaseError, err)
	}
	if record == nil {
		return nil, nil, utils.ErrApprovalNotFound
	}
	return account, record, nil
}

func (s *ApprovalService) Approve(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, error) {
	log := s.logger.With(
		zap.String("op", "approve"),
		zap.String("tier", string(tier)),
		zap.Stringer("actor_id", actor.ID),
		zap.Stringer("subject_id", accountID),
	)
	log.Info("approval attempt")

	decision, mail, err := s.approve(ctx, actor, tier, accountID, remarks)
	s.metrics.ApprovalDecisions.WithLabelValues(string(tier), "approve", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Warn("approval failed", zap.Error(err))
		return nil, err
	}
	log.Info("approval recorded",
		zap.String("status", string(decision.Status)),
		zap.Bool("finalized", decision.IsApproved),
	)
	s.notify(ctx, log, mail)
	return decision, nil
}

func (s *ApprovalService) approve(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, *DecisionMail, error) {
	remarks, err := validateRemarks(remarks)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeTier(actor, tier, accountID); err != nil {
		return nil, nil, err
	}

	var (
		decision *response_models.ApprovalDecision
		mail     *DecisionMail
	)
	err = infra.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		account, record, err := s.lockSubject(ctx, tx, accountID)
		if err != nil {
			return err
		}

		if record.Status == db_models.ApprovalRejected {
			return utils.ErrAlreadyRejected
		}
		// a minted username is final even if the tier setting changed since
		if account.Username != nil || account.IsApproved {
			return utils.ErrAlreadyApproved
		}

		nowTime := s.now()
		now := nowTime.Unix()
		fields := map[string]interface{}{
			"approved_by": actor.ID,
			"remarks":     remarks,
		}

		var finalize bool
		switch tier {
		case db_models.TierEBM:
			if record.EbmApprovedAt != nil {
				return utils.ErrTierAlreadyDecided
			}
			fields["ebm_approved_at"] = now
			fields["status"] = db_models.ApprovalEbmApproved
			finalize = !s.opts.RequireSecondTier
		case db_models.TierMembershipHead:
			if record.MembershipHeadApprovedAt != nil {
				return utils.ErrTierAlreadyDecided
			}
			if record.EbmApprovedAt == nil {
				return utils.ErrTierOutOfOrder
			}
			fields["membership_head_approved_at"] = now
			fields["status"] = db_models.ApprovalMembershipApproved
			finalize = true
		case db_models.TierAdmin:
			fields["status"] = db_models.ApprovalAdminApproved
			fields["decided_at"] = now
			finalize = true
		}

		if err := s.approvalRepo.WithTx(tx).UpdateFields(ctx, record.ID, fields); err != nil {
			return fmt.Errorf("%w: update approval: %v", utils.ErrDatabaseError, err)
		}

		decision = &response_models.ApprovalDecision{
			AccountID: account.ID,
			Status:    fields["status"].(db_models.ApprovalStatus),
			Message:   "Approval recorded",
		}
		if !finalize {
			return nil
		}

		username, err := s.usernames.Next(ctx, tx, nowTime)
		if err != nil {
			return fmt.Errorf("%w: allocate username: %v", utils.ErrDatabaseError, err)
		}
		if err := s.accountRepo.WithTx(tx).UpdateFields(ctx, account.ID, map[string]interface{}{
			"is_approved": true,
			"username":    username,
		}); err != nil {
			return fmt.Errorf("%w: update account: %v", utils.ErrDatabaseError, err)
		}
		decision.IsApproved = true
		decision.Username = &username
		decision.Message = "Account approved"
		mail = &DecisionMail{To: account.Email, Name: account.Name, Approved: true, Username: username}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return decision, mail, nil
}

func (s *ApprovalService) Reject(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, error) {
	log := s.logger.With(
		zap.String("op", "reject"),
		zap.String("tier", string(tier)),
		zap.Stringer("actor_id", actor.ID),
		zap.Stringer("subject_id", accountID),
	)
	log.Info("rejection attempt")

	decision, mail, err := s.reject(ctx, actor, tier, accountID, remarks)
	s.metrics.ApprovalDecisions.WithLabelValues(string(tier), "reject", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Warn("rejection failed", zap.Error(err))
		return nil, err
	}
	log.Info("rejection recorded")
	s.notify(ctx, log, mail)
	return decision, nil
}

func (s *ApprovalService) reject(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier, accountID uuid.UUID, remarks string) (*response_models.ApprovalDecision, *DecisionMail, error) {
	remarks, err := validateRemarks(remarks)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeTier(actor, tier, accountID); err != nil {
		return nil, nil, err
	}

	var (
		decision *response_models.ApprovalDecision
		mail     *DecisionMail
	)
	err = infra.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		account, record, err := s.lockSubject(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if record.Status == db_models.ApprovalRejected {
			return utils.ErrAlreadyRejected
		}

		if err := s.approvalRepo.WithTx(tx).UpdateFields(ctx, record.ID, map[string]interface{}{
			"status":      db_models.ApprovalRejected,
			"approved_by": actor.ID,
			"decided_at":  s.now().Unix(),
			"remarks":     remarks,
		}); err != nil {
			return fmt.Errorf("%w: update approval: %v", utils.ErrDatabaseError, err)
		}

		// Demote even a previously approved account.
		if err := s.accountRepo.WithTx(tx).UpdateFields(ctx, account.ID, map[string]interface{}{
			"is_approved": false,
			"username":    nil,
		}); err != nil {
			return fmt.Errorf("%w: update account: %v", utils.ErrDatabaseError, err)
		}

		decision = &response_models.ApprovalDecision{
			AccountID: account.ID,
			Status:    db_models.ApprovalRejected,
			Message:   "Account rejected",
		}
		mail = &DecisionMail{To: account.Email, Name: account.Name, Remarks: remarks}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return decision, mail, nil
}

// notify runs after commit; a mail failure never undoes the decision.
func (s *ApprovalService) notify(ctx context.Context, log *zap.Logger, mail *DecisionMail) {
	if mail == nil {
		return
	}
	if err := s.mailer.SendDecision(ctx, *mail); err != nil {
		log.Warn("decision mail not sent", zap.Error(err))
	}
}

func (s *ApprovalService) ListQueue(ctx context.Context, actor authz.Actor, tier db_models.ApprovalTier) ([]response_models.ApprovalQueueItem, error) {
	if tier != db_models.TierEBM && tier != db_models.TierMembershipHead {
		return nil, utils.ErrUnknownTier
	}
	if !actor.Can(tierCapability[tier]) {
		return nil, utils.ErrForbidden
	}

	records, err := s.approvalRepo.ListAssignedTo(ctx, tier, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list queue: %v", utils.ErrDatabaseError, err)
	}

	items := make([]response_models.ApprovalQueueItem, 0, len(records))
	for _, r := range records {
		assignedAt := r.EbmAssignedAt
		if tier == db_models.TierMembershipHead {
			assignedAt = r.MembershipHeadAssignedAt
		}
		items = append(items, response_models.ApprovalQueueItem{
			ApprovalID: r.ID,
			AccountID:  r.AccountID,
			Status:     r.Status,
			AssignedAt: assignedAt,
		})
	}
	return items, nil
}
