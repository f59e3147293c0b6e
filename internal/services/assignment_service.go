package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/infra"
	"clubhub/internal/models/db_models"
	"clubhub/internal/models/response_models"
	"clubhub/internal/repositories"
	"clubhub/pkg/authz"
	"clubhub/pkg/metrics"
)

var ErrAssignmentInProgress = errors.New("reviewer assignment already running")

type AssignmentServiceInterface interface {
	AssignPending(ctx context.Context) (*response_models.AssignmentSummary, error)
}

type AssignmentOptions struct {
	RequireSecondTier bool
	Window            time.Duration
}

type AssignmentService struct {
	db           *gorm.DB
	accountRepo  repositories.AccountRepository
	approvalRepo repositories.ApprovalRepository
	opts         AssignmentOptions
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	running sync.Mutex
}

func NewAssignmentService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	approvalRepo repositories.ApprovalRepository,
	opts AssignmentOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AssignmentService {
	return &AssignmentService{
		db:           db,
		accountRepo:  accountRepo,
		approvalRepo: approvalRepo,
		opts:         opts,
		logger:       logger.Named("assignment"),
		metrics:      m,
		now:          time.Now,
	}
}

// AssignPending binds every undecided approval record to one reviewer per
// tier. The whole batch is one transaction: any failure rolls back every
// assignment made in the run.
func (s *AssignmentService) AssignPending(ctx context.Context) (*response_models.AssignmentSummary, error) {
	if !s.running.TryLock() {
		s.logger.Warn("skipping run, previous run still active")
		return nil, ErrAssignmentInProgress
	}
	defer s.running.Unlock()

	started := s.now()
	summary := &response_models.AssignmentSummary{}
	err := infra.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		n, err := s.assignTier(ctx, tx, db_models.TierEBM, authz.RoleEBM, started)
		if err != nil {
			return err
		}
		summary.FirstTierAssigned = n

		if !s.opts.RequireSecondTier {
			return nil
		}
		n, err = s.assignTier(ctx, tx, db_models.TierMembershipHead, authz.RoleMembershipHead, started)
		if err != nil {
			return err
		}
		summary.SecondTierAssigned = n
		return nil
	})

	s.metrics.AssignmentRuns.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Error("reviewer assignment failed, batch rolled back", zap.Error(err))
		return nil, err
	}

	s.metrics.ReviewerAssignments.WithLabelValues(string(db_models.TierEBM)).Add(float64(summary.FirstTierAssigned))
	s.metrics.ReviewerAssignments.WithLabelValues(string(db_models.TierMembershipHead)).Add(float64(summary.SecondTierAssigned))
	s.logger.Info("reviewer assignment complete",
		zap.Int("first_tier_assigned", summary.FirstTierAssigned),
		zap.Int("second_tier_assigned", summary.SecondTierAssigned),
		zap.Duration("took", s.now().Sub(started)),
	)
	return summary, nil
}

func (s *AssignmentService) assignTier(ctx context.Context, tx *gorm.DB, tier db_models.ApprovalTier, role authz.Role, now time.Time) (int, error) {
	accounts := s.accountRepo.WithTx(tx)
	approvals := s.approvalRepo.WithTx(tx)

	pool, err := accounts.ListActiveByRole(ctx, role)
	if err != nil {
		return 0, fmt.Errorf("load %s pool: %w", role, err)
	}
	if len(pool) == 0 {
		s.logger.Warn("no active reviewers for tier", zap.String("tier", string(tier)))
		return 0, nil
	}

	candidates, err := approvals.ListAwaitingAssignment(ctx, tier)
	if err != nil {
		return 0, fmt.Errorf("load %s candidates: %w", tier, err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	load, err := approvals.CountAssignmentsSince(ctx, tier, now.Add(-s.opts.Window).Unix())
	if err != nil {
		return 0, fmt.Errorf("load %s reviewer counts: %w", tier, err)
	}

	assigned := 0
	for _, c := range candidates {
		reviewer, ok := pickReviewer(pool, c, load)
		if !ok {
			continue
		}
		changed, err := approvals.AssignReviewer(ctx, c.ApprovalID, tier, reviewer.ID, now.Unix())
		if err != nil {
			return 0, fmt.Errorf("assign %s reviewer to %s: %w", tier, c.ApprovalID, err)
		}
		if !changed {
			continue
		}
		load[reviewer.ID]++
		assigned++
		s.logger.Debug("reviewer assigned",
			zap.String("tier", string(tier)),
			zap.Stringer("subject_id", c.AccountID),
			zap.Stringer("reviewer_id", reviewer.ID),
		)
	}
	return assigned, nil
}

// pickReviewer prefers reviewers sharing the candidate's gender and falls
// back to the whole pool. Lowest load wins; ties go to the earlier pool entry.
func pickReviewer(pool []db_models.Account, c repositories.AwaitingAssignment, load map[uuid.UUID]int64) (db_models.Account, bool) {
	eligible := make([]db_models.Account, 0, len(pool))
	matched := make([]db_models.Account, 0, len(pool))
	for _, r := range pool {
		if r.ID == c.AccountID {
			continue
		}
		eligible = append(eligible, r)
		if c.Gender != "" && r.Gender == c.Gender {
			matched = append(matched, r)
		}
	}
	if len(matched) > 0 {
		eligible = matched
	}
	if len(eligible) == 0 {
		return db_models.Account{}, false
	}

	best := eligible[0]
	for _, r := range eligible[1:] {
		if load[r.ID] < load[best.ID] {
			best = r
		}
	}
	return best, true
}
