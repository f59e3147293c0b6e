package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clubhub/internal/models/db_models"
)

type ApprovalRepository interface {
	WithTx(tx *gorm.DB) ApprovalRepository
	Insert(ctx context.Context, record *db_models.ApprovalRecord) error
	FindByAccountId(ctx context.Context, accountID uuid.UUID) (*db_models.ApprovalRecord, error)
	LockByAccountId(ctx context.Context, accountID uuid.UUID) (*db_models.ApprovalRecord, error)
	ListAwaitingAssignment(ctx context.Context, tier db_models.ApprovalTier) ([]AwaitingAssignment, error)
	CountAssignmentsSince(ctx context.Context, tier db_models.ApprovalTier, since int64) (map[uuid.UUID]int64, error)
	ListAssignedTo(ctx context.Context, tier db_models.ApprovalTier, reviewerID uuid.UUID) ([]db_models.ApprovalRecord, error)
	AssignReviewer(ctx context.Context, id uuid.UUID, tier db_models.ApprovalTier, reviewerID uuid.UUID, at int64) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteByAccountId(ctx context.Context, accountID uuid.UUID) error
}

// AwaitingAssignment is an approval record joined with its candidate's gender.
type AwaitingAssignment struct {
	ApprovalID uuid.UUID
	AccountID  uuid.UUID
	Gender     db_models.Gender
}

type tierColumns struct {
	assignedID string
	assignedAt string
	approvedAt string
}

var tierColumnNames = map[db_models.ApprovalTier]tierColumns{
	db_models.TierEBM: {
		assignedID: "assigned_ebm_id",
		assignedAt: "ebm_assigned_at",
		approvedAt: "ebm_approved_at",
	},
	db_models.TierMembershipHead: {
		assignedID: "assigned_membership_head_id",
		assignedAt: "membership_head_assigned_at",
		approvedAt: "membership_head_approved_at",
	},
}

func columnsFor(tier db_models.ApprovalTier) (tierColumns, error) {
	cols, ok := tierColumnNames[tier]
	if !ok {
		return tierColumns{}, fmt.Errorf("tier %q has no reviewer assignment", tier)
	}
	return cols, nil
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) WithTx(tx *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: tx}
}

func (r *approvalRepository) Insert(ctx context.Context, record *db_models.ApprovalRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *approvalRepository) first(ctx context.Context, query *gorm.DB) (*db_models.ApprovalRecord, error) {
	var record db_models.ApprovalRecord
	if err := query.WithContext(ctx).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *approvalRepository) FindByAccountId(ctx context.Context, accountID uuid.UUID) (*db_models.ApprovalRecord, error) {
	return r.first(ctx, r.db.Where("account_id = ?", accountID))
}

func (r *approvalRepository) LockByAccountId(ctx context.Context, accountID uuid.UUID) (*db_models.ApprovalRecord, error) {
	return r.first(ctx, r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("account_id = ?", accountID))
}

// ListAwaitingAssignment returns undecided records of active accounts that
// have no reviewer for tier yet. Second-tier candidates may already carry
// the first-tier sign-off.
func (r *approvalRepository) ListAwaitingAssignment(ctx context.Context, tier db_models.ApprovalTier) ([]AwaitingAssignment, error) {
	cols, err := columnsFor(tier)
	if err != nil {
		return nil, err
	}
	statuses := []db_models.ApprovalStatus{db_models.ApprovalPending}
	if tier == db_models.TierMembershipHead {
		statuses = append(statuses, db_models.ApprovalEbmApproved)
	}

	var rows []AwaitingAssignment
	err = r.db.WithContext(ctx).
		Table("approval_records AS ar").
		Select("ar.id AS approval_id, ar.account_id AS account_id, a.gender AS gender").
		Joins("JOIN accounts AS a ON a.id = ar.account_id AND a.deleted_at IS NULL").
		Where("ar.deleted_at IS NULL").
		Where("ar.status IN ?", statuses).
		Where("a.is_active = ?", true).
		Where("ar." + cols.assignedID + " IS NULL").
		Order("ar.created_at ASC").
		Order("ar.id ASC").
		Scan(&rows).Error
	return rows, err
}

// CountAssignmentsSince counts, per reviewer, the tier assignments made at or after since.
func (r *approvalRepository) CountAssignmentsSince(ctx context.Context, tier db_models.ApprovalTier, since int64) (map[uuid.UUID]int64, error) {
	cols, err := columnsFor(tier)
	if err != nil {
		return nil, err
	}

	type loadRow struct {
		ReviewerID uuid.UUID
		Total      int64
	}
	var rows []loadRow
	err = r.db.WithContext(ctx).
		Model(&db_models.ApprovalRecord{}).
		Select(cols.assignedID+" AS reviewer_id, COUNT(*) AS total").
		Where(cols.assignedID+" IS NOT NULL").
		Where(cols.assignedAt+" >= ?", since).
		Group(cols.assignedID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	load := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		load[row.ReviewerID] = row.Total
	}
	return load, nil
}

// ListAssignedTo returns records assigned to the reviewer that still await that tier's decision.
func (r *approvalRepository) ListAssignedTo(ctx context.Context, tier db_models.ApprovalTier, reviewerID uuid.UUID) ([]db_models.ApprovalRecord, error) {
	cols, err := columnsFor(tier)
	if err != nil {
		return nil, err
	}
	var records []db_models.ApprovalRecord
	err = r.db.WithContext(ctx).
		Where(cols.assignedID+" = ?", reviewerID).
		Where(cols.approvedAt+" IS NULL").
		Where("status <> ?", db_models.ApprovalRejected).
		Order(cols.assignedAt + " ASC").
		Find(&records).Error
	return records, err
}

// AssignReviewer sets the tier's reviewer unless one is already set.
// It reports whether the row was changed.
func (r *approvalRepository) AssignReviewer(ctx context.Context, id uuid.UUID, tier db_models.ApprovalTier, reviewerID uuid.UUID, at int64) (bool, error) {
	cols, err := columnsFor(tier)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Model(&db_models.ApprovalRecord{}).
		Where("id = ?", id).
		Where(cols.assignedID + " IS NULL").
		Where("status <> ?", db_models.ApprovalRejected).
		Updates(map[string]interface{}{
			cols.assignedID: reviewerID,
			cols.assignedAt: at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *approvalRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&db_models.ApprovalRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *approvalRepository) DeleteByAccountId(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("account_id = ?", accountID).Delete(&db_models.ApprovalRecord{}).Error
}
