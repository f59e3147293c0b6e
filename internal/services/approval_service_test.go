package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"clubhub/internal/models/db_models"
	"clubhub/internal/repositories"
	"clubhub/pkg/authz"
	"clubhub/pkg/utils"
)

const goodRemarks = "Looks good, verified"

func newApprovalService(t *testing.T, requireSecondTier bool) (*ApprovalService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewApprovalService(
		db,
		repositories.NewAccountRepository(db),
		repositories.NewApprovalRepository(db),
		NewUsernameAllocator("0707", ist),
		nopMailer{},
		ApprovalOptions{RequireSecondTier: requireSecondTier},
		nopLogger(),
		newTestMetrics(),
	)
	svc.now = func() time.Time { return fixedNow }
	return svc, db
}

func actorOf(role authz.Role) authz.Actor {
	return authz.Actor{ID: uuid.New(), Role: role}
}

// assertApprovalInvariant checks username set <=> is_approved <=> terminal approved status.
func assertApprovalInvariant(t *testing.T, db *gorm.DB, accountID uuid.UUID, requireSecondTier bool) {
	t.Helper()
	account := reloadAccount(t, db, accountID)
	record := reloadApproval(t, db, accountID)
	assert.Equal(t, account.Username != nil, account.IsApproved)
	assert.Equal(t, account.IsApproved, record.Status.Approved(requireSecondTier))
}

func TestApproveTwoTierFlow(t *testing.T) {
	svc, db := newApprovalService(t, true)
	ctx := context.Background()
	applicant, _ := seedApplicant(t, db, db_models.GenderFemale, 0)

	decision, err := svc.Approve(ctx, actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	assert.Equal(t, db_models.ApprovalEbmApproved, decision.Status)
	assert.False(t, decision.IsApproved)
	assert.Nil(t, decision.Username)

	record := reloadApproval(t, db, applicant.ID)
	assert.Equal(t, db_models.ApprovalEbmApproved, record.Status)
	require.NotNil(t, record.EbmApprovedAt)
	assert.Equal(t, fixedNow.Unix(), *record.EbmApprovedAt)
	assert.Equal(t, goodRemarks, record.Remarks)
	assertApprovalInvariant(t, db, applicant.ID, true)

	decision, err = svc.Approve(ctx, actorOf(authz.RoleMembershipHead), db_models.TierMembershipHead, applicant.ID, "Membership dues confirmed")
	require.NoError(t, err)
	assert.Equal(t, db_models.ApprovalMembershipApproved, decision.Status)
	assert.True(t, decision.IsApproved)
	require.NotNil(t, decision.Username)
	assert.Equal(t, "2507070001", *decision.Username)

	account := reloadAccount(t, db, applicant.ID)
	require.NotNil(t, account.Username)
	assert.Equal(t, "2507070001", *account.Username)
	assertApprovalInvariant(t, db, applicant.ID, true)
}

func TestApproveFirstTierFinalizesWithoutSecondTier(t *testing.T) {
	svc, db := newApprovalService(t, false)
	applicant, _ := seedApplicant(t, db, db_models.GenderMale, 0)

	decision, err := svc.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	assert.Equal(t, db_models.ApprovalEbmApproved, decision.Status)
	assert.True(t, decision.IsApproved)
	require.NotNil(t, decision.Username)
	assert.Equal(t, "2507070001", *decision.Username)
	assertApprovalInvariant(t, db, applicant.ID, false)
}

func TestUsernamesAreSequential(t *testing.T) {
	svc, db := newApprovalService(t, false)
	admin := actorOf(authz.RoleAdministrator)

	var got []string
	for i := 0; i < 3; i++ {
		applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
		decision, err := svc.Approve(context.Background(), admin, db_models.TierAdmin, applicant.ID, goodRemarks)
		require.NoError(t, err)
		got = append(got, *decision.Username)
	}
	assert.Equal(t, []string{"2507070001", "2507070002", "2507070003"}, got)
}

func TestUsernameSequenceSeedsFromExistingUsernames(t *testing.T) {
	svc, db := newApprovalService(t, false)
	seedAccount(t, db, accountSeed{username: "2507070041"})
	seedAccount(t, db, accountSeed{username: "2407070099"})
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	decision, err := svc.Approve(context.Background(), actorOf(authz.RoleAdministrator), db_models.TierAdmin, applicant.ID, goodRemarks)
	require.NoError(t, err)
	assert.Equal(t, "2507070042", *decision.Username)
}

func TestAdminApprovalIsTerminal(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	admin := actorOf(authz.RoleAdministrator)

	decision, err := svc.Approve(context.Background(), admin, db_models.TierAdmin, applicant.ID, goodRemarks)
	require.NoError(t, err)
	assert.Equal(t, db_models.ApprovalAdminApproved, decision.Status)
	assert.True(t, decision.IsApproved)

	record := reloadApproval(t, db, applicant.ID)
	require.NotNil(t, record.ApprovedBy)
	assert.Equal(t, admin.ID, *record.ApprovedBy)
	require.NotNil(t, record.DecidedAt)
	assertApprovalInvariant(t, db, applicant.ID, true)
}

func TestApproveAlreadyApprovedFails(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	admin := actorOf(authz.RoleAdministrator)

	_, err := svc.Approve(context.Background(), admin, db_models.TierAdmin, applicant.ID, goodRemarks)
	require.NoError(t, err)
	before := reloadAccount(t, db, applicant.ID)
	beforeRecord := reloadApproval(t, db, applicant.ID)

	_, err = svc.Approve(context.Background(), admin, db_models.TierAdmin, applicant.ID, "Approving a second time")
	assert.ErrorIs(t, err, utils.ErrAlreadyApproved)

	after := reloadAccount(t, db, applicant.ID)
	assert.Equal(t, *before.Username, *after.Username)
	assert.Equal(t, beforeRecord.Remarks, reloadApproval(t, db, applicant.ID).Remarks)
}

func TestApproveSameTierTwiceFails(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	_, err := svc.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	assert.ErrorIs(t, err, utils.ErrTierAlreadyDecided)
	assert.NotErrorIs(t, err, utils.ErrAlreadyApproved)

	status, message := utils.StatusFor(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "This tier has already approved the account", message)
	assertApprovalInvariant(t, db, applicant.ID, true)
}

func TestSecondTierAfterSettingChangeKeepsUsername(t *testing.T) {
	// finalized by the first tier alone
	single, db := newApprovalService(t, false)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	decision, err := single.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	require.NotNil(t, decision.Username)

	// same data, second tier now required
	twoTier := NewApprovalService(db,
		repositories.NewAccountRepository(db),
		repositories.NewApprovalRepository(db),
		NewUsernameAllocator("0707", ist),
		nopMailer{},
		ApprovalOptions{RequireSecondTier: true},
		nopLogger(),
		newTestMetrics(),
	)
	twoTier.now = func() time.Time { return fixedNow }

	_, err = twoTier.Approve(context.Background(), actorOf(authz.RoleMembershipHead), db_models.TierMembershipHead, applicant.ID, goodRemarks)
	assert.ErrorIs(t, err, utils.ErrAlreadyApproved)

	account := reloadAccount(t, db, applicant.ID)
	assert.Equal(t, *decision.Username, *account.Username)
	assert.Equal(t, db_models.ApprovalEbmApproved, reloadApproval(t, db, applicant.ID).Status)

	var sequence db_models.UsernameSequence
	require.NoError(t, db.First(&sequence).Error)
	assert.Equal(t, 1, sequence.LastValue)
}

func TestRejectTwiceFails(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	ebm := actorOf(authz.RoleEBM)

	decision, err := svc.Reject(context.Background(), ebm, db_models.TierEBM, applicant.ID, "Documents are missing")
	require.NoError(t, err)
	assert.Equal(t, db_models.ApprovalRejected, decision.Status)
	before := reloadApproval(t, db, applicant.ID)

	_, err = svc.Reject(context.Background(), actorOf(authz.RoleAdministrator), db_models.TierAdmin, applicant.ID, "Rejecting once more")
	assert.ErrorIs(t, err, utils.ErrAlreadyRejected)

	after := reloadApproval(t, db, applicant.ID)
	assert.Equal(t, before.Remarks, after.Remarks)
	assert.Equal(t, *before.ApprovedBy, *after.ApprovedBy)
	assertApprovalInvariant(t, db, applicant.ID, true)
}

func TestApproveRejectedFails(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	_, err := svc.Reject(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, "Documents are missing")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), actorOf(authz.RoleAdministrator), db_models.TierAdmin, applicant.ID, goodRemarks)
	assert.ErrorIs(t, err, utils.ErrAlreadyRejected)
	assertApprovalInvariant(t, db, applicant.ID, true)
}

func TestRejectAfterApprovalRevokesUsername(t *testing.T) {
	svc, db := newApprovalService(t, false)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	_, err := svc.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), actorOf(authz.RoleAdministrator), db_models.TierAdmin, applicant.ID, "Membership revoked by board")
	require.NoError(t, err)

	account := reloadAccount(t, db, applicant.ID)
	assert.False(t, account.IsApproved)
	assert.Nil(t, account.Username)
	assertApprovalInvariant(t, db, applicant.ID, false)
}

func TestSecondTierRequiresFirstTier(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	_, err := svc.Approve(context.Background(), actorOf(authz.RoleMembershipHead), db_models.TierMembershipHead, applicant.ID, goodRemarks)
	assert.ErrorIs(t, err, utils.ErrTierOutOfOrder)
	assert.Equal(t, db_models.ApprovalPending, reloadApproval(t, db, applicant.ID).Status)
}

func TestApprovalAuthorization(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor authz.Actor
		tier  db_models.ApprovalTier
		want  error
	}{
		{"member cannot approve", actorOf(authz.RoleMember), db_models.TierEBM, utils.ErrForbidden},
		{"ebm cannot act as membership head", actorOf(authz.RoleEBM), db_models.TierMembershipHead, utils.ErrForbidden},
		{"membership head cannot act as admin", actorOf(authz.RoleMembershipHead), db_models.TierAdmin, utils.ErrForbidden},
		{"self approval", authz.Actor{ID: applicant.ID, Role: authz.RoleAdministrator}, db_models.TierAdmin, utils.ErrSelfApproval},
		{"unknown tier", actorOf(authz.RoleAdministrator), db_models.ApprovalTier("treasurer"), utils.ErrUnknownTier},
		{"anonymous actor", authz.Actor{Role: authz.RoleAdministrator}, db_models.TierAdmin, utils.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Approve(ctx, tt.actor, tt.tier, applicant.ID, goodRemarks)
			assert.ErrorIs(t, err, tt.want)
			_, err = svc.Reject(ctx, tt.actor, tt.tier, applicant.ID, goodRemarks)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, db_models.ApprovalPending, reloadApproval(t, db, applicant.ID).Status)
}

func TestRemarksValidation(t *testing.T) {
	svc, db := newApprovalService(t, true)
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)
	ebm := actorOf(authz.RoleEBM)

	for _, remarks := range []string{"", "too short", "   padded   ", strings.Repeat("x", 256)} {
		_, err := svc.Approve(context.Background(), ebm, db_models.TierEBM, applicant.ID, remarks)
		assert.ErrorIs(t, err, utils.ErrInvalidRemarks, "remarks %q", remarks)
	}

	_, err := svc.Approve(context.Background(), ebm, db_models.TierEBM, applicant.ID, strings.Repeat("x", 255))
	assert.NoError(t, err)
}

func TestApproveUnknownAccount(t *testing.T) {
	svc, _ := newApprovalService(t, true)
	_, err := svc.Approve(context.Background(), actorOf(authz.RoleEBM), db_models.TierEBM, uuid.New(), goodRemarks)
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestListQueue(t *testing.T) {
	svc, db := newApprovalService(t, true)
	reviewer := seedAccount(t, db, accountSeed{role: authz.RoleEBM})
	actor := authz.Actor{ID: reviewer.ID, Role: authz.RoleEBM}

	mine, record := seedApplicant(t, db, db_models.GenderOther, 100)
	seedApplicant(t, db, db_models.GenderOther, 200)

	approvals := repositories.NewApprovalRepository(db)
	changed, err := approvals.AssignReviewer(context.Background(), record.ID, db_models.TierEBM, reviewer.ID, fixedNow.Unix())
	require.NoError(t, err)
	require.True(t, changed)

	items, err := svc.ListQueue(context.Background(), actor, db_models.TierEBM)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].AccountID)
	require.NotNil(t, items[0].AssignedAt)
	assert.Equal(t, fixedNow.Unix(), *items[0].AssignedAt)

	_, err = svc.Approve(context.Background(), actor, db_models.TierEBM, mine.ID, goodRemarks)
	require.NoError(t, err)
	items, err = svc.ListQueue(context.Background(), actor, db_models.TierEBM)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.ListQueue(context.Background(), actor, db_models.TierMembershipHead)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = svc.ListQueue(context.Background(), actor, db_models.TierAdmin)
	assert.ErrorIs(t, err, utils.ErrUnknownTier)
}

type recordingMailer struct {
	sent []DecisionMail
	err  error
}

func (r *recordingMailer) SendDecision(ctx context.Context, mail DecisionMail) error {
	r.sent = append(r.sent, mail)
	return r.err
}

func TestDecisionMailsFollowFinalOutcome(t *testing.T) {
	svc, db := newApprovalService(t, true)
	mailer := &recordingMailer{}
	svc.mailer = mailer
	ctx := context.Background()
	applicant, _ := seedApplicant(t, db, db_models.GenderOther, 0)

	_, err := svc.Approve(ctx, actorOf(authz.RoleEBM), db_models.TierEBM, applicant.ID, goodRemarks)
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)

	decision, err := svc.Approve(ctx, actorOf(authz.RoleMembershipHead), db_models.TierMembershipHead, applicant.ID, goodRemarks)
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, applicant.Email, mailer.sent[0].To)
	assert.True(t, mailer.sent[0].Approved)
	assert.Equal(t, *decision.Username, mailer.sent[0].Username)

	// a failing mailer does not roll the rejection back
	mailer.err = errors.New("smtp: connection refused")
	_, err = svc.Reject(ctx, actorOf(authz.RoleAdministrator), db_models.TierAdmin, applicant.ID, "Duplicate application found")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 2)
	assert.False(t, mailer.sent[1].Approved)
	assert.Equal(t, "Duplicate application found", mailer.sent[1].Remarks)
	assert.Equal(t, db_models.ApprovalRejected, reloadApproval(t, db, applicant.ID).Status)
}
