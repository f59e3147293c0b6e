package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clubhub/internal/infra"
	"clubhub/internal/models/db_models"
	"clubhub/pkg/authz"
	"clubhub/pkg/metrics"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// fixedNow falls in 2025, so minted usernames start with "250707".
var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, ist)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, infra.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

type accountSeed struct {
	role      authz.Role
	gender    db_models.Gender
	createdAt int64
	inactive  bool
	username  string
}

func seedAccount(t *testing.T, db *gorm.DB, s accountSeed) *db_models.Account {
	t.Helper()
	if s.role == "" {
		s.role = authz.RoleMember
	}
	if s.gender == "" {
		s.gender = db_models.GenderOther
	}
	id := uuid.New()
	account := &db_models.Account{
		BaseModel: db_models.BaseModel{ID: id, CreatedAt: s.createdAt},
		Name:      "user " + id.String()[:8],
		Email:     id.String()[:8] + "@example.edu",
		Role:      s.role,
		Gender:    s.gender,
		IsActive:  !s.inactive,
	}
	if s.username != "" {
		username := s.username
		account.Username = &username
		account.IsApproved = true
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// seedApplicant creates a member with a pending approval record.
func seedApplicant(t *testing.T, db *gorm.DB, gender db_models.Gender, createdAt int64) (*db_models.Account, *db_models.ApprovalRecord) {
	t.Helper()
	account := seedAccount(t, db, accountSeed{gender: gender, createdAt: createdAt})
	record := &db_models.ApprovalRecord{
		BaseModel: db_models.BaseModel{CreatedAt: createdAt},
		AccountID: account.ID,
		Status:    db_models.ApprovalPending,
	}
	require.NoError(t, db.Create(record).Error)
	return account, record
}

func reloadAccount(t *testing.T, db *gorm.DB, id uuid.UUID) db_models.Account {
	t.Helper()
	var account db_models.Account
	require.NoError(t, db.First(&account, "id = ?", id).Error)
	return account
}

func reloadApproval(t *testing.T, db *gorm.DB, accountID uuid.UUID) db_models.ApprovalRecord {
	t.Helper()
	var record db_models.ApprovalRecord
	require.NoError(t, db.First(&record, "account_id = ?", accountID).Error)
	return record
}

func seedEvent(t *testing.T, db *gorm.DB, fee string) *db_models.Event {
	t.Helper()
	event := &db_models.Event{
		Name:     "Robotics Workshop",
		Fee:      decimal.RequireFromString(fee),
		IsActive: true,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func seedPublicRegistration(t *testing.T, db *gorm.DB, event *db_models.Event) *db_models.PublicRegistration {
	t.Helper()
	participant := &db_models.PublicParticipant{
		Name:    "Asha Rao",
		Email:   "asha@example.org",
		Phone:   "9000000000",
		College: "City College",
	}
	require.NoError(t, db.Create(participant).Error)
	reg := &db_models.PublicRegistration{
		EventID:       event.ID,
		ParticipantID: participant.ID,
		IsPaid:        db_models.PaidStateNotPaid,
		PaymentStatus: db_models.PaymentPending,
	}
	require.NoError(t, db.Create(reg).Error)
	return reg
}

// fakeGateway accepts signatures of the form "sig:<order>|<payment>".
type fakeGateway struct {
	mu          sync.Mutex
	created     int
	verifyCalls int
	createErr   error
	raw         map[string]interface{}
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	id := fmt.Sprintf("order_%04d", f.created)
	raw := f.raw
	if raw == nil {
		raw = map[string]interface{}{"id": id, "amount": req.Amount, "currency": req.Currency, "receipt": req.Receipt}
	}
	return &GatewayOrder{ID: id, Raw: raw}, nil
}

func (f *fakeGateway) VerifyPaymentSignature(providerOrderID, providerPaymentID, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if signature != fakeSignature(providerOrderID, providerPaymentID) {
		return errSignatureMismatch
	}
	return nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

func (f *fakeGateway) verifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

func fakeSignature(orderID, paymentID string) string {
	return "sig:" + orderID + "|" + paymentID
}

func nopLogger() *zap.Logger { return zap.NewNop() }
