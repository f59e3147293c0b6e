package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"clubhub/internal/models/db_models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestWithTransactionCommits(t *testing.T) {
	db := openTestDB(t)

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Create(&db_models.Event{Name: "Hackathon", Fee: decimal.RequireFromString("50.00")}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&db_models.Event{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&db_models.Event{Name: "Quiz", Fee: decimal.NewFromInt(10)}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&db_models.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := openTestDB(t)

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
			tx.Create(&db_models.Event{Name: "Talk", Fee: decimal.Zero})
			panic("mid-transaction")
		})
	})

	var count int64
	require.NoError(t, db.Model(&db_models.Event{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDecimalFeeRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ev := db_models.Event{Name: "Workshop", Fee: decimal.RequireFromString("0.50")}
	require.NoError(t, db.Create(&ev).Error)

	var loaded db_models.Event
	require.NoError(t, db.First(&loaded, "id = ?", ev.ID).Error)
	assert.True(t, loaded.Fee.Equal(decimal.RequireFromString("0.5")))
}
