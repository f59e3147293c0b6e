package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clubhub/internal/models/db_models"
	"clubhub/pkg/utils"
)

const (
	usernameSeqDigits = 4
	usernameSeqMax    = 9999
)

var ErrUsernameSequenceExhausted = errors.New("username sequence exhausted for prefix")

// UsernameAllocator mints {yy}{middle}{seq} usernames. Next must run inside
// the caller's transaction so the sequence row lock lives as long as it.
type UsernameAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, at time.Time) (string, error)
}

type usernameAllocator struct {
	middle string
	loc    *time.Location
}

func NewUsernameAllocator(middle string, loc *time.Location) UsernameAllocator {
	return &usernameAllocator{middle: middle, loc: loc}
}

func (u *usernameAllocator) Prefix(at time.Time) string {
	return utils.TwoDigitYear(at, u.loc) + u.middle
}

func (u *usernameAllocator) Next(ctx context.Context, tx *gorm.DB, at time.Time) (string, error) {
	prefix := u.Prefix(at)
	tx = tx.WithContext(ctx)

	seq, err := lockSequence(tx, prefix)
	if err != nil {
		return "", err
	}
	if seq == nil {
		// First allocation for this prefix: seed from the usernames already handed out.
		seed, err := lastUsernameSequence(tx, prefix)
		if err != nil {
			return "", err
		}
		row := db_models.UsernameSequence{Prefix: prefix, LastValue: seed}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return "", fmt.Errorf("seed username sequence: %w", err)
		}
		if seq, err = lockSequence(tx, prefix); err != nil {
			return "", err
		}
		if seq == nil {
			return "", fmt.Errorf("username sequence %s vanished", prefix)
		}
	}

	next := seq.LastValue + 1
	if next > usernameSeqMax {
		return "", fmt.Errorf("%w: %s", ErrUsernameSequenceExhausted, prefix)
	}
	if err := tx.Model(&db_models.UsernameSequence{}).
		Where("prefix = ?", prefix).
		Update("last_value", next).Error; err != nil {
		return "", fmt.Errorf("advance username sequence: %w", err)
	}

	return fmt.Sprintf("%s%0*d", prefix, usernameSeqDigits, next), nil
}

func lockSequence(tx *gorm.DB, prefix string) (*db_models.UsernameSequence, error) {
	var seq db_models.UsernameSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ?", prefix).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock username sequence: %w", err)
	}
	return &seq, nil
}

// lastUsernameSequence returns the numeric suffix of the lexicographically
// last username with prefix, or 0 when there is none.
func lastUsernameSequence(tx *gorm.DB, prefix string) (int, error) {
	var usernames []string
	err := tx.Unscoped().
		Model(&db_models.Account{}).
		Where("username LIKE ?", prefix+"%").
		Where("LENGTH(username) = ?", len(prefix)+usernameSeqDigits).
		Order("username DESC").
		Limit(1).
		Pluck("username", &usernames).Error
	if err != nil {
		return 0, fmt.Errorf("find last username: %w", err)
	}
	if len(usernames) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(usernames[0][len(prefix):])
	if err != nil {
		return 0, fmt.Errorf("parse username %q: %w", usernames[0], err)
	}
	return n, nil
}
