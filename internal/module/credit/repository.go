package credit

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the interface for balance and referral data access.
type Repository interface {
	AddCredits(ctx context.Context, userID, delta int64) error
	UpdateReferralStatus(ctx context.Context, referredID int64, status string) error
	GetLang(ctx context.Context, userID int64) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new credit repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// AddCredits increments the user's balance, creating the user row when absent.
// Both statements run in one transaction.
func (r *repository) AddCredits(ctx context.Context, userID, delta int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"INSERT INTO users(user_id, balance) VALUES(?, 0) ON CONFLICT(user_id) DO NOTHING",
			userID,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			"UPDATE users SET balance = COALESCE(balance, 0) + ? WHERE user_id = ?",
			delta, userID,
		).Error
	})
	if err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	return nil
}

func (r *repository) UpdateReferralStatus(ctx context.Context, referredID int64, status string) error {
	err := r.db.WithContext(ctx).
		Model(&Referral{}).
		Where("referred_id = ?", referredID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update referral status: %w", err)
	}
	return nil
}

func (r *repository) GetLang(ctx context.Context, userID int64) (string, error) {
	var u User
	err := r.db.WithContext(ctx).Select("user_id", "lang").First(&u, "user_id = ?", userID).Error
	if err != nil {
		return "", err
	}
	if u.Lang == nil {
		return "", nil
	}
	return *u.Lang, nil
}
