package credit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReferralPercent is the share of a payment credited to the referring bot owner.
const ReferralPercent = 0.05

// DefaultLang is used when the user has no stored language preference.
const DefaultLang = "ru"

var supportedLangs = map[string]bool{"ru": true, "en": true, "zh": true}

// Ledger applies credit amounts to user balances. It is the external ledger
// boundary from the payment processor's point of view.
type Ledger interface {
	AddCredits(ctx context.Context, userID, amount int64) error
	AddReferralBonus(ctx context.Context, ownerID, paymentAmount int64) error
	MarkReferralCompleted(ctx context.Context, referredID int64) error
	UserLang(ctx context.Context, userID int64) string
}

// Service implements Ledger on top of the credit repository.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new credit service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AddCredits adds amount to the user's balance.
func (s *Service) AddCredits(ctx context.Context, userID, amount int64) error {
	if err := s.repo.AddCredits(ctx, userID, amount); err != nil {
		return err
	}
	s.logger.Info("credits applied",
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
	)
	return nil
}

// AddReferralBonus credits the referring bot owner their share of the payment.
// A bonus that rounds down to zero is skipped.
func (s *Service) AddReferralBonus(ctx context.Context, ownerID, paymentAmount int64) error {
	bonus := int64(float64(paymentAmount) * ReferralPercent)
	if bonus <= 0 {
		return nil
	}
	if err := s.repo.AddCredits(ctx, ownerID, bonus); err != nil {
		return err
	}
	s.logger.Info("referral bonus applied",
		zap.Int64("owner_id", ownerID),
		zap.Int64("bonus", bonus),
	)
	return nil
}

// MarkReferralCompleted flips the user's referral record to completed.
func (s *Service) MarkReferralCompleted(ctx context.Context, referredID int64) error {
	return s.repo.UpdateReferralStatus(ctx, referredID, "completed")
}

// UserLang returns the user's UI language, falling back to the default.
func (s *Service) UserLang(ctx context.Context, userID int64) string {
	lang, err := s.repo.GetLang(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("lang lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return DefaultLang
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !supportedLangs[lang] {
		return DefaultLang
	}
	return lang
}
