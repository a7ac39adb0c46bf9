package payment

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the interface for payment record access. CompleteIfPending
// is the single synchronization point for concurrent completions: it must be
// one conditional UPDATE at the store, never a read followed by a write.
type Repository interface {
	// Create persists a pending payment and mints its external id in the same
	// transaction.
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	// GetByExternalID looks up by the public correlation key alone; the
	// processor compares the provider tag itself so a mismatch is reported
	// distinctly from not-found.
	GetByExternalID(ctx context.Context, externalID string) (*Payment, error)
	// SetTenant pins the tenant credential the invoice was issued under.
	SetTenant(ctx context.Context, paymentID, tenantID int64) error
	// CompleteIfPending atomically transitions pending -> completed. It reports
	// whether this caller won the transition; false means the record was
	// already completed (by anyone, at any point).
	CompleteIfPending(ctx context.Context, paymentID int64) (bool, error)
	// SetUSDBreakdown records the statistics columns after completion.
	SetUSDBreakdown(ctx context.Context, paymentID int64, net, gross, fee float64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p.Status = StatusPending
		if p.Provider == "" {
			p.Provider = ProviderStars
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		p.ExternalPaymentID = ExternalID(p.ID)
		return tx.Model(&Payment{}).
			Where("id = ?", p.ID).
			Update("external_payment_id", p.ExternalPaymentID).Error
	})
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).
		First(&p, "external_payment_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by external id: %w", err)
	}
	return &p, nil
}

func (r *repository) SetTenant(ctx context.Context, paymentID, tenantID int64) error {
	err := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", paymentID).
		Update("tenant_id", tenantID).Error
	if err != nil {
		return fmt.Errorf("set payment tenant: %w", err)
	}
	return nil
}

func (r *repository) CompleteIfPending(ctx context.Context, paymentID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", paymentID, StatusPending).
		Update("status", StatusCompleted)
	if res.Error != nil {
		return false, fmt.Errorf("complete payment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetUSDBreakdown(ctx context.Context, paymentID int64, net, gross, fee float64) error {
	err := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"net_amount_usd":   net,
			"gross_amount_usd": gross,
			"fee_amount_usd":   fee,
		}).Error
	if err != nil {
		return fmt.Errorf("set usd breakdown: %w", err)
	}
	return nil
}
