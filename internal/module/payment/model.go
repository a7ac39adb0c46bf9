package payment

import (
	"fmt"
	"time"
)

// Status represents the status of a payment. The lifecycle is forward-only:
// pending records flip to completed exactly once and are never deleted here.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ProviderStars is the payment channel tag for Telegram Stars.
const ProviderStars = "stars"

// Payment is one payment record. Every field except Status is write-once.
type Payment struct {
	ID     int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID int64 `json:"user_id" gorm:"not null;index"`
	// Amount is the credited amount, in credits.
	Amount int64 `json:"amount" gorm:"not null"`
	// StarsAmount is the invoiced amount in provider units (XTR). Completion
	// events are validated against it.
	StarsAmount int64  `json:"stars_amount" gorm:"not null"`
	Status      Status `json:"status" gorm:"not null;default:pending"`
	Provider    string `json:"provider" gorm:"column:payment_provider;not null;default:stars"`
	// ExternalPaymentID is the public correlation key, minted from the internal
	// id at creation time. Unique and immutable.
	ExternalPaymentID string `json:"external_payment_id" gorm:"uniqueIndex"`
	// TenantID pins the bot credential this payment was opened under, so a
	// later completion knows which tenant context to attribute.
	TenantID   *int64 `json:"tenant_id,omitempty" gorm:"index"`
	BotOwnerID *int64 `json:"bot_owner_id,omitempty"`

	// USD breakdown, recorded on completion for statistics.
	NetAmountUSD   *float64 `json:"net_amount_usd,omitempty"`
	GrossAmountUSD *float64 `json:"gross_amount_usd,omitempty"`
	FeeAmountUSD   *float64 `json:"fee_amount_usd,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// IsCompleted returns true if the payment has been completed.
func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// ExternalID mints the provider-facing correlation key for an internal id.
func ExternalID(paymentID int64) string {
	return fmt.Sprintf("stars_%d", paymentID)
}

// InvoicePayload builds the invoice payload carried back by provider events.
func InvoicePayload(paymentID int64) string {
	return fmt.Sprintf("payment_%d", paymentID)
}
