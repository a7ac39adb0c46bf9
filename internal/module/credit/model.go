package credit

import "time"

// User holds the balance a completed payment credits into. The table is shared
// with the main application; only balance and lang are touched here.
type User struct {
	UserID  int64   `gorm:"primaryKey;column:user_id"`
	Balance int64   `gorm:"not null;default:0"`
	Lang    *string `gorm:"size:8"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// Referral tracks a referred user; its status flips to completed on the
// referred user's first completed payment.
type Referral struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ReferredID int64     `gorm:"index;not null"`
	Status     string    `gorm:"not null;default:pending"`
	UpdatedAt  time.Time
}

// TableName returns the database table name.
func (Referral) TableName() string {
	return "referrals"
}
