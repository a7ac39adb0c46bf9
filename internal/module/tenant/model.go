package tenant

import (
	"time"
)

// BotToken is one tenant credential: an independently configured bot identity
// sharing this service process. The token id doubles as the webhook routing key.
// The struct round-trips through the registry cache, so the secret is part of
// the JSON form; it must never be rendered in an HTTP response.
type BotToken struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Token       string    `json:"token" gorm:"uniqueIndex;not null"`
	BotUsername *string   `json:"bot_username,omitempty"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (BotToken) TableName() string {
	return "stars_bot_tokens"
}

// TokenPreview returns a short token prefix safe for logging.
func (t *BotToken) TokenPreview() string {
	if len(t.Token) <= 8 {
		return t.Token
	}
	return t.Token[:8]
}
