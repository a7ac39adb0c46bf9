package tenant

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the interface for tenant credential data access. The
// credential set is created and deactivated by an external administrative
// process; this side only reads it.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*BotToken, error)
	List(ctx context.Context) ([]*BotToken, error)
	ListActive(ctx context.Context) ([]*BotToken, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new tenant repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*BotToken, error) {
	var t BotToken
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get bot token: %w", err)
	}
	return &t, nil
}

func (r *repository) List(ctx context.Context) ([]*BotToken, error) {
	var tokens []*BotToken
	if err := r.db.WithContext(ctx).Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("list bot tokens: %w", err)
	}
	return tokens, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*BotToken, error) {
	var tokens []*BotToken
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("list active bot tokens: %w", err)
	}
	return tokens, nil
}
