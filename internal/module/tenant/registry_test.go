package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepository struct {
	tokens []*BotToken
	err    error
	lists  int
}

func (s *stubRepository) GetByID(_ context.Context, id int64) (*BotToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, t := range s.tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *stubRepository) List(context.Context) ([]*BotToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lists++
	return s.tokens, nil
}

func (s *stubRepository) ListActive(context.Context) ([]*BotToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	var active []*BotToken
	for _, t := range s.tokens {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func newTestRegistry(tokens ...*BotToken) *Registry {
	return NewRegistry(&stubRepository{tokens: tokens}, nil, 0, zap.NewNop())
}

func TestResolve(t *testing.T) {
	reg := newTestRegistry(
		&BotToken{ID: 1, Token: "a", IsActive: true},
		&BotToken{ID: 2, Token: "b", IsActive: false},
	)
	ctx := context.Background()

	got, err := reg.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Token)

	got, err = reg.Resolve(ctx, 2)
	assert.ErrorIs(t, err, ErrTenantInactive)
	require.NotNil(t, got, "inactive resolution still returns the credential for logging context")
	assert.Equal(t, "b", got.Token)

	_, err = reg.Resolve(ctx, 3)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestListActive(t *testing.T) {
	reg := newTestRegistry(
		&BotToken{ID: 1, Token: "a", IsActive: true},
		&BotToken{ID: 2, Token: "b", IsActive: false},
		&BotToken{ID: 3, Token: "c", IsActive: true},
	)

	active, err := reg.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, tok := range active {
		assert.True(t, tok.IsActive)
	}
}

func TestPickRandomActive(t *testing.T) {
	reg := newTestRegistry(&BotToken{ID: 1, Token: "a", IsActive: true})

	got, err := reg.PickRandomActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestPickRandomActiveNoTenants(t *testing.T) {
	reg := newTestRegistry(&BotToken{ID: 1, Token: "a", IsActive: false})

	_, err := reg.PickRandomActive(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveTenants)
}

func TestRefreshWithoutCacheIsNoop(t *testing.T) {
	reg := newTestRegistry()
	assert.NoError(t, reg.Refresh(context.Background()))
}

func TestTokenPreview(t *testing.T) {
	long := &BotToken{Token: "123456789:AAlongtokenvalue"}
	assert.Equal(t, "12345678", long.TokenPreview())

	short := &BotToken{Token: "short"}
	assert.Equal(t, "short", short.TokenPreview())
}
