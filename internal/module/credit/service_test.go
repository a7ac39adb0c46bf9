package credit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubRepository struct {
	credits  map[int64]int64
	statuses map[int64]string
	lang     string
	langErr  error
	err      error
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		credits:  make(map[int64]int64),
		statuses: make(map[int64]string),
		langErr:  gorm.ErrRecordNotFound,
	}
}

func (s *stubRepository) AddCredits(_ context.Context, userID, delta int64) error {
	if s.err != nil {
		return s.err
	}
	s.credits[userID] += delta
	return nil
}

func (s *stubRepository) UpdateReferralStatus(_ context.Context, referredID int64, status string) error {
	if s.err != nil {
		return s.err
	}
	s.statuses[referredID] = status
	return nil
}

func (s *stubRepository) GetLang(context.Context, int64) (string, error) {
	if s.langErr != nil {
		return "", s.langErr
	}
	return s.lang, nil
}

func TestAddCredits(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, zap.NewNop())

	require.NoError(t, svc.AddCredits(context.Background(), 42, 100))
	assert.Equal(t, int64(100), repo.credits[42])
}

func TestAddReferralBonus(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, zap.NewNop())

	require.NoError(t, svc.AddReferralBonus(context.Background(), 9, 100))
	assert.Equal(t, int64(5), repo.credits[9])
}

func TestAddReferralBonusSkipsZero(t *testing.T) {
	repo := newStubRepository()
	repo.err = errors.New("must not be called")
	svc := NewService(repo, zap.NewNop())

	// 5% of 19 rounds down to zero.
	assert.NoError(t, svc.AddReferralBonus(context.Background(), 9, 19))
}

func TestMarkReferralCompleted(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, zap.NewNop())

	require.NoError(t, svc.MarkReferralCompleted(context.Background(), 42))
	assert.Equal(t, "completed", repo.statuses[42])
}

func TestUserLang(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, zap.NewNop())

	// No stored preference falls back to the default.
	assert.Equal(t, DefaultLang, svc.UserLang(context.Background(), 42))

	repo.langErr = nil
	repo.lang = " EN "
	assert.Equal(t, "en", svc.UserLang(context.Background(), 42))

	repo.lang = "fr"
	assert.Equal(t, DefaultLang, svc.UserLang(context.Background(), 42))
}
