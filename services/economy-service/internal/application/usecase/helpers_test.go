package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testDeps(store repository.ProfileStore) Deps {
	return Deps{
		Store: store,
		Retry: RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		Clock: func() time.Time { return testNow },
	}
}

func int64p(v int64) *int64 { return &v }

func newShop(t *testing.T, items ...domain.ShopItem) *catalog.ShopCatalog {
	t.Helper()
	c, err := catalog.NewShopCatalog(items)
	require.NoError(t, err)
	return c
}

func newAchievements(t *testing.T, defs ...domain.Achievement) *catalog.AchievementCatalog {
	t.Helper()
	c, err := catalog.NewAchievementCatalog(defs)
	require.NoError(t, err)
	return c
}

// newUser creates a profile and sets its state directly, bypassing the ledger.
func newUser(t *testing.T, store repository.ProfileStore, userID string, mutate func(p *domain.Profile)) {
	t.Helper()
	ctx := context.Background()
	_, err := store.CreateProfile(ctx, userID)
	require.NoError(t, err)
	if mutate == nil {
		return
	}
	require.NoError(t, store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
		mutate(tx.Profile())
		return nil
	}))
}

func readProfile(t *testing.T, store repository.ProfileStore, userID string) *domain.Profile {
	t.Helper()
	p, err := store.ReadProfile(context.Background(), userID)
	require.NoError(t, err)
	return p
}

// flakyStore fails RunTransaction with err on the calls selected by fail.
type flakyStore struct {
	repository.ProfileStore

	mu    sync.Mutex
	calls int
	fail  func(call int) bool
	err   error
}

func (s *flakyStore) RunTransaction(ctx context.Context, userID string, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.fail != nil && s.fail(n) {
		return s.err
	}
	return s.ProfileStore.RunTransaction(ctx, userID, fn)
}

func (s *flakyStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
