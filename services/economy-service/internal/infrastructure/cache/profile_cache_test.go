package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

func setup(t *testing.T) (*ProfileCache, *repository.MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := repository.NewMemoryStore()
	return NewProfileCache(store, client, time.Minute, log), store, mr
}

func TestReadProfileIsCached(t *testing.T) {
	ctx := context.Background()
	c, store, mr := setup(t)

	_, err := c.CreateProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, mr.Exists("profile:u1"))

	p, err := c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	require.True(t, mr.Exists("profile:u1"))
	assert.Equal(t, time.Minute, mr.TTL("profile:u1"))

	// a write that bypasses the cache is not seen until the entry goes away
	require.NoError(t, store.RunTransaction(ctx, "u1", func(tx repository.Tx) error {
		tx.Profile().FreedomBucks = 10
		return nil
	}))
	p, err = c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.FreedomBucks)

	mr.FastForward(2 * time.Minute)
	p, err = c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.FreedomBucks)
}

func TestTransactionInvalidates(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setup(t)
	_, _ = c.CreateProfile(ctx, "u1")
	_, _ = c.ReadProfile(ctx, "u1")
	require.True(t, mr.Exists("profile:u1"))

	err := c.RunTransaction(ctx, "u1", func(tx repository.Tx) error {
		tx.Profile().PatriotPoints = 7
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("profile:u1"))

	p, err := c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.PatriotPoints)
}

func TestFailedTransactionKeepsEntry(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setup(t)
	_, _ = c.CreateProfile(ctx, "u1")
	_, _ = c.ReadProfile(ctx, "u1")

	err := c.RunTransaction(ctx, "u1", func(tx repository.Tx) error {
		return domain.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, mr.Exists("profile:u1"))
}

// commitDuringRead runs commit after the store read returns its snapshot.
type commitDuringRead struct {
	repository.ProfileStore
	commit func()
}

func (s *commitDuringRead) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.ProfileStore.ReadProfile(ctx, userID)
	if s.commit != nil {
		commit := s.commit
		s.commit = nil
		commit()
	}
	return p, err
}

func TestCommitDuringFillIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := &commitDuringRead{ProfileStore: repository.NewMemoryStore()}
	c := NewProfileCache(store, client, time.Minute, log)
	_, err := c.CreateProfile(ctx, "u1")
	require.NoError(t, err)

	store.commit = func() {
		require.NoError(t, c.RunTransaction(ctx, "u1", func(tx repository.Tx) error {
			tx.Profile().FreedomBucks = 10
			return nil
		}))
	}
	p, err := c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.FreedomBucks)
	assert.False(t, mr.Exists("profile:u1"))

	p, err = c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.FreedomBucks)
	assert.True(t, mr.Exists("profile:u1"))
}

func TestMissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setup(t)

	_, err := c.ReadProfile(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.False(t, mr.Exists("profile:ghost"))
}

func TestRedisDownFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setup(t)
	_, _ = c.CreateProfile(ctx, "u1")
	mr.Close()

	p, err := c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	c, _, mr := setup(t)
	_, _ = c.CreateProfile(ctx, "u1")
	require.NoError(t, mr.Set("profile:u1", "{not json"))

	p, err := c.ReadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	got, err := mr.Get("profile:u1")
	require.NoError(t, err)
	assert.Contains(t, got, `"user_id":"u1"`)
}
