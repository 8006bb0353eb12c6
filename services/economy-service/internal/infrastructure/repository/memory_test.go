package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

func TestMemoryCreateProfileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.ReadProfile(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	p, err := s.CreateProfile(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, s.RunTransaction(ctx, "u1", func(tx Tx) error {
		tx.Profile().FreedomBucks = 50
		return nil
	}))

	again, err := s.CreateProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.UserID, again.UserID)
	assert.Equal(t, int64(50), again.FreedomBucks)
}

func TestMemoryTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.CreateProfile(ctx, "u1")
	require.NoError(t, s.SeedStock(ctx, map[string]int64{"badge": 1}))

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, "u1", func(tx Tx) error {
		tx.Profile().PatriotPoints = 999
		tx.AppendTransaction(domain.CurrencyTransaction{ID: "t1", Amount: 999})
		require.NoError(t, tx.DecrementStock("badge"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, _ := s.ReadProfile(ctx, "u1")
	assert.Equal(t, int64(0), p.PatriotPoints)
	txs, _ := s.ListTransactions(ctx, "u1")
	assert.Empty(t, txs)
	n, _ := s.Stock("badge")
	assert.Equal(t, int64(1), n)
}

func TestMemoryStockAccounting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.CreateProfile(ctx, "u1")
	require.NoError(t, s.SeedStock(ctx, map[string]int64{"badge": 1}))
	// a second seed does not reset live counters
	require.NoError(t, s.SeedStock(ctx, map[string]int64{"badge": 5}))

	err := s.RunTransaction(ctx, "u1", func(tx Tx) error {
		n, limited, err := tx.StockRemaining("badge")
		require.NoError(t, err)
		assert.True(t, limited)
		assert.Equal(t, int64(1), n)

		require.NoError(t, tx.DecrementStock("badge"))
		assert.ErrorIs(t, tx.DecrementStock("badge"), domain.ErrOutOfStock)

		_, limited, _ = tx.StockRemaining("unlimited")
		assert.False(t, limited)
		return tx.DecrementStock("unlimited")
	})
	require.NoError(t, err)

	n, _ := s.Stock("badge")
	assert.Equal(t, int64(0), n)
}

func TestMemoryLastUnitAcrossUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SeedStock(ctx, map[string]int64{"badge": 1}))

	const users = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < users; i++ {
		id := string(rune('a' + i))
		_, _ = s.CreateProfile(ctx, id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTransaction(ctx, id, func(tx Tx) error {
				return tx.DecrementStock("badge")
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrOutOfStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	n, _ := s.Stock("badge")
	assert.Equal(t, int64(0), n)
}

func TestMemoryListings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.CreateProfile(ctx, "b")
	_, _ = s.CreateProfile(ctx, "a")

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	for _, id := range []string{"t1", "t2"} {
		id := id
		require.NoError(t, s.RunTransaction(ctx, "a", func(tx Tx) error {
			tx.AppendTransaction(domain.CurrencyTransaction{ID: id, UserID: "a", Amount: 1})
			return nil
		}))
	}
	txs, err := s.ListTransactions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].ID)

	err = s.RunTransaction(ctx, "nobody", func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestMemoryReadStock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SeedStock(ctx, map[string]int64{"badge": 3, "flag": 1}))

	stock, err := s.ReadStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"badge": 3, "flag": 1}, stock)

	// the result is a copy
	stock["badge"] = 0
	n, _ := s.Stock("badge")
	assert.Equal(t, int64(3), n)
}
