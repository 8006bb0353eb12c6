package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

func badge(stock int64) domain.ShopItem {
	return domain.ShopItem{
		ID:             "eagle_badge",
		Name:           "Eagle Badge",
		Price:          1000,
		Currency:       domain.FreedomBucks,
		EffectType:     domain.EffectCosmetic,
		Available:      true,
		StockRemaining: int64p(stock),
	}
}

func newPurchaseEngine(t *testing.T, store repository.ProfileStore, items ...domain.ShopItem) *PurchaseEngine {
	t.Helper()
	shop := newShop(t, items...)
	require.NoError(t, store.SeedStock(context.Background(), shop.InitialStock()))
	deps := testDeps(store)
	return NewPurchaseEngine(deps, shop, NewCurrencyLedger(deps))
}

func TestPurchaseConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", func(p *domain.Profile) { p.FreedomBucks = 1200 })
	engine := newPurchaseEngine(t, store, badge(1))

	results := make([]PurchaseResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Purchase(ctx, "u1", "eagle_badge")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, r := range results {
		if r.OK {
			ok++
			continue
		}
		assert.Contains(t, []domain.FailureReason{domain.ReasonOutOfStock, domain.ReasonInsufficientFunds}, r.Reason)
	}
	assert.Equal(t, 1, ok)

	p := readProfile(t, store, "u1")
	assert.Equal(t, int64(200), p.FreedomBucks)
	assert.Equal(t, int64(1), p.Inventory["eagle_badge"].Quantity)
	n, _ := store.Stock("eagle_badge")
	assert.Equal(t, int64(0), n)
	history, _ := store.ListTransactions(ctx, "u1")
	assert.Len(t, history, 1)
}

func TestPurchaseSuccess(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", func(p *domain.Profile) { p.FreedomBucks = 3000 })
	engine := newPurchaseEngine(t, store, badge(5))

	res := engine.Purchase(ctx, "u1", "eagle_badge")
	require.True(t, res.OK, res.Message)
	assert.Equal(t, domain.ReasonNone, res.Reason)
	assert.Equal(t, "Purchased Eagle Badge", res.Message)
	require.NotNil(t, res.Item)
	assert.Equal(t, int64(4), *res.Item.StockRemaining)
	require.NotNil(t, res.Inventory)
	assert.Equal(t, int64(1), res.Inventory.Quantity)
	assert.Equal(t, testNow, res.Inventory.AcquiredAt)
	assert.Nil(t, res.Inventory.ExpiresAt)
	require.NotNil(t, res.Transaction)
	assert.True(t, res.Transaction.IsSpending)
	assert.Equal(t, int64(1000), res.Transaction.Amount)
	assert.Equal(t, "eagle_badge", res.Transaction.RelatedItemID)

	res = engine.Purchase(ctx, "u1", "eagle_badge")
	require.True(t, res.OK)
	assert.Equal(t, int64(2), res.Inventory.Quantity)

	p := readProfile(t, store, "u1")
	assert.Equal(t, int64(1000), p.FreedomBucks)
	history, _ := store.ListTransactions(ctx, "u1")
	var sum int64
	for _, ct := range history {
		sum += ct.Delta()
	}
	assert.Equal(t, int64(-2000), sum)
}

func TestPurchaseRejections(t *testing.T) {
	past := testNow.Add(-time.Millisecond)
	future := testNow.Add(time.Hour)
	items := []domain.ShopItem{
		badge(0),
		{ID: "retired", Name: "Retired", Price: 10, Currency: domain.PatriotPoints, Available: false},
		{ID: "expired", Name: "Expired", Price: 10, Currency: domain.PatriotPoints, Available: true, LimitedTimeUntil: &past},
		{ID: "deadline_now", Name: "Now", Price: 10, Currency: domain.PatriotPoints, Available: true, LimitedTimeUntil: &testNow},
		{ID: "pricey", Name: "Pricey", Price: 10_000, Currency: domain.PatriotPoints, Available: true, LimitedTimeUntil: &future},
	}

	tests := []struct {
		item string
		user string
		want domain.FailureReason
	}{
		{"missing", "u1", domain.ReasonItemNotFound},
		{"eagle_badge", "u1", domain.ReasonOutOfStock},
		{"retired", "u1", domain.ReasonItemUnavailable},
		{"expired", "u1", domain.ReasonOfferExpired},
		{"deadline_now", "u1", domain.ReasonOfferExpired},
		{"pricey", "u1", domain.ReasonInsufficientFunds},
		{"pricey", "ghost", domain.ReasonProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.item+"/"+tt.user, func(t *testing.T) {
			ctx := context.Background()
			store := repository.NewMemoryStore()
			newUser(t, store, "u1", func(p *domain.Profile) {
				p.PatriotPoints = 5000
				p.FreedomBucks = 5000
			})
			engine := newPurchaseEngine(t, store, items...)

			res := engine.Purchase(ctx, tt.user, tt.item)
			assert.False(t, res.OK)
			assert.Equal(t, tt.want, res.Reason)
			assert.NotEmpty(t, res.Message)

			p := readProfile(t, store, "u1")
			assert.Equal(t, int64(5000), p.PatriotPoints)
			assert.Equal(t, int64(5000), p.FreedomBucks)
			assert.Empty(t, p.Inventory)
			history, _ := store.ListTransactions(ctx, "u1")
			assert.Empty(t, history)
		})
	}
}

func TestPurchaseStockRunsOutInsideTransaction(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", func(p *domain.Profile) { p.FreedomBucks = 5000 })
	engine := newPurchaseEngine(t, store, badge(1))

	require.True(t, engine.Purchase(ctx, "u1", "eagle_badge").OK)
	// the catalog still says 1; the live counter decides
	res := engine.Purchase(ctx, "u1", "eagle_badge")
	assert.Equal(t, domain.ReasonOutOfStock, res.Reason)
	assert.Equal(t, int64(4000), readProfile(t, store, "u1").FreedomBucks)
}

func TestPurchaseUnseededLimitedItemIsOutOfStock(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", func(p *domain.Profile) { p.FreedomBucks = 5000 })
	deps := testDeps(store)
	engine := NewPurchaseEngine(deps, newShop(t, badge(1)), NewCurrencyLedger(deps))

	res := engine.Purchase(ctx, "u1", "eagle_badge")
	assert.False(t, res.OK)
	assert.Equal(t, domain.ReasonOutOfStock, res.Reason)

	p := readProfile(t, store, "u1")
	assert.Equal(t, int64(5000), p.FreedomBucks)
	assert.Empty(t, p.Inventory)
}

func TestPurchaseAppliesDiscountAndValidity(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", func(p *domain.Profile) {
		p.PatriotPoints = 1000
		p.FreedomBucks = 1000
	})
	bundle := catalog.Default()
	require.NoError(t, store.SeedStock(ctx, bundle.Shop.InitialStock()))
	deps := testDeps(store)
	engine := NewPurchaseEngine(deps, bundle.Shop, NewCurrencyLedger(deps))

	res := engine.Purchase(ctx, "u1", "power_surge")
	require.True(t, res.OK)
	assert.Equal(t, int64(270), res.Transaction.Amount)

	res = engine.Purchase(ctx, "u1", "double_vote")
	require.True(t, res.OK)
	require.NotNil(t, res.Inventory.ExpiresAt)
	assert.Equal(t, testNow.Add(720*time.Hour), *res.Inventory.ExpiresAt)

	p := readProfile(t, store, "u1")
	assert.Equal(t, int64(730), p.PatriotPoints)
	assert.Equal(t, int64(500), p.FreedomBucks)
}

func TestPurchaseFreeItemSkipsLedger(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	newUser(t, store, "u1", nil)
	free := domain.ShopItem{
		ID: "welcome_pin", Name: "Welcome Pin", Price: 50, DiscountPercentage: 100,
		Currency: domain.PatriotPoints, EffectType: domain.EffectCosmetic, Available: true,
	}
	engine := newPurchaseEngine(t, store, free)

	res := engine.Purchase(ctx, "u1", "welcome_pin")
	require.True(t, res.OK)
	assert.Nil(t, res.Transaction)
	history, _ := store.ListTransactions(ctx, "u1")
	assert.Empty(t, history)
	assert.Equal(t, int64(1), readProfile(t, store, "u1").Inventory["welcome_pin"].Quantity)
}

func TestPurchaseRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	newUser(t, mem, "u1", func(p *domain.Profile) { p.FreedomBucks = 1000 })
	store := &flakyStore{
		ProfileStore: mem,
		fail:         func(call int) bool { return call == 1 },
		err:          domain.ErrConflict,
	}
	engine := newPurchaseEngine(t, store, badge(3))

	res := engine.Purchase(ctx, "u1", "eagle_badge")
	require.True(t, res.OK)
	assert.Equal(t, 2, store.Calls())
	assert.Equal(t, int64(0), readProfile(t, mem, "u1").FreedomBucks)
}

func TestPurchaseGivesUpAfterRetryBudget(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	newUser(t, mem, "u1", func(p *domain.Profile) { p.FreedomBucks = 1000 })
	store := &flakyStore{
		ProfileStore: mem,
		fail:         func(int) bool { return true },
		err:          domain.ErrConflict,
	}
	engine := newPurchaseEngine(t, store, badge(3))

	res := engine.Purchase(ctx, "u1", "eagle_badge")
	assert.False(t, res.OK)
	assert.Equal(t, domain.ReasonTryAgain, res.Reason)
	assert.Equal(t, 3, store.Calls())
	assert.Equal(t, int64(1000), readProfile(t, mem, "u1").FreedomBucks)
}

func TestPurchaseDoesNotRetryBusinessErrors(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	newUser(t, mem, "u1", nil)
	store := &flakyStore{ProfileStore: mem}
	engine := newPurchaseEngine(t, store, badge(3))

	res := engine.Purchase(ctx, "u1", "eagle_badge")
	assert.Equal(t, domain.ReasonInsufficientFunds, res.Reason)
	assert.Equal(t, 1, store.Calls())
}
