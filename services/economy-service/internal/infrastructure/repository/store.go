package repository

import (
	"context"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// Tx is the view a transaction function gets of one user's profile document.
// Changes made through it are committed together or not at all.
type Tx interface {
	// Profile returns the freshest committed profile, owned by the transaction
	// and free to mutate.
	Profile() *domain.Profile
	AppendTransaction(t domain.CurrencyTransaction)
	// StockRemaining reports the live stock of itemID. limited is false for
	// items without a stock counter.
	StockRemaining(itemID string) (remaining int64, limited bool, err error)
	// DecrementStock takes one unit of a limited item, failing with
	// domain.ErrOutOfStock when none are left. No-op for unlimited items.
	DecrementStock(itemID string) error
}

// ProfileStore serializes transactions per user. Transactions for different
// users never wait on each other, except for the shared stock counters.
type ProfileStore interface {
	CreateProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ReadProfile(ctx context.Context, userID string) (*domain.Profile, error)
	RunTransaction(ctx context.Context, userID string, fn func(tx Tx) error) error
	ListTransactions(ctx context.Context, userID string) ([]domain.CurrencyTransaction, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	// SeedStock sets initial counters for limited items that have none yet.
	SeedStock(ctx context.Context, stock map[string]int64) error
	// ReadStock returns the live counters of all limited items.
	ReadStock(ctx context.Context) (map[string]int64, error)
}
