package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// MemoryStore keeps profiles in process. A mutex per user linearizes
// transactions; commits swap in a new profile copy.
type MemoryStore struct {
	// lock order: stockMu before mu
	stockMu sync.Mutex
	stock   map[string]int64

	mu       sync.Mutex
	profiles map[string]*domain.Profile
	ledger   map[string][]domain.CurrencyTransaction
	locks    map[string]*sync.Mutex

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stock:    make(map[string]int64),
		profiles: make(map[string]*domain.Profile),
		ledger:   make(map[string][]domain.CurrencyTransaction),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return p.Clone(), nil
	}
	p := domain.NewProfile(userID, s.now())
	s.profiles[userID] = p
	return p.Clone(), nil
}

func (s *MemoryStore) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *MemoryStore) RunTransaction(ctx context.Context, userID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	current, err := s.ReadProfile(ctx, userID)
	if err != nil {
		return err
	}

	tx := &memoryTx{store: s, profile: current, pending: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(userID, tx)
}

func (s *MemoryStore) commit(userID string, tx *memoryTx) error {
	s.stockMu.Lock()
	defer s.stockMu.Unlock()

	// Another user may have taken the last units since the tx looked.
	for itemID, n := range tx.pending {
		if s.stock[itemID] < n {
			return domain.ErrOutOfStock
		}
	}
	for itemID, n := range tx.pending {
		s.stock[itemID] -= n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx.profile.UpdatedAt = s.now()
	s.profiles[userID] = tx.profile
	s.ledger[userID] = append(s.ledger[userID], tx.appended...)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string) ([]domain.CurrencyTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.ledger[userID]
	out := make([]domain.CurrencyTransaction, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (s *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) SeedStock(ctx context.Context, stock map[string]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.stockMu.Lock()
	defer s.stockMu.Unlock()
	for itemID, n := range stock {
		if _, ok := s.stock[itemID]; !ok {
			s.stock[itemID] = n
		}
	}
	return nil
}

func (s *MemoryStore) ReadStock(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.stockMu.Lock()
	defer s.stockMu.Unlock()
	out := make(map[string]int64, len(s.stock))
	for id, n := range s.stock {
		out[id] = n
	}
	return out, nil
}

// Stock returns the live counter of a limited item.
func (s *MemoryStore) Stock(itemID string) (int64, bool) {
	s.stockMu.Lock()
	defer s.stockMu.Unlock()
	n, ok := s.stock[itemID]
	return n, ok
}

type memoryTx struct {
	store    *MemoryStore
	profile  *domain.Profile
	appended []domain.CurrencyTransaction
	pending  map[string]int64
}

func (t *memoryTx) Profile() *domain.Profile {
	return t.profile
}

func (t *memoryTx) AppendTransaction(ct domain.CurrencyTransaction) {
	t.appended = append(t.appended, ct)
}

func (t *memoryTx) StockRemaining(itemID string) (int64, bool, error) {
	n, ok := t.store.Stock(itemID)
	if !ok {
		return 0, false, nil
	}
	return n - t.pending[itemID], true, nil
}

func (t *memoryTx) DecrementStock(itemID string) error {
	n, limited, _ := t.StockRemaining(itemID)
	if !limited {
		return nil
	}
	if n <= 0 {
		return domain.ErrOutOfStock
	}
	t.pending[itemID]++
	return nil
}
