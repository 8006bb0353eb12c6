package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// PostgresStore persists profiles with gorm. A transaction holds a row lock on
// the user's profile for its whole duration.
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (r *PostgresStore) Migrate() error {
	return r.db.AutoMigrate(
		&profileRow{},
		&achievementRow{},
		&inventoryRow{},
		&transactionRow{},
		&stockRow{},
	)
}

func (r *PostgresStore) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	now := r.now()
	row := profileRow{UserID: userID}
	// FirstOrCreate so a repeated registration does not fail
	err := r.db.WithContext(ctx).
		Where(profileRow{UserID: userID}).
		Attrs(profileRow{
			ActiveEffects: []byte("[]"),
			Cosmetics:     []byte("[]"),
			CreatedAt:     now,
			UpdatedAt:     now,
		}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return r.ReadProfile(ctx, userID)
}

func (r *PostgresStore) ReadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return loadProfile(r.db.WithContext(ctx), userID, false)
}

func loadProfile(db *gorm.DB, userID string, forUpdate bool) (*domain.Profile, error) {
	var row profileRow
	q := db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, mapErr(err)
	}

	var achievements []achievementRow
	if err := db.Where("user_id = ?", userID).Order("date_earned asc").Find(&achievements).Error; err != nil {
		return nil, mapErr(err)
	}
	var inventory []inventoryRow
	if err := db.Where("user_id = ?", userID).Find(&inventory).Error; err != nil {
		return nil, mapErr(err)
	}
	return toDomainProfile(&row, achievements, inventory)
}

func (r *PostgresStore) RunTransaction(ctx context.Context, userID string, fn func(tx Tx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		current, err := loadProfile(db, userID, true)
		if err != nil {
			return err
		}
		before := current.Clone()

		tx := &postgresTx{db: db, profile: current}
		if err := fn(tx); err != nil {
			return err
		}
		current.UpdatedAt = r.now()
		return tx.flush(before)
	})
	return mapErr(err)
}

func (r *PostgresStore) ListTransactions(ctx context.Context, userID string) ([]domain.CurrencyTransaction, error) {
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Find(&rows).Error
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.CurrencyTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&profileRow{}).Order("user_id").Pluck("user_id", &ids).Error
	return ids, mapErr(err)
}

func (r *PostgresStore) SeedStock(ctx context.Context, stock map[string]int64) error {
	for itemID, n := range stock {
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&stockRow{ItemID: itemID, Remaining: n}).Error
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (r *PostgresStore) ReadStock(ctx context.Context) (map[string]int64, error) {
	var rows []stockRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Remaining
	}
	return out, nil
}

type postgresTx struct {
	db       *gorm.DB
	profile  *domain.Profile
	appended []domain.CurrencyTransaction
}

func (t *postgresTx) Profile() *domain.Profile {
	return t.profile
}

func (t *postgresTx) AppendTransaction(ct domain.CurrencyTransaction) {
	t.appended = append(t.appended, ct)
}

func (t *postgresTx) StockRemaining(itemID string) (int64, bool, error) {
	var row stockRow
	err := t.db.Where("item_id = ?", itemID).Limit(1).Find(&row).Error
	if err != nil {
		return 0, false, err
	}
	if row.ItemID == "" {
		return 0, false, nil
	}
	return row.Remaining, true, nil
}

func (t *postgresTx) DecrementStock(itemID string) error {
	_, limited, err := t.StockRemaining(itemID)
	if err != nil || !limited {
		return err
	}
	res := t.db.Model(&stockRow{}).
		Where("item_id = ? AND remaining > 0", itemID).
		Update("remaining", gorm.Expr("remaining - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOutOfStock
	}
	return nil
}

// flush writes what changed relative to before. Achievements and ledger rows
// are insert-only.
func (t *postgresTx) flush(before *domain.Profile) error {
	row, err := toProfileRow(t.profile)
	if err != nil {
		return err
	}
	if err := t.db.Save(row).Error; err != nil {
		return err
	}

	for _, a := range t.profile.Achievements {
		if before.HasAchievement(a.AchievementID) {
			continue
		}
		err := t.db.Create(&achievementRow{
			UserID:        t.profile.UserID,
			AchievementID: a.AchievementID,
			DateEarned:    a.DateEarned,
		}).Error
		if err != nil {
			return err
		}
	}

	for id, it := range t.profile.Inventory {
		if old, ok := before.Inventory[id]; ok && sameInventory(*old, *it) {
			continue
		}
		err := t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&inventoryRow{
			UserID:     t.profile.UserID,
			ItemID:     id,
			Quantity:   it.Quantity,
			Used:       it.Used,
			AcquiredAt: it.AcquiredAt,
			ExpiresAt:  it.ExpiresAt,
		}).Error
		if err != nil {
			return err
		}
	}

	for _, ct := range t.appended {
		row := toTransactionRow(ct)
		if err := t.db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func sameInventory(a, b domain.InventoryItem) bool {
	if a.Quantity != b.Quantity || a.Used != b.Used || !a.AcquiredAt.Equal(b.AcquiredAt) {
		return false
	}
	if (a.ExpiresAt == nil) != (b.ExpiresAt == nil) {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.Equal(*b.ExpiresAt)
}

// mapErr translates driver failures into the retryable store errors. Domain
// errors pass through untouched.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		case "08000", "08003", "08006", "57P01":
			return fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, pgErr.Message)
		}
		return err
	}
	var netErr net.Error
	var connErr *pgconn.ConnectError
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) || errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
