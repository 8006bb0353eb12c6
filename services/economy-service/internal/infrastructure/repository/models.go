package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

type profileRow struct {
	UserID               string `gorm:"primaryKey;size:64"`
	VotesCast            int64  `gorm:"not null;default:0"`
	StreakDays           int64  `gorm:"not null;default:0"`
	Participation        int64  `gorm:"not null;default:0"`
	PositiveInteractions int64  `gorm:"not null;default:0"`
	PowerScore           int64  `gorm:"not null;default:0"`
	PatriotPoints        int64  `gorm:"not null;default:0;check:patriot_points >= 0"`
	FreedomBucks         int64  `gorm:"not null;default:0;check:freedom_bucks >= 0"`
	LatestAchievementID  string
	ActiveEffects        datatypes.JSON `gorm:"type:jsonb"`
	Cosmetics            datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (profileRow) TableName() string { return "profiles" }

type achievementRow struct {
	UserID        string `gorm:"primaryKey;size:64"`
	AchievementID string `gorm:"primaryKey;size:64"`
	DateEarned    int64  `gorm:"not null"`
}

func (achievementRow) TableName() string { return "awarded_achievements" }

type inventoryRow struct {
	UserID     string `gorm:"primaryKey;size:64"`
	ItemID     string `gorm:"primaryKey;size:64"`
	Quantity   int64  `gorm:"not null;default:0"`
	Used       int64  `gorm:"not null;default:0;check:used <= quantity"`
	AcquiredAt time.Time
	ExpiresAt  *time.Time
}

func (inventoryRow) TableName() string { return "inventory_items" }

type transactionRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        string `gorm:"size:64;index;not null"`
	Currency      string `gorm:"size:32;not null"`
	Amount        int64  `gorm:"not null;check:amount > 0"`
	IsSpending    bool   `gorm:"not null"`
	Reason        string
	RelatedItemID string
	Timestamp     time.Time `gorm:"index"`
}

func (transactionRow) TableName() string { return "currency_transactions" }

type stockRow struct {
	ItemID    string `gorm:"primaryKey;size:64"`
	Remaining int64  `gorm:"not null;check:remaining >= 0"`
}

func (stockRow) TableName() string { return "shop_stock" }

func toDomainProfile(row *profileRow, achievements []achievementRow, inventory []inventoryRow) (*domain.Profile, error) {
	p := &domain.Profile{
		UserID: row.UserID,
		Stats: domain.UserStats{
			VotesCast:            row.VotesCast,
			StreakDays:           row.StreakDays,
			Participation:        row.Participation,
			PositiveInteractions: row.PositiveInteractions,
			PowerScore:           row.PowerScore,
		},
		PatriotPoints:       row.PatriotPoints,
		FreedomBucks:        row.FreedomBucks,
		LatestAchievementID: row.LatestAchievementID,
		Inventory:           make(map[string]*domain.InventoryItem, len(inventory)),
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if len(row.ActiveEffects) > 0 {
		if err := json.Unmarshal(row.ActiveEffects, &p.ActiveEffects); err != nil {
			return nil, err
		}
	}
	if len(row.Cosmetics) > 0 {
		if err := json.Unmarshal(row.Cosmetics, &p.Cosmetics); err != nil {
			return nil, err
		}
	}
	for _, a := range achievements {
		p.Achievements = append(p.Achievements, domain.AwardedAchievement{
			AchievementID: a.AchievementID,
			DateEarned:    a.DateEarned,
		})
	}
	for _, it := range inventory {
		p.Inventory[it.ItemID] = &domain.InventoryItem{
			ItemID:     it.ItemID,
			Quantity:   it.Quantity,
			Used:       it.Used,
			AcquiredAt: it.AcquiredAt,
			ExpiresAt:  it.ExpiresAt,
		}
	}
	return p, nil
}

func toProfileRow(p *domain.Profile) (*profileRow, error) {
	effects, err := json.Marshal(p.ActiveEffects)
	if err != nil {
		return nil, err
	}
	cosmetics, err := json.Marshal(p.Cosmetics)
	if err != nil {
		return nil, err
	}
	return &profileRow{
		UserID:               p.UserID,
		VotesCast:            p.Stats.VotesCast,
		StreakDays:           p.Stats.StreakDays,
		Participation:        p.Stats.Participation,
		PositiveInteractions: p.Stats.PositiveInteractions,
		PowerScore:           p.Stats.PowerScore,
		PatriotPoints:        p.PatriotPoints,
		FreedomBucks:         p.FreedomBucks,
		LatestAchievementID:  p.LatestAchievementID,
		ActiveEffects:        datatypes.JSON(effects),
		Cosmetics:            datatypes.JSON(cosmetics),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

func toTransactionRow(t domain.CurrencyTransaction) transactionRow {
	return transactionRow{
		ID:            t.ID,
		UserID:        t.UserID,
		Currency:      string(t.Currency),
		Amount:        t.Amount,
		IsSpending:    t.IsSpending,
		Reason:        t.Reason,
		RelatedItemID: t.RelatedItemID,
		Timestamp:     t.Timestamp,
	}
}

func (r transactionRow) toDomain() domain.CurrencyTransaction {
	return domain.CurrencyTransaction{
		ID:            r.ID,
		UserID:        r.UserID,
		Currency:      domain.Currency(r.Currency),
		Amount:        r.Amount,
		IsSpending:    r.IsSpending,
		Reason:        r.Reason,
		RelatedItemID: r.RelatedItemID,
		Timestamp:     r.Timestamp,
	}
}
