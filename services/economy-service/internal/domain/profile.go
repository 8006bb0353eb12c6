package domain

import "time"

type Currency string

const (
	PatriotPoints Currency = "PATRIOT_POINTS"
	FreedomBucks  Currency = "FREEDOM_BUCKS"
)

func (c Currency) Valid() bool {
	return c == PatriotPoints || c == FreedomBucks
}

type UserStats struct {
	VotesCast            int64 `json:"votes_cast"`
	StreakDays           int64 `json:"streak_days"`
	Participation        int64 `json:"participation"`
	PositiveInteractions int64 `json:"positive_interactions"`
	PowerScore           int64 `json:"power_score"`
}

// AwardedAchievement is created once, at award time, and never modified.
type AwardedAchievement struct {
	AchievementID string `json:"achievement_id"`
	DateEarned    int64  `json:"date_earned"` // epoch millis
}

type InventoryItem struct {
	ItemID     string     `json:"item_id"`
	Quantity   int64      `json:"quantity"`
	Used       int64      `json:"used"`
	AcquiredAt time.Time  `json:"acquired_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Usable is quantity minus already consumed units. A zero usable item stays in
// the inventory for history.
func (i InventoryItem) Usable() int64 {
	return i.Quantity - i.Used
}

func (i InventoryItem) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// ActiveEffect is a temporary power-up produced by consuming an item.
type ActiveEffect struct {
	ItemID      string     `json:"item_id"`
	Type        EffectType `json:"type"`
	Magnitude   int64      `json:"magnitude"`
	TargetID    string     `json:"target_id,omitempty"`
	ActivatedAt time.Time  `json:"activated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Profile is the per-user aggregate. It is only mutated inside a store
// transaction; everything else works on snapshots.
type Profile struct {
	UserID              string                    `json:"user_id"`
	Stats               UserStats                 `json:"stats"`
	PatriotPoints       int64                     `json:"patriot_points"`
	FreedomBucks        int64                     `json:"freedom_bucks"`
	Achievements        []AwardedAchievement      `json:"achievements"`
	LatestAchievementID string                    `json:"latest_achievement_id,omitempty"`
	Inventory           map[string]*InventoryItem `json:"inventory"`
	ActiveEffects       []ActiveEffect            `json:"active_effects"`
	Cosmetics           []string                  `json:"cosmetics"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

func NewProfile(userID string, now time.Time) *Profile {
	return &Profile{
		UserID:    userID,
		Inventory: make(map[string]*InventoryItem),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Profile) Balance(c Currency) int64 {
	switch c {
	case PatriotPoints:
		return p.PatriotPoints
	case FreedomBucks:
		return p.FreedomBucks
	}
	return 0
}

func (p *Profile) setBalance(c Currency, v int64) {
	switch c {
	case PatriotPoints:
		p.PatriotPoints = v
	case FreedomBucks:
		p.FreedomBucks = v
	}
}

// Credit adds amount to the balance of c.
func (p *Profile) Credit(c Currency, amount int64) {
	p.setBalance(c, p.Balance(c)+amount)
}

// Debit removes amount from the balance of c, refusing to go below zero.
func (p *Profile) Debit(c Currency, amount int64) error {
	bal := p.Balance(c)
	if bal < amount {
		return ErrInsufficientFunds
	}
	p.setBalance(c, bal-amount)
	return nil
}

func (p *Profile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.AchievementID == id {
			return true
		}
	}
	return false
}

func (p *Profile) HasCosmetic(id string) bool {
	for _, c := range p.Cosmetics {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a transaction can work on it and discard it on
// rollback.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Achievements = append([]AwardedAchievement(nil), p.Achievements...)
	cp.ActiveEffects = append([]ActiveEffect(nil), p.ActiveEffects...)
	cp.Cosmetics = append([]string(nil), p.Cosmetics...)
	cp.Inventory = make(map[string]*InventoryItem, len(p.Inventory))
	for id, item := range p.Inventory {
		it := *item
		if item.ExpiresAt != nil {
			exp := *item.ExpiresAt
			it.ExpiresAt = &exp
		}
		cp.Inventory[id] = &it
	}
	return &cp
}
