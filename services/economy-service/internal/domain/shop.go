package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EffectType string

const (
	EffectShield         EffectType = "SHIELD"
	EffectVoteMultiplier EffectType = "VOTE_MULTIPLIER"
	EffectCosmetic       EffectType = "COSMETIC"
	EffectPowerBoost     EffectType = "POWER_BOOST"
)

type ShopItem struct {
	ID                 string        `json:"id" yaml:"id"`
	Name               string        `json:"name" yaml:"name"`
	Description        string        `json:"description" yaml:"description"`
	Price              int64         `json:"price" yaml:"price"`
	Currency           Currency      `json:"currency" yaml:"currency"`
	Category           string        `json:"category" yaml:"category"`
	EffectType         EffectType    `json:"effect_type" yaml:"effect_type"`
	EffectMagnitude    int64         `json:"effect_magnitude" yaml:"effect_magnitude"`
	EffectDuration     time.Duration `json:"effect_duration,omitempty" yaml:"effect_duration,omitempty"`
	Available          bool          `json:"available" yaml:"available"`
	StockRemaining     *int64        `json:"stock_remaining,omitempty" yaml:"stock_remaining,omitempty"`
	LimitedTimeUntil   *time.Time    `json:"limited_time_until,omitempty" yaml:"limited_time_until,omitempty"`
	DiscountPercentage int64         `json:"discount_percentage" yaml:"discount_percentage"`
	// ValidFor, if set, gives purchased units an expiry of acquiredAt+ValidFor.
	ValidFor time.Duration `json:"valid_for,omitempty" yaml:"valid_for,omitempty"`
}

func (i ShopItem) Limited() bool {
	return i.StockRemaining != nil
}

func (i ShopItem) OfferExpired(now time.Time) bool {
	return i.LimitedTimeUntil != nil && !now.Before(*i.LimitedTimeUntil)
}

// EffectivePrice applies the discount, rounding half up. Discounts outside
// 0..100 are clamped.
func (i ShopItem) EffectivePrice() int64 {
	d := i.DiscountPercentage
	if d <= 0 {
		return i.Price
	}
	if d >= 100 {
		return 0
	}
	price := decimal.NewFromInt(i.Price).
		Mul(decimal.NewFromInt(100 - d)).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return price.IntPart()
}
