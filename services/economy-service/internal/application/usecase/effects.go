package usecase

import (
	"fmt"
	"time"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// Used for timed effects whose catalog entry has no duration.
const defaultEffectDuration = time.Hour

// EffectContext is what a handler may read and change. Profile belongs to the
// open transaction.
type EffectContext struct {
	Profile  *domain.Profile
	Item     domain.ShopItem
	TargetID string
	Now      time.Time
}

// EffectHandler applies the semantics of one effect type. An error aborts the
// whole use, including the consumed unit.
type EffectHandler interface {
	Apply(ec EffectContext) (message string, effect *domain.ActiveEffect, err error)
}

type EffectHandlerFunc func(ec EffectContext) (string, *domain.ActiveEffect, error)

func (f EffectHandlerFunc) Apply(ec EffectContext) (string, *domain.ActiveEffect, error) {
	return f(ec)
}

// DefaultEffectHandlers covers every effect type the shop sells.
func DefaultEffectHandlers() map[domain.EffectType]EffectHandler {
	return map[domain.EffectType]EffectHandler{
		domain.EffectShield:         EffectHandlerFunc(applyShield),
		domain.EffectVoteMultiplier: EffectHandlerFunc(applyVoteMultiplier),
		domain.EffectCosmetic:       EffectHandlerFunc(applyCosmetic),
		domain.EffectPowerBoost:     EffectHandlerFunc(applyPowerBoost),
	}
}

func applyShield(ec EffectContext) (string, *domain.ActiveEffect, error) {
	eff := activate(ec)
	return fmt.Sprintf("%s active until %s", ec.Item.Name, eff.ExpiresAt.UTC().Format(time.RFC3339)), eff, nil
}

func applyVoteMultiplier(ec EffectContext) (string, *domain.ActiveEffect, error) {
	if ec.Item.EffectMagnitude < 2 {
		return "", nil, fmt.Errorf("vote multiplier of %d", ec.Item.EffectMagnitude)
	}
	eff := activate(ec)
	return fmt.Sprintf("Your votes count x%d until %s", eff.Magnitude, eff.ExpiresAt.UTC().Format(time.RFC3339)), eff, nil
}

func applyCosmetic(ec EffectContext) (string, *domain.ActiveEffect, error) {
	p := ec.Profile
	if p.HasCosmetic(ec.Item.ID) {
		return fmt.Sprintf("%s is already in your collection", ec.Item.Name), nil, nil
	}
	p.Cosmetics = append(p.Cosmetics, ec.Item.ID)
	return fmt.Sprintf("Unlocked %s", ec.Item.Name), nil, nil
}

func applyPowerBoost(ec EffectContext) (string, *domain.ActiveEffect, error) {
	ec.Profile.Stats.PowerScore += ec.Item.EffectMagnitude
	return fmt.Sprintf("Power score +%d", ec.Item.EffectMagnitude), nil, nil
}

// activate drops lapsed effects and appends a new timed one.
func activate(ec EffectContext) *domain.ActiveEffect {
	p := ec.Profile
	live := p.ActiveEffects[:0]
	for _, e := range p.ActiveEffects {
		if ec.Now.Before(e.ExpiresAt) {
			live = append(live, e)
		}
	}

	d := ec.Item.EffectDuration
	if d <= 0 {
		d = defaultEffectDuration
	}
	eff := domain.ActiveEffect{
		ItemID:      ec.Item.ID,
		Type:        ec.Item.EffectType,
		Magnitude:   ec.Item.EffectMagnitude,
		TargetID:    ec.TargetID,
		ActivatedAt: ec.Now,
		ExpiresAt:   ec.Now.Add(d),
	}
	p.ActiveEffects = append(live, eff)
	return &eff
}
