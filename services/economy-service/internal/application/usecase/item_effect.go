package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

type ItemEffectEngine struct {
	deps     Deps
	retry    retrier
	shop     *catalog.ShopCatalog
	handlers map[domain.EffectType]EffectHandler
}

// NewItemEffectEngine uses DefaultEffectHandlers when handlers is nil.
func NewItemEffectEngine(deps Deps, shop *catalog.ShopCatalog, handlers map[domain.EffectType]EffectHandler) *ItemEffectEngine {
	deps = deps.withDefaults()
	if handlers == nil {
		handlers = DefaultEffectHandlers()
	}
	return &ItemEffectEngine{
		deps:     deps,
		retry:    retrier{policy: deps.Retry, log: deps.Logger},
		shop:     shop,
		handlers: handlers,
	}
}

// Use consumes one unit of itemID and applies its effect. targetID is passed
// through to the handler and may be empty.
func (e *ItemEffectEngine) Use(ctx context.Context, userID, itemID, targetID string) UseItemResult {
	res, err := e.use(ctx, userID, itemID, targetID)
	log := e.deps.Logger.WithFields(logrus.Fields{
		"user_id": userID,
		"item_id": itemID,
	})
	effect := "unknown"
	if res.Item != nil {
		effect = string(res.Item.EffectType)
	}
	if err != nil {
		reason := domain.ReasonFor(err)
		metrics.RecordItemUse(effect, string(reason))
		switch reason {
		case domain.ReasonUnknownEffect, domain.ReasonTryAgain:
			log.WithError(err).Error("item use failed")
		default:
			log.WithField("reason", reason).Info("item use rejected")
		}
		return UseItemResult{Message: failureMessage(reason), Reason: reason}
	}

	metrics.RecordItemUse(effect, "ok")
	return res
}

func (e *ItemEffectEngine) use(ctx context.Context, userID, itemID, targetID string) (UseItemResult, error) {
	item, ok := e.shop.Get(itemID)
	if !ok {
		return UseItemResult{}, domain.ErrItemNotFound
	}
	res := UseItemResult{Item: &item}

	err := e.retry.run(ctx, "use_item", func() error {
		res.Inventory, res.Effect, res.Message = nil, nil, ""
		return e.deps.Store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
			now := e.deps.Clock()
			p := tx.Profile()

			inv, ok := p.Inventory[item.ID]
			if !ok || inv.Usable() <= 0 {
				return domain.ErrNoUsableItem
			}
			if inv.Expired(now) {
				return domain.ErrItemExpired
			}

			h, ok := e.handlers[item.EffectType]
			if !ok {
				return fmt.Errorf("%w: %q on item %s", domain.ErrUnknownEffect, item.EffectType, item.ID)
			}
			inv.Used++

			msg, eff, err := h.Apply(EffectContext{
				Profile:  p,
				Item:     item,
				TargetID: targetID,
				Now:      now,
			})
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrUnknownEffect, err)
			}

			view := *inv
			res.Inventory = &view
			res.Effect = eff
			res.Message = msg
			return nil
		})
	})
	if err != nil {
		return res, err
	}
	res.OK = true
	return res, nil
}
