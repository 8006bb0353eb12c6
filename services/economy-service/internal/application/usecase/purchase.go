package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

type PurchaseEngine struct {
	deps   Deps
	retry  retrier
	shop   *catalog.ShopCatalog
	ledger *CurrencyLedger
}

func NewPurchaseEngine(deps Deps, shop *catalog.ShopCatalog, ledger *CurrencyLedger) *PurchaseEngine {
	deps = deps.withDefaults()
	return &PurchaseEngine{
		deps:   deps,
		retry:  retrier{policy: deps.Retry, log: deps.Logger},
		shop:   shop,
		ledger: ledger,
	}
}

// Purchase buys one unit of itemID for userID. Debit, stock decrement and
// inventory credit commit together or not at all.
func (e *PurchaseEngine) Purchase(ctx context.Context, userID, itemID string) PurchaseResult {
	res, err := e.purchase(ctx, userID, itemID)
	log := e.deps.Logger.WithFields(logrus.Fields{
		"user_id": userID,
		"item_id": itemID,
	})
	if err != nil {
		reason := domain.ReasonFor(err)
		metrics.RecordPurchase(itemID, string(reason))
		if reason == domain.ReasonTryAgain {
			log.WithError(err).Error("purchase failed")
		} else {
			log.WithField("reason", reason).Info("purchase rejected")
		}
		return PurchaseResult{Message: failureMessage(reason), Reason: reason}
	}

	metrics.RecordPurchase(itemID, "ok")
	if res.Transaction != nil {
		e.ledger.committed(*res.Transaction)
	}
	log.Info("purchase completed")
	return res
}

func (e *PurchaseEngine) purchase(ctx context.Context, userID, itemID string) (PurchaseResult, error) {
	item, ok := e.shop.Get(itemID)
	if !ok {
		return PurchaseResult{}, domain.ErrItemNotFound
	}
	// Cheap rejections against the catalog before taking any lock.
	if err := checkOffer(item, e.deps.Clock()); err != nil {
		return PurchaseResult{}, err
	}
	if item.Limited() && *item.StockRemaining <= 0 {
		return PurchaseResult{}, domain.ErrOutOfStock
	}

	var res PurchaseResult
	err := e.retry.run(ctx, "purchase", func() error {
		res = PurchaseResult{}
		return e.deps.Store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
			now := e.deps.Clock()
			if err := checkOffer(item, now); err != nil {
				return err
			}
			remaining, limited, err := tx.StockRemaining(item.ID)
			if err != nil {
				return err
			}
			// A limited item without a stock row has never been seeded.
			if item.Limited() && !limited {
				return domain.ErrOutOfStock
			}
			if limited && remaining <= 0 {
				return domain.ErrOutOfStock
			}

			if price := item.EffectivePrice(); price > 0 {
				ct, err := e.ledger.ApplyTx(tx, item.Currency, price, "purchase:"+item.ID, true, item.ID)
				if err != nil {
					return err
				}
				res.Transaction = &ct
			}

			if limited {
				if err := tx.DecrementStock(item.ID); err != nil {
					return err
				}
				left := remaining - 1
				item.StockRemaining = &left
			}

			inv := creditInventory(tx.Profile(), item, now)
			view := *inv
			res.Inventory = &view
			return nil
		})
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	res.OK = true
	res.Message = fmt.Sprintf("Purchased %s", item.Name)
	res.Item = &item
	return res, nil
}

func checkOffer(item domain.ShopItem, now time.Time) error {
	if !item.Available {
		return domain.ErrItemUnavailable
	}
	if item.OfferExpired(now) {
		return domain.ErrOfferExpired
	}
	return nil
}

func creditInventory(p *domain.Profile, item domain.ShopItem, now time.Time) *domain.InventoryItem {
	inv, ok := p.Inventory[item.ID]
	if !ok {
		inv = &domain.InventoryItem{ItemID: item.ID}
		if p.Inventory == nil {
			p.Inventory = make(map[string]*domain.InventoryItem)
		}
		p.Inventory[item.ID] = inv
	}
	inv.Quantity++
	inv.AcquiredAt = now
	if item.ValidFor > 0 {
		exp := now.Add(item.ValidFor)
		inv.ExpiresAt = &exp
	}
	return inv
}
