package catalog

import (
	"fmt"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// ShopCatalog holds the purchasable item definitions. Live stock counts are
// owned by the profile store; StockRemaining here is only the initial value.
type ShopCatalog struct {
	list  []domain.ShopItem
	index map[string]int
}

func NewShopCatalog(items []domain.ShopItem) (*ShopCatalog, error) {
	c := &ShopCatalog{
		list:  make([]domain.ShopItem, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("shop item without id")
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate shop item %q", it.ID)
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("shop item %q: negative price", it.ID)
		}
		if !it.Currency.Valid() {
			return nil, fmt.Errorf("shop item %q: unknown currency %q", it.ID, it.Currency)
		}
		if it.StockRemaining != nil && *it.StockRemaining < 0 {
			return nil, fmt.Errorf("shop item %q: negative stock", it.ID)
		}
		c.index[it.ID] = len(c.list)
		c.list = append(c.list, copyItem(it))
	}
	return c, nil
}

func (c *ShopCatalog) All() []domain.ShopItem {
	out := make([]domain.ShopItem, 0, len(c.list))
	for _, it := range c.list {
		out = append(out, copyItem(it))
	}
	return out
}

func (c *ShopCatalog) Get(id string) (domain.ShopItem, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.ShopItem{}, false
	}
	return copyItem(c.list[i]), true
}

// InitialStock returns the configured stock of every limited item.
func (c *ShopCatalog) InitialStock() map[string]int64 {
	stock := make(map[string]int64)
	for _, it := range c.list {
		if it.StockRemaining != nil {
			stock[it.ID] = *it.StockRemaining
		}
	}
	return stock
}

func copyItem(it domain.ShopItem) domain.ShopItem {
	if it.StockRemaining != nil {
		s := *it.StockRemaining
		it.StockRemaining = &s
	}
	if it.LimitedTimeUntil != nil {
		t := *it.LimitedTimeUntil
		it.LimitedTimeUntil = &t
	}
	return it
}
