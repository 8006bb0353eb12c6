package catalog

import (
	"fmt"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
)

// AchievementCatalog is the ordered, read-only set of achievement definitions.
// It is safe for concurrent use.
type AchievementCatalog struct {
	list  []domain.Achievement
	index map[string]int
}

func NewAchievementCatalog(defs []domain.Achievement) (*AchievementCatalog, error) {
	c := &AchievementCatalog{
		list:  make([]domain.Achievement, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, a := range defs {
		if a.ID == "" {
			return nil, fmt.Errorf("achievement without id")
		}
		if _, dup := c.index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement %q", a.ID)
		}
		if !a.Metric.Valid() {
			return nil, fmt.Errorf("achievement %q: unknown metric %q", a.ID, a.Metric)
		}
		if a.Threshold < 0 {
			return nil, fmt.Errorf("achievement %q: negative threshold", a.ID)
		}
		if a.Reward != nil {
			if !a.Reward.Currency.Valid() || a.Reward.Amount <= 0 {
				return nil, fmt.Errorf("achievement %q: invalid reward", a.ID)
			}
			r := *a.Reward
			a.Reward = &r
		}
		c.index[a.ID] = len(c.list)
		c.list = append(c.list, a)
	}
	return c, nil
}

// All returns the definitions in catalog order.
func (c *AchievementCatalog) All() []domain.Achievement {
	out := make([]domain.Achievement, len(c.list))
	copy(out, c.list)
	return out
}

func (c *AchievementCatalog) Get(id string) (domain.Achievement, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Achievement{}, false
	}
	return c.list[i], true
}

func (c *AchievementCatalog) Len() int {
	return len(c.list)
}
