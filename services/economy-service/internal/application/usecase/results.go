package usecase

import "github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"

// PurchaseResult is either OK with the bought item and the buyer's updated
// inventory entry, or carries the Reason the purchase was refused.
type PurchaseResult struct {
	OK          bool                        `json:"ok"`
	Message     string                      `json:"message"`
	Item        *domain.ShopItem            `json:"item,omitempty"`
	Inventory   *domain.InventoryItem       `json:"inventory,omitempty"`
	Transaction *domain.CurrencyTransaction `json:"transaction,omitempty"`
	Reason      domain.FailureReason        `json:"reason,omitempty"`
}

// UseItemResult mirrors PurchaseResult for item consumption.
type UseItemResult struct {
	OK        bool                  `json:"ok"`
	Message   string                `json:"message"`
	Item      *domain.ShopItem      `json:"item,omitempty"`
	Inventory *domain.InventoryItem `json:"inventory,omitempty"`
	Effect    *domain.ActiveEffect  `json:"effect,omitempty"`
	Reason    domain.FailureReason  `json:"reason,omitempty"`
}

// AchievementProgress is one catalog entry as seen by one user.
type AchievementProgress struct {
	Achievement domain.Achievement `json:"achievement"`
	Current     int64              `json:"current"`
	Target      int64              `json:"target"`
	Unlocked    bool               `json:"unlocked"`
	DateEarned  int64              `json:"date_earned,omitempty"`
}

var failureMessages = map[domain.FailureReason]string{
	domain.ReasonProfileNotFound:   "Profile not found",
	domain.ReasonItemNotFound:      "Item not found",
	domain.ReasonItemUnavailable:   "This item is not available right now",
	domain.ReasonOutOfStock:        "This item is sold out",
	domain.ReasonOfferExpired:      "This offer has ended",
	domain.ReasonInsufficientFunds: "Not enough funds",
	domain.ReasonInvalidAmount:     "Invalid amount",
	domain.ReasonNoUsableItem:      "You have no usable units of this item",
	domain.ReasonItemExpired:       "This item has expired",
	domain.ReasonUnknownEffect:     "This item cannot be used",
	domain.ReasonTryAgain:          "Something went wrong, please try again",
}

func failureMessage(r domain.FailureReason) string {
	if m, ok := failureMessages[r]; ok {
		return m
	}
	return failureMessages[domain.ReasonTryAgain]
}
