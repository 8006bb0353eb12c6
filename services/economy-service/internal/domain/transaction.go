package domain

import "time"

// CurrencyTransaction is an append-only ledger record. Amount is always
// positive; IsSpending gives the direction.
type CurrencyTransaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Currency      Currency  `json:"currency"`
	Amount        int64     `json:"amount"`
	IsSpending    bool      `json:"is_spending"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
	RelatedItemID string    `json:"related_item_id,omitempty"`
}

// Delta is the signed balance change this record stands for.
func (t CurrencyTransaction) Delta() int64 {
	if t.IsSpending {
		return -t.Amount
	}
	return t.Amount
}
