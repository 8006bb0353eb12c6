package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

// CurrencyLedger is the only code path that changes a balance. Every change
// produces exactly one CurrencyTransaction in the same store transaction.
type CurrencyLedger struct {
	deps  Deps
	retry retrier
}

func NewCurrencyLedger(deps Deps) *CurrencyLedger {
	deps = deps.withDefaults()
	return &CurrencyLedger{
		deps:  deps,
		retry: retrier{policy: deps.Retry, log: deps.Logger},
	}
}

// Apply earns or spends amount of currency for userID in its own transaction.
func (l *CurrencyLedger) Apply(
	ctx context.Context,
	userID string,
	currency domain.Currency,
	amount int64,
	reason string,
	isSpending bool,
	relatedItemID string,
) (domain.CurrencyTransaction, error) {
	var out domain.CurrencyTransaction
	err := l.retry.run(ctx, "ledger_apply", func() error {
		return l.deps.Store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
			ct, err := l.ApplyTx(tx, currency, amount, reason, isSpending, relatedItemID)
			if err != nil {
				return err
			}
			out = ct
			return nil
		})
	})
	if err != nil {
		l.deps.Logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"currency": currency,
			"amount":   amount,
			"spending": isSpending,
		}).WithError(err).Info("ledger apply rejected")
		return domain.CurrencyTransaction{}, err
	}
	l.committed(out)
	return out, nil
}

// ApplyTx applies the balance change inside a transaction the caller already
// holds. Nothing is visible until that transaction commits.
func (l *CurrencyLedger) ApplyTx(
	tx repository.Tx,
	currency domain.Currency,
	amount int64,
	reason string,
	isSpending bool,
	relatedItemID string,
) (domain.CurrencyTransaction, error) {
	if amount <= 0 {
		return domain.CurrencyTransaction{}, domain.ErrInvalidAmount
	}
	if !currency.Valid() {
		return domain.CurrencyTransaction{}, fmt.Errorf("%w: unknown currency %q", domain.ErrInvalidAmount, currency)
	}

	p := tx.Profile()
	if isSpending {
		if err := p.Debit(currency, amount); err != nil {
			return domain.CurrencyTransaction{}, err
		}
	} else {
		if amount > math.MaxInt64-p.Balance(currency) {
			return domain.CurrencyTransaction{}, fmt.Errorf("%w: balance would overflow", domain.ErrInvalidAmount)
		}
		p.Credit(currency, amount)
	}

	ct := domain.CurrencyTransaction{
		ID:            l.deps.NewID(),
		UserID:        p.UserID,
		Currency:      currency,
		Amount:        amount,
		IsSpending:    isSpending,
		Reason:        reason,
		Timestamp:     l.deps.Clock(),
		RelatedItemID: relatedItemID,
	}
	tx.AppendTransaction(ct)
	return ct, nil
}

// History lists the user's ledger, newest first.
func (l *CurrencyLedger) History(ctx context.Context, userID string) ([]domain.CurrencyTransaction, error) {
	return l.deps.Store.ListTransactions(ctx, userID)
}

func (l *CurrencyLedger) committed(ct domain.CurrencyTransaction) {
	metrics.RecordLedgerEntry(string(ct.Currency), ct.IsSpending)
}
