package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/waste3d/civicplatform-api/services/economy-service/internal/domain"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/metrics"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
)

// errReadOnly rolls back the audit transaction once the snapshot is taken.
var errReadOnly = errors.New("read-only audit")

// Mismatch is a balance that differs from the sum of its ledger records.
type Mismatch struct {
	UserID   string
	Currency domain.Currency
	Balance  int64
	Ledger   int64
}

// LedgerAuditor periodically checks that every balance equals earned minus
// spent over the user's ledger.
type LedgerAuditor struct {
	store   repository.ProfileStore
	log     logrus.FieldLogger
	timeout time.Duration
	cron    *cron.Cron
}

func NewLedgerAuditor(store repository.ProfileStore, log logrus.FieldLogger) *LedgerAuditor {
	return &LedgerAuditor{
		store:   store,
		log:     log,
		timeout: 5 * time.Minute,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log)))),
	}
}

// Start schedules the audit. spec is any robfig/cron expression, including
// descriptors such as "@every 10m".
func (a *LedgerAuditor) Start(spec string) error {
	_, err := a.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.Run(ctx); err != nil {
			a.log.WithError(err).Error("ledger audit failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule ledger audit: %w", err)
	}
	a.cron.Start()
	return nil
}

// Stop waits for a running audit to finish or ctx to end.
func (a *LedgerAuditor) Stop(ctx context.Context) {
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Run audits every profile once.
func (a *LedgerAuditor) Run(ctx context.Context) ([]Mismatch, error) {
	ids, err := a.store.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, id := range ids {
		found, err := a.auditUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", id, err)
		}
		mismatches = append(mismatches, found...)
	}

	for _, m := range mismatches {
		a.log.WithFields(logrus.Fields{
			"user_id":  m.UserID,
			"currency": m.Currency,
			"balance":  m.Balance,
			"ledger":   m.Ledger,
		}).Error("balance does not match ledger")
	}
	metrics.SetLedgerMismatches(len(mismatches))
	a.log.WithFields(logrus.Fields{
		"profiles":   len(ids),
		"mismatches": len(mismatches),
	}).Info("ledger audit finished")
	return mismatches, nil
}

func (a *LedgerAuditor) auditUser(ctx context.Context, userID string) ([]Mismatch, error) {
	var (
		p   *domain.Profile
		txs []domain.CurrencyTransaction
	)
	// Read inside a transaction so no purchase lands between the two reads.
	err := a.store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
		p = tx.Profile().Clone()
		var err error
		txs, err = a.store.ListTransactions(ctx, userID)
		if err != nil {
			return err
		}
		return errReadOnly
	})
	if !errors.Is(err, errReadOnly) {
		return nil, err
	}

	sums := map[domain.Currency]int64{}
	for _, t := range txs {
		sums[t.Currency] += t.Delta()
	}

	var out []Mismatch
	for _, c := range []domain.Currency{domain.PatriotPoints, domain.FreedomBucks} {
		if p.Balance(c) != sums[c] {
			out = append(out, Mismatch{UserID: userID, Currency: c, Balance: p.Balance(c), Ledger: sums[c]})
		}
	}
	return out, nil
}
