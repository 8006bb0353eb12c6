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

// Participation gained per action tag. Unknown tags count as 1.
var actionWeights = map[string]int64{
	"vote":     1,
	"comment":  2,
	"proposal": 5,
	"login":    1,
}

func ActionWeight(action string) int64 {
	if w, ok := actionWeights[action]; ok {
		return w
	}
	return 1
}

type AchievementEngine struct {
	deps    Deps
	retry   retrier
	catalog *catalog.AchievementCatalog
	ledger  *CurrencyLedger
}

func NewAchievementEngine(deps Deps, achievements *catalog.AchievementCatalog, ledger *CurrencyLedger) *AchievementEngine {
	deps = deps.withDefaults()
	return &AchievementEngine{
		deps:    deps,
		retry:   retrier{policy: deps.Retry, log: deps.Logger},
		catalog: achievements,
		ledger:  ledger,
	}
}

// Evaluate awards every catalog achievement the profile qualifies for and does
// not hold yet, in catalog order. It never fails: on a storage error it logs
// and returns an empty list, though awards committed before the error stay.
// A nil profile is read from the store.
func (e *AchievementEngine) Evaluate(ctx context.Context, userID string, profile *domain.Profile) []domain.Achievement {
	unlocked, err := e.evaluate(ctx, userID, profile)
	if err != nil {
		metrics.RecordEvaluationFailure()
		e.deps.Logger.WithFields(logrus.Fields{
			"user_id":   userID,
			"committed": len(unlocked),
		}).WithError(err).Warn("achievement evaluation failed")
		return []domain.Achievement{}
	}
	return unlocked
}

func (e *AchievementEngine) evaluate(ctx context.Context, userID string, profile *domain.Profile) ([]domain.Achievement, error) {
	if profile == nil {
		p, err := e.deps.Store.ReadProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	unlocked := []domain.Achievement{}
	for _, a := range e.catalog.All() {
		if profile.HasAchievement(a.ID) || !a.Unlocked(profile) {
			continue
		}
		awarded, err := e.award(ctx, userID, a)
		if err != nil {
			return unlocked, fmt.Errorf("award %s: %w", a.ID, err)
		}
		if awarded {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

// award marks a as earned. It reports false when a concurrent evaluator got
// there first.
func (e *AchievementEngine) award(ctx context.Context, userID string, a domain.Achievement) (bool, error) {
	var (
		awarded bool
		reward  *domain.CurrencyTransaction
	)
	err := e.retry.run(ctx, "award", func() error {
		awarded, reward = false, nil
		return e.deps.Store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
			p := tx.Profile()
			if p.HasAchievement(a.ID) {
				return nil
			}

			p.Achievements = append(p.Achievements, domain.AwardedAchievement{
				AchievementID: a.ID,
				DateEarned:    e.deps.Clock().UnixMilli(),
			})
			p.LatestAchievementID = a.ID
			p.Stats.Participation += domain.AwardParticipationBonus
			p.Stats.PositiveInteractions += domain.AwardPositiveInteractionsBonus

			if a.Reward != nil && a.Reward.Amount > 0 {
				ct, err := e.ledger.ApplyTx(tx, a.Reward.Currency, a.Reward.Amount, "achievement:"+a.ID, false, "")
				if err != nil {
					return err
				}
				reward = &ct
			}
			awarded = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}

	if awarded {
		metrics.RecordAward(a.ID)
		if reward != nil {
			e.ledger.committed(*reward)
		}
		e.deps.Logger.WithFields(logrus.Fields{
			"user_id":        userID,
			"achievement_id": a.ID,
		}).Info("achievement awarded")
	}
	return awarded, nil
}

// RecordAction credits participation for action and evaluates the committed
// profile. Failures collapse to an empty list like Evaluate.
// It takes no profile argument: the increment reads the profile inside its
// own transaction so it never applies to a stale snapshot.
func (e *AchievementEngine) RecordAction(ctx context.Context, userID, action string) []domain.Achievement {
	weight := ActionWeight(action)

	var updated *domain.Profile
	err := e.retry.run(ctx, "record_action", func() error {
		return e.deps.Store.RunTransaction(ctx, userID, func(tx repository.Tx) error {
			p := tx.Profile()
			p.Stats.Participation += weight
			updated = p.Clone()
			return nil
		})
	})
	if err != nil {
		metrics.RecordEvaluationFailure()
		e.deps.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  action,
		}).WithError(err).Warn("record action failed")
		return []domain.Achievement{}
	}
	return e.Evaluate(ctx, userID, updated)
}

// Progress lists every catalog achievement with the user's current value.
func (e *AchievementEngine) Progress(profile *domain.Profile) []AchievementProgress {
	earned := make(map[string]int64, len(profile.Achievements))
	for _, a := range profile.Achievements {
		earned[a.AchievementID] = a.DateEarned
	}

	all := e.catalog.All()
	out := make([]AchievementProgress, 0, len(all))
	for _, a := range all {
		date, ok := earned[a.ID]
		out = append(out, AchievementProgress{
			Achievement: a,
			Current:     a.Progress(profile),
			Target:      a.Threshold,
			Unlocked:    ok,
			DateEarned:  date,
		})
	}
	return out
}
