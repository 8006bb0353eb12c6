package domain

// Metric names the profile value an achievement threshold is compared against.
type Metric string

const (
	MetricVotesCast            Metric = "votes_cast"
	MetricStreakDays           Metric = "streak_days"
	MetricParticipation        Metric = "participation"
	MetricPositiveInteractions Metric = "positive_interactions"
	MetricPowerScore           Metric = "power_score"
	MetricFreedomBucks         Metric = "freedom_bucks"
)

func (m Metric) Valid() bool {
	_, ok := m.value(&Profile{})
	return ok
}

func (m Metric) value(p *Profile) (int64, bool) {
	switch m {
	case MetricVotesCast:
		return p.Stats.VotesCast, true
	case MetricStreakDays:
		return p.Stats.StreakDays, true
	case MetricParticipation:
		return p.Stats.Participation, true
	case MetricPositiveInteractions:
		return p.Stats.PositiveInteractions, true
	case MetricPowerScore:
		return p.Stats.PowerScore, true
	case MetricFreedomBucks:
		return p.FreedomBucks, true
	}
	return 0, false
}

// Reward is an optional currency grant attached to an achievement.
type Reward struct {
	Currency Currency `json:"currency" yaml:"currency"`
	Amount   int64    `json:"amount" yaml:"amount"`
}

type Achievement struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Icon        string  `json:"icon" yaml:"icon"`
	Metric      Metric  `json:"metric" yaml:"metric"`
	Threshold   int64   `json:"threshold" yaml:"threshold"`
	Reward      *Reward `json:"reward,omitempty" yaml:"reward,omitempty"`
}

// Unlocked evaluates the threshold predicate. A metric the engine does not know
// never unlocks.
func (a Achievement) Unlocked(p *Profile) bool {
	v, ok := a.Metric.value(p)
	if !ok {
		return false
	}
	return v >= a.Threshold
}

// Progress returns the current value of the metric, capped at the threshold.
func (a Achievement) Progress(p *Profile) int64 {
	v, _ := a.Metric.value(p)
	if v > a.Threshold {
		return a.Threshold
	}
	return v
}

// Secondary stat increments applied with every award.
const (
	AwardParticipationBonus        = 5
	AwardPositiveInteractionsBonus = 10
)
