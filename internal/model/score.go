package model

import "time"

// Band is the coarse risk category, A (lowest risk) through D.
type Band string

const (
	BandA Band = "A"
	BandB Band = "B"
	BandC Band = "C"
	BandD Band = "D"
)

// Valid reports whether b is one of the four known bands.
func (b Band) Valid() bool {
	switch b {
	case BandA, BandB, BandC, BandD:
		return true
	}
	return false
}

// Risk flags, in display order.
const (
	FlagLowReliability   = "R1 Low reliability"
	FlagSustainedDeficit = "R2 Sustained deficit"
	FlagHighVolatility   = "R3 High volatility"
	FlagLowBuffer        = "R4 Low buffer"
	FlagDecliningRevenue = "R5 Declining revenue"
)

// FeatureVector holds the six behavioral features, each in [0,1].
type FeatureVector struct {
	DD float64 `json:"dd"` // data discipline
	RS float64 `json:"rs"` // revenue stability
	EP float64 `json:"ep"` // expense pressure
	BB float64 `json:"bb"` // buffer behavior
	TM float64 `json:"tm"` // trend momentum
	SR float64 `json:"sr"` // shock recovery
}

// Feature keys, in canonical order.
const (
	KeyDataDiscipline   = "data_discipline"
	KeyRevenueStability = "revenue_stability"
	KeyExpensePressure  = "expense_pressure"
	KeyBufferBehavior   = "buffer_behavior"
	KeyTrendMomentum    = "trend_momentum"
	KeyShockRecovery    = "shock_recovery"
)

// FeatureKeys lists every feature key in canonical order.
var FeatureKeys = []string{
	KeyDataDiscipline,
	KeyRevenueStability,
	KeyExpensePressure,
	KeyBufferBehavior,
	KeyTrendMomentum,
	KeyShockRecovery,
}

// Get returns the feature named by key, or 0 for an unknown key.
func (v FeatureVector) Get(key string) float64 {
	switch key {
	case KeyDataDiscipline:
		return v.DD
	case KeyRevenueStability:
		return v.RS
	case KeyExpensePressure:
		return v.EP
	case KeyBufferBehavior:
		return v.BB
	case KeyTrendMomentum:
		return v.TM
	case KeyShockRecovery:
		return v.SR
	}
	return 0
}

// FactorScore is one feature's contribution to the composite score.
type FactorScore struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

// ScoreResult is the output of a scoring run.
type ScoreResult struct {
	Score      int           `json:"score"`      // 0-1000
	Confidence int           `json:"confidence"` // 0-100
	Band       Band          `json:"band"`
	Flags      []string      `json:"flags"`
	Features   FeatureVector `json:"feature_breakdown"`
}

// ConfidenceRatio returns the stored confidence as a 0..1 ratio.
func (r ScoreResult) ConfidenceRatio() float64 {
	return float64(r.Confidence) / 100
}

// ScoreSnapshot is a persisted ScoreResult. Snapshots are append-only.
type ScoreSnapshot struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	AsOfDate time.Time `json:"as_of_date"`
	ScoreResult
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats aggregates the latest snapshot of every scored user.
type DashboardStats struct {
	UserCount        int          `json:"user_count"`
	ScoredUserCount  int          `json:"scored_user_count"`
	AverageScore     int          `json:"average_score"`
	BandDistribution map[Band]int `json:"band_distribution"`
}

// NewBandDistribution returns a distribution with every band present at zero.
func NewBandDistribution() map[Band]int {
	return map[Band]int{BandA: 0, BandB: 0, BandC: 0, BandD: 0}
}

// LatestScore is the headline of a user's newest snapshot.
type LatestScore struct {
	Score      int       `json:"score"`
	Band       Band      `json:"band"`
	Confidence int       `json:"confidence"`
	AsOfDate   time.Time `json:"as_of_date"`
}

// UserSummary is one known user and their newest score, nil if never scored.
type UserSummary struct {
	UserID int64        `json:"user_id"`
	Score  *LatestScore `json:"score"`
}
