package emotion

import "time"

// Source identifies where a reading came from.
type Source string

const (
	SourceVoice Source = "voice"
	SourceFace  Source = "face"
	SourceFused Source = "fused"
)

// Reading is one named emotion score. Fused readings are derived from
// the per-source latest readings and never mutated in place.
type Reading struct {
	Name      string    `json:"name"`
	Score     float64   `json:"score"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is a snapshot of one fusion pass.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Readings  []Reading `json:"readings"`
	Dominant  string    `json:"dominant"`
}

// Weights blend the two sources. The sum need not be 1.
type Weights struct {
	Face  float64 `json:"face"`
	Voice float64 `json:"voice"`
}

// DefaultWeights favors the facial stream, which carries more signal in
// practice.
func DefaultWeights() Weights { return Weights{Face: 0.6, Voice: 0.4} }

// Trend classifies the recent direction of positive-valence emotion.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)
