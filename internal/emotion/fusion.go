package emotion

import (
	"sort"
	"sync"
	"time"
)

const (
	// HistoryLimit caps the fusion history ring.
	HistoryLimit = 30

	// minFusedScore drops fused entries with no meaningful signal.
	minFusedScore = 0.01

	// trendWindow is how many history entries each trend half looks at.
	trendWindow = 5
)

// positiveValence names the emotions counted toward the trend signal.
var positiveValence = map[string]bool{
	"joy":         true,
	"happiness":   true,
	"interest":    true,
	"excitement":  true,
	"amusement":   true,
	"contentment": true,
}

// Engine fuses independently-arriving voice and face emotion streams
// into one ranked signal with a bounded history and a trend
// classification. Fusion is deterministic: identical per-source
// snapshots always produce the same ranked list.
type Engine struct {
	weights  Weights
	limit    int
	now      func() time.Time
	onUpdate func(readings []Reading)

	mu      sync.Mutex
	latest  map[Source]map[string]Reading
	history []HistoryEntry
}

// Option tweaks an Engine; used by tests to pin weights and time.
type Option func(*Engine)

func WithWeights(w Weights) Option          { return func(e *Engine) { e.weights = w } }
func WithHistoryLimit(n int) Option         { return func(e *Engine) { e.limit = n } }
func WithNow(now func() time.Time) Option   { return func(e *Engine) { e.now = now } }
func WithOnUpdate(f func([]Reading)) Option { return func(e *Engine) { e.onUpdate = f } }

// NewEngine builds a fusion engine with the default weights.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights: DefaultWeights(),
		limit:   HistoryLimit,
		now:     time.Now,
		latest:  map[Source]map[string]Reading{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Update records the latest readings for one source and runs a fusion
// pass over everything currently known.
func (e *Engine) Update(src Source, readings []Reading) []Reading {
	if src != SourceVoice && src != SourceFace {
		return nil
	}
	e.mu.Lock()
	byName := e.latest[src]
	if byName == nil {
		byName = map[string]Reading{}
		e.latest[src] = byName
	}
	now := e.now()
	for _, r := range readings {
		r.Source = src
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		byName[r.Name] = r
	}
	fused := e.fuseLocked(now)
	e.mu.Unlock()

	metricFusionPasses.Inc()
	if e.onUpdate != nil {
		e.onUpdate(fused)
	}
	return fused
}

// fuseLocked recomputes fused scores for every name present in either
// source, ranks them and appends a history snapshot.
func (e *Engine) fuseLocked(now time.Time) []Reading {
	names := map[string]bool{}
	for _, byName := range e.latest {
		for name := range byName {
			names[name] = true
		}
	}

	fused := make([]Reading, 0, len(names))
	for name := range names {
		score := e.latest[SourceFace][name].Score*e.weights.Face +
			e.latest[SourceVoice][name].Score*e.weights.Voice
		if score <= minFusedScore {
			continue
		}
		if score > 1 {
			score = 1
		}
		fused = append(fused, Reading{Name: name, Score: score, Source: SourceFused, Timestamp: now})
	}
	// Descending by score; name breaks ties so ranking is deterministic.
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Name < fused[j].Name
	})

	entry := HistoryEntry{Timestamp: now, Readings: fused}
	if len(fused) > 0 {
		entry.Dominant = fused[0].Name
	}
	e.history = append(e.history, entry)
	if len(e.history) > e.limit {
		e.history = e.history[len(e.history)-e.limit:]
	}
	return fused
}

// Snapshot returns the most recent fused readings.
func (e *Engine) Snapshot() []Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1].Readings
	out := make([]Reading, len(last))
	copy(out, last)
	return out
}

// Dominant returns the top-ranked emotion name, empty when none.
func (e *Engine) Dominant() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return ""
	}
	return e.history[len(e.history)-1].Dominant
}

// History returns a copy of the bounded fusion history.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// TrendOf classifies the positive-valence direction over a history
// slice: the last trendWindow entries against the trendWindow before
// them. Fewer than 3 entries is always stable.
func TrendOf(history []HistoryEntry) Trend {
	if len(history) < 3 {
		return TrendStable
	}
	recent := positiveSum(tail(history, trendWindow))
	older := positiveSum(tail(drop(history, trendWindow), trendWindow))

	switch {
	case recent > older*1.2:
		return TrendImproving
	case recent < older*0.8:
		return TrendDeclining
	}
	return TrendStable
}

// Trend classifies the engine's current history.
func (e *Engine) Trend() Trend {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TrendOf(e.history)
}

func positiveSum(entries []HistoryEntry) float64 {
	var sum float64
	for _, entry := range entries {
		for _, r := range entry.Readings {
			if positiveValence[r.Name] {
				sum += r.Score
			}
		}
	}
	return sum
}

// tail returns the last n entries.
func tail(entries []HistoryEntry, n int) []HistoryEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// drop removes the last n entries.
func drop(entries []HistoryEntry, n int) []HistoryEntry {
	if len(entries) <= n {
		return nil
	}
	return entries[:len(entries)-n]
}
