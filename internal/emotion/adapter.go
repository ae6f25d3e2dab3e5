package emotion

import "time"

// SourceAdapter wraps one upstream emotion stream (voice prosody or
// facial expression) and forwards timestamped readings into the engine.
type SourceAdapter struct {
	source Source
	engine *Engine
	now    func() time.Time
}

// NewSourceAdapter builds an adapter for src feeding engine.
func NewSourceAdapter(src Source, engine *Engine) *SourceAdapter {
	return &SourceAdapter{source: src, engine: engine, now: time.Now}
}

// Push converts raw name/score pairs from the capability callback into
// stamped readings and runs a fusion pass.
func (a *SourceAdapter) Push(scores map[string]float64) []Reading {
	if len(scores) == 0 {
		return nil
	}
	now := a.now()
	readings := make([]Reading, 0, len(scores))
	for name, score := range scores {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		readings = append(readings, Reading{Name: name, Score: score, Source: a.source, Timestamp: now})
	}
	return a.engine.Update(a.source, readings)
}
