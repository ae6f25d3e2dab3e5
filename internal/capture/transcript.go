package capture

import (
	"strings"
	"sync"
	"time"
)

// DefaultSilenceWindow is the inactivity window after which a pending
// utterance is finalized.
const DefaultSilenceWindow = 1000 * time.Millisecond

// Aggregator accumulates recognizer results into utterances. Final
// segments are emitted downstream immediately; a silence timer flushes
// whatever has not yet gone out after DefaultSilenceWindow of inactivity.
//
// The immediate-emit path and the delayed-flush path must never deliver
// the same text twice: emittedLen marks how much of finalBuf has already
// been emitted, and the flush only delivers text past that mark (plus a
// pending interim that never received a final segment).
type Aggregator struct {
	clock  Clock
	window time.Duration
	emit   func(text string, isFinal bool)

	mu         sync.Mutex
	interim    string
	finalBuf   string
	emittedLen int
	timer      Timer
	gen        uint64
}

// NewAggregator builds an aggregator emitting to emit. A zero window
// selects DefaultSilenceWindow.
func NewAggregator(clock Clock, window time.Duration, emit func(string, bool)) *Aggregator {
	if window <= 0 {
		window = DefaultSilenceWindow
	}
	if emit == nil {
		emit = func(string, bool) {}
	}
	return &Aggregator{clock: clock, window: window, emit: emit}
}

// OnPartial records the latest interim text, overwriting the previous
// one, and restarts the silence timer.
func (a *Aggregator) OnPartial(text string) {
	a.mu.Lock()
	a.interim = text
	a.restartTimerLocked()
	a.mu.Unlock()
	a.emit(text, false)
}

// OnFinal appends a final segment, emits it immediately on the
// low-latency path and marks it as already delivered.
func (a *Aggregator) OnFinal(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	if a.finalBuf != "" {
		a.finalBuf += " "
	}
	a.finalBuf += text
	a.emittedLen = len(a.finalBuf)
	a.interim = ""
	a.restartTimerLocked()
	a.mu.Unlock()
	metricTranscriptFinals.Inc()
	a.emit(text, true)
}

// MarkActivity restarts the silence timer when voice energy above the
// silence threshold is observed. Sub-threshold levels do not call this.
func (a *Aggregator) MarkActivity() {
	a.mu.Lock()
	if a.timer != nil {
		a.restartTimerLocked()
	}
	a.mu.Unlock()
}

// Stop cancels the silence timer and flushes any text not yet delivered.
// Safe to call repeatedly.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.takePendingLocked()
	a.mu.Unlock()
	if pending != "" {
		metricTranscriptFlushes.Inc()
		a.emit(pending, true)
	}
}

func (a *Aggregator) restartTimerLocked() {
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(a.window, func() { a.flush(gen) })
}

// flush runs on silence-timer expiry. A final result landing in the same
// tick bumps gen, so a stale expiry delivers nothing.
func (a *Aggregator) flush(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	hadBuffered := a.finalBuf != ""
	pending := a.takePendingLocked()
	a.mu.Unlock()

	if pending == "" {
		if hadBuffered {
			// Everything buffered already went out on the immediate path.
			metricTranscriptDedup.Inc()
		}
		return
	}
	metricTranscriptFlushes.Inc()
	a.emit(pending, true)
}

// takePendingLocked returns undelivered text and clears all buffers. An
// interim that never received a final segment is promoted here.
func (a *Aggregator) takePendingLocked() string {
	pending := strings.TrimSpace(a.finalBuf[a.emittedLen:])
	if pending == "" {
		pending = strings.TrimSpace(a.interim)
	}
	a.finalBuf = ""
	a.emittedLen = 0
	a.interim = ""
	return pending
}
