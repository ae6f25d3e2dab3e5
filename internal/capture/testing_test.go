package capture

import (
	"sync"
	"time"
)

// fakeClock drives AfterFunc timers by hand.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clk     *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.when
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := !t.stopped && !t.fired
	t.when = t.clk.now.Add(d)
	t.stopped = false
	t.fired = false
	return was
}

// fakeEngine records lifecycle calls; tests invoke its callbacks by hand.
type fakeEngine struct {
	mu       sync.Mutex
	cb       EngineCallbacks
	starts   int
	stops    int
	startErr error
}

func (e *fakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts++
	return e.startErr
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
}

func (e *fakeEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

func (e *fakeEngine) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

// fakeFactory hands out fakeEngines and counts creations.
type fakeFactory struct {
	mu      sync.Mutex
	engines []*fakeEngine
	nextErr error
}

func (f *fakeFactory) new(cb EngineCallbacks) SpeechEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &fakeEngine{cb: cb, startErr: f.nextErr}
	f.engines = append(f.engines, e)
	return e
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (f *fakeFactory) last() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// fakeTrack serves a fixed spectrum.
type fakeTrack struct {
	mu       sync.Mutex
	spectrum []float64
	closed   int
}

func (t *fakeTrack) Spectrum() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spectrum
}

func (t *fakeTrack) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
}

func (t *fakeTrack) setSpectrum(s []float64) {
	t.mu.Lock()
	t.spectrum = s
	t.mu.Unlock()
}

// fakeMedia grants or denies synchronously.
type fakeMedia struct {
	track *fakeTrack
	err   error
}

func (m *fakeMedia) RequestAudio(cb func(AudioTrack, error)) {
	if m.err != nil {
		cb(nil, m.err)
		return
	}
	cb(m.track, nil)
}

// fakeInputs is a settable arbiter stand-in.
type fakeInputs struct {
	mu       sync.Mutex
	desired  bool
	speaking bool
}

func (i *fakeInputs) DesiredListening() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.desired
}

func (i *fakeInputs) SystemSpeaking() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.speaking
}

func (i *fakeInputs) set(desired, speaking bool) {
	i.mu.Lock()
	i.desired = desired
	i.speaking = speaking
	i.mu.Unlock()
}

// recorder collects emitted contracts.
type recorder struct {
	mu          sync.Mutex
	states      []State
	reasons     []string
	transcripts []TranscriptSegment
	levels      []float64
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStateChange: func(s State, reason string) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.reasons = append(r.reasons, reason)
			r.mu.Unlock()
		},
		OnTranscript: func(text string, isFinal bool) {
			r.mu.Lock()
			r.transcripts = append(r.transcripts, TranscriptSegment{Text: text, IsFinal: isFinal})
			r.mu.Unlock()
		},
		OnAudioLevel: func(level float64) {
			r.mu.Lock()
			r.levels = append(r.levels, level)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) finals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, t := range r.transcripts {
		if t.IsFinal {
			out = append(out, t.Text)
		}
	}
	return out
}

func (r *recorder) lastLevel() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.levels) == 0 {
		return -1
	}
	return r.levels[len(r.levels)-1]
}
