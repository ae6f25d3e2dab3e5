package capture

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// ControllerConfig wires a Controller to its platform capabilities.
type ControllerConfig struct {
	Policy    RetryPolicy
	Clock     Clock
	Media     MediaCapture
	NewEngine EngineFactory
	Inputs    Inputs
	Hooks     Hooks

	// Track, when set, is a caller-supplied audio stream. The controller
	// uses it without a permission prompt and never closes it.
	Track AudioTrack

	SilenceWindow  time.Duration
	SampleInterval time.Duration
	LevelThreshold float64
}

// Controller owns the recognition-engine lifecycle and the capture state
// machine. All engine operations are asynchronous: capability
// implementations must never invoke callbacks synchronously from Start
// or Stop, and hooks must not call back into the Controller from
// OnAudioLevel or OnTranscript (OnStateChange may, and the arbiter does).
type Controller struct {
	cfg     ControllerConfig
	agg     *Aggregator
	monitor *LevelMonitor

	mu           sync.Mutex
	state        State
	permission   Permission
	retryCount   int
	engine       SpeechEngine
	track        AudioTrack
	ownsTrack    bool
	restartTimer Timer
	gen          uint64
	errReason    string
}

type defaultInputs struct{}

func (defaultInputs) DesiredListening() bool { return true }
func (defaultInputs) SystemSpeaking() bool   { return false }

// NewController builds a controller. Zero-value policy fields select the
// desktop defaults; a nil Inputs behaves as "always listen".
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	if cfg.Policy.MaxRetries == 0 && cfg.Policy.Delay == 0 {
		cfg.Policy = PolicyFor(cfg.Policy.Profile)
	}
	if cfg.Inputs == nil {
		cfg.Inputs = defaultInputs{}
	}
	c := &Controller{cfg: cfg, state: StateIdle, permission: PermissionUnknown}
	c.agg = NewAggregator(cfg.Clock, cfg.SilenceWindow, func(text string, isFinal bool) {
		if cfg.Hooks.OnTranscript != nil {
			cfg.Hooks.OnTranscript(text, isFinal)
		}
	})
	c.monitor = NewLevelMonitor(cfg.Clock, cfg.SampleInterval, cfg.LevelThreshold, cfg.Hooks.OnAudioLevel, c.agg.MarkActivity)
	return c
}

// SetInputs replaces the restart-decision inputs. Call before Start;
// a nil value restores the "always listen" default.
func (c *Controller) SetInputs(in Inputs) {
	if in == nil {
		in = defaultInputs{}
	}
	c.mu.Lock()
	c.cfg.Inputs = in
	c.mu.Unlock()
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Permission returns the last known permission status.
func (c *Controller) Permission() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// RetryCount returns the restart attempts since the last final result.
func (c *Controller) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// LastError returns the structured reason recorded when entering
// StateError, empty otherwise.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errReason
}

// Start begins a capture session. No-op while already listening or
// requesting; from Suppressed it resumes the suspended session.
func (c *Controller) Start() {
	c.mu.Lock()
	switch c.state {
	case StateListening, StateRequesting:
		c.mu.Unlock()
		return
	case StateSuppressed:
		notes := c.attachTrackLocked(c.track)
		c.mu.Unlock()
		fire(notes)
		return
	}
	c.retryCount = 0
	c.errReason = ""
	notes := c.transitionLocked(StateRequesting, "")

	if c.cfg.Track != nil {
		c.track = c.cfg.Track
		c.ownsTrack = false
		c.permission = PermissionGranted
		notes = append(notes, c.attachTrackLocked(c.track)...)
		c.mu.Unlock()
		fire(notes)
		return
	}
	media := c.cfg.Media
	c.mu.Unlock()
	fire(notes)
	if media == nil {
		c.handleError(KindUnsupported)
		return
	}
	media.RequestAudio(c.onAudioResult)
}

// Stop tears down the session from any state: releases the engine
// handle, every pending timer and the sampling callback, then returns to
// Idle. A caller-supplied track is left open. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	c.cancelRestartLocked()
	if c.engine != nil {
		c.engine.Stop()
		c.engine = nil
	}
	c.releaseTrackLocked()
	notes := c.transitionLocked(StateIdle, "")
	c.mu.Unlock()
	c.monitor.Stop()
	c.agg.Stop()
	fire(notes)
}

// Suppress pauses capture while system speech output is active. The
// engine handle is kept so Resume does not recreate it.
func (c *Controller) Suppress() {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.cancelRestartLocked()
	if c.engine != nil {
		c.engine.Stop()
	}
	notes := c.transitionLocked(StateSuppressed, "")
	c.mu.Unlock()
	c.monitor.Stop()
	c.agg.Stop()
	fire(notes)
}

// Resume restarts a suppressed session.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.state != StateSuppressed {
		c.mu.Unlock()
		return
	}
	notes := c.attachTrackLocked(c.track)
	c.mu.Unlock()
	fire(notes)
}

// onAudioResult handles the asynchronous permission outcome.
func (c *Controller) onAudioResult(track AudioTrack, err error) {
	c.mu.Lock()
	if c.state != StateRequesting {
		c.mu.Unlock()
		// Session went away while the prompt was open.
		if err == nil && track != nil {
			track.Close()
		}
		return
	}
	if err != nil {
		kind := Classify(err)
		if kind == KindPermissionDenied {
			c.permission = PermissionDenied
		}
		notes := c.enterErrorLocked(string(kind))
		c.mu.Unlock()
		fire(notes)
		return
	}
	c.permission = PermissionGranted
	c.track = track
	c.ownsTrack = true
	notes := c.attachTrackLocked(track)
	c.mu.Unlock()
	fire(notes)
}

// attachTrackLocked lazily creates the engine (only if none exists),
// starts it and enters Listening.
func (c *Controller) attachTrackLocked(track AudioTrack) []func() {
	if c.engine == nil {
		c.engine = c.cfg.NewEngine(EngineCallbacks{
			OnResult: c.handleResult,
			OnError:  c.handleError,
			OnEnd:    c.handleEnd,
		})
	}
	if err := c.engine.Start(); err != nil && !errors.Is(err, ErrEngineActive) {
		kind := Classify(err)
		if kind.Fatal() {
			return c.enterErrorLocked(string(kind))
		}
		if c.cfg.Policy.Profile == ProfileMobile {
			return c.hardResetLocked()
		}
		return c.transitionLocked(StateIdle, "")
	}
	notes := c.transitionLocked(StateListening, "")
	if track != nil {
		notes = append(notes, func() { c.monitor.Start(track) })
	}
	return notes
}

// handleResult forwards a recognizer result downstream. Any non-empty
// result resets the retry budget.
func (c *Controller) handleResult(text string, isFinal bool) {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return
	}
	if strings.TrimSpace(text) != "" {
		c.retryCount = 0
	}
	c.mu.Unlock()
	if isFinal {
		c.agg.OnFinal(text)
	} else {
		c.agg.OnPartial(text)
	}
}

// handleEnd runs when the engine session finishes spontaneously.
// Platform engines do this routinely; restart iff the arbiter still
// wants us listening and the budget allows. Inputs are read here, at
// decision time, never from values captured earlier.
func (c *Controller) handleEnd() {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return
	}
	desired := c.cfg.Inputs.DesiredListening()
	speaking := c.cfg.Inputs.SystemSpeaking()
	if !shouldRestart(desired, speaking, c.permission, c.retryCount, c.cfg.Policy.MaxRetries) {
		var notes []func()
		if desired && !speaking && c.permission == PermissionGranted {
			metricRetryExhausted.Inc()
			log.Printf("[capture] restart budget exhausted after %d attempts", c.retryCount)
			notes = c.enterErrorLocked("retry_exhausted")
		} else {
			notes = c.transitionLocked(StateIdle, "")
		}
		c.mu.Unlock()
		c.monitor.Stop()
		fire(notes)
		return
	}
	c.retryCount++
	metricEngineRestarts.Inc()
	gen := c.gen
	c.cancelRestartLocked()
	c.restartTimer = c.cfg.Clock.AfterFunc(nextDelay(c.cfg.Policy), func() { c.restartEngine(gen) })
	c.mu.Unlock()
}

// restartEngine fires after the platform settle delay. Conditions are
// re-checked against current inputs; a stale generation means the
// session was stopped or suppressed in the meantime.
func (c *Controller) restartEngine(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.restartTimer = nil
	if !c.cfg.Inputs.DesiredListening() || c.cfg.Inputs.SystemSpeaking() || c.permission != PermissionGranted {
		notes := c.transitionLocked(StateIdle, "")
		c.mu.Unlock()
		c.monitor.Stop()
		fire(notes)
		return
	}
	if c.engine == nil {
		c.engine = c.cfg.NewEngine(EngineCallbacks{
			OnResult: c.handleResult,
			OnError:  c.handleError,
			OnEnd:    c.handleEnd,
		})
	}
	err := c.engine.Start()
	if err == nil || errors.Is(err, ErrEngineActive) {
		// Invalid-state faults mean the engine is already running.
		c.mu.Unlock()
		return
	}
	var notes []func()
	if c.cfg.Policy.Profile == ProfileMobile {
		notes = c.hardResetLocked()
	} else if kind := Classify(err); kind.Fatal() {
		notes = c.enterErrorLocked(string(kind))
	} else {
		notes = c.transitionLocked(StateIdle, "")
	}
	c.mu.Unlock()
	c.monitor.Stop()
	fire(notes)
}

// handleError applies the error taxonomy: benign kinds are absorbed,
// network faults leave state untouched (the end handler owns restart
// policy), fatal kinds surface once as StateError.
func (c *Controller) handleError(kind ErrorKind) {
	metricEngineErrors.WithLabelValues(string(kind)).Inc()
	if kind.Benign() || kind == KindInvalidState || kind == KindNetwork {
		return
	}
	c.mu.Lock()
	if c.state == StateError {
		c.mu.Unlock()
		return
	}
	if kind == KindPermissionDenied {
		c.permission = PermissionDenied
	}
	notes := c.enterErrorLocked(string(kind))
	c.mu.Unlock()
	c.monitor.Stop()
	c.agg.Stop()
	fire(notes)
}

// hardResetLocked discards the engine handle entirely after an
// unrecoverable platform fault; a fresh Start is required.
func (c *Controller) hardResetLocked() []func() {
	metricHardResets.Inc()
	log.Printf("[capture] hard reset: discarding engine handle")
	c.gen++
	c.cancelRestartLocked()
	if c.engine != nil {
		c.engine.Stop()
		c.engine = nil
	}
	c.releaseTrackLocked()
	return c.transitionLocked(StateIdle, "")
}

func (c *Controller) enterErrorLocked(reason string) []func() {
	c.gen++
	c.cancelRestartLocked()
	if c.engine != nil {
		c.engine.Stop()
		c.engine = nil
	}
	c.releaseTrackLocked()
	return c.transitionLocked(StateError, reason)
}

func (c *Controller) cancelRestartLocked() {
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
}

func (c *Controller) releaseTrackLocked() {
	if c.track != nil && c.ownsTrack {
		c.track.Close()
	}
	c.track = nil
	c.ownsTrack = false
}

// transitionLocked records a state change and defers the notification so
// hooks run outside the lock.
func (c *Controller) transitionLocked(to State, reason string) []func() {
	from := c.state
	if from == to {
		return nil
	}
	metricStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	c.state = to
	c.errReason = reason
	if reason != "" {
		log.Printf("[capture] state %s -> %s reason=%s", from, to, reason)
	} else {
		log.Printf("[capture] state %s -> %s", from, to)
	}
	hook := c.cfg.Hooks.OnStateChange
	if hook == nil {
		return nil
	}
	return []func(){func() { hook(to, reason) }}
}

func fire(notes []func()) {
	for _, f := range notes {
		f()
	}
}
