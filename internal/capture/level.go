package capture

import (
	"sync"
	"time"
)

const (
	// DefaultSampleInterval is the audio-level sampling cadence.
	DefaultSampleInterval = 50 * time.Millisecond

	// DefaultLevelThreshold separates voice energy from background noise
	// for the silence heuristic.
	DefaultLevelThreshold = 0.1

	// spectrumScale normalizes averaged byte-range magnitudes to [0,1].
	spectrumScale = 255.0
)

// LevelMonitor samples an audio track's frequency spectrum on a
// cancellable scheduled callback, averages it and normalizes to [0,1].
// Levels at or above the threshold mark voice activity; the output is
// zeroed immediately on Stop so downstream consumers never react to the
// system's own audio output.
type LevelMonitor struct {
	clock     Clock
	interval  time.Duration
	threshold float64

	onLevel    func(level float64)
	onActivity func()

	mu      sync.Mutex
	track   AudioTrack
	timer   Timer
	gen     uint64
	running bool
}

// NewLevelMonitor builds a monitor. Zero interval/threshold select the
// package defaults. Nil callbacks are allowed.
func NewLevelMonitor(clock Clock, interval time.Duration, threshold float64, onLevel func(float64), onActivity func()) *LevelMonitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if threshold <= 0 {
		threshold = DefaultLevelThreshold
	}
	if onLevel == nil {
		onLevel = func(float64) {}
	}
	if onActivity == nil {
		onActivity = func() {}
	}
	return &LevelMonitor{clock: clock, interval: interval, threshold: threshold, onLevel: onLevel, onActivity: onActivity}
}

// Start begins sampling track. No-op while already running.
func (m *LevelMonitor) Start(track AudioTrack) {
	m.mu.Lock()
	if m.running || track == nil {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.track = track
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.interval, func() { m.sample(gen) })
	m.mu.Unlock()
}

// Stop cancels the sampling callback and zeroes the reported level.
// Idempotent; guaranteed on every exit path from listening.
func (m *LevelMonitor) Stop() {
	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.track = nil
	m.mu.Unlock()
	if wasRunning {
		m.onLevel(0)
	}
}

func (m *LevelMonitor) sample(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}
	track := m.track
	m.timer = m.clock.AfterFunc(m.interval, func() { m.sample(gen) })
	m.mu.Unlock()

	level := normalizeSpectrum(track.Spectrum())
	metricAudioLevel.Observe(level)
	m.onLevel(level)
	if level >= m.threshold {
		m.onActivity()
	}
}

// normalizeSpectrum averages frequency magnitudes and scales to [0,1].
func normalizeSpectrum(mags []float64) float64 {
	if len(mags) == 0 {
		return 0
	}
	var sum float64
	for _, v := range mags {
		sum += v
	}
	level := sum / float64(len(mags)) / spectrumScale
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
