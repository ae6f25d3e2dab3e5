package gateway

import (
	"sync"

	"github.com/DevGruGold/xmrt-voice-agent/internal/capture"
)

// sender queues an outbound command frame; it must not block.
type sender func(typ string, payload map[string]any)

// wsEngine is a capture.SpeechEngine whose real recognizer lives in the
// browser. Start and Stop translate to commands on the websocket; the
// recognizer's events come back as engine_* messages and are forwarded
// through the bound callbacks by the session's dispatch loop.
type wsEngine struct {
	send sender

	mu      sync.Mutex
	cb      capture.EngineCallbacks
	running bool
}

func newWSEngine(send sender) *wsEngine { return &wsEngine{send: send} }

func (e *wsEngine) bind(cb capture.EngineCallbacks) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

func (e *wsEngine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return capture.ErrEngineActive
	}
	e.running = true
	e.mu.Unlock()
	e.send(TypeEngineStart, nil)
	return nil
}

func (e *wsEngine) Stop() {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.mu.Unlock()
	if wasRunning {
		e.send(TypeEngineStop, nil)
	}
}

func (e *wsEngine) onResult(text string, isFinal bool) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()
	if cb.OnResult != nil {
		cb.OnResult(text, isFinal)
	}
}

func (e *wsEngine) onError(kind capture.ErrorKind) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()
	if cb.OnError != nil {
		cb.OnError(kind)
	}
}

func (e *wsEngine) onEnd() {
	e.mu.Lock()
	cb := e.cb
	e.running = false
	e.mu.Unlock()
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}

// wsTrack mirrors the client's latest analyser frame. Close is a no-op:
// the microphone stream belongs to the browser, not to this process.
type wsTrack struct {
	mu        sync.Mutex
	magnitude []float64
}

func newWSTrack() *wsTrack { return &wsTrack{} }

func (t *wsTrack) SetSpectrum(m []float64) {
	t.mu.Lock()
	t.magnitude = m
	t.mu.Unlock()
}

func (t *wsTrack) Spectrum() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.magnitude))
	copy(out, t.magnitude)
	return out
}

func (t *wsTrack) Close() {}

// wsMedia is a capture.MediaCapture that asks the browser to run the
// microphone permission prompt. At most one request is in flight; the
// pending callback resolves when mic_granted or mic_denied arrives.
type wsMedia struct {
	send  sender
	track *wsTrack

	mu      sync.Mutex
	pending func(capture.AudioTrack, error)
}

func newWSMedia(send sender, track *wsTrack) *wsMedia {
	return &wsMedia{send: send, track: track}
}

func (m *wsMedia) RequestAudio(cb func(capture.AudioTrack, error)) {
	m.mu.Lock()
	m.pending = cb
	m.mu.Unlock()
	m.send(TypeRequestMic, nil)
}

func (m *wsMedia) grant() {
	m.mu.Lock()
	cb := m.pending
	m.pending = nil
	m.mu.Unlock()
	if cb != nil {
		cb(m.track, nil)
	}
}

func (m *wsMedia) deny() {
	m.mu.Lock()
	cb := m.pending
	m.pending = nil
	m.mu.Unlock()
	if cb != nil {
		cb(nil, capture.ErrPermissionDenied)
	}
}
