package arbiter

import (
	"log"
	"sync"

	"github.com/DevGruGold/xmrt-voice-agent/internal/capture"
)

// Capture is the subset of the capture controller the arbiter drives.
type Capture interface {
	Start()
	Stop()
	Suppress()
	Resume()
	State() capture.State
	Permission() capture.Permission
}

// Arbiter reconciles two externally-owned flags (the conversation
// controller's desire to listen and the TTS collaborator's "system is
// speaking" signal) against the capture state. Speaking always wins:
// capture is suppressed immediately so the recognizer never transcribes
// the system's own output.
//
// It also implements capture.Inputs, so end-of-engine restart decisions
// read the flags as they are now, not as they were when the engine
// session began.
type Arbiter struct {
	cap Capture

	mu       sync.Mutex
	desired  bool
	speaking bool
	// explicit flips once an external controller sets the listening
	// flag; from then on the auto-listen default is ignored.
	explicit   bool
	autoListen bool
}

// New builds an arbiter over cap. With autoListen, capture is started on
// the first reconcile unless an external controller has said otherwise.
func New(cap Capture, autoListen bool) *Arbiter {
	return &Arbiter{cap: cap, autoListen: autoListen}
}

// SetDesiredListening records the external conversation controller's
// wish and reconciles. Explicit control overrides auto-listen.
func (a *Arbiter) SetDesiredListening(v bool) {
	a.mu.Lock()
	a.explicit = true
	a.desired = v
	a.mu.Unlock()
	a.Reconcile()
}

// SetSystemSpeaking records the TTS playback flag and reconciles.
func (a *Arbiter) SetSystemSpeaking(v bool) {
	a.mu.Lock()
	changed := a.speaking != v
	a.speaking = v
	a.mu.Unlock()
	if changed {
		log.Printf("[arbiter] system_speaking=%v", v)
	}
	a.Reconcile()
}

// OnCaptureStateChange re-runs reconciliation whenever the capture state
// moves; wired as the controller's state hook.
func (a *Arbiter) OnCaptureStateChange(capture.State, string) {
	a.Reconcile()
}

// DesiredListening implements capture.Inputs.
func (a *Arbiter) DesiredListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wantListeningLocked()
}

// SystemSpeaking implements capture.Inputs.
func (a *Arbiter) SystemSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}

func (a *Arbiter) wantListeningLocked() bool {
	if a.explicit {
		return a.desired
	}
	return a.autoListen
}

// Reconcile applies the rules against the current capture state. The
// lock is released before touching the controller: the controller's
// state hook calls back in here, and holding the lock across that path
// would deadlock.
func (a *Arbiter) Reconcile() {
	a.mu.Lock()
	desired := a.wantListeningLocked()
	speaking := a.speaking
	a.mu.Unlock()

	state := a.cap.State()

	if speaking {
		switch state {
		case capture.StateListening:
			a.cap.Suppress()
		case capture.StateRequesting:
			a.cap.Stop()
		}
		return
	}

	if desired {
		switch state {
		case capture.StateSuppressed:
			a.cap.Resume()
		case capture.StateIdle:
			if a.cap.Permission() != capture.PermissionDenied {
				a.cap.Start()
			}
		}
		return
	}

	switch state {
	case capture.StateListening, capture.StateRequesting, capture.StateSuppressed:
		a.cap.Stop()
	}
}
