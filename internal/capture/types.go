package capture

import (
	"errors"
	"time"
)

// State is the capture session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateListening  State = "listening"
	StateSuppressed State = "suppressed"
	StateError      State = "error"
)

// Permission is the platform audio-capture permission status.
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ErrorKind classifies recognition-engine and media faults.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindDeviceNotFound   ErrorKind = "device_not_found"
	KindNoSpeech         ErrorKind = "no_speech"
	KindAborted          ErrorKind = "aborted"
	KindNetwork          ErrorKind = "network"
	KindInvalidState     ErrorKind = "invalid_state"
	KindUnsupported      ErrorKind = "unsupported"
)

// Fatal kinds put the session into StateError and are never retried.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindPermissionDenied, KindDeviceNotFound, KindUnsupported:
		return true
	}
	return false
}

// Benign kinds are absorbed without any state change.
func (k ErrorKind) Benign() bool {
	return k == KindNoSpeech || k == KindAborted
}

// Sentinel errors returned by capability implementations.
var (
	ErrPermissionDenied = errors.New("audio capture permission denied")
	ErrDeviceNotFound   = errors.New("audio capture device not found")
	ErrUnsupported      = errors.New("speech capture not supported on this platform")

	// ErrEngineActive is returned by SpeechEngine.Start when the engine
	// session is already running. The controller treats it as benign.
	ErrEngineActive = errors.New("speech engine already active")
)

// Classify maps a capability error to its ErrorKind. Unrecognized errors
// are treated as transient network faults.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrDeviceNotFound):
		return KindDeviceNotFound
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrEngineActive):
		return KindInvalidState
	}
	return KindNetwork
}

// TranscriptSegment is one recognizer result. Produced by the controller,
// consumed exactly once downstream.
type TranscriptSegment struct {
	Text      string    `json:"text"`
	IsFinal   bool      `json:"is_final"`
	Timestamp time.Time `json:"timestamp"`
}

// EngineCallbacks receive asynchronous recognition-engine events.
type EngineCallbacks struct {
	OnResult func(text string, isFinal bool)
	OnError  func(kind ErrorKind)
	OnEnd    func()
}

// SpeechEngine is a continuous, interim-results-capable recognition
// session provided by the platform. Start and Stop must never block.
type SpeechEngine interface {
	Start() error
	Stop()
}

// EngineFactory creates a recognition-engine instance wired to cb.
// The controller calls it at most once per live engine handle.
type EngineFactory func(cb EngineCallbacks) SpeechEngine

// AudioTrack exposes the captured audio stream's frequency-domain
// magnitudes for level sampling. Close releases only objects derived by
// this subsystem, never a caller-supplied stream.
type AudioTrack interface {
	Spectrum() []float64
	Close()
}

// MediaCapture acquires an audio track after a platform permission
// prompt. The callback may fire asynchronously and must be invoked
// exactly once with either a track or an error.
type MediaCapture interface {
	RequestAudio(cb func(AudioTrack, error))
}

// Inputs supplies the current arbiter flags. Restart decisions read these
// at evaluation time rather than capturing them in closures.
type Inputs interface {
	DesiredListening() bool
	SystemSpeaking() bool
}

// Hooks are the contracts emitted to external collaborators.
type Hooks struct {
	// OnStateChange fires on every transition; reason is non-empty only
	// when entering StateError.
	OnStateChange func(s State, reason string)
	OnTranscript  func(text string, isFinal bool)
	OnAudioLevel  func(level float64)
}
