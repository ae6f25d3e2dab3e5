package gateway

import (
	"os"
	"testing"

	"github.com/DevGruGold/xmrt-voice-agent/internal/capture"
	"github.com/DevGruGold/xmrt-voice-agent/internal/config"
	"github.com/DevGruGold/xmrt-voice-agent/internal/events"
	"github.com/DevGruGold/xmrt-voice-agent/internal/sessions"
)

func newTestSession(t *testing.T, autoListen bool) (*Session, *events.Store) {
	t.Helper()
	os.Setenv("CLIENT_TOKEN_SECRET", "test-secret")
	t.Cleanup(func() { os.Unsetenv("CLIENT_TOKEN_SECRET") })

	cfg := config.Load()
	es := events.NewStore(0)
	ss := sessions.NewStore()
	sess := ss.Create(sessions.Settings{
		Profile:        "desktop",
		SilenceMs:      1000,
		LevelThreshold: 0.1,
		AutoListen:     autoListen,
	})
	ss.Put(sess)

	pipe := NewSession(cfg, sess, NewRegistry(), es)
	pipe.Run(autoListen)
	t.Cleanup(pipe.Close)
	return pipe, es
}

func hasEvent(es *events.Store, sessionID, typ string) bool {
	for _, e := range es.List(sessionID) {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestAutoListenRequestsMicrophone(t *testing.T) {
	pipe, _ := newTestSession(t, true)
	if got := pipe.ctrl.State(); got != capture.StateRequesting {
		t.Fatalf("state = %v, want requesting", got)
	}
}

func TestMicGrantedEntersListening(t *testing.T) {
	pipe, es := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicGranted})
	if got := pipe.ctrl.State(); got != capture.StateListening {
		t.Fatalf("state = %v, want listening", got)
	}
	if !hasEvent(es, pipe.id, "capture_state") {
		t.Fatal("expected capture_state events recorded")
	}
}

func TestMicDeniedEntersError(t *testing.T) {
	pipe, _ := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicDenied})
	if got := pipe.ctrl.State(); got != capture.StateError {
		t.Fatalf("state = %v, want error", got)
	}
	if got := pipe.ctrl.Permission(); got != capture.PermissionDenied {
		t.Fatalf("permission = %v, want denied", got)
	}
}

func TestFinalResultRecordedAsTranscriptEvent(t *testing.T) {
	pipe, es := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicGranted})
	pipe.Dispatch(Message{Type: TypeEngineResult, Payload: map[string]any{"text": "hello there", "is_final": true}})

	evts := es.List(pipe.id)
	found := false
	for _, e := range evts {
		if e.Type == "transcript" && e.Payload["text"] == "hello there" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected transcript event, got %+v", evts)
	}
}

func TestTTSStateSuppressesAndResumes(t *testing.T) {
	pipe, _ := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicGranted})

	pipe.Dispatch(Message{Type: TypeTTSState, Payload: map[string]any{"speaking": true}})
	if got := pipe.ctrl.State(); got != capture.StateSuppressed {
		t.Fatalf("state = %v, want suppressed", got)
	}

	pipe.Dispatch(Message{Type: TypeTTSState, Payload: map[string]any{"speaking": false}})
	if got := pipe.ctrl.State(); got != capture.StateListening {
		t.Fatalf("state = %v, want listening", got)
	}
}

func TestSetListeningFalseStopsCapture(t *testing.T) {
	pipe, _ := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicGranted})
	pipe.Dispatch(Message{Type: TypeSetListening, Payload: map[string]any{"listening": false}})
	if got := pipe.ctrl.State(); got != capture.StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
}

func TestBenignEngineErrorKeepsListening(t *testing.T) {
	pipe, _ := newTestSession(t, true)
	pipe.Dispatch(Message{Type: TypeMicGranted})
	pipe.Dispatch(Message{Type: TypeEngineError, Payload: map[string]any{"kind": "no_speech"}})
	if got := pipe.ctrl.State(); got != capture.StateListening {
		t.Fatalf("state = %v, want listening", got)
	}
}

func TestEmotionPushUpdatesFusion(t *testing.T) {
	pipe, _ := newTestSession(t, false)
	pipe.Dispatch(Message{Type: TypeEmotion, Payload: map[string]any{
		"source": "voice",
		"scores": map[string]any{"joy": 0.8},
	}})
	snap := pipe.fusion.Snapshot()
	if len(snap) != 1 || snap[0].Name != "joy" {
		t.Fatalf("unexpected fusion snapshot: %+v", snap)
	}
}

func TestUnknownMessageTypeLogged(t *testing.T) {
	pipe, es := newTestSession(t, false)
	pipe.Dispatch(Message{Type: "bogus"})
	if !hasEvent(es, pipe.id, "client_msg_unknown") {
		t.Fatal("expected client_msg_unknown event")
	}
}

func TestSpectrumFeedsTrack(t *testing.T) {
	pipe, _ := newTestSession(t, false)
	pipe.Dispatch(Message{Type: TypeSpectrum, Payload: map[string]any{
		"magnitudes": []any{127.5, 127.5},
	}})
	got := pipe.track.Spectrum()
	if len(got) != 2 || got[0] != 127.5 {
		t.Fatalf("unexpected spectrum: %v", got)
	}
}

func TestFloatSliceRejectsMixedTypes(t *testing.T) {
	if floatSlice([]any{1.0, "x"}) != nil {
		t.Fatal("expected nil for mixed slice")
	}
	if floatSlice("nope") != nil {
		t.Fatal("expected nil for non-slice")
	}
}

func TestScoreMapIgnoresNonNumeric(t *testing.T) {
	got := scoreMap(map[string]any{"joy": 0.5, "bad": "x"})
	if len(got) != 1 || got["joy"] != 0.5 {
		t.Fatalf("unexpected map: %v", got)
	}
}
