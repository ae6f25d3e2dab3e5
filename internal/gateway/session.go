package gateway

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DevGruGold/xmrt-voice-agent/internal/arbiter"
	"github.com/DevGruGold/xmrt-voice-agent/internal/capture"
	"github.com/DevGruGold/xmrt-voice-agent/internal/config"
	"github.com/DevGruGold/xmrt-voice-agent/internal/emotion"
	"github.com/DevGruGold/xmrt-voice-agent/internal/events"
	"github.com/DevGruGold/xmrt-voice-agent/internal/sessions"
)

const sendTimeout = 5 * time.Second

// Session runs the capture pipeline for one connected client: controller,
// transcript aggregation, level monitoring, emotion fusion, and the
// listening arbiter, all fed by websocket messages and pushing results
// back out through the registry.
type Session struct {
	id     string
	reg    *Registry
	events *events.Store

	ctrl   *capture.Controller
	arb    *arbiter.Arbiter
	fusion *emotion.Engine
	voice  *emotion.SourceAdapter
	face   *emotion.SourceAdapter

	engine *wsEngine
	media  *wsMedia
	track  *wsTrack

	seq  atomic.Int64
	out  chan Message
	done chan struct{}
}

func NewSession(cfg config.Config, sess *sessions.Session, reg *Registry, es *events.Store) *Session {
	s := &Session{
		id:     sess.ID,
		reg:    reg,
		events: es,
		out:    make(chan Message, 64),
		done:   make(chan struct{}),
	}

	s.track = newWSTrack()
	s.media = newWSMedia(s.command, s.track)
	s.engine = newWSEngine(s.command)

	s.fusion = emotion.NewEngine(
		emotion.WithWeights(emotion.Weights{Face: cfg.Fusion.FaceWeight, Voice: cfg.Fusion.VoiceWeight}),
		emotion.WithOnUpdate(s.onFusion),
	)
	s.voice = emotion.NewSourceAdapter(emotion.SourceVoice, s.fusion)
	s.face = emotion.NewSourceAdapter(emotion.SourceFace, s.fusion)

	s.ctrl = capture.NewController(capture.ControllerConfig{
		Policy: capture.PolicyFor(capture.Profile(sess.Capture.Profile)),
		Media:  s.media,
		NewEngine: func(cb capture.EngineCallbacks) capture.SpeechEngine {
			s.engine.bind(cb)
			return s.engine
		},
		Hooks: capture.Hooks{
			OnStateChange: s.onState,
			OnTranscript:  s.onTranscript,
			OnAudioLevel:  s.onLevel,
		},
		SilenceWindow:  time.Duration(sess.Capture.SilenceMs) * time.Millisecond,
		SampleInterval: time.Duration(cfg.Capture.SampleMs) * time.Millisecond,
		LevelThreshold: sess.Capture.LevelThreshold,
	})
	return s
}

// Run attaches the arbiter and starts the outbound writer. It must be
// called once, before any Dispatch.
func (s *Session) Run(autoListen bool) {
	s.arb = arbiter.New(s.ctrl, autoListen)
	s.ctrl.SetInputs(s.arb)
	go s.writeLoop()
	s.arb.Reconcile()
}

// command queues a server->client command frame with a fresh command id.
func (s *Session) command(typ string, payload map[string]any) {
	s.emit(Message{
		Type:      typ,
		CommandID: uuid.NewString(),
		Payload:   payload,
	})
}

func (s *Session) emit(msg Message) {
	msg.TsMs = time.Now().UnixMilli()
	msg.SessionID = s.id
	msg.Seq = s.seq.Add(1)
	select {
	case s.out <- msg:
	case <-s.done:
	default:
		// Outbound queue full; the client is stalled. Drop rather than
		// block the pipeline.
		log.Printf("[gateway] session %s: outbound queue full, dropping %s", s.id, msg.Type)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			if err := s.reg.SendJSON(ctx, s.id, msg); err != nil {
				log.Printf("[gateway] session %s: send %s: %v", s.id, msg.Type, err)
			}
			cancel()
		}
	}
}

// Dispatch routes one inbound client message into the pipeline.
func (s *Session) Dispatch(msg Message) {
	switch msg.Type {
	case TypeEngineResult:
		text, _ := msg.Payload["text"].(string)
		isFinal, _ := msg.Payload["is_final"].(bool)
		s.engine.onResult(text, isFinal)
	case TypeEngineError:
		kind, _ := msg.Payload["kind"].(string)
		s.engine.onError(capture.ErrorKind(kind))
	case TypeEngineEnd:
		s.engine.onEnd()
	case TypeMicGranted:
		s.media.grant()
	case TypeMicDenied:
		s.media.deny()
	case TypeSpectrum:
		if m := floatSlice(msg.Payload["magnitudes"]); m != nil {
			s.track.SetSpectrum(m)
		}
	case TypeEmotion:
		source, _ := msg.Payload["source"].(string)
		scores := scoreMap(msg.Payload["scores"])
		switch source {
		case string(emotion.SourceVoice):
			s.voice.Push(scores)
		case string(emotion.SourceFace):
			s.face.Push(scores)
		default:
			s.events.Append(s.id, "emotion_source_unknown", map[string]any{"source": source})
		}
	case TypeSetListening:
		v, _ := msg.Payload["listening"].(bool)
		s.arb.SetDesiredListening(v)
	case TypeTTSState:
		v, _ := msg.Payload["speaking"].(bool)
		s.arb.SetSystemSpeaking(v)
	default:
		s.events.Append(s.id, "client_msg_unknown", map[string]any{"type": msg.Type})
	}
}

// Close stops the pipeline. Safe to call once, after the read loop exits.
func (s *Session) Close() {
	s.ctrl.Stop()
	close(s.done)
}

func (s *Session) onState(st capture.State, reason string) {
	if s.arb != nil {
		s.arb.OnCaptureStateChange(st, reason)
	}
	payload := map[string]any{"state": string(st)}
	if reason != "" {
		payload["reason"] = reason
	}
	s.emit(Message{Type: TypeCaptureState, Payload: payload})
	s.events.Append(s.id, "capture_state", payload)
}

func (s *Session) onTranscript(text string, isFinal bool) {
	s.emit(Message{Type: TypeTranscript, Payload: map[string]any{"text": text, "is_final": isFinal}})
	if isFinal {
		s.events.Append(s.id, "transcript", map[string]any{"text": text})
	}
}

func (s *Session) onLevel(level float64) {
	s.emit(Message{Type: TypeAudioLevel, Payload: map[string]any{"level": level}})
}

func (s *Session) onFusion(fused []emotion.Reading) {
	s.emit(Message{Type: TypeEmotionUpdate, Payload: map[string]any{
		"fused": fused,
		"trend": string(s.fusion.Trend()),
	}})
}

func floatSlice(v any) []float64 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func scoreMap(v any) map[string]float64 {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, x := range raw {
		if f, ok := x.(float64); ok {
			out[k] = f
		}
	}
	return out
}
