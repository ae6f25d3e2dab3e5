package gateway

// Message is the JSON envelope on the client websocket, both directions.
// The client increments seq per message; command_id correlates a server
// command with its effect on the client.
type Message struct {
	Type      string         `json:"type"`
	TsMs      int64          `json:"ts_ms"`
	SessionID string         `json:"session_id"`
	Seq       int64          `json:"seq"`
	CommandID string         `json:"command_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Inbound message types (client -> server).
const (
	TypeEngineResult = "engine_result"
	TypeEngineError  = "engine_error"
	TypeEngineEnd    = "engine_end"
	TypeMicGranted   = "mic_granted"
	TypeMicDenied    = "mic_denied"
	TypeSpectrum     = "spectrum"
	TypeEmotion      = "emotion"
	TypeSetListening = "set_listening"
	TypeTTSState     = "tts_state"
)

// Outbound message types (server -> client).
const (
	TypeEngineStart   = "engine_start"
	TypeEngineStop    = "engine_stop"
	TypeRequestMic    = "request_mic"
	TypeTranscript    = "transcript"
	TypeAudioLevel    = "audio_level"
	TypeCaptureState  = "capture_state"
	TypeEmotionUpdate = "emotion_update"
)
