package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DevGruGold/xmrt-voice-agent/internal/auth"
	"github.com/DevGruGold/xmrt-voice-agent/internal/config"
	"github.com/DevGruGold/xmrt-voice-agent/internal/events"
	"github.com/DevGruGold/xmrt-voice-agent/internal/sessions"
)

type Handlers struct {
	cfg      config.Config
	sessions *sessions.Store
	events   *events.Store
}

func NewHandlers(cfg config.Config, ss *sessions.Store, es *events.Store) *Handlers {
	return &Handlers{cfg: cfg, sessions: ss, events: es}
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Client.TokenSecret == "" {
		http.Error(w, "missing client token secret", http.StatusInternalServerError)
		return
	}

	settings := sessions.Settings{
		Profile:        h.cfg.Capture.Profile,
		SilenceMs:      h.cfg.Capture.SilenceMs,
		LevelThreshold: h.cfg.Capture.LevelThreshold,
		AutoListen:     h.cfg.Capture.AutoListen,
	}
	sess := h.sessions.Create(settings)
	h.sessions.Put(sess)

	exp := time.Now().Add(time.Duration(h.cfg.Client.TokenExpMin) * time.Minute).Unix()
	token, err := auth.GenerateClientToken(h.cfg.Client.TokenSecret, sess.ID, exp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.events.Append(sess.ID, "session_created", map[string]any{"profile": settings.Profile})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":   sess.ID,
		"client_token": token,
		"capture":      settings,
	})
}

func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.sessions.Get(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sess)
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.sessions.Get(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	evts := h.events.List(id)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": id,
		"events":     evts,
	})
}

// HandleMintClientToken issues a fresh token for an existing session,
// for clients reconnecting after their first token expired.
func (h *Handlers) HandleMintClientToken(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.sessions.Get(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	exp := time.Now().Add(time.Duration(h.cfg.Client.TokenExpMin) * time.Minute).Unix()
	token, err := auth.GenerateClientToken(h.cfg.Client.TokenSecret, id, exp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":   id,
		"client_token": token,
		"exp":          exp,
	})
}
