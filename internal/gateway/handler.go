package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/DevGruGold/xmrt-voice-agent/internal/auth"
	"github.com/DevGruGold/xmrt-voice-agent/internal/config"
	"github.com/DevGruGold/xmrt-voice-agent/internal/events"
	"github.com/DevGruGold/xmrt-voice-agent/internal/sessions"

	ws "nhooyr.io/websocket"
)

type Server struct {
	Cfg      config.Config
	Sessions *sessions.Store
	Events   *events.Store
	Reg      *Registry
}

func NewServer(cfg config.Config, ss *sessions.Store, es *events.Store, reg *Registry) *Server {
	return &Server{Cfg: cfg, Sessions: ss, Events: es, Reg: reg}
}

// HandleClientWS upgrades a client connection and runs its capture
// pipeline until the socket closes. Browsers cannot set headers on
// websocket upgrades, so the token is accepted from the query string as
// well as the Authorization header.
func (s *Server) HandleClientWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	sess := s.Sessions.Get(sessionID)
	if sess == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	token := q.Get("token")
	if token == "" {
		authz := r.Header.Get("Authorization")
		if strings.HasPrefix(authz, "Bearer ") {
			token = strings.TrimPrefix(authz, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	if s.Cfg.Client.TokenSecret == "" {
		http.Error(w, "client auth not configured", http.StatusUnauthorized)
		return
	}
	if _, _, err := auth.ValidateClientToken(s.Cfg.Client.TokenSecret, token, sessionID, time.Now(), s.Cfg.Client.TokenSkewSecs); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws accept: %v", err)
		return
	}
	if replaced := s.Reg.Replace(sessionID, c); replaced {
		s.Events.Append(sessionID, "client_replaced", nil)
	}
	s.Events.Append(sessionID, "client_connected", nil)

	pipe := NewSession(s.Cfg, sess, s.Reg, s.Events)
	pipe.Run(sess.Capture.AutoListen)

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Events.Append(sessionID, "client_msg_invalid", map[string]any{"error": err.Error()})
			continue
		}
		pipe.Dispatch(msg)
	}
	pipe.Close()
	_ = c.Close(ws.StatusNormalClosure, "done")
	s.Reg.Remove(sessionID, c)
	s.Events.Append(sessionID, "client_disconnected", nil)
}
