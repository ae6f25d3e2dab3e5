package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a per-session record of something the capture pipeline did:
// a state transition, a finalized transcript, an emotion update.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// TypeTruncated marks the point where older events were dropped to keep
// a session's log under the cap.
const TypeTruncated = "log_truncated"

// DefaultLimit caps how many events a session retains in memory.
const DefaultLimit = 500

type Store struct {
	mu     sync.RWMutex
	limit  int
	bySess map[string][]Event
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit, bySess: make(map[string][]Event)}
}

func (s *Store) Append(sessionID, typ string, payload map[string]any) Event {
	evt := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	s.mu.Lock()
	queue := append(s.bySess[sessionID], evt)
	if len(queue) > s.limit {
		dropped := len(queue) - s.limit
		queue = queue[dropped:]
		queue[0] = Event{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      TypeTruncated,
			Timestamp: time.Now().UTC(),
			Payload:   map[string]any{"dropped": dropped},
		}
	}
	s.bySess[sessionID] = queue
	s.mu.Unlock()
	return evt
}

func (s *Store) List(sessionID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	src := s.bySess[sessionID]
	out := make([]Event, len(src))
	copy(out, src)
	return out
}

func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.bySess, sessionID)
	s.mu.Unlock()
}
