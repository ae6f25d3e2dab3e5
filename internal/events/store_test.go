package events

import "testing"

func TestAppendAndList(t *testing.T) {
	s := NewStore(0)
	s.Append("sess-1", "capture_state", map[string]any{"state": "listening"})
	s.Append("sess-1", "transcript", map[string]any{"text": "hello"})
	s.Append("sess-2", "capture_state", nil)

	got := s.List("sess-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != "capture_state" || got[1].Type != "transcript" {
		t.Fatalf("unexpected order: %v %v", got[0].Type, got[1].Type)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Fatal("event IDs must be unique and non-empty")
	}
}

func TestListCopiesOut(t *testing.T) {
	s := NewStore(0)
	s.Append("sess-1", "transcript", nil)
	got := s.List("sess-1")
	got[0].Type = "mutated"
	if s.List("sess-1")[0].Type != "transcript" {
		t.Fatal("List must not expose internal storage")
	}
}

func TestCapTruncatesWithMarker(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 8; i++ {
		s.Append("sess-1", "audio_level", nil)
	}
	got := s.List("sess-1")
	if len(got) != 5 {
		t.Fatalf("expected 5 events after truncation, got %d", len(got))
	}
	if got[0].Type != TypeTruncated {
		t.Fatalf("expected truncation marker first, got %v", got[0].Type)
	}
}

func TestDrop(t *testing.T) {
	s := NewStore(0)
	s.Append("sess-1", "transcript", nil)
	s.Drop("sess-1")
	if len(s.List("sess-1")) != 0 {
		t.Fatal("expected empty log after Drop")
	}
}
