package gateway

import (
	"context"
	"testing"
)

func TestSendJSONWithoutConnIsNoop(t *testing.T) {
	r := NewRegistry()
	if err := r.SendJSON(context.Background(), "missing", Message{Type: "x"}); err != nil {
		t.Fatalf("expected nil send to absent conn, got %v", err)
	}
}
