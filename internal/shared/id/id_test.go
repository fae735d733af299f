package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id2.Compare(id1) <= 0 {
		t.Error("IDs from one generator should sort in creation order")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{EventPrefix, TracePrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if !IsValid(parts[1]) {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
		if _, err := Timestamp(parts[1]); err != nil {
			t.Errorf("Timestamp failed: %v", err)
		}
	}
}

func TestTypedIDs(t *testing.T) {
	if !strings.HasPrefix(NewEventID().String(), "evt_") {
		t.Error("event IDs should carry the evt prefix")
	}
	if !strings.HasPrefix(NewTraceID().String(), "trc_") {
		t.Error("trace IDs should carry the trc prefix")
	}
}

func TestSerialIsMonotonic(t *testing.T) {
	s := NewSerial(10)

	if got := s.Next(); got != 10 {
		t.Fatalf("Expected first serial 10, got %d", got)
	}
	if got := s.Next(); got != 11 {
		t.Fatalf("Expected second serial 11, got %d", got)
	}

	if s.RaiseFloor(5) {
		t.Error("Lowering the floor must be ignored")
	}
	if got := s.Next(); got != 12 {
		t.Errorf("Expected 12 after ignored floor change, got %d", got)
	}

	if !s.RaiseFloor(100) {
		t.Error("Raising the floor should apply")
	}
	if got := s.Next(); got != 100 {
		t.Errorf("Expected 100 after raising floor, got %d", got)
	}
	if s.Peek() != 101 {
		t.Errorf("Expected peek 101, got %d", s.Peek())
	}
}
