package models

import (
	"encoding/json"
	"testing"
)

func TestNewId_Unique(t *testing.T) {
	seen := make(map[Id]bool)
	for i := 0; i < 1000; i++ {
		id := NewId()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestNewId_TimeOrdered(t *testing.T) {
	prev := NewId().String()
	for i := 0; i < 100; i++ {
		next := NewId().String()
		if next < prev {
			t.Fatalf("id %s sorts before earlier id %s", next, prev)
		}
		prev = next
	}
}

func TestParseId_RoundTrip(t *testing.T) {
	id := NewId()
	parsed, err := ParseId(id.String())
	if err != nil {
		t.Fatalf("ParseId() error = %v", err)
	}
	if parsed != id {
		t.Errorf("parsed = %s, want %s", parsed, id)
	}
}

func TestParseId_Invalid(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "12345"} {
		t.Run(s, func(t *testing.T) {
			if _, err := ParseId(s); err == nil {
				t.Errorf("ParseId(%q) expected error", s)
			}
		})
	}
}

func TestId_IsZero(t *testing.T) {
	var zero Id
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if NewId().IsZero() {
		t.Error("fresh id should not report IsZero")
	}
}

func TestId_JSON(t *testing.T) {
	id := NewId()
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"`+id.String()+`"` {
		t.Errorf("marshaled = %s, want quoted canonical form", data)
	}

	var back Id
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != id {
		t.Errorf("round-trip = %s, want %s", back, id)
	}
}

func TestId_MapKey(t *testing.T) {
	m := map[Id]string{}
	id := NewId()
	m[id] = "value"
	if m[id] != "value" {
		t.Error("id should be usable as a map key")
	}
}
