package models

import (
	"encoding/json"
	"testing"
)

func TestCapabilitiesSetOps(t *testing.T) {
	caps := NewCapabilities(CapTextInput, CapStreaming)

	if !caps.Has(CapTextInput) {
		t.Error("missing text_input")
	}
	if caps.Has(CapVision) {
		t.Error("unexpected vision")
	}
	if !caps.HasAll(CapTextInput, CapStreaming) {
		t.Error("HasAll should match")
	}
	if caps.HasAll(CapTextInput, CapVision) {
		t.Error("HasAll should miss on vision")
	}
	if !caps.HasAny(CapVision, CapStreaming) {
		t.Error("HasAny should match streaming")
	}

	if !caps.Add(CapVision) {
		t.Error("first add should report new")
	}
	if caps.Add(CapVision) {
		t.Error("second add should report existing")
	}
	if caps.Len() != 3 {
		t.Errorf("len = %d", caps.Len())
	}
}

func TestCapabilitiesConstructors(t *testing.T) {
	tool := ToolCapabilities()
	if !tool.HasAll(CapTextInput, CapTextOutput, CapStreaming, CapToolUse, CapFunctionCalling) {
		t.Errorf("tool set = %v", tool.List())
	}

	vision := VisionCapabilities()
	if !vision.HasAll(CapImageInput, CapVision) || vision.Has(CapToolUse) {
		t.Errorf("vision set = %v", vision.List())
	}

	// With copies; the base set must not grow.
	base := TextCapabilities()
	extended := base.With(CapJSONMode)
	if base.Has(CapJSONMode) {
		t.Error("With mutated the receiver")
	}
	if !extended.Has(CapJSONMode) {
		t.Error("With dropped the addition")
	}
}

func TestCapabilitiesJSON(t *testing.T) {
	caps := NewCapabilities(CapVision, CapTextInput, Capability("x-internal"))

	data, err := json.Marshal(caps)
	if err != nil {
		t.Fatal(err)
	}
	// Sorted array on the wire.
	want := `["text_input","vision","x-internal"]`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var decoded Capabilities
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.HasAll(CapVision, CapTextInput, Capability("x-internal")) {
		t.Errorf("decoded = %v", decoded.List())
	}
}
