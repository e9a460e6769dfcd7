package models

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestContentBlock_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		block ContentBlock
	}{
		{"text", Text("hello")},
		{"image_base64", ImageBase64("image/png", "aGk=")},
		{"image_url", ImageURL("https://example.com/cat.png")},
		{"file", FileRef("notes.txt", "/tmp/notes.txt")},
		{"tool_use", ToolUse("call-1", "read_file", json.RawMessage(`{"path":"/tmp/x"}`))},
		{"tool_result_ok", ToolResultOK("call-1", "file contents")},
		{"tool_result_err", ToolResultError("call-1", "boom")},
		{"custom", Custom(json.RawMessage(`{"k":"v"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.block)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var back ContentBlock
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back.Type != tt.block.Type {
				t.Errorf("type = %q, want %q", back.Type, tt.block.Type)
			}
		})
	}
}

func TestContentBlock_TypeTags(t *testing.T) {
	data, err := json.Marshal(ToolUse("id-1", "search", json.RawMessage(`{}`)))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m["type"] != "tool_use" {
		t.Errorf("type tag = %v, want tool_use", m["type"])
	}
	if m["name"] != "search" {
		t.Errorf("name = %v, want search", m["name"])
	}
}

func TestToolResult_ContentErrorPreserved(t *testing.T) {
	ok := ToolResultOK("c1", "out")
	if ok.Content == nil || *ok.Content != "out" {
		t.Error("ok result should carry content")
	}
	if ok.Error != nil || ok.IsError {
		t.Error("ok result should not carry error")
	}

	fail := ToolResultError("c1", "bad")
	if fail.Error == nil || *fail.Error != "bad" {
		t.Error("error result should carry error text")
	}
	if !fail.IsError {
		t.Error("error result should set is_error")
	}

	data, _ := json.Marshal(fail)
	var back ContentBlock
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Error == nil || *back.Error != "bad" {
		t.Error("error text should survive a round-trip")
	}
	if back.Content != nil {
		t.Error("absent content should stay absent after a round-trip")
	}
}

func TestContentBlock_ResultText(t *testing.T) {
	if got := ToolResultOK("c", "out").ResultText(); got != "out" {
		t.Errorf("ResultText() = %q, want %q", got, "out")
	}
	if got := ToolResultError("c", "bad").ResultText(); got != "bad" {
		t.Errorf("ResultText() = %q, want %q", got, "bad")
	}
}

func TestSource_BytesMarshalsAsBase64(t *testing.T) {
	src := Source{Type: SourceBytes, MediaType: "image/png", Bytes: []byte{1, 2, 3}}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back Source
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Type != SourceBase64 {
		t.Errorf("type = %q, want base64", back.Type)
	}
	want := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if back.Data != want {
		t.Errorf("data = %q, want %q", back.Data, want)
	}
}
