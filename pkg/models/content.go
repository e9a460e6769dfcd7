package models

import (
	"encoding/base64"
	"encoding/json"
)

// BlockType discriminates ContentBlock variants.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockVideo      BlockType = "video"
	BlockFile       BlockType = "file"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockCustom     BlockType = "custom"
)

// ContentBlock is one element of a message body. The Type field selects
// which of the remaining fields are meaningful.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text payload for text blocks.
	Text string `json:"text,omitempty"`

	// Media fields for image, audio, video and file blocks.
	Source    *Source `json:"source,omitempty"`
	MediaType string  `json:"media_type,omitempty"`

	// Name is the file name for file blocks and the tool name for
	// tool_use blocks.
	Name string `json:"name,omitempty"`

	// Tool invocation fields for tool_use blocks.
	ID    string          `json:"id,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// Tool result fields. Content and Error are pointers so that a
	// result carrying one but not the other round-trips unchanged.
	ToolUseID string  `json:"tool_use_id,omitempty"`
	Content   *string `json:"content,omitempty"`
	Error     *string `json:"error,omitempty"`
	IsError   bool    `json:"is_error,omitempty"`

	// Data holds the opaque payload of custom blocks.
	Data json.RawMessage `json:"data,omitempty"`
}

// Text builds a text block.
func Text(s string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: s}
}

// ImageBase64 builds an image block from base64-encoded data.
func ImageBase64(mediaType, data string) ContentBlock {
	return ContentBlock{
		Type:   BlockImage,
		Source: &Source{Type: SourceBase64, MediaType: mediaType, Data: data},
	}
}

// ImageURL builds an image block referencing a remote URL.
func ImageURL(url string) ContentBlock {
	return ContentBlock{
		Type:   BlockImage,
		Source: &Source{Type: SourceURL, URL: url},
	}
}

// FileRef builds a file block referencing a local path.
func FileRef(name, path string) ContentBlock {
	return ContentBlock{
		Type:   BlockFile,
		Name:   name,
		Source: &Source{Type: SourceFile, Path: path},
	}
}

// ToolUse builds a tool invocation block.
func ToolUse(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultOK builds a successful tool result block.
func ToolResultOK(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: &content}
}

// ToolResultError builds a failed tool result block.
func ToolResultError(toolUseID, errMsg string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Error: &errMsg, IsError: true}
}

// Custom builds a block carrying an opaque payload.
func Custom(data json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockCustom, Data: data}
}

// ResultText returns the human-readable payload of a tool result block:
// the content when present, otherwise the error text.
func (b ContentBlock) ResultText() string {
	if b.Content != nil {
		return *b.Content
	}
	if b.Error != nil {
		return *b.Error
	}
	return ""
}

// SourceType discriminates Source variants.
type SourceType string

const (
	SourceBase64 SourceType = "base64"
	SourceURL    SourceType = "url"
	SourceFile   SourceType = "file"
	// SourceBytes holds raw bytes in memory. It is never serialized;
	// marshaling converts it to base64.
	SourceBytes SourceType = "bytes"
)

// Source locates the payload of a media block.
type Source struct {
	Type      SourceType `json:"type"`
	MediaType string     `json:"media_type,omitempty"`
	Data      string     `json:"data,omitempty"`
	URL       string     `json:"url,omitempty"`
	Path      string     `json:"path,omitempty"`
	Bytes     []byte     `json:"-"`
}

func (s Source) MarshalJSON() ([]byte, error) {
	if s.Type == SourceBytes {
		return json.Marshal(Source{
			Type:      SourceBase64,
			MediaType: s.MediaType,
			Data:      base64.StdEncoding.EncodeToString(s.Bytes),
		})
	}
	type plain Source
	return json.Marshal(plain(s))
}
