package llm

import (
	"context"

	"github.com/haasonsaas/strand/pkg/models"
)

// SynthesizeStream converts a completed response into a chunk sequence on
// a fresh channel: message_start, one text_delta per text block, a
// tool_use_start/delta/end triple per tool_use block, usage, message_end.
// Providers without native streaming use it to satisfy Stream; the
// producing goroutine honors ctx so abandoned consumers do not leak it.
func SynthesizeStream(ctx context.Context, resp *CompletionResponse) <-chan StreamChunk {
	out := make(chan StreamChunk)
	go func() {
		defer close(out)

		send := func(chunk StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(MessageStartChunk(resp.ID)) {
			return
		}
		for _, block := range resp.Message.Content {
			switch block.Type {
			case models.BlockText:
				if block.Text != "" && !send(TextDeltaChunk(block.Text)) {
					return
				}
			case models.BlockToolUse:
				if !send(ToolUseStartChunk(block.ID, block.Name)) {
					return
				}
				if len(block.Input) > 0 && !send(ToolUseDeltaChunk(block.ID, string(block.Input))) {
					return
				}
				if !send(ToolUseEndChunk(block.ID)) {
					return
				}
			}
		}
		if !send(UsageChunk(resp.Usage)) {
			return
		}
		send(MessageEndChunk(resp.StopReason))
	}()
	return out
}
