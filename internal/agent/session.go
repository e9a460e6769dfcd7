package agent

import (
	"sync"
	"time"

	"github.com/haasonsaas/strand/pkg/models"
)

// Stats summarizes a session's activity. MessageCount counts total
// appends over the session's lifetime; truncation and Clear do not
// decrement it.
type Stats struct {
	MessageCount   int `json:"message_count"`
	ToolCallCount  int `json:"tool_call_count"`
	IterationCount int `json:"iteration_count"`
}

// Session is a concurrency-safe handle on one conversation. Multiple
// goroutines may share a handle; reads return copies so callers never
// alias internal state.
type Session struct {
	mu sync.RWMutex

	id        models.Id
	createdAt time.Time
	metadata  map[string]string
	messages  []models.Message
	stats     Stats
}

// NewSession creates a session with a fresh id.
func NewSession() *Session {
	return NewSessionWithID(models.NewId())
}

// NewSessionWithID creates a session adopting the given id, for callers
// that mint ids elsewhere (the HTTP layer honors client-supplied ids).
func NewSessionWithID(id models.Id) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		metadata:  make(map[string]string),
	}
}

// ID returns the session id.
func (s *Session) ID() models.Id {
	return s.id
}

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// AddMessage appends a message and bumps the append counter.
func (s *Session) AddMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.stats.MessageCount++
}

// Messages returns a copy of the full history.
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessages returns a copy of the newest n messages; n <= 0 or
// n >= len returns everything.
func (s *Session) LastMessages(n int) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && n < len(s.messages) {
		start = len(s.messages) - n
	}
	out := make([]models.Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// Len returns the current message count (post-truncation).
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Truncate keeps only the newest n messages. The append counter is
// untouched; it tracks lifetime appends, not retained history.
func (s *Session) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(s.messages) {
		return
	}
	kept := make([]models.Message, n)
	copy(kept, s.messages[len(s.messages)-n:])
	s.messages = kept
}

// Clear empties the history, preserving counters and metadata.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// IncrementIterations bumps the loop iteration counter.
func (s *Session) IncrementIterations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.IterationCount++
}

// IncrementToolCalls adds n to the tool call counter.
func (s *Session) IncrementToolCalls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ToolCallCount += n
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// SetMetadata stores a metadata entry.
func (s *Session) SetMetadata(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Metadata returns the value for key and whether it was set.
func (s *Session) Metadata(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metadata[key]
	return v, ok
}
