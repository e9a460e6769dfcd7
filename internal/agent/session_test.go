package agent

import (
	"fmt"
	"sync"
	"testing"

	"github.com/haasonsaas/strand/pkg/models"
)

func TestSessionAppendOrder(t *testing.T) {
	s := NewSession()
	for i := 0; i < 5; i++ {
		s.AddMessage(models.UserText(fmt.Sprintf("msg-%d", i)))
	}

	msgs := s.Messages()
	for i, msg := range msgs {
		if want := fmt.Sprintf("msg-%d", i); msg.Text() != want {
			t.Errorf("message %d = %q, want %q", i, msg.Text(), want)
		}
	}

	// LastMessages is a suffix of the history.
	last := s.LastMessages(2)
	if len(last) != 2 {
		t.Fatalf("LastMessages(2) returned %d", len(last))
	}
	if last[0].Text() != "msg-3" || last[1].Text() != "msg-4" {
		t.Errorf("suffix = %q, %q", last[0].Text(), last[1].Text())
	}

	if got := s.LastMessages(0); len(got) != 5 {
		t.Errorf("LastMessages(0) returned %d, want all 5", len(got))
	}
	if got := s.LastMessages(100); len(got) != 5 {
		t.Errorf("LastMessages(100) returned %d, want all 5", len(got))
	}
}

func TestSessionTruncatePreservesCount(t *testing.T) {
	s := NewSession()
	for i := 0; i < 6; i++ {
		s.AddMessage(models.UserText(fmt.Sprintf("msg-%d", i)))
	}

	s.Truncate(2)
	if got := s.Len(); got != 2 {
		t.Errorf("Len after Truncate = %d, want 2", got)
	}
	if got := s.Stats().MessageCount; got != 6 {
		t.Errorf("message_count after Truncate = %d, want 6", got)
	}
	// The newest messages survive.
	msgs := s.Messages()
	if msgs[0].Text() != "msg-4" || msgs[1].Text() != "msg-5" {
		t.Errorf("kept = %q, %q", msgs[0].Text(), msgs[1].Text())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Error("Clear should empty the history")
	}
	if got := s.Stats().MessageCount; got != 6 {
		t.Errorf("message_count after Clear = %d, want 6", got)
	}
}

func TestSessionMessagesReturnsCopy(t *testing.T) {
	s := NewSession()
	s.AddMessage(models.UserText("original"))

	msgs := s.Messages()
	msgs[0] = models.UserText("mutated")

	if got := s.Messages()[0].Text(); got != "original" {
		t.Errorf("internal state mutated through copy: %q", got)
	}
}

func TestSessionAdoptedID(t *testing.T) {
	id := models.NewId()
	s := NewSessionWithID(id)
	if s.ID() != id {
		t.Errorf("ID = %v, want %v", s.ID(), id)
	}
}

func TestSessionMetadata(t *testing.T) {
	s := NewSession()
	if _, ok := s.Metadata("user"); ok {
		t.Error("unset key should miss")
	}
	s.SetMetadata("user", "alice")
	if v, ok := s.Metadata("user"); !ok || v != "alice" {
		t.Errorf("Metadata = %q, %v", v, ok)
	}
}

func TestSessionConcurrentAppends(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.AddMessage(models.UserText(fmt.Sprintf("g%d-%d", n, j)))
			}
		}(i)
	}
	wg.Wait()

	if got := s.Len(); got != 200 {
		t.Errorf("Len = %d, want 200", got)
	}
	if got := s.Stats().MessageCount; got != 200 {
		t.Errorf("message_count = %d, want 200", got)
	}
}
