package tools

import "time"

// Deadline tracks a fixed point in time for budget accounting. Unlike a
// bare time.Time it clamps, so Remaining never goes negative and a
// timed-out deadline always reports zero budget.
type Deadline struct {
	at time.Time
}

// NewDeadline builds a deadline d from now.
func NewDeadline(d time.Duration) Deadline {
	return DeadlineAt(time.Now().Add(d))
}

// DeadlineAt builds a deadline for an absolute instant.
func DeadlineAt(at time.Time) Deadline {
	return Deadline{at: at}
}

// Remaining returns the budget left, clamped at zero.
func (d Deadline) Remaining() time.Duration {
	r := time.Until(d.at)
	if r < 0 {
		return 0
	}
	return r
}

// IsTimedOut reports whether the deadline has passed.
func (d Deadline) IsTimedOut() bool {
	return !time.Now().Before(d.at)
}
