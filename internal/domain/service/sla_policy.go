package service

import "time"

// SLAPolicy assigns the response deadline of a new doubt. A nil result means
// the doubt has no deadline.
type SLAPolicy interface {
	Deadline(createdAt time.Time, paperID string) *time.Time
}

// FixedWindowPolicy gives every doubt the same response window. A zero
// window disables deadlines.
type FixedWindowPolicy struct {
	Window time.Duration
}

func (p FixedWindowPolicy) Deadline(createdAt time.Time, _ string) *time.Time {
	if p.Window <= 0 {
		return nil
	}
	d := createdAt.Add(p.Window)
	return &d
}
