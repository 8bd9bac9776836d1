package service

import (
	"context"
	"fmt"
	"time"
)

const (
	SLALabelNone     = "N/A"
	SLALabelBreached = "SLA Breached"

	// SLAWarningWindow is the remaining time under which a doubt is flagged urgent.
	SLAWarningWindow = 5 * time.Minute
)

type SLAUrgency string

const (
	SLAUrgencyNone     SLAUrgency = "none"
	SLAUrgencyNormal   SLAUrgency = "normal"
	SLAUrgencyWarning  SLAUrgency = "warning"
	SLAUrgencyBreached SLAUrgency = "breached"
)

// SLALabel renders the countdown for deadline as seen at now.
// Minutes are the total remaining minutes and are not wrapped at the hour,
// so a deadline 62m5s away renders as "Time Left: 62:05".
func SLALabel(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return SLALabelNone
	}
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return SLALabelBreached
	}
	ms := remaining.Milliseconds()
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	return fmt.Sprintf("Time Left: %02d:%02d", minutes, seconds)
}

func Urgency(deadline *time.Time, now time.Time) SLAUrgency {
	if deadline == nil {
		return SLAUrgencyNone
	}
	remaining := deadline.Sub(now)
	switch {
	case remaining < 0:
		return SLAUrgencyBreached
	case remaining < SLAWarningWindow:
		return SLAUrgencyWarning
	}
	return SLAUrgencyNormal
}

// SLATimer re-renders a label once per tick. It keeps no state besides its
// clock, so it can be stopped and started again at will.
type SLATimer struct {
	Now  func() time.Time
	Tick time.Duration
}

func NewSLATimer() *SLATimer {
	return &SLATimer{Now: time.Now, Tick: time.Second}
}

// Run emits the current label immediately and then on every tick until ctx is done.
func (t *SLATimer) Run(ctx context.Context, deadline *time.Time, emit func(string)) {
	emit(SLALabel(deadline, t.Now()))
	if deadline == nil {
		return
	}

	ticker := time.NewTicker(t.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(SLALabel(deadline, t.Now()))
		}
	}
}
