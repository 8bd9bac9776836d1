package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionCreateDoubt = "create_doubt"
	ActionCreatePoll  = "create_poll"
	ActionUpload      = "upload"
	ActionRequest     = "request"
)

// Policy allows Burst actions at once, refilling one token every Every.
type Policy struct {
	Burst int
	Every time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action. A nil
// *RateLimiter allows everything.
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
}

func NewRateLimiter(messagesPerMinute int) *RateLimiter {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 30
	}
	return &RateLimiter{
		policies: map[string]Policy{
			ActionSendMessage: {Burst: messagesPerMinute, Every: time.Minute / time.Duration(messagesPerMinute)},
			ActionCreateDoubt: {Burst: 5, Every: 2 * time.Minute},
			ActionCreatePoll:  {Burst: 3, Every: 5 * time.Minute},
			ActionUpload:      {Burst: 10, Every: 30 * time.Second},
			ActionRequest:     {Burst: 60, Every: time.Second},
		},
		fallback: Policy{Burst: 20, Every: 3 * time.Second},
		buckets:  make(map[string]*bucket),
	}
}

// Allow consumes a token for userID's action. When none is available it
// reports how long until one is.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	if rl == nil {
		return true, 0
	}
	key := userID + ":" + action
	now := time.Now()

	rl.mutex.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		p, found := rl.policies[action]
		if !found {
			p = rl.fallback
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
