// Package memory is an in-process document store with the same atomicity
// guarantees as the Firestore repositories: every guarded update runs under
// one mutex. It backs tests and STORAGE_DRIVER=memory.
package memory

import (
	"sync"
	"time"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
)

type Store struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time

	users         map[string]*entity.User
	doubts        map[string]*entity.Doubt
	ratings       []*entity.Rating
	polls         map[string]*entity.Poll
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	faqs          map[string][]*entity.FAQ
	settings      *entity.GlobalSettings
	failures      map[string]error

	nextWatch     int
	seq           uint64
	msgWatchers   map[string]map[int]*watcher[[]*entity.Message]
	doubtWatchers map[string]map[int]*watcher[*entity.Doubt]
}

func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[string]*entity.User),
		doubts:        make(map[string]*entity.Doubt),
		polls:         make(map[string]*entity.Poll),
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		faqs:          make(map[string][]*entity.FAQ),
		settings:      &entity.GlobalSettings{PresenceEnabled: true},
		failures:      make(map[string]error),
		msgWatchers:   make(map[string]map[int]*watcher[[]*entity.Message]),
		doubtWatchers: make(map[string]map[int]*watcher[*entity.Doubt]),
	}
}

// SetClock replaces the time source used for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Fail makes every call of op return err until cleared with a nil err.
// Operation names are "<collection>.<method>", e.g. "messages.create".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) SetSettings(settings entity.GlobalSettings) {
	s.mu.Lock()
	s.settings = &settings
	s.mu.Unlock()
}

// failure must be called with mu held.
func (s *Store) failure(op string) error {
	return s.failures[op]
}

// stamp returns a strictly increasing server time. Must be called with mu held.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// watcher hands snapshots to one subscriber outside mu. Snapshots are
// numbered under mu, so one that lost the race to a newer one is dropped.
type watcher[T any] struct {
	fn   func(T)
	mu   sync.Mutex
	last uint64
}

func (w *watcher[T]) deliver(seq uint64, v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.last {
		return
	}
	w.last = seq
	w.fn(v)
}

// nextSeq must be called with mu held.
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// newSubscription must be called with mu held; detach runs under mu.
func (s *Store) newSubscription(detach func(id int)) (int, repository.Subscription) {
	s.nextWatch++
	id := s.nextWatch
	return id, &subscription{detach: func() {
		s.mu.Lock()
		detach(id)
		s.mu.Unlock()
	}}
}

type subscription struct {
	once   sync.Once
	detach func()
}

func (s *subscription) Detach() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}

func cloneMessage(m *entity.Message) *entity.Message {
	c := *m
	c.SeenBy = append([]string(nil), m.SeenBy...)
	return &c
}

func cloneMessages(list []*entity.Message) []*entity.Message {
	out := make([]*entity.Message, len(list))
	for i, m := range list {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneDoubt(d *entity.Doubt) *entity.Doubt {
	c := *d
	if d.SLADeadline != nil {
		v := *d.SLADeadline
		c.SLADeadline = &v
	}
	if d.ResolvedAt != nil {
		v := *d.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	if c.LastMessage != nil {
		out.LastMessage = cloneMessage(c.LastMessage)
	}
	return &out
}

func clonePoll(p *entity.Poll) *entity.Poll {
	c := *p
	c.Options = append([]entity.PollOption(nil), p.Options...)
	c.Voters = append([]string(nil), p.Voters...)
	return &c
}
