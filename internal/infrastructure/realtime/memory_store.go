package realtime

import (
	"context"
	"sync"
	"time"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
)

// MemoryStore is a single-process presence store. Disconnect and Reconnect
// simulate losing and regaining the link, applying armed writes on loss.
type MemoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	connected bool
	records   map[string]entity.PresenceRecord
	wills     map[string]bool
	armErr    error

	nextID       int
	connWatchers map[int]func(bool)
	allWatchers  map[int]func(map[string]entity.PresenceRecord)
	writes       []Write
}

// Write is one applied presence change, kept for inspection.
type Write struct {
	UID    string
	Online bool
	Armed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		connected:    true,
		records:      make(map[string]entity.PresenceRecord),
		wills:        make(map[string]bool),
		connWatchers: make(map[int]func(bool)),
		allWatchers:  make(map[int]func(map[string]entity.PresenceRecord)),
	}
}

func (s *MemoryStore) WatchConnection(ctx context.Context, uid string, fn func(bool)) (repository.Subscription, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.connWatchers[id] = fn
	connected := s.connected
	s.mu.Unlock()

	fn(connected)

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.connWatchers, id)
			delete(s.wills, uid)
			s.mu.Unlock()
		})
	}), nil
}

func (s *MemoryStore) OnDisconnect(ctx context.Context, uid string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armErr != nil {
		return s.armErr
	}
	s.wills[uid] = online
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, uid string, online bool) error {
	s.mu.Lock()
	s.apply(uid, online, false)
	notify := s.notifications()
	s.mu.Unlock()

	notify()
	return nil
}

func (s *MemoryStore) SubscribeAll(ctx context.Context, fn func(map[string]entity.PresenceRecord)) (repository.Subscription, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.allWatchers[id] = fn
	initial := s.snapshot()
	s.mu.Unlock()

	fn(initial)

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.allWatchers, id)
			s.mu.Unlock()
		})
	}), nil
}

// Disconnect drops the link: armed writes are applied and watchers see false.
func (s *MemoryStore) Disconnect() {
	s.mu.Lock()
	s.connected = false
	for uid, online := range s.wills {
		s.apply(uid, online, true)
	}
	s.wills = make(map[string]bool)
	conn := s.connectionNotifications(false)
	notify := s.notifications()
	s.mu.Unlock()

	conn()
	notify()
}

func (s *MemoryStore) Reconnect() {
	s.mu.Lock()
	s.connected = true
	conn := s.connectionNotifications(true)
	s.mu.Unlock()

	conn()
}

// FailArming makes OnDisconnect return err; nil restores it.
func (s *MemoryStore) FailArming(err error) {
	s.mu.Lock()
	s.armErr = err
	s.mu.Unlock()
}

func (s *MemoryStore) Armed(uid string) (online bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	online, ok = s.wills[uid]
	return online, ok
}

func (s *MemoryStore) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

func (s *MemoryStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allWatchers)
}

func (s *MemoryStore) ConnectionWatchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connWatchers)
}

func (s *MemoryStore) apply(uid string, online, armed bool) {
	s.records[uid] = entity.PresenceRecord{UID: uid, IsOnline: online, LastChanged: s.now().UTC()}
	s.writes = append(s.writes, Write{UID: uid, Online: online, Armed: armed})
}

func (s *MemoryStore) snapshot() map[string]entity.PresenceRecord {
	out := make(map[string]entity.PresenceRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) notifications() func() {
	fns := make([]func(map[string]entity.PresenceRecord), 0, len(s.allWatchers))
	snaps := make([]map[string]entity.PresenceRecord, 0, len(s.allWatchers))
	for _, fn := range s.allWatchers {
		fns = append(fns, fn)
		snaps = append(snaps, s.snapshot())
	}
	return func() {
		for i, fn := range fns {
			fn(snaps[i])
		}
	}
}

func (s *MemoryStore) connectionNotifications(connected bool) func() {
	fns := make([]func(bool), 0, len(s.connWatchers))
	for _, fn := range s.connWatchers {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(connected)
		}
	}
}
