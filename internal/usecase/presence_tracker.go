package usecase

import (
	"context"
	"sync"

	"studyhub/internal/domain/repository"
	"studyhub/internal/infrastructure/metrics"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

// PresenceTracker publishes the online state of signed-in users and keeps a
// process-wide mirror of everyone's presence in its cache. The mirror
// subscription is shared by all active sessions.
//
// A user holding several sessions shares one store link: the offline write
// is armed and online declared for the first session, and the user goes
// offline only when the last one ends.
type PresenceTracker struct {
	store    repository.PresenceStore
	settings repository.SettingsRepository
	cache    *PresenceCache

	mu         sync.Mutex
	mirror     repository.Subscription
	mirrorRefs int

	linksMu sync.Mutex
	links   map[string]*presenceLink
}

func NewPresenceTracker(store repository.PresenceStore, settings repository.SettingsRepository, cache *PresenceCache) *PresenceTracker {
	return &PresenceTracker{
		store:    store,
		settings: settings,
		cache:    cache,
		links:    make(map[string]*presenceLink),
	}
}

func (t *PresenceTracker) Cache() *PresenceCache {
	return t.cache
}

// Enabled reads the global feature flag. A failed read disables presence.
func (t *PresenceTracker) Enabled(ctx context.Context) bool {
	s, err := t.settings.GetGlobal(ctx)
	if err != nil {
		logger.Warn("presence disabled: failed to read global settings: %v", err)
		return false
	}
	return s.PresenceEnabled
}

// Sessions reports how many active sessions uid holds in this process.
func (t *PresenceTracker) Sessions(uid string) int {
	t.linksMu.Lock()
	defer t.linksMu.Unlock()
	if link, ok := t.links[uid]; ok {
		return link.refs
	}
	return 0
}

// presenceLink is the store connection shared by all of one user's sessions.
type presenceLink struct {
	uid    string
	refs   int
	cancel context.CancelFunc
	conn   repository.Subscription

	mu     sync.Mutex
	closed bool
}

// PresenceSession is one user's activation. An inert session (feature off)
// never touches the store.
type PresenceSession struct {
	tracker *PresenceTracker
	uid     string
	active  bool
	link    *presenceLink
	once    sync.Once
}

func (s *PresenceSession) Active() bool {
	return s.active
}

func (s *PresenceSession) UID() string {
	return s.uid
}

// Activate starts tracking uid. On every (re)connection the offline write is
// armed before online is declared, so a drop can never leave a stale online.
func (t *PresenceTracker) Activate(ctx context.Context, uid string) (*PresenceSession, error) {
	if uid == "" {
		return nil, errors.Unauthenticated("Presence requires a signed-in user")
	}
	session := &PresenceSession{tracker: t, uid: uid}
	if !t.Enabled(ctx) {
		return session, nil
	}

	t.linksMu.Lock()
	defer t.linksMu.Unlock()

	link, ok := t.links[uid]
	if !ok {
		var err error
		link, err = t.openLink(ctx, uid)
		if err != nil {
			return nil, errors.BackendUnavailable("Failed to start presence", err)
		}
		t.links[uid] = link
	}
	link.refs++

	session.active = true
	session.link = link
	metrics.PresenceSessions.Inc()
	logger.Debug("presence activated for %s (%d sessions)", uid, link.refs)
	return session, nil
}

func (t *PresenceTracker) openLink(ctx context.Context, uid string) (*presenceLink, error) {
	if err := t.acquireMirror(ctx); err != nil {
		return nil, err
	}

	link := &presenceLink{uid: uid}
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	conn, err := t.store.WatchConnection(lctx, uid, func(connected bool) {
		if connected {
			t.declareOnline(lctx, link)
		}
	})
	if err != nil {
		cancel()
		t.releaseMirror()
		return nil, err
	}
	link.cancel = cancel
	link.conn = conn
	return link, nil
}

func (t *PresenceTracker) declareOnline(ctx context.Context, link *presenceLink) {
	link.mu.Lock()
	defer link.mu.Unlock()
	if link.closed {
		return
	}

	if err := t.store.OnDisconnect(ctx, link.uid, false); err != nil {
		logger.Warn("presence: not declaring %s online, failed to arm offline write: %v", link.uid, err)
		return
	}
	if err := t.store.Set(ctx, link.uid, true); err != nil {
		logger.Warn("presence: failed to mark %s online: %v", link.uid, err)
	}
}

// Deactivate ends this session. The last session of a user marks it
// offline and releases every listener. It is safe to call more than once.
func (s *PresenceSession) Deactivate(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		if !s.active {
			return
		}
		metrics.PresenceSessions.Dec()
		err = s.tracker.release(ctx, s.link)
	})
	return err
}

func (t *PresenceTracker) release(ctx context.Context, link *presenceLink) error {
	t.linksMu.Lock()
	defer t.linksMu.Unlock()

	link.refs--
	if link.refs > 0 {
		logger.Debug("presence session closed for %s (%d remaining)", link.uid, link.refs)
		return nil
	}
	delete(t.links, link.uid)

	link.mu.Lock()
	link.closed = true
	err := t.store.Set(ctx, link.uid, false)
	link.mu.Unlock()
	if err != nil {
		logger.Warn("presence: failed to mark %s offline: %v", link.uid, err)
	}

	link.conn.Detach()
	link.cancel()
	t.releaseMirror()
	logger.Debug("presence deactivated for %s", link.uid)
	return err
}

func (t *PresenceTracker) acquireMirror(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mirrorRefs == 0 {
		sub, err := t.store.SubscribeAll(context.WithoutCancel(ctx), t.cache.Replace)
		if err != nil {
			return err
		}
		t.mirror = sub
	}
	t.mirrorRefs++
	return nil
}

func (t *PresenceTracker) releaseMirror() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mirrorRefs == 0 {
		return
	}
	t.mirrorRefs--
	if t.mirrorRefs == 0 {
		t.mirror.Detach()
		t.mirror = nil
		t.cache.Reset()
	}
}
