package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) repository.MessageRepository {
	return &messageRepository{store: store}
}

func conversationKey(kind entity.ChatKind, id string) string {
	return string(kind) + ":" + id
}

func (r *messageRepository) Create(ctx context.Context, ref entity.ChatRef, msg *entity.Message) error {
	s := r.store
	ref = ref.Normalize()

	s.mu.Lock()
	if err := s.failure("messages.create"); err != nil {
		s.mu.Unlock()
		return errors.BackendUnavailable("Failed to create message", err)
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Address(ref)
	msg.Timestamp = s.stamp()
	if msg.SeenBy == nil {
		msg.SeenBy = []string{}
	}

	key := ref.Key()
	s.messages[key] = append(s.messages[key], cloneMessage(msg))

	if ref.Kind == entity.ChatKindDM || ref.Kind == entity.ChatKindSupport {
		ck := conversationKey(ref.Kind, ref.ChatID)
		conv, ok := s.conversations[ck]
		if !ok {
			conv = &entity.Conversation{ID: ref.ChatID}
			s.conversations[ck] = conv
		}
		conv.LastMessage = cloneMessage(msg)
		conv.UpdatedAt = msg.Timestamp
	}

	notify := s.messageNotifications(key)
	s.mu.Unlock()

	notify()
	return nil
}

// messageNotifications snapshots watchers of key. Must be called with mu held;
// the returned func runs the callbacks and must be called without it.
func (s *Store) messageNotifications(key string) func() {
	watchers := s.msgWatchers[key]
	if len(watchers) == 0 {
		return func() {}
	}
	seq := s.nextSeq()
	targets := make([]*watcher[[]*entity.Message], 0, len(watchers))
	lists := make([][]*entity.Message, 0, len(watchers))
	for _, w := range watchers {
		targets = append(targets, w)
		lists = append(lists, cloneMessages(s.messages[key]))
	}
	return func() {
		for i, w := range targets {
			w.deliver(seq, lists[i])
		}
	}
}

func (r *messageRepository) ListByChat(ctx context.Context, ref entity.ChatRef, limit int) ([]*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("messages.list"); err != nil {
		return nil, errors.BackendUnavailable("Failed to list messages", err)
	}

	list := s.messages[ref.Key()]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := cloneMessages(list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *messageRepository) MarkSeen(ctx context.Context, ref entity.ChatRef, messageID, uid string) error {
	s := r.store
	s.mu.Lock()

	if err := s.failure("messages.seen"); err != nil {
		s.mu.Unlock()
		return errors.BackendUnavailable("Failed to update message", err)
	}

	key := ref.Key()
	for _, m := range s.messages[key] {
		if m.ID != messageID {
			continue
		}
		if m.SeenByUser(uid) {
			s.mu.Unlock()
			return nil
		}
		m.SeenBy = append(m.SeenBy, uid)
		notify := s.messageNotifications(key)
		s.mu.Unlock()
		notify()
		return nil
	}
	s.mu.Unlock()
	return errors.NotFound("Message", nil)
}

func (r *messageRepository) Subscribe(ctx context.Context, ref entity.ChatRef, fn func([]*entity.Message)) (repository.Subscription, error) {
	s := r.store
	key := ref.Key()

	s.mu.Lock()
	if err := s.failure("messages.subscribe"); err != nil {
		s.mu.Unlock()
		return nil, errors.BackendUnavailable("Failed to subscribe to messages", err)
	}
	id, sub := s.newSubscription(func(id int) {
		delete(s.msgWatchers[key], id)
	})
	if s.msgWatchers[key] == nil {
		s.msgWatchers[key] = make(map[int]*watcher[[]*entity.Message])
	}
	w := &watcher[[]*entity.Message]{fn: fn}
	s.msgWatchers[key][id] = w
	seq := s.nextSeq()
	initial := cloneMessages(s.messages[key])
	s.mu.Unlock()

	w.deliver(seq, initial)
	return sub, nil
}
