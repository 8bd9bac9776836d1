package memory

import (
	"context"
	"sort"
	"strings"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type conversationRepository struct {
	store *Store
}

func NewConversationRepository(store *Store) repository.ConversationRepository {
	return &conversationRepository{store: store}
}

func (r *conversationRepository) EnsureDirect(ctx context.Context, id string, participants []string) (*entity.Conversation, error) {
	return r.ensure(ctx, entity.ChatKindDM, id, func(c *entity.Conversation) {
		c.Participants = append([]string(nil), participants...)
	})
}

func (r *conversationRepository) EnsureSupport(ctx context.Context, id, studentID, teamID string) (*entity.Conversation, error) {
	return r.ensure(ctx, entity.ChatKindSupport, id, func(c *entity.Conversation) {
		c.StudentID = studentID
		c.TeamID = teamID
	})
}

// ensure merges the identity fields into the conversation, creating it if
// missing. Existing lastMessage and createdAt are kept.
func (r *conversationRepository) ensure(ctx context.Context, kind entity.ChatKind, id string, apply func(*entity.Conversation)) (*entity.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("conversations.ensure"); err != nil {
		return nil, errors.BackendUnavailable("Failed to open conversation", err)
	}

	key := conversationKey(kind, id)
	now := s.stamp()
	conv, ok := s.conversations[key]
	if !ok {
		conv = &entity.Conversation{ID: id}
		s.conversations[key] = conv
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	apply(conv)
	return cloneConversation(conv), nil
}

func (r *conversationRepository) GetByID(ctx context.Context, kind entity.ChatKind, id string) (*entity.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("conversations.get"); err != nil {
		return nil, errors.BackendUnavailable("Failed to get conversation", err)
	}
	conv, ok := s.conversations[conversationKey(kind, id)]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(conv), nil
}

func (r *conversationRepository) ListDirect(ctx context.Context, uid string) ([]*entity.Conversation, error) {
	return r.list(entity.ChatKindDM, func(c *entity.Conversation) bool {
		return c.HasParticipant(uid)
	})
}

func (r *conversationRepository) ListSupport(ctx context.Context, filter repository.SupportFilter) ([]*entity.Conversation, error) {
	return r.list(entity.ChatKindSupport, func(c *entity.Conversation) bool {
		if filter.StudentID != "" && c.StudentID != filter.StudentID {
			return false
		}
		if filter.TeamID != "" && c.TeamID != filter.TeamID {
			return false
		}
		return true
	})
}

func (r *conversationRepository) list(kind entity.ChatKind, keep func(*entity.Conversation) bool) ([]*entity.Conversation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("conversations.list"); err != nil {
		return nil, errors.BackendUnavailable("Failed to list conversations", err)
	}

	prefix := string(kind) + ":"
	var out []*entity.Conversation
	for key, c := range s.conversations {
		if !strings.HasPrefix(key, prefix) || !keep(c) {
			continue
		}
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
