package repository

import (
	"context"

	"studyhub/internal/domain/entity"
)

type MessageRepository interface {
	// Create stores msg in the collection addressed by ref and assigns its ID.
	// For dm and support chats the parent conversation's lastMessage and
	// updatedAt are merged in the same atomic write, creating the parent if needed.
	Create(ctx context.Context, ref entity.ChatRef, msg *entity.Message) error
	// ListByChat returns messages ascending by timestamp. limit <= 0 means all.
	ListByChat(ctx context.Context, ref entity.ChatRef, limit int) ([]*entity.Message, error)
	MarkSeen(ctx context.Context, ref entity.ChatRef, messageID, uid string) error
	// Subscribe delivers the full ordered message list on every change.
	Subscribe(ctx context.Context, ref entity.ChatRef, fn func([]*entity.Message)) (Subscription, error)
}

type ConversationRepository interface {
	EnsureDirect(ctx context.Context, id string, participants []string) (*entity.Conversation, error)
	EnsureSupport(ctx context.Context, id, studentID, teamID string) (*entity.Conversation, error)
	GetByID(ctx context.Context, kind entity.ChatKind, id string) (*entity.Conversation, error)
	// ListDirect returns the user's dm conversations, newest activity first.
	ListDirect(ctx context.Context, uid string) ([]*entity.Conversation, error)
	// ListSupport filters by student or team; newest activity first.
	ListSupport(ctx context.Context, filter SupportFilter) ([]*entity.Conversation, error)
}

type SupportFilter struct {
	StudentID string
	TeamID    string
}
