package usecase

import (
	"context"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	directory        *Directory
}

func NewConversationUseCase(conversationRepo repository.ConversationRepository, directory *Directory) *ConversationUseCase {
	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		directory:        directory,
	}
}

// StartDirectMessage opens (or reopens) the dm between userID and otherUserID.
// Both users resolve to the same conversation id.
func (uc *ConversationUseCase) StartDirectMessage(ctx context.Context, userID, otherUserID string) (*entity.Conversation, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to start a conversation")
	}
	if otherUserID == "" || otherUserID == userID {
		return nil, errors.Validation("A different recipient is required", nil)
	}
	if _, err := uc.directory.Lookup(ctx, otherUserID); err != nil {
		return nil, err
	}

	id := entity.DirectConversationID(userID, otherUserID)
	if _, _, ok := entity.ParseDirectConversationID(id); !ok {
		return nil, errors.Validation("User ids containing '_' cannot start a conversation", nil)
	}
	participants := []string{userID, otherUserID}
	if userID > otherUserID {
		participants = []string{otherUserID, userID}
	}
	conv, err := uc.conversationRepo.EnsureDirect(ctx, id, participants)
	if err != nil {
		logger.Error("StartDirectMessage Error: Failed to open %s: %v", id, err)
		return nil, err
	}
	return conv, nil
}

func (uc *ConversationUseCase) StartSupportChat(ctx context.Context, userID, teamID string) (*entity.Conversation, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to contact support")
	}
	if teamID == "" {
		return nil, errors.Validation("team id is required", nil)
	}

	id := entity.SupportConversationID(userID, teamID)
	if _, _, ok := entity.ParseSupportConversationID(id); !ok {
		return nil, errors.Validation("Ids containing '_' cannot start a support conversation", nil)
	}
	conv, err := uc.conversationRepo.EnsureSupport(ctx, id, userID, teamID)
	if err != nil {
		logger.Error("StartSupportChat Error: Failed to open %s: %v", id, err)
		return nil, err
	}
	return conv, nil
}

// ListConversations lists dm conversations, or support conversations when
// kind is support. Staff may pass teamID to see a team's support inbox.
func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string, kind entity.ChatKind, teamID string) ([]*entity.Conversation, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to list conversations")
	}

	switch kind {
	case entity.ChatKindDM, "":
		return uc.conversationRepo.ListDirect(ctx, userID)
	case entity.ChatKindSupport:
		if teamID == "" {
			return uc.conversationRepo.ListSupport(ctx, repository.SupportFilter{StudentID: userID})
		}
		staff, err := uc.directory.IsStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, errors.Forbidden("Only staff can view a team inbox", nil)
		}
		return uc.conversationRepo.ListSupport(ctx, repository.SupportFilter{TeamID: teamID})
	}
	return nil, errors.InvalidChatKind(string(kind))
}
