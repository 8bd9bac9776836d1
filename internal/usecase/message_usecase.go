package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/domain/service"
	"studyhub/internal/infrastructure/metrics"
	"studyhub/internal/infrastructure/ratelimit"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

const (
	claimNoticeFormat = "%s has taken this doubt."
	resolvedNotice    = "This doubt has been marked as resolved."
	sendFailedMessage = "Failed to send message"
)

type MessageUseCase struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	doubtRepo        repository.DoubtRepository
	directory        *Directory
	events           service.EventPublisher
	rateLimiter      *ratelimit.RateLimiter
}

func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	doubtRepo repository.DoubtRepository,
	directory *Directory,
	events service.EventPublisher,
	rateLimiter *ratelimit.RateLimiter,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		doubtRepo:        doubtRepo,
		directory:        directory,
		events:           events,
		rateLimiter:      rateLimiter,
	}
}

type SendMessageInput struct {
	ChatID      string             `json:"chat_id" validate:"required"`
	ChatKind    entity.ChatKind    `json:"chat_kind" validate:"required"`
	Content     string             `json:"content" validate:"required,max=4000"`
	MessageType entity.MessageType `json:"message_type"`
	FileName    string             `json:"file_name,omitempty"`
	PollID      string             `json:"poll_id,omitempty"`
	// TopicID applies to group chats only and defaults to "general".
	TopicID string `json:"topic_id,omitempty"`
}

// SendMessage writes one message from userID into the addressed chat and
// returns its id. Replying to an unassigned doubt as staff claims it first.
func (uc *MessageUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (id string, err error) {
	ctx, span := startSpan(ctx, "MessageUseCase.SendMessage",
		attribute.String("chat.kind", string(input.ChatKind)),
		attribute.String("chat.id", input.ChatID),
	)
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return "", errors.Unauthenticated("You must be signed in to send messages")
	}
	if !input.ChatKind.Valid() {
		return "", errors.InvalidChatKind(string(input.ChatKind))
	}
	if input.MessageType == "" {
		input.MessageType = entity.MessageTypeText
	}
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return "", err
	}
	if !input.MessageType.UserPostable() {
		return "", errors.Validation(fmt.Sprintf("Message type %q cannot be sent", input.MessageType), nil)
	}
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("SendMessage Rate Limited: User %s must wait %v", userID, wait)
		return "", errors.TooManyRequests("You are sending messages too quickly", wait)
	}

	ref := entity.ChatRef{Kind: input.ChatKind, ChatID: input.ChatID, TopicID: input.TopicID}.Normalize()

	switch ref.Kind {
	case entity.ChatKindDoubt:
		if err := uc.claimOnReply(ctx, userID, ref); err != nil {
			return "", err
		}
	case entity.ChatKindDM:
		if err := uc.authorizeDirect(ctx, userID, ref.ChatID); err != nil {
			return "", err
		}
	case entity.ChatKindSupport:
		if err := uc.authorizeSupport(ctx, userID, ref.ChatID); err != nil {
			return "", err
		}
	}

	message := &entity.Message{
		SenderID:    userID,
		Content:     input.Content,
		MessageType: input.MessageType,
		SeenBy:      []string{userID},
		FileName:    input.FileName,
		PollID:      input.PollID,
	}
	if err := uc.messageRepo.Create(ctx, ref, message); err != nil {
		logger.Error("SendMessage Error: Failed to write message to %s: %v", ref.Key(), err)
		return "", errors.BackendUnavailable(sendFailedMessage, err)
	}

	metrics.MessagesSent.WithLabelValues(string(ref.Kind), string(message.MessageType)).Inc()
	return message.ID, nil
}

// claimOnReply authorizes a doubt reply and, for staff replying to an
// unassigned doubt, runs the atomic claim. Only the winner posts the notice.
func (uc *MessageUseCase) claimOnReply(ctx context.Context, userID string, ref entity.ChatRef) error {
	doubt, err := uc.doubtRepo.GetByID(ctx, ref.ChatID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return err
		}
		return errors.BackendUnavailable(sendFailedMessage, err)
	}

	role, err := uc.directory.Role(ctx, userID)
	if err != nil {
		return errors.BackendUnavailable(sendFailedMessage, err)
	}
	if !role.IsStaff() {
		if doubt.StudentID != userID {
			return errors.Forbidden("Only the student who asked this doubt or staff can reply", nil)
		}
		return nil
	}
	if doubt.Status != entity.DoubtStatusUnassigned {
		return nil
	}

	won, err := uc.doubtRepo.ClaimUnassigned(ctx, doubt.ID, userID)
	if err != nil {
		logger.Error("SendMessage Error: Failed to claim doubt %s for %s: %v", doubt.ID, userID, err)
		return errors.BackendUnavailable(sendFailedMessage, err)
	}
	if !won {
		metrics.DoubtClaims.WithLabelValues("lost").Inc()
		return nil
	}
	metrics.DoubtClaims.WithLabelValues("won").Inc()
	metrics.DoubtTransitions.WithLabelValues(string(entity.DoubtStatusAssigned)).Inc()

	name := uc.directory.DisplayName(ctx, userID, DefaultFacultyName)
	if _, err := uc.SendSystemMessage(ctx, ref, fmt.Sprintf(claimNoticeFormat, name)); err != nil {
		return err
	}
	logger.Info("Doubt %s assigned to %s", doubt.ID, userID)

	publish(ctx, uc.events, entity.DomainEvent{
		Type:       entity.EventDoubtAssigned,
		DoubtID:    doubt.ID,
		PaperID:    doubt.PaperID,
		ActorID:    userID,
		FacultyID:  userID,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (uc *MessageUseCase) authorizeDirect(ctx context.Context, userID, chatID string) error {
	a, b, ok := entity.ParseDirectConversationID(chatID)
	if !ok {
		return errors.Validation("Direct conversation id must be two user ids joined in sorted order", nil)
	}
	conv, err := uc.conversationRepo.GetByID(ctx, entity.ChatKindDM, chatID)
	switch {
	case err == nil && len(conv.Participants) > 0:
		if !conv.HasParticipant(userID) {
			return errors.Forbidden("You are not a participant in this conversation", nil)
		}
		return nil
	case err == nil, errors.Is(err, errors.CodeNotFound):
		if a == userID || b == userID {
			return nil
		}
		return errors.Forbidden("You are not a participant in this conversation", nil)
	default:
		return errors.BackendUnavailable("Failed to load conversation", err)
	}
}

func (uc *MessageUseCase) authorizeSupport(ctx context.Context, userID, chatID string) error {
	studentID, _, ok := entity.ParseSupportConversationID(chatID)
	if !ok {
		return errors.Validation("Support conversation id must be a student id and a team id", nil)
	}
	staff, err := uc.directory.IsStaff(ctx, userID)
	if err != nil {
		return errors.BackendUnavailable(sendFailedMessage, err)
	}
	if staff {
		return nil
	}

	conv, err := uc.conversationRepo.GetByID(ctx, entity.ChatKindSupport, chatID)
	switch {
	case err == nil && conv.StudentID != "":
		if conv.StudentID != userID {
			return errors.Forbidden("This support conversation belongs to another student", nil)
		}
		return nil
	case err == nil, errors.Is(err, errors.CodeNotFound):
		if studentID != userID {
			return errors.Forbidden("This support conversation belongs to another student", nil)
		}
		return nil
	default:
		return errors.BackendUnavailable("Failed to load conversation", err)
	}
}

// SendSystemMessage posts a pipeline-authored notice into ref.
func (uc *MessageUseCase) SendSystemMessage(ctx context.Context, ref entity.ChatRef, content string) (string, error) {
	message := &entity.Message{
		SenderID:    entity.SystemSenderID,
		Content:     content,
		MessageType: entity.MessageTypeSystem,
		SeenBy:      []string{},
	}
	if err := uc.messageRepo.Create(ctx, ref, message); err != nil {
		logger.Error("SendSystemMessage Error: Failed to write system message to %s: %v", ref.Key(), err)
		return "", errors.BackendUnavailable(sendFailedMessage, err)
	}
	metrics.MessagesSent.WithLabelValues(string(ref.Kind), string(message.MessageType)).Inc()
	return message.ID, nil
}

// ListMessages returns the stream in ascending timestamp order.
func (uc *MessageUseCase) ListMessages(ctx context.Context, userID string, ref entity.ChatRef, limit int) ([]*entity.Message, error) {
	if err := uc.authorizeRead(ctx, userID, ref); err != nil {
		return nil, err
	}
	return uc.messageRepo.ListByChat(ctx, ref.Normalize(), limit)
}

// SubscribeMessages streams the full ordered list to fn until detached.
func (uc *MessageUseCase) SubscribeMessages(ctx context.Context, userID string, ref entity.ChatRef, fn func([]*entity.Message)) (repository.Subscription, error) {
	if err := uc.authorizeRead(ctx, userID, ref); err != nil {
		return nil, err
	}
	return uc.messageRepo.Subscribe(ctx, ref.Normalize(), fn)
}

func (uc *MessageUseCase) MarkSeen(ctx context.Context, userID string, ref entity.ChatRef, messageID string) error {
	if err := uc.authorizeRead(ctx, userID, ref); err != nil {
		return err
	}
	return uc.messageRepo.MarkSeen(ctx, ref.Normalize(), messageID, userID)
}

func (uc *MessageUseCase) authorizeRead(ctx context.Context, userID string, ref entity.ChatRef) error {
	if userID == "" {
		return errors.Unauthenticated("You must be signed in to read messages")
	}
	if !ref.Kind.Valid() {
		return errors.InvalidChatKind(string(ref.Kind))
	}
	if ref.ChatID == "" {
		return errors.Validation("chat id is required", nil)
	}

	switch ref.Kind {
	case entity.ChatKindDoubt:
		doubt, err := uc.doubtRepo.GetByID(ctx, ref.ChatID)
		if err != nil {
			return err
		}
		if doubt.StudentID == userID {
			return nil
		}
		staff, err := uc.directory.IsStaff(ctx, userID)
		if err != nil {
			return err
		}
		if !staff {
			return errors.Forbidden("You cannot view this doubt", nil)
		}
	case entity.ChatKindDM:
		return uc.authorizeDirect(ctx, userID, ref.ChatID)
	case entity.ChatKindSupport:
		return uc.authorizeSupport(ctx, userID, ref.ChatID)
	}
	return nil
}
