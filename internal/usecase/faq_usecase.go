package usecase

import (
	"context"
	"fmt"
	"strings"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

// faqAnswerWindow is how many messages after the question are scanned when
// drafting an answer.
const faqAnswerWindow = 4

type FAQUseCase struct {
	faqRepo     repository.FAQRepository
	messageRepo repository.MessageRepository
	directory   *Directory
}

func NewFAQUseCase(faqRepo repository.FAQRepository, messageRepo repository.MessageRepository, directory *Directory) *FAQUseCase {
	return &FAQUseCase{
		faqRepo:     faqRepo,
		messageRepo: messageRepo,
		directory:   directory,
	}
}

type SaveFAQInput struct {
	PaperID         string `json:"paper_id" validate:"required"`
	TopicID         string `json:"topic_id"`
	QuestionText    string `json:"question_text" validate:"required,max=4000"`
	AnswerText      string `json:"answer_text" validate:"required,max=8000"`
	SourceMessageID string `json:"source_message_id"`
}

// FAQDraft is a question prefilled from a topic message with an answer
// assembled from the replies that follow it.
type FAQDraft struct {
	PaperID         string `json:"paper_id"`
	TopicID         string `json:"topic_id"`
	QuestionText    string `json:"question_text"`
	AnswerText      string `json:"answer_text"`
	SourceMessageID string `json:"source_message_id"`
}

func (uc *FAQUseCase) requireStaff(ctx context.Context, userID, action string) error {
	if userID == "" {
		return errors.Unauthenticated(fmt.Sprintf("You must be signed in to %s", action))
	}
	staff, err := uc.directory.IsStaff(ctx, userID)
	if err != nil {
		return err
	}
	if !staff {
		return errors.Forbidden(fmt.Sprintf("Only staff can %s", action), nil)
	}
	return nil
}

func (uc *FAQUseCase) SaveFAQ(ctx context.Context, staffID string, input SaveFAQInput) (*entity.FAQ, error) {
	input.QuestionText = strings.TrimSpace(input.QuestionText)
	input.AnswerText = strings.TrimSpace(input.AnswerText)
	if err := uc.requireStaff(ctx, staffID, "save FAQs"); err != nil {
		return nil, err
	}
	if input.QuestionText == "" || input.AnswerText == "" {
		return nil, errors.Validation("Please provide both a question and an answer", nil)
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.TopicID == "" {
		input.TopicID = entity.DefaultTopicID
	}

	faq := &entity.FAQ{
		PaperID:         input.PaperID,
		TopicID:         input.TopicID,
		QuestionText:    input.QuestionText,
		AnswerText:      input.AnswerText,
		AnswerMediaType: entity.MessageTypeText,
		SourceMessageID: input.SourceMessageID,
		Provenance:      entity.FAQProvenance{SavedByID: staffID},
	}
	if err := uc.faqRepo.Create(ctx, faq); err != nil {
		logger.Error("SaveFAQ Error: Failed to save FAQ in %s/%s: %v", faq.PaperID, faq.TopicID, err)
		return nil, err
	}
	logger.Info("FAQ %s saved in %s/%s by %s", faq.ID, faq.PaperID, faq.TopicID, staffID)
	return faq, nil
}

func (uc *FAQUseCase) ListFAQs(ctx context.Context, userID, paperID, topicID string) ([]*entity.FAQ, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to view FAQs")
	}
	if paperID == "" {
		return nil, errors.Validation("paper id is required", nil)
	}
	if topicID == "" {
		topicID = entity.DefaultTopicID
	}
	return uc.faqRepo.ListByTopic(ctx, paperID, topicID)
}

// DraftFAQ turns a text message in a topic chat into a question and collects
// the text replies among the next few messages as its answer, each prefixed
// with the sender's display name.
func (uc *FAQUseCase) DraftFAQ(ctx context.Context, staffID, paperID, topicID, messageID string) (*FAQDraft, error) {
	if err := uc.requireStaff(ctx, staffID, "save FAQs"); err != nil {
		return nil, err
	}
	ref := entity.ChatRef{Kind: entity.ChatKindGroup, ChatID: paperID, TopicID: topicID}.Normalize()
	messages, err := uc.messageRepo.ListByChat(ctx, ref, 0)
	if err != nil {
		return nil, err
	}

	start := -1
	for i, m := range messages {
		if m.ID == messageID {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errors.NotFound("Message", nil)
	}
	question := messages[start]
	if question.MessageType != entity.MessageTypeText {
		return nil, errors.Validation("Only text messages can become FAQs", nil)
	}

	var answer strings.Builder
	end := min(len(messages), start+1+faqAnswerWindow)
	for _, m := range messages[start+1 : end] {
		if m.MessageType != entity.MessageTypeText || m.SenderID == entity.SystemSenderID {
			continue
		}
		name := uc.directory.DisplayName(ctx, m.SenderID, m.SenderID)
		fmt.Fprintf(&answer, "%s: %s\n\n", name, m.Content)
	}

	return &FAQDraft{
		PaperID:         ref.ChatID,
		TopicID:         ref.TopicID,
		QuestionText:    question.Content,
		AnswerText:      strings.TrimSpace(answer.String()),
		SourceMessageID: question.ID,
	}, nil
}
