package usecase

import (
	"context"
	"fmt"
	"strings"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/infrastructure/ratelimit"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

const pollAnnouncementFormat = "📊 A new poll has been started: %s"

type PollUseCase struct {
	pollRepo    repository.PollRepository
	messages    *MessageUseCase
	directory   *Directory
	rateLimiter *ratelimit.RateLimiter
}

func NewPollUseCase(pollRepo repository.PollRepository, messages *MessageUseCase, directory *Directory, rateLimiter *ratelimit.RateLimiter) *PollUseCase {
	return &PollUseCase{
		pollRepo:    pollRepo,
		messages:    messages,
		directory:   directory,
		rateLimiter: rateLimiter,
	}
}

type CreatePollInput struct {
	PaperID  string   `json:"paper_id" validate:"required"`
	TopicID  string   `json:"topic_id"`
	Question string   `json:"question" validate:"required,max=500"`
	Options  []string `json:"options" validate:"required,max=10,dive,max=200"`
}

// CreatePoll stores the poll and announces it in the paper's topic chat as a
// poll message from the creator.
func (uc *PollUseCase) CreatePoll(ctx context.Context, userID string, input CreatePollInput) (*entity.Poll, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to create polls")
	}
	input.Question = strings.TrimSpace(input.Question)
	var options []entity.PollOption
	for _, o := range input.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, entity.PollOption{Text: o})
		}
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if len(options) < entity.MinPollOptions {
		return nil, errors.Validation(fmt.Sprintf("A poll needs at least %d non-empty options", entity.MinPollOptions), nil)
	}

	staff, err := uc.directory.IsStaff(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, errors.Forbidden("Only staff can create polls", nil)
	}
	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionCreatePoll); !allowed {
		return nil, errors.TooManyRequests("You are creating polls too quickly", wait)
	}

	topicID := input.TopicID
	if topicID == "" {
		topicID = entity.DefaultTopicID
	}
	poll := &entity.Poll{
		PaperID:   input.PaperID,
		TopicID:   topicID,
		Question:  input.Question,
		Options:   options,
		CreatorID: userID,
		Voters:    []string{},
	}
	if err := uc.pollRepo.Create(ctx, poll); err != nil {
		logger.Error("CreatePoll Error: Failed to create poll in %s/%s: %v", input.PaperID, topicID, err)
		return nil, err
	}

	_, err = uc.messages.SendMessage(ctx, userID, SendMessageInput{
		ChatID:      poll.PaperID,
		ChatKind:    entity.ChatKindGroup,
		TopicID:     poll.TopicID,
		Content:     fmt.Sprintf(pollAnnouncementFormat, poll.Question),
		MessageType: entity.MessageTypePoll,
		PollID:      poll.ID,
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

func (uc *PollUseCase) Vote(ctx context.Context, userID, pollID string, option int) (*entity.Poll, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to vote")
	}
	return uc.pollRepo.Vote(ctx, pollID, userID, option)
}

func (uc *PollUseCase) GetPoll(ctx context.Context, pollID string) (*entity.Poll, error) {
	return uc.pollRepo.GetByID(ctx, pollID)
}
