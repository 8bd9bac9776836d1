package usecase

import (
	"context"
	"sort"
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

type DoubtUseCase struct {
	doubtRepo   repository.DoubtRepository
	messages    *MessageUseCase
	directory   *Directory
	slaPolicy   service.SLAPolicy
	events      service.EventPublisher
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
}

func NewDoubtUseCase(
	doubtRepo repository.DoubtRepository,
	messages *MessageUseCase,
	directory *Directory,
	slaPolicy service.SLAPolicy,
	events service.EventPublisher,
	rateLimiter *ratelimit.RateLimiter,
) *DoubtUseCase {
	return &DoubtUseCase{
		doubtRepo:   doubtRepo,
		messages:    messages,
		directory:   directory,
		slaPolicy:   slaPolicy,
		events:      events,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

type CreateDoubtInput struct {
	Title    string `json:"title" validate:"required,max=300"`
	PaperID  string `json:"paper_id" validate:"required"`
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// DoubtView is a doubt with its SLA countdown rendered at read time.
type DoubtView struct {
	*entity.Doubt
	SLALabel   string             `json:"sla_label"`
	SLAUrgency service.SLAUrgency `json:"sla_urgency"`
}

func (uc *DoubtUseCase) view(d *entity.Doubt, now time.Time) DoubtView {
	deadline := d.SLADeadline
	if d.Status == entity.DoubtStatusResolved {
		deadline = nil
	}
	return DoubtView{
		Doubt:      d,
		SLALabel:   service.SLALabel(deadline, now),
		SLAUrgency: service.Urgency(deadline, now),
	}
}

func (uc *DoubtUseCase) CreateDoubt(ctx context.Context, studentID string, input CreateDoubtInput) (*entity.Doubt, error) {
	if studentID == "" {
		return nil, errors.Unauthenticated("You must be signed in to submit a doubt")
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if allowed, wait := uc.rateLimiter.Allow(studentID, ratelimit.ActionCreateDoubt); !allowed {
		return nil, errors.TooManyRequests("You are submitting doubts too quickly", wait)
	}

	now := uc.now().UTC()
	doubt := &entity.Doubt{
		Title:         input.Title,
		PaperID:       input.PaperID,
		StudentID:     studentID,
		Status:        entity.DoubtStatusUnassigned,
		CreatedAt:     now,
		ImageURL:      input.ImageURL,
		HasScreenshot: input.ImageURL != "",
	}
	if uc.slaPolicy != nil {
		doubt.SLADeadline = uc.slaPolicy.Deadline(now, input.PaperID)
	}

	if err := uc.doubtRepo.Create(ctx, doubt); err != nil {
		logger.Error("CreateDoubt Error: Failed to create doubt for %s: %v", studentID, err)
		return nil, err
	}
	metrics.DoubtTransitions.WithLabelValues(string(entity.DoubtStatusUnassigned)).Inc()

	publish(ctx, uc.events, entity.DomainEvent{
		Type:       entity.EventDoubtCreated,
		DoubtID:    doubt.ID,
		PaperID:    doubt.PaperID,
		ActorID:    studentID,
		OccurredAt: now,
	})
	return doubt, nil
}

func (uc *DoubtUseCase) GetDoubt(ctx context.Context, userID, doubtID string) (*DoubtView, error) {
	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to view doubts")
	}
	doubt, err := uc.doubtRepo.GetByID(ctx, doubtID)
	if err != nil {
		return nil, err
	}
	if doubt.StudentID != userID {
		staff, err := uc.directory.IsStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, errors.Forbidden("You cannot view this doubt", nil)
		}
	}
	v := uc.view(doubt, uc.now())
	return &v, nil
}

// ResolveDoubt closes an assigned doubt and posts the resolution notice.
func (uc *DoubtUseCase) ResolveDoubt(ctx context.Context, staffID, doubtID string) (doubt *entity.Doubt, err error) {
	ctx, span := startSpan(ctx, "DoubtUseCase.ResolveDoubt", attribute.String("doubt.id", doubtID))
	defer func() { endSpan(span, err) }()

	if staffID == "" {
		return nil, errors.Unauthenticated("You must be signed in to resolve doubts")
	}
	staff, err := uc.directory.IsStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, errors.Forbidden("Only staff can resolve doubts", nil)
	}

	doubt, err = uc.doubtRepo.Resolve(ctx, doubtID, staffID)
	if err != nil {
		logger.Error("ResolveDoubt Error: Failed to resolve doubt %s: %v", doubtID, err)
		return nil, err
	}
	metrics.DoubtTransitions.WithLabelValues(string(entity.DoubtStatusResolved)).Inc()

	// The resolution is already committed at this point.
	if _, nerr := uc.messages.SendSystemMessage(ctx, doubt.ChatRef(), resolvedNotice); nerr != nil {
		logger.Warn("ResolveDoubt: doubt %s resolved but the notice was not posted: %v", doubt.ID, nerr)
	}

	publish(ctx, uc.events, entity.DomainEvent{
		Type:       entity.EventDoubtResolved,
		DoubtID:    doubt.ID,
		PaperID:    doubt.PaperID,
		ActorID:    staffID,
		FacultyID:  doubt.AssignedFacultyID,
		OccurredAt: uc.now().UTC(),
	})
	return doubt, nil
}

// ListPaperDoubts is the staff queue for a paper: unassigned first, then
// assigned, then resolved, newest first within a status.
func (uc *DoubtUseCase) ListPaperDoubts(ctx context.Context, staffID, paperID string) ([]DoubtView, error) {
	if staffID == "" {
		return nil, errors.Unauthenticated("You must be signed in to view doubts")
	}
	staff, err := uc.directory.IsStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, errors.Forbidden("Only staff can view the doubt queue", nil)
	}

	doubts, err := uc.doubtRepo.ListByPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(doubts, func(i, j int) bool {
		ri, rj := doubts[i].Status.Rank(), doubts[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return doubts[i].CreatedAt.After(doubts[j].CreatedAt)
	})
	return uc.views(doubts), nil
}

func (uc *DoubtUseCase) ListStudentDoubts(ctx context.Context, studentID string) ([]DoubtView, error) {
	if studentID == "" {
		return nil, errors.Unauthenticated("You must be signed in to view doubts")
	}
	doubts, err := uc.doubtRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return uc.views(doubts), nil
}

func (uc *DoubtUseCase) views(doubts []*entity.Doubt) []DoubtView {
	now := uc.now()
	out := make([]DoubtView, 0, len(doubts))
	for _, d := range doubts {
		out = append(out, uc.view(d, now))
	}
	return out
}

// WatchRatingPrompt calls prompt once each time the doubt becomes ready for
// the student's rating.
func (uc *DoubtUseCase) WatchRatingPrompt(ctx context.Context, studentID, doubtID string, prompt func(*entity.Doubt)) (repository.Subscription, error) {
	if studentID == "" {
		return nil, errors.Unauthenticated("You must be signed in to watch doubts")
	}
	doubt, err := uc.doubtRepo.GetByID(ctx, doubtID)
	if err != nil {
		return nil, err
	}
	if doubt.StudentID != studentID {
		return nil, errors.Forbidden("Only the student who asked this doubt can rate it", nil)
	}

	prompted := false
	return uc.doubtRepo.Watch(ctx, doubtID, func(d *entity.Doubt) {
		if d.AwaitingRating() {
			if !prompted {
				prompted = true
				prompt(d)
			}
			return
		}
		prompted = false
	})
}
