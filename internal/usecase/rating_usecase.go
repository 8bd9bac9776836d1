package usecase

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/domain/service"
	"studyhub/internal/infrastructure/metrics"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

type RatingUseCase struct {
	ratingRepo repository.RatingRepository
	directory  *Directory
	events     service.EventPublisher
}

func NewRatingUseCase(ratingRepo repository.RatingRepository, directory *Directory, events service.EventPublisher) *RatingUseCase {
	return &RatingUseCase{
		ratingRepo: ratingRepo,
		directory:  directory,
		events:     events,
	}
}

type SubmitRatingInput struct {
	DoubtID   string `json:"doubt_id" validate:"required"`
	FacultyID string `json:"faculty_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	PaperID   string `json:"paper_id" validate:"required"`
	Rating    int    `json:"rating" validate:"gte=1,lte=5"`
	Comment   string `json:"comment" validate:"max=1000"`
}

// SubmitRating records the student's rating of the faculty member who
// resolved the doubt. The aggregate update, the rating insert and the rated
// flag commit together or not at all.
func (uc *RatingUseCase) SubmitRating(ctx context.Context, userID string, input SubmitRatingInput) (rating *entity.Rating, err error) {
	ctx, span := startSpan(ctx, "RatingUseCase.SubmitRating", attribute.String("doubt.id", input.DoubtID))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return nil, errors.Unauthenticated("You must be signed in to rate")
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.StudentID != userID {
		return nil, errors.Forbidden("You can only rate your own doubts", nil)
	}

	rating = &entity.Rating{
		DoubtID:   input.DoubtID,
		FacultyID: input.FacultyID,
		StudentID: input.StudentID,
		PaperID:   input.PaperID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if err := uc.ratingRepo.Submit(ctx, rating); err != nil {
		logger.Error("SubmitRating Error: Failed to rate doubt %s: %v", input.DoubtID, err)
		return nil, err
	}
	uc.directory.Invalidate(input.FacultyID)
	metrics.RatingsSubmitted.Observe(float64(input.Rating))

	publish(ctx, uc.events, entity.DomainEvent{
		Type:       entity.EventRatingSubmitted,
		DoubtID:    input.DoubtID,
		PaperID:    input.PaperID,
		ActorID:    userID,
		FacultyID:  input.FacultyID,
		Rating:     input.Rating,
		OccurredAt: time.Now().UTC(),
	})
	return rating, nil
}

// FacultyRating returns the aggregate with the average derived at read time.
func (uc *RatingUseCase) FacultyRating(ctx context.Context, facultyID string) (*entity.RatingSummary, error) {
	user, err := uc.directory.Lookup(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	summary := user.RatingSummary()
	return &summary, nil
}

func (uc *RatingUseCase) ListFacultyRatings(ctx context.Context, userID, facultyID string) ([]*entity.Rating, error) {
	if userID != facultyID {
		staff, err := uc.directory.IsStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, errors.Forbidden("Only staff can view another member's ratings", nil)
		}
	}
	return uc.ratingRepo.ListByFaculty(ctx, facultyID)
}
