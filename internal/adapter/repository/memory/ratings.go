package memory

import (
	"context"

	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type ratingRepository struct {
	store *Store
}

func NewRatingRepository(store *Store) repository.RatingRepository {
	return &ratingRepository{store: store}
}

func (r *ratingRepository) Submit(ctx context.Context, rating *entity.Rating) error {
	s := r.store
	s.mu.Lock()

	if err := s.failure("ratings.submit"); err != nil {
		s.mu.Unlock()
		return errors.BackendUnavailable("Failed to submit rating", err)
	}

	d, ok := s.doubts[rating.DoubtID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Doubt", nil)
	}
	if err := repository.CheckRatable(d, rating); err != nil {
		s.mu.Unlock()
		return err
	}
	faculty, ok := s.users[rating.FacultyID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Faculty", nil)
	}

	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	rating.SubmittedAt = s.stamp()

	faculty.TotalRating += rating.Rating
	faculty.RatingCount++
	stored := *rating
	s.ratings = append(s.ratings, &stored)
	d.Rated = true

	notify := s.doubtNotifications(d.ID)
	s.mu.Unlock()

	notify()
	return nil
}

func (r *ratingRepository) ListByFaculty(ctx context.Context, facultyID string) ([]*entity.Rating, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("ratings.list"); err != nil {
		return nil, errors.BackendUnavailable("Failed to list ratings", err)
	}
	var out []*entity.Rating
	for _, rt := range s.ratings {
		if rt.FacultyID == facultyID {
			c := *rt
			out = append(out, &c)
		}
	}
	return out, nil
}
