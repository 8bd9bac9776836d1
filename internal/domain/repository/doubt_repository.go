package repository

import (
	"context"

	"studyhub/internal/domain/entity"
	"studyhub/pkg/errors"
)

type DoubtRepository interface {
	Create(ctx context.Context, doubt *entity.Doubt) error
	GetByID(ctx context.Context, id string) (*entity.Doubt, error)
	// ClaimUnassigned assigns facultyID only if the doubt is still unassigned,
	// as one atomic conditional update. It reports whether this call won.
	ClaimUnassigned(ctx context.Context, doubtID, facultyID string) (bool, error)
	// Resolve moves an assigned doubt to resolved. Any other current status is
	// a TRANSACTION_CONFLICT and leaves the doubt untouched.
	Resolve(ctx context.Context, doubtID, resolverID string) (*entity.Doubt, error)
	ListByPaper(ctx context.Context, paperID string) ([]*entity.Doubt, error)
	ListByStudent(ctx context.Context, studentID string) ([]*entity.Doubt, error)
	Watch(ctx context.Context, doubtID string, fn func(*entity.Doubt)) (Subscription, error)
}

type RatingRepository interface {
	// Submit atomically adds rating to the faculty aggregate, inserts it and
	// marks the doubt rated. The doubt must be resolved, unrated, owned by
	// rating.StudentID and assigned to rating.FacultyID when the transaction
	// reads it; otherwise TRANSACTION_CONFLICT.
	Submit(ctx context.Context, rating *entity.Rating) error
	ListByFaculty(ctx context.Context, facultyID string) ([]*entity.Rating, error)
}

// CheckRatable holds the preconditions a rating transaction re-validates
// against the doubt it just read.
func CheckRatable(d *entity.Doubt, rating *entity.Rating) error {
	switch {
	case d.StudentID != rating.StudentID:
		return errors.Forbidden("Only the student who asked this doubt can rate it", nil)
	case d.Status != entity.DoubtStatusResolved:
		return errors.TransactionConflict("Doubt is not resolved yet", nil)
	case d.Rated:
		return errors.TransactionConflict("Doubt has already been rated", nil)
	case d.AssignedFacultyID == "" || d.AssignedFacultyID != rating.FacultyID:
		return errors.TransactionConflict("Doubt was not handled by this faculty member", nil)
	}
	return nil
}
