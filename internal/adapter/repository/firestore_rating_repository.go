package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

type firestoreRatingRepository struct {
	client *firestore.Client
}

func NewFirestoreRatingRepository(client *firestore.Client) repository.RatingRepository {
	return &firestoreRatingRepository{
		client: client,
	}
}

func (r *firestoreRatingRepository) Submit(ctx context.Context, rating *entity.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	doubtRef := r.client.Collection("doubts").Doc(rating.DoubtID)
	facultyRef := r.client.Collection("users").Doc(rating.FacultyID)
	ratingRef := r.client.Collection("ratings").Doc(rating.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(doubtRef)
		if err != nil {
			return err
		}
		doubt, err := decodeDoubt(doc)
		if err != nil {
			return err
		}
		if err := repository.CheckRatable(doubt, rating); err != nil {
			return err
		}
		if _, err := tx.Get(facultyRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Faculty", err)
			}
			return err
		}

		if err := tx.Update(facultyRef, []firestore.Update{
			{Path: "totalRating", Value: firestore.Increment(rating.Rating)},
			{Path: "ratingCount", Value: firestore.Increment(1)},
		}); err != nil {
			return err
		}
		if err := tx.Create(ratingRef, rating); err != nil {
			return err
		}
		return tx.Update(doubtRef, []firestore.Update{{Path: "rated", Value: true}})
	})
	if err != nil {
		logger.Error("Firestore error while rating doubt %s: %v", rating.DoubtID, err)
		return mapFirestoreError(err, "Doubt", "submit rating")
	}

	if doc, err := ratingRef.Get(ctx); err == nil {
		var stored entity.Rating
		if err := doc.DataTo(&stored); err == nil {
			rating.SubmittedAt = stored.SubmittedAt
		}
	}
	return nil
}

func (r *firestoreRatingRepository) ListByFaculty(ctx context.Context, facultyID string) ([]*entity.Rating, error) {
	query := r.client.Collection("ratings").Where("facultyId", "==", facultyID).OrderBy("submittedAt", firestore.Desc)

	ratings, err := collect(query.Documents(ctx), func(rt *entity.Rating, id string) { rt.ID = id })
	if err != nil {
		return nil, mapFirestoreError(err, "Ratings", "list ratings")
	}
	return ratings, nil
}
