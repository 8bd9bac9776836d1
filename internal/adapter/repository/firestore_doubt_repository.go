package repository

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

type firestoreDoubtRepository struct {
	client *firestore.Client
}

func NewFirestoreDoubtRepository(client *firestore.Client) repository.DoubtRepository {
	return &firestoreDoubtRepository{
		client: client,
	}
}

func (r *firestoreDoubtRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection("doubts").Doc(id)
}

func (r *firestoreDoubtRepository) Create(ctx context.Context, doubt *entity.Doubt) error {
	if doubt.ID == "" {
		doubt.ID = uuid.New().String()
	}

	if _, err := r.doc(doubt.ID).Create(ctx, doubt); err != nil {
		return mapFirestoreError(err, "Doubt", "create doubt")
	}
	return nil
}

func (r *firestoreDoubtRepository) GetByID(ctx context.Context, id string) (*entity.Doubt, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "Doubt", "get doubt")
	}
	return decodeDoubt(doc)
}

func decodeDoubt(doc *firestore.DocumentSnapshot) (*entity.Doubt, error) {
	var doubt entity.Doubt
	if err := doc.DataTo(&doubt); err != nil {
		return nil, errors.Internal("Failed to parse doubt data", err)
	}
	doubt.ID = doc.Ref.ID
	return &doubt, nil
}

func (r *firestoreDoubtRepository) ClaimUnassigned(ctx context.Context, doubtID, facultyID string) (bool, error) {
	won := false
	docRef := r.doc(doubtID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		won = false
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		doubt, err := decodeDoubt(doc)
		if err != nil {
			return err
		}
		if doubt.Status != entity.DoubtStatusUnassigned {
			return nil
		}

		won = true
		return tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: entity.DoubtStatusAssigned},
			{Path: "assignedFacultyId", Value: facultyID},
		})
	})
	if err != nil {
		return false, mapFirestoreError(err, "Doubt", "claim doubt")
	}
	return won, nil
}

func (r *firestoreDoubtRepository) Resolve(ctx context.Context, doubtID, resolverID string) (*entity.Doubt, error) {
	docRef := r.doc(doubtID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		doubt, err := decodeDoubt(doc)
		if err != nil {
			return err
		}
		if doubt.Status != entity.DoubtStatusAssigned {
			return errors.TransactionConflict("Doubt is "+string(doubt.Status)+", only assigned doubts can be resolved", nil)
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: entity.DoubtStatusResolved},
			{Path: "resolvedBy", Value: resolverID},
			{Path: "resolvedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Doubt", "resolve doubt")
	}

	return r.GetByID(ctx, doubtID)
}

func (r *firestoreDoubtRepository) ListByPaper(ctx context.Context, paperID string) ([]*entity.Doubt, error) {
	return r.list(ctx, "paperId", paperID)
}

func (r *firestoreDoubtRepository) ListByStudent(ctx context.Context, studentID string) ([]*entity.Doubt, error) {
	return r.list(ctx, "studentId", studentID)
}

func (r *firestoreDoubtRepository) list(ctx context.Context, field, value string) ([]*entity.Doubt, error) {
	query := r.client.Collection("doubts").Where(field, "==", value).OrderBy("createdAt", firestore.Desc)

	doubts, err := collect(query.Documents(ctx), func(d *entity.Doubt, id string) { d.ID = id })
	if err != nil {
		logger.Error("Firestore error while listing doubts by %s=%s: %v", field, value, err)
		return nil, mapFirestoreError(err, "Doubts", "list doubts")
	}
	return doubts, nil
}

func (r *firestoreDoubtRepository) Watch(ctx context.Context, doubtID string, fn func(*entity.Doubt)) (repository.Subscription, error) {
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	iter := r.doc(doubtID).Snapshots(lctx)

	go func() {
		for {
			doc, err := iter.Next()
			if err != nil {
				if !isCanceled(err) {
					logger.Error("Doubt listener for %s stopped: %v", doubtID, err)
				}
				return
			}
			if !doc.Exists() {
				continue
			}
			doubt, err := decodeDoubt(doc)
			if err != nil {
				logger.Error("Failed to decode doubt snapshot %s: %v", doubtID, err)
				continue
			}
			fn(doubt)
		}
	}()

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			iter.Stop()
		})
	}), nil
}
