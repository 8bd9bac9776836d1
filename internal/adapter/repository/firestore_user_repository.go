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

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	_, err := r.client.Collection("users").Doc(user.ID).Set(ctx, user)
	if err != nil {
		return mapFirestoreError(err, "User", "create user")
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "User", "get user")
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

type firestoreSettingsRepository struct {
	client *firestore.Client
}

func NewFirestoreSettingsRepository(client *firestore.Client) repository.SettingsRepository {
	return &firestoreSettingsRepository{
		client: client,
	}
}

// GetGlobal reads settings/global. A missing document means every flag is off.
func (r *firestoreSettingsRepository) GetGlobal(ctx context.Context) (*entity.GlobalSettings, error) {
	doc, err := r.client.Collection("settings").Doc("global").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			logger.Warn("settings/global is missing, using defaults")
			return &entity.GlobalSettings{}, nil
		}
		return nil, mapFirestoreError(err, "Settings", "get settings")
	}

	var settings entity.GlobalSettings
	if err := doc.DataTo(&settings); err != nil {
		return nil, errors.Internal("Failed to parse settings data", err)
	}
	return &settings, nil
}

type firestorePollRepository struct {
	client *firestore.Client
}

func NewFirestorePollRepository(client *firestore.Client) repository.PollRepository {
	return &firestorePollRepository{
		client: client,
	}
}

func (r *firestorePollRepository) Create(ctx context.Context, poll *entity.Poll) error {
	if poll.ID == "" {
		poll.ID = uuid.New().String()
	}
	if poll.Voters == nil {
		poll.Voters = []string{}
	}

	wr, err := r.client.Collection("polls").Doc(poll.ID).Create(ctx, poll)
	if err != nil {
		return mapFirestoreError(err, "Poll", "create poll")
	}
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = wr.UpdateTime.UTC()
	}
	return nil
}

func (r *firestorePollRepository) GetByID(ctx context.Context, id string) (*entity.Poll, error) {
	doc, err := r.client.Collection("polls").Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "Poll", "get poll")
	}
	return decodePoll(doc)
}

func decodePoll(doc *firestore.DocumentSnapshot) (*entity.Poll, error) {
	var poll entity.Poll
	if err := doc.DataTo(&poll); err != nil {
		return nil, errors.Internal("Failed to parse poll data", err)
	}
	poll.ID = doc.Ref.ID
	return &poll, nil
}

func (r *firestorePollRepository) Vote(ctx context.Context, pollID, uid string, option int) (*entity.Poll, error) {
	docRef := r.client.Collection("polls").Doc(pollID)
	var updated *entity.Poll

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		poll, err := decodePoll(doc)
		if err != nil {
			return err
		}
		if option < 0 || option >= len(poll.Options) {
			return errors.Validation("option is out of range", nil)
		}
		if poll.HasVoted(uid) {
			return errors.TransactionConflict("You have already voted in this poll", nil)
		}

		poll.Options[option].Count++
		poll.Voters = append(poll.Voters, uid)
		updated = poll
		return tx.Update(docRef, []firestore.Update{
			{Path: "options", Value: poll.Options},
			{Path: "voters", Value: firestore.ArrayUnion(uid)},
		})
	})
	if err != nil {
		return nil, mapFirestoreError(err, "Poll", "record vote")
	}
	return updated, nil
}
