package memory

import (
	"context"

	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("users.create"); err != nil {
		return errors.BackendUnavailable("Failed to create user", err)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.stamp()
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("users.get"); err != nil {
		return nil, errors.BackendUnavailable("Failed to get user", err)
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	c := *u
	return &c, nil
}

type settingsRepository struct {
	store *Store
}

func NewSettingsRepository(store *Store) repository.SettingsRepository {
	return &settingsRepository{store: store}
}

func (r *settingsRepository) GetGlobal(ctx context.Context) (*entity.GlobalSettings, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("settings.get"); err != nil {
		return nil, errors.BackendUnavailable("Failed to get settings", err)
	}
	c := *s.settings
	return &c, nil
}

type pollRepository struct {
	store *Store
}

func NewPollRepository(store *Store) repository.PollRepository {
	return &pollRepository{store: store}
}

func (r *pollRepository) Create(ctx context.Context, poll *entity.Poll) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("polls.create"); err != nil {
		return errors.BackendUnavailable("Failed to create poll", err)
	}
	if poll.ID == "" {
		poll.ID = uuid.New().String()
	}
	poll.CreatedAt = s.stamp()
	if poll.Voters == nil {
		poll.Voters = []string{}
	}
	s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*entity.Poll, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[id]
	if !ok {
		return nil, errors.NotFound("Poll", nil)
	}
	return clonePoll(p), nil
}

func (r *pollRepository) Vote(ctx context.Context, pollID, uid string, option int) (*entity.Poll, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("polls.vote"); err != nil {
		return nil, errors.BackendUnavailable("Failed to record vote", err)
	}
	p, ok := s.polls[pollID]
	if !ok {
		return nil, errors.NotFound("Poll", nil)
	}
	if option < 0 || option >= len(p.Options) {
		return nil, errors.Validation("option is out of range", nil)
	}
	if p.HasVoted(uid) {
		return nil, errors.TransactionConflict("You have already voted in this poll", nil)
	}
	p.Options[option].Count++
	p.Voters = append(p.Voters, uid)
	return clonePoll(p), nil
}
