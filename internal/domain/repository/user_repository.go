package repository

import (
	"context"

	"studyhub/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type SettingsRepository interface {
	GetGlobal(ctx context.Context) (*entity.GlobalSettings, error)
}

type PollRepository interface {
	Create(ctx context.Context, poll *entity.Poll) error
	GetByID(ctx context.Context, id string) (*entity.Poll, error)
	// Vote increments one option and records the voter atomically. A second
	// vote by the same user is a TRANSACTION_CONFLICT.
	Vote(ctx context.Context, pollID, uid string, option int) (*entity.Poll, error)
}
