package service

import (
	"context"

	"studyhub/internal/domain/entity"
)

type EventPublisher interface {
	Publish(ctx context.Context, event entity.DomainEvent) error
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, entity.DomainEvent) error { return nil }
