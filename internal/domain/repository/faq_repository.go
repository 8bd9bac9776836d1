package repository

import (
	"context"

	"studyhub/internal/domain/entity"
)

type FAQRepository interface {
	// Create stores faq under its paper topic, stamping Provenance.SavedAt
	// with server time.
	Create(ctx context.Context, faq *entity.FAQ) error
	// ListByTopic returns the topic's FAQs, newest saved first.
	ListByTopic(ctx context.Context, paperID, topicID string) ([]*entity.FAQ, error)
}
