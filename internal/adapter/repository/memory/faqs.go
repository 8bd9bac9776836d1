package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/errors"
)

type faqRepository struct {
	store *Store
}

func NewFAQRepository(store *Store) repository.FAQRepository {
	return &faqRepository{store: store}
}

func faqKey(paperID, topicID string) string {
	return paperID + "/" + topicID
}

func (r *faqRepository) Create(ctx context.Context, faq *entity.FAQ) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("faqs.create"); err != nil {
		return errors.BackendUnavailable("Failed to save FAQ", err)
	}
	if faq.ID == "" {
		faq.ID = uuid.New().String()
	}
	faq.Provenance.SavedAt = s.stamp()
	key := faqKey(faq.PaperID, faq.TopicID)
	c := *faq
	s.faqs[key] = append(s.faqs[key], &c)
	return nil
}

func (r *faqRepository) ListByTopic(ctx context.Context, paperID, topicID string) ([]*entity.FAQ, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("faqs.list"); err != nil {
		return nil, errors.BackendUnavailable("Failed to list FAQs", err)
	}
	list := s.faqs[faqKey(paperID, topicID)]
	out := make([]*entity.FAQ, 0, len(list))
	for _, f := range list {
		c := *f
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Provenance.SavedAt.After(out[j].Provenance.SavedAt)
	})
	return out, nil
}
