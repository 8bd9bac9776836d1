package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/logger"
)

type firestoreFAQRepository struct {
	client *firestore.Client
}

func NewFirestoreFAQRepository(client *firestore.Client) repository.FAQRepository {
	return &firestoreFAQRepository{
		client: client,
	}
}

// faqs is papers/{paperId}/topics/{topicId}/faqs.
func (r *firestoreFAQRepository) faqs(paperID, topicID string) *firestore.CollectionRef {
	return r.client.Collection("papers").Doc(paperID).
		Collection("topics").Doc(topicID).
		Collection("faqs")
}

func (r *firestoreFAQRepository) Create(ctx context.Context, faq *entity.FAQ) error {
	docRef := r.faqs(faq.PaperID, faq.TopicID).NewDoc()
	wr, err := docRef.Create(ctx, faq)
	if err != nil {
		logger.Error("Firestore error while saving FAQ in %s/%s: %v", faq.PaperID, faq.TopicID, err)
		return mapFirestoreError(err, "FAQ", "save FAQ")
	}
	faq.ID = docRef.ID
	if faq.Provenance.SavedAt.IsZero() {
		faq.Provenance.SavedAt = wr.UpdateTime.UTC()
	}
	return nil
}

func (r *firestoreFAQRepository) ListByTopic(ctx context.Context, paperID, topicID string) ([]*entity.FAQ, error) {
	query := r.faqs(paperID, topicID).OrderBy("provenance.savedAt", firestore.Desc)

	faqs, err := collect(query.Documents(ctx), func(f *entity.FAQ, id string) {
		f.ID = id
		f.PaperID = paperID
		f.TopicID = topicID
	})
	if err != nil {
		logger.Error("Firestore error while fetching FAQs for %s/%s: %v", paperID, topicID, err)
		return nil, mapFirestoreError(err, "FAQs", "list FAQs")
	}
	return faqs, nil
}
