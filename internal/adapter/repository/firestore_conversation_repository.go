package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) EnsureDirect(ctx context.Context, id string, participants []string) (*entity.Conversation, error) {
	return r.ensure(ctx, entity.ChatKindDM, id, map[string]interface{}{
		"participants": participants,
	})
}

func (r *firestoreConversationRepository) EnsureSupport(ctx context.Context, id, studentID, teamID string) (*entity.Conversation, error) {
	return r.ensure(ctx, entity.ChatKindSupport, id, map[string]interface{}{
		"studentId": studentID,
		"teamId":    teamID,
	})
}

// ensure merges identity fields into the conversation document. createdAt is
// written only when the document is new; lastMessage is never touched.
func (r *firestoreConversationRepository) ensure(ctx context.Context, kind entity.ChatKind, id string, fields map[string]interface{}) (*entity.Conversation, error) {
	docRef := r.client.Collection(conversationCollection(kind)).Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		data := map[string]interface{}{
			"id":        id,
			"updatedAt": firestore.ServerTimestamp,
		}
		for k, v := range fields {
			data[k] = v
		}
		if doc == nil || !doc.Exists() {
			data["createdAt"] = firestore.ServerTimestamp
		}
		return tx.Set(docRef, data, firestore.MergeAll)
	})
	if err != nil {
		logger.Error("Firestore error while opening %s conversation %s: %v", kind, id, err)
		return nil, mapFirestoreError(err, "Conversation", "open conversation")
	}

	return r.GetByID(ctx, kind, id)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, kind entity.ChatKind, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationCollection(kind)).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "Conversation", "get conversation")
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, mapFirestoreError(err, "Conversation", "parse conversation data")
	}
	conv.ID = doc.Ref.ID
	return &conv, nil
}

func (r *firestoreConversationRepository) ListDirect(ctx context.Context, uid string) ([]*entity.Conversation, error) {
	query := r.client.Collection(directConversationsCollection).
		Where("participants", "array-contains", uid).
		OrderBy("updatedAt", firestore.Desc)

	convs, err := collect(query.Documents(ctx), setConversationID)
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", uid, err)
		return nil, mapFirestoreError(err, "Conversations", "list conversations")
	}
	return convs, nil
}

func (r *firestoreConversationRepository) ListSupport(ctx context.Context, filter repository.SupportFilter) ([]*entity.Conversation, error) {
	query := r.client.Collection(supportConversationsCollection).Query
	if filter.StudentID != "" {
		query = query.Where("studentId", "==", filter.StudentID)
	}
	if filter.TeamID != "" {
		query = query.Where("teamId", "==", filter.TeamID)
	}
	query = query.OrderBy("updatedAt", firestore.Desc)

	convs, err := collect(query.Documents(ctx), setConversationID)
	if err != nil {
		logger.Error("Firestore error while fetching support conversations: %v", err)
		return nil, mapFirestoreError(err, "Conversations", "list conversations")
	}
	return convs, nil
}

func setConversationID(c *entity.Conversation, id string) { c.ID = id }
