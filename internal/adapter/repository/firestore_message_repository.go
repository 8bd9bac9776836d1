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

const (
	doubtMessagesCollection        = "messages"
	paperMessagesCollection        = "paperMessages"
	directConversationsCollection  = "conversations"
	supportConversationsCollection = "supportConversations"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func conversationCollection(kind entity.ChatKind) string {
	if kind == entity.ChatKindSupport {
		return supportConversationsCollection
	}
	return directConversationsCollection
}

// collection is where messages of ref live.
func (r *firestoreMessageRepository) collection(ref entity.ChatRef) *firestore.CollectionRef {
	switch ref.Kind {
	case entity.ChatKindGroup:
		return r.client.Collection(paperMessagesCollection)
	case entity.ChatKindDM, entity.ChatKindSupport:
		return r.client.Collection(conversationCollection(ref.Kind)).Doc(ref.ChatID).Collection("messages")
	}
	return r.client.Collection(doubtMessagesCollection)
}

func (r *firestoreMessageRepository) query(ref entity.ChatRef) firestore.Query {
	col := r.collection(ref)
	switch ref.Kind {
	case entity.ChatKindDoubt:
		return col.Where("doubtId", "==", ref.ChatID).OrderBy("timestamp", firestore.Asc)
	case entity.ChatKindGroup:
		return col.Where("paperId", "==", ref.ChatID).Where("topicId", "==", ref.TopicID).OrderBy("timestamp", firestore.Asc)
	}
	return col.OrderBy("timestamp", firestore.Asc)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, ref entity.ChatRef, msg *entity.Message) error {
	ref = ref.Normalize()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Address(ref)
	if msg.SeenBy == nil {
		msg.SeenBy = []string{}
	}

	docRef := r.collection(ref).Doc(msg.ID)

	if ref.Kind != entity.ChatKindDM && ref.Kind != entity.ChatKindSupport {
		wr, err := docRef.Create(ctx, msg)
		if err != nil {
			return mapFirestoreError(err, "Message", "create message")
		}
		msg.Timestamp = wr.UpdateTime.UTC()
		return nil
	}

	// Message and conversation summary commit together.
	convRef := r.client.Collection(conversationCollection(ref.Kind)).Doc(ref.ChatID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(docRef, msg); err != nil {
			return err
		}
		return tx.Set(convRef, map[string]interface{}{
			"id":          ref.ChatID,
			"lastMessage": lastMessageFields(msg),
			"updatedAt":   firestore.ServerTimestamp,
		}, firestore.MergeAll)
	})
	if err != nil {
		return mapFirestoreError(err, "Message", "create message")
	}

	doc, err := docRef.Get(ctx)
	if err != nil {
		logger.Warn("Message %s written but could not be read back: %v", msg.ID, err)
		return nil
	}
	var stored entity.Message
	if err := doc.DataTo(&stored); err == nil {
		msg.Timestamp = stored.Timestamp
	}
	return nil
}

func lastMessageFields(msg *entity.Message) map[string]interface{} {
	fields := map[string]interface{}{
		"id":          msg.ID,
		"senderId":    msg.SenderID,
		"content":     msg.Content,
		"messageType": msg.MessageType,
		"timestamp":   firestore.ServerTimestamp,
		"seenBy":      msg.SeenBy,
	}
	if msg.FileName != "" {
		fields["fileName"] = msg.FileName
	}
	if msg.PollID != "" {
		fields["pollId"] = msg.PollID
	}
	return fields
}

func (r *firestoreMessageRepository) ListByChat(ctx context.Context, ref entity.ChatRef, limit int) ([]*entity.Message, error) {
	ref = ref.Normalize()
	q := r.query(ref)
	if limit > 0 {
		q = q.LimitToLast(limit)
	}

	messages, err := collect(q.Documents(ctx), setMessageID)
	if err != nil {
		logger.Error("Firestore error while listing messages for %s: %v", ref.Key(), err)
		return nil, mapFirestoreError(err, "Messages", "list messages")
	}
	return messages, nil
}

func setMessageID(m *entity.Message, id string) { m.ID = id }

func (r *firestoreMessageRepository) MarkSeen(ctx context.Context, ref entity.ChatRef, messageID, uid string) error {
	ref = ref.Normalize()
	_, err := r.collection(ref).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "seenBy", Value: firestore.ArrayUnion(uid)},
	})
	if err != nil {
		return mapFirestoreError(err, "Message", "update message")
	}
	return nil
}

func (r *firestoreMessageRepository) Subscribe(ctx context.Context, ref entity.ChatRef, fn func([]*entity.Message)) (repository.Subscription, error) {
	ref = ref.Normalize()
	if ref.ChatID == "" {
		return nil, errors.Validation("chat id is required", nil)
	}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	iter := r.query(ref).Snapshots(lctx)
	go func() {
		for {
			snap, err := iter.Next()
			if err != nil {
				if !isCanceled(err) {
					logger.Error("Message listener for %s stopped: %v", ref.Key(), err)
				}
				return
			}
			messages, err := collect(snap.Documents, setMessageID)
			if err != nil {
				logger.Error("Failed to decode message snapshot for %s: %v", ref.Key(), err)
				continue
			}
			fn(messages)
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
