package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studyhub/internal/adapter/repository/memory"
	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/domain/service"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e entity.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store     *memory.Store
	users     repository.UserRepository
	doubts    repository.DoubtRepository
	messages  repository.MessageRepository
	convs     repository.ConversationRepository
	directory *Directory
	events    *recordingPublisher

	messageUC *MessageUseCase
	doubtUC   *DoubtUseCase
	ratingUC  *RatingUseCase
	convUC    *ConversationUseCase
	pollUC    *PollUseCase
	faqUC     *FAQUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:    store,
		users:    memory.NewUserRepository(store),
		doubts:   memory.NewDoubtRepository(store),
		messages: memory.NewMessageRepository(store),
		convs:    memory.NewConversationRepository(store),
		events:   &recordingPublisher{},
	}

	dir, err := NewDirectory(f.users, 64, time.Minute)
	require.NoError(t, err)
	f.directory = dir

	f.messageUC = NewMessageUseCase(f.messages, f.convs, f.doubts, dir, f.events, nil)
	f.doubtUC = NewDoubtUseCase(f.doubts, f.messageUC, dir, service.FixedWindowPolicy{Window: 30 * time.Minute}, f.events, nil)
	f.ratingUC = NewRatingUseCase(memory.NewRatingRepository(store), dir, f.events)
	f.convUC = NewConversationUseCase(f.convs, dir)
	f.pollUC = NewPollUseCase(memory.NewPollRepository(store), f.messageUC, dir, nil)
	f.faqUC = NewFAQUseCase(memory.NewFAQRepository(store), f.messages, dir)
	return f
}

func (f *fixture) addUser(t *testing.T, id, name string, role entity.Role) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &entity.User{ID: id, DisplayName: name, Role: role}))
}

func (f *fixture) addDoubt(t *testing.T, studentID, paperID string) *entity.Doubt {
	t.Helper()
	d, err := f.doubtUC.CreateDoubt(context.Background(), studentID, CreateDoubtInput{Title: "Why does the integral diverge?", PaperID: paperID})
	require.NoError(t, err)
	return d
}

func (f *fixture) doubtMessages(t *testing.T, doubtID string) []*entity.Message {
	t.Helper()
	list, err := f.messages.ListByChat(context.Background(), entity.ChatRef{Kind: entity.ChatKindDoubt, ChatID: doubtID}, 0)
	require.NoError(t, err)
	return list
}

func (f *fixture) getDoubt(t *testing.T, id string) *entity.Doubt {
	t.Helper()
	d, err := f.doubts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	return d
}

func systemMessages(list []*entity.Message) []*entity.Message {
	var out []*entity.Message
	for _, m := range list {
		if m.MessageType == entity.MessageTypeSystem {
			out = append(out, m)
		}
	}
	return out
}
