package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	apimiddleware "studyhub/internal/adapter/api/middleware"
	"studyhub/internal/adapter/repository"
	"studyhub/internal/adapter/repository/memory"
	"studyhub/internal/domain/entity"
	domainrepo "studyhub/internal/domain/repository"
	"studyhub/internal/domain/service"
	"studyhub/internal/infrastructure/firebase"
	"studyhub/internal/infrastructure/realtime"
	"studyhub/internal/infrastructure/storage"
	"studyhub/pkg/config"
	"studyhub/pkg/logger"
)

// stores bundles the document repositories, blob storage and token
// verifiers for the configured storage driver.
type stores struct {
	users         domainrepo.UserRepository
	settings      domainrepo.SettingsRepository
	polls         domainrepo.PollRepository
	faqs          domainrepo.FAQRepository
	messages      domainrepo.MessageRepository
	conversations domainrepo.ConversationRepository
	doubts        domainrepo.DoubtRepository
	ratings       domainrepo.RatingRepository
	blobs         service.BlobStore
	verifiers     []apimiddleware.TokenVerifier

	// setSettings is only available on the memory driver.
	setSettings func(entity.GlobalSettings)
	closers     []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StorageDriver == "memory" {
		return openMemoryStores(cfg), nil
	}
	return openFirestoreStores(ctx, cfg)
}

func credentials(cfg *config.Config) []option.ClientOption {
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON))}
	case cfg.FirebaseCredentialsPath != "":
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseCredentialsPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseCredentialsPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}

func openFirestoreStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	opts := credentials(cfg)

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	s := &stores{
		users:         repository.NewFirestoreUserRepository(client),
		settings:      repository.NewFirestoreSettingsRepository(client),
		polls:         repository.NewFirestorePollRepository(client),
		faqs:          repository.NewFirestoreFAQRepository(client),
		messages:      repository.NewFirestoreMessageRepository(client),
		conversations: repository.NewFirestoreConversationRepository(client),
		doubts:        repository.NewFirestoreDoubtRepository(client),
		ratings:       repository.NewFirestoreRatingRepository(client),
		verifiers:     []apimiddleware.TokenVerifier{firebase.NewFirebaseAuthClient(authClient)},
		closers:       []func() error{client.Close},
	}

	if cfg.StorageBucket == "" {
		logger.Warn("STORAGE_BUCKET is empty, uploads are kept in memory")
		s.blobs = storage.NewMemoryBlobStore("memory://" + cfg.FirebaseProject)
		return s, nil
	}
	blobs, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize cloud storage: %w", err)
	}
	s.blobs = blobs
	s.closers = append(s.closers, blobs.Close)
	return s, nil
}

func openMemoryStores(cfg *config.Config) *stores {
	logger.Warn("Using the in-memory storage driver; data is lost on restart")
	store := memory.NewStore()

	s := &stores{
		users:         memory.NewUserRepository(store),
		settings:      memory.NewSettingsRepository(store),
		polls:         memory.NewPollRepository(store),
		faqs:          memory.NewFAQRepository(store),
		messages:      memory.NewMessageRepository(store),
		conversations: memory.NewConversationRepository(store),
		doubts:        memory.NewDoubtRepository(store),
		ratings:       memory.NewRatingRepository(store),
		blobs:         storage.NewMemoryBlobStore("memory://uploads"),
		setSettings:   store.SetSettings,
	}
	if cfg.IsDevelopment() {
		s.verifiers = append(s.verifiers, firebase.NewDevTokenVerifier())
	}
	return s
}

// openPresenceStore returns the realtime store behind presence and a func
// releasing it.
func openPresenceStore(ctx context.Context, cfg *config.Config) (domainrepo.PresenceStore, func(), error) {
	if cfg.Presence.Driver == "memory" {
		return realtime.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	store := realtime.NewRedisStore(client, cfg.Redis.Prefix, cfg.Presence.LeaseTTL)
	go store.RunSweeper(ctx, cfg.Presence.SweepInterval)
	logger.Info("Presence backed by redis at %s", cfg.Redis.Addr)

	return store, func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis: %v", err)
		}
	}, nil
}
