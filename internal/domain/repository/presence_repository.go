package repository

import (
	"context"

	"studyhub/internal/domain/entity"
)

// PresenceStore is the realtime key-value store holding one presence record
// per user, with server-stamped change times.
type PresenceStore interface {
	// WatchConnection reports the store link state for uid's session,
	// starting with the current state and then on every change.
	WatchConnection(ctx context.Context, uid string, fn func(connected bool)) (Subscription, error)
	// OnDisconnect arms a write the store applies by itself if the session
	// link is lost.
	OnDisconnect(ctx context.Context, uid string, online bool) error
	Set(ctx context.Context, uid string, online bool) error
	// SubscribeAll delivers the full presence set on every change.
	SubscribeAll(ctx context.Context, fn func(map[string]entity.PresenceRecord)) (Subscription, error)
}
