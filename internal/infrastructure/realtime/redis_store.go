package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/pkg/logger"
)

// Keys used (the prefix is wrapped in a hash tag so all keys share a slot):
//   - {prefix}:presence:status            hash uid -> {"isOnline","lastChanged"}
//   - {prefix}:presence:wills             hash uid -> "1"/"0", write applied when the lease expires
//   - {prefix}:presence:lease:<uid>       refreshed by the session heartbeat
//   - {prefix}:presence:changes           pub/sub channel carrying the changed uid
//
// Timestamps come from the Redis server clock.

var setScript = redis.NewScript(`
local t = redis.call('TIME')
local ms = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode({isOnline = ARGV[2] == '1', lastChanged = ms}))
redis.call('PUBLISH', KEYS[2], ARGV[1])
return ms
`)

var armScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
return 1
`)

var applyWillScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[4]) == 1 then
  return 0
end
local will = redis.call('HGET', KEYS[1], ARGV[1])
if not will then
  return 0
end
local t = redis.call('TIME')
local ms = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
redis.call('HSET', KEYS[2], ARGV[1], cjson.encode({isOnline = will == '1', lastChanged = ms}))
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('PUBLISH', KEYS[3], ARGV[1])
return 1
`)

type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	leaseTTL  time.Duration
	heartbeat time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, leaseTTL time.Duration) *RedisStore {
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		leaseTTL:  leaseTTL,
		heartbeat: leaseTTL / 3,
	}
}

func (s *RedisStore) statusKey() string { return fmt.Sprintf("{%s}:presence:status", s.prefix) }
func (s *RedisStore) willsKey() string  { return fmt.Sprintf("{%s}:presence:wills", s.prefix) }
func (s *RedisStore) channel() string   { return fmt.Sprintf("{%s}:presence:changes", s.prefix) }
func (s *RedisStore) leaseKey(uid string) string {
	return fmt.Sprintf("{%s}:presence:lease:%s", s.prefix, uid)
}

func flag(online bool) string {
	if online {
		return "1"
	}
	return "0"
}

// WatchConnection pings Redis on every heartbeat, refreshing uid's lease, and
// reports link transitions to fn from a background goroutine.
func (s *RedisStore) WatchConnection(ctx context.Context, uid string, fn func(bool)) (repository.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()

		known, last := false, false
		for {
			ok := s.beat(ctx, uid)
			if ctx.Err() != nil {
				return
			}
			if !known || ok != last {
				known, last = true, ok
				fn(ok)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			<-done
			cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer ccancel()
			pipe := s.client.TxPipeline()
			pipe.HDel(cctx, s.willsKey(), uid)
			pipe.Del(cctx, s.leaseKey(uid))
			if _, err := pipe.Exec(cctx); err != nil {
				logger.Warn("presence: failed to clear lease for %s: %v", uid, err)
			}
		})
	}), nil
}

func (s *RedisStore) beat(ctx context.Context, uid string) bool {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return false
	}
	if err := s.client.PExpire(ctx, s.leaseKey(uid), s.leaseTTL).Err(); err != nil {
		return false
	}
	return true
}

func (s *RedisStore) OnDisconnect(ctx context.Context, uid string, online bool) error {
	keys := []string{s.willsKey(), s.leaseKey(uid)}
	return armScript.Run(ctx, s.client, keys, uid, flag(online), s.leaseTTL.Milliseconds()).Err()
}

func (s *RedisStore) Set(ctx context.Context, uid string, online bool) error {
	keys := []string{s.statusKey(), s.channel()}
	return setScript.Run(ctx, s.client, keys, uid, flag(online)).Err()
}

func (s *RedisStore) SubscribeAll(ctx context.Context, fn func(map[string]entity.PresenceRecord)) (repository.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe presence changes: %w", err)
	}

	initial, err := s.Snapshot(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	fn(initial)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				snap, err := s.Snapshot(ctx)
				if err != nil {
					logger.Warn("presence: snapshot after change failed: %v", err)
					continue
				}
				fn(snap)
			}
		}
	}()

	var once sync.Once
	return repository.SubscriptionFunc(func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
			<-done
		})
	}), nil
}

type storedRecord struct {
	IsOnline    bool  `json:"isOnline"`
	LastChanged int64 `json:"lastChanged"`
}

func decodeRecord(uid, raw string) (entity.PresenceRecord, error) {
	var r storedRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return entity.PresenceRecord{}, err
	}
	return entity.PresenceRecord{
		UID:         uid,
		IsOnline:    r.IsOnline,
		LastChanged: time.UnixMilli(r.LastChanged).UTC(),
	}, nil
}

// Snapshot reads the full presence set.
func (s *RedisStore) Snapshot(ctx context.Context) (map[string]entity.PresenceRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.statusKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}
	out := make(map[string]entity.PresenceRecord, len(raw))
	for uid, v := range raw {
		rec, err := decodeRecord(uid, v)
		if err != nil {
			logger.Warn("presence: skipping malformed record for %s: %v", uid, err)
			continue
		}
		out[uid] = rec
	}
	return out, nil
}

// Sweep applies the armed write of every session whose lease has expired and
// returns how many were applied.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	uids, err := s.client.HKeys(ctx, s.willsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("list presence wills: %w", err)
	}
	applied := 0
	for _, uid := range uids {
		keys := []string{s.willsKey(), s.statusKey(), s.channel(), s.leaseKey(uid)}
		n, err := applyWillScript.Run(ctx, s.client, keys, uid).Int()
		if err != nil {
			return applied, fmt.Errorf("apply presence will for %s: %w", uid, err)
		}
		applied += n
	}
	return applied, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *RedisStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Warn("presence sweep: %v", err)
				continue
			}
			if n > 0 {
				logger.Debug("presence sweep marked %d sessions offline", n)
			}
		}
	}
}
