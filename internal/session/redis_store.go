// Package session provides Redis-backed storage for per-client session
// state: the verification state machine marker and the staged document slot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session states. A session is created in a pending state by a signup or
// login request and becomes authenticated once the matching code is
// confirmed.
const (
	StateAnonymous     = "anonymous"
	StatePendingSignup = "pending_signup"
	StatePendingLogin  = "pending_login"
	StateAuthenticated = "authenticated"
)

var (
	// ErrNotFound means the session key is missing or expired.
	ErrNotFound = errors.New("session not found")
	// ErrNoPendingDocument means the staged-document slot is empty or was
	// already consumed.
	ErrNoPendingDocument = errors.New("no pending document")
)

// PendingDocument is a staged, not-yet-committed transformation result.
type PendingDocument struct {
	Filename      string `json:"filename"`
	RawKey        string `json:"raw_key"`
	SimplifiedKey string `json:"simplified_key"`
}

// Data holds everything stored for one session.
type Data struct {
	State      string           `json:"state"`
	UserID     string           `json:"user_id,omitempty"`
	PendingDoc *PendingDocument `json:"pending_doc,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RedisStore implements session storage using Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "sess:", ttl: ttl}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "sess:", ttl: ttl}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// Save stores the session state under the token hash and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, tokenHash string, data Data) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}
	if err := s.client.Set(ctx, s.key(tokenHash), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves the session state for a token hash.
func (s *RedisStore) Get(ctx context.Context, tokenHash string) (Data, error) {
	payload, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if err == redis.Nil {
		return Data{}, ErrNotFound
	}
	if err != nil {
		return Data{}, fmt.Errorf("lookup session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Data{}, fmt.Errorf("unmarshal session data: %w", err)
	}
	if data.State == "" {
		data.State = StateAnonymous
	}
	return data, nil
}

// Delete removes a session unconditionally.
func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ConsumePendingDocument atomically takes the staged document out of the
// session. Exactly one caller wins; concurrent consumers observe
// ErrNoPendingDocument. Implemented as an optimistic WATCH transaction so
// first-committer-wins holds across processes.
func (s *RedisStore) ConsumePendingDocument(ctx context.Context, tokenHash string) (PendingDocument, error) {
	key := s.key(tokenHash)
	var pending PendingDocument

	consume := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup session: %w", err)
		}

		var data Data
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return fmt.Errorf("unmarshal session data: %w", err)
		}
		if data.PendingDoc == nil {
			return ErrNoPendingDocument
		}
		pending = *data.PendingDoc
		data.PendingDoc = nil

		updated, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal session data: %w", err)
		}

		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = s.ttl
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ttl)
			return nil
		})
		return err
	}

	// A failed WATCH means someone else touched the session; retry and let
	// the re-read decide whether anything is left to consume.
	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, consume, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return PendingDocument{}, err
		}
		return pending, nil
	}
	return PendingDocument{}, ErrNoPendingDocument
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
