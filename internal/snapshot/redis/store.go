// Package redis is a snapshot.Store backed by Redis.
//
// Each checkpoint is a JSON string under <prefix><session id>. A sorted
// set under <prefix>index lists the session ids, scored by checkpoint
// seq, so List does not need KEYS or SCAN.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/roach88/sketchbook/internal/snapshot"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "sketchbook:snapshot:"

// Store implements snapshot.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ snapshot.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL expires checkpoints after ttl. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the checkpoint and indexes its session in one pipeline.
func (s *Store) Save(ctx context.Context, cp snapshot.Checkpoint) error {
	encoded, err := snapshot.Encode(cp)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(cp.SessionID), encoded, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(cp.Seq),
		Member: cp.SessionID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.SessionID, err)
	}
	return nil
}

// Load reads and decodes the session's checkpoint.
func (s *Store) Load(ctx context.Context, sessionID string) (snapshot.Checkpoint, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return snapshot.Checkpoint{}, fmt.Errorf("load %s: %w", sessionID, snapshot.ErrNotFound)
	}
	if err != nil {
		return snapshot.Checkpoint{}, fmt.Errorf("load %s: %w", sessionID, err)
	}
	return snapshot.Decode(val)
}

// Delete removes the checkpoint and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", sessionID, err)
	}
	return nil
}

// List returns indexed sessions whose checkpoint still exists. Index
// entries left behind by expired keys are pruned.
func (s *Store) List(ctx context.Context) ([]string, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	ids := make([]string, 0, len(members))
	var stale []any
	for _, id := range members {
		n, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		ids = append(ids, id)
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune checkpoint index: %w", err)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
