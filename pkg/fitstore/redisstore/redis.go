// Package redisstore stores fits in Redis. Each user and pose owns one hash
// whose fields are item ids and whose values are JSON records.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
)

// DefaultPrefix is prepended to every hash key.
const DefaultPrefix = "tryon:"

// Store is a Redis-backed [fitstore.Store].
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing client. An empty prefix selects [DefaultPrefix].
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to the Redis server at url (redis://...) and pings it.
func Dial(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) Name() string { return "redis" }

// Client returns the underlying client so it can be shared with the
// preview cache.
func (s *Store) Client() *redis.Client { return s.client }

func (s *Store) Fetch(ctx context.Context, user, poseID string, itemIDs []string) ([]fit.Record, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, HashKey(s.prefix, user, poseID), itemIDs...).Result()
	if err != nil {
		return nil, err
	}
	return decodeValues(vals)
}

func (s *Store) Upsert(ctx context.Context, rec fit.Record) (fit.Record, error) {
	key := HashKey(s.prefix, rec.UserID, rec.PoseID)

	prev, err := s.client.HGet(ctx, key, rec.ItemID).Bytes()
	switch {
	case err == nil:
		var old fit.Record
		if json.Unmarshal(prev, &old) == nil {
			rec = fitstore.Merge(old, rec)
		}
	case !errors.Is(err, redis.Nil):
		return fit.Record{}, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fit.Record{}, err
	}
	if err := s.client.HSet(ctx, key, rec.ItemID, data).Err(); err != nil {
		return fit.Record{}, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, key fit.Key) error {
	return s.client.HDel(ctx, HashKey(s.prefix, key.User, key.Pose), key.Item).Err()
}

func (s *Store) Close() error { return s.client.Close() }

// HashKey returns the hash holding the fits of user on poseID.
func HashKey(prefix, user, poseID string) string {
	return fmt.Sprintf("%sfits:%s:%s", prefix, user, poseID)
}

// decodeValues turns an HMGET reply into records. Nil entries are missing
// fields.
func decodeValues(vals []any) ([]fit.Record, error) {
	var out []fit.Record
	for _, v := range vals {
		var raw []byte
		switch s := v.(type) {
		case nil:
			continue
		case string:
			raw = []byte(s)
		case []byte:
			raw = s
		default:
			return nil, fmt.Errorf("unexpected redis value %T", v)
		}
		var r fit.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode fit: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

var _ fitstore.Store = (*Store)(nil)
