package collection

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one set per (key, model) so SADD gives union semantics
// for concurrent claims. A hash per key holds the lastUpdated stamps.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "collection"}
}

func (s *RedisStore) cardsKey(key, modelID string) string {
	return fmt.Sprintf("%s:%s:cards:%s", s.prefix, key, modelID)
}

func (s *RedisStore) metaKey(key string) string {
	return fmt.Sprintf("%s:%s:updated", s.prefix, key)
}

func (s *RedisStore) modelsKey(key string) string {
	return fmt.Sprintf("%s:%s:models", s.prefix, key)
}

func (s *RedisStore) identityKey(key string) string {
	return fmt.Sprintf("%s:%s:identity", s.prefix, key)
}

// Add writes the card, the model index, the identity and a first stamp in
// one MULTI so a failed claim leaves nothing behind. A newly added card to a
// model that already had a stamp then refreshes it.
func (s *RedisStore) Add(ctx context.Context, key, identity, modelID, cardID string, at time.Time) (bool, error) {
	stamp := at.UTC().Format(time.RFC3339Nano)

	var added *redis.IntCmd
	var stamped *redis.BoolCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, s.cardsKey(key, modelID), cardID)
		pipe.SAdd(ctx, s.modelsKey(key), modelID)
		pipe.SetNX(ctx, s.identityKey(key), identity, 0)
		stamped = pipe.HSetNX(ctx, s.metaKey(key), modelID, stamp)
		return nil
	})
	if err != nil {
		return false, err
	}
	if added.Val() == 0 {
		return false, nil
	}
	if !stamped.Val() {
		if err := s.rdb.HSet(ctx, s.metaKey(key), modelID, stamp).Err(); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *RedisStore) Cards(ctx context.Context, key, modelID string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.cardsKey(key, modelID)).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *RedisStore) Entries(ctx context.Context, key string) (map[string]Entry, error) {
	models, err := s.rdb.SMembers(ctx, s.modelsKey(key)).Result()
	if err != nil {
		return nil, err
	}
	stamps, err := s.rdb.HGetAll(ctx, s.metaKey(key)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Entry, len(models))
	for _, modelID := range models {
		ids, err := s.Cards(ctx, key, modelID)
		if err != nil {
			return nil, err
		}
		entry := Entry{SavedCards: ids}
		if raw, ok := stamps[modelID]; ok {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				entry.LastUpdated = ts
			}
		}
		out[modelID] = entry
	}
	return out, nil
}
