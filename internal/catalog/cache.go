package catalog

import (
	"context"
	"encoding/json"
)

func (s *Store) readCache(ctx context.Context, key string, out any) bool {
	if s.redis == nil || s.cacheTTL <= 0 {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (s *Store) writeCache(ctx context.Context, key string, value any) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// invalidateCache drops all catalog keys after a write.
func (s *Store) invalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	iter := s.redis.Scan(ctx, 0, "catalog:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Debug().Err(err).Msg("cache invalidation failed")
		}
	}
}
