// Package cache maintains the Redis-backed score cache and the ranked
// leaderboard derived from it.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/axservices/credibility-engine/internal/config"
)

const (
	scoreKeyPrefix = "credibility:score:"
	leaderboardKey = "credibility:leaderboard"
)

// Entry is one leaderboard row.
type Entry struct {
	ProviderID string `json:"provider_id"`
	Score      int    `json:"score"`
}

// ScoreCache mirrors computed credibility scores into Redis. A nil
// *ScoreCache is valid and disables every operation, so callers never
// branch on whether caching is configured.
type ScoreCache struct {
	rdb *redis.Client
}

// New builds a ScoreCache from configuration. An empty address returns
// nil, which disables caching.
func New(cfg config.CacheConfig) *ScoreCache {
	if cfg.Addr == "" {
		return nil
	}
	return &ScoreCache{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// NewFromClient wraps an existing client. Used in tests.
func NewFromClient(rdb *redis.Client) *ScoreCache {
	return &ScoreCache{rdb: rdb}
}

// SetScore writes the provider's score and updates its leaderboard rank.
// Cache failures are logged and swallowed: the store remains the source
// of truth and the next recompute repairs the cache.
func (c *ScoreCache) SetScore(ctx context.Context, providerID string, score int) {
	if c == nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, scoreKeyPrefix+providerID, score, 0)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(score), Member: providerID})
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("score cache write failed",
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
	}
}

// GetScore returns the cached score and whether it was present.
func (c *ScoreCache) GetScore(ctx context.Context, providerID string) (int, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, scoreKeyPrefix+providerID).Result()
	if err != nil {
		if !eris.Is(err, redis.Nil) {
			zap.L().Warn("score cache read failed",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		}
		return 0, false
	}
	score, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return score, true
}

// Top returns the highest-scored providers, best first.
func (c *ScoreCache) Top(ctx context.Context, limit int) ([]Entry, error) {
	if c == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	zs, err := c.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "cache: leaderboard range")
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		out = append(out, Entry{
			ProviderID: fmt.Sprint(z.Member),
			Score:      int(z.Score),
		})
	}
	return out, nil
}

// Remove drops a provider from the cache and leaderboard.
func (c *ScoreCache) Remove(ctx context.Context, providerID string) {
	if c == nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, scoreKeyPrefix+providerID)
	pipe.ZRem(ctx, leaderboardKey, providerID)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("score cache remove failed",
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
	}
}

// Close releases the client.
func (c *ScoreCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
