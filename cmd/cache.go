package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdhe/game-catalog-proxy/pkg/cache"
	"github.com/abdhe/game-catalog-proxy/pkg/config"
)

// cacheCmd groups response-cache maintenance.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upstream response cache",
	Long: `Manage the Redis-backed response cache.

Entries expire lazily on read; sweep removes everything past its TTL in
one pass, and clear wipes a namespace entirely. Use clear after an
upstream schema change, sweep as a periodic maintenance job.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withCaches(func(ctx context.Context, name string, c *cache.ResponseCache) error {
			removed, err := c.Clear(ctx)
			if err != nil {
				return fmt.Errorf("clear %s cache: %w", name, err)
			}
			fmt.Printf("%s: removed %d entries\n", name, removed)
			return nil
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired and corrupt cache entries",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withCaches(func(ctx context.Context, name string, c *cache.ResponseCache) error {
			removed, err := c.ClearExpired(ctx)
			if err != nil {
				return fmt.Errorf("sweep %s cache: %w", name, err)
			}
			fmt.Printf("%s: swept %d expired entries\n", name, removed)
			return nil
		})
	},
}

// withCaches connects to Redis and runs fn over each cache namespace.
// Maintenance targets the durable store only, so an unreachable Redis is
// an error here rather than a fallback.
func withCaches(fn func(ctx context.Context, name string, c *cache.ResponseCache) error) error {
	cfg := config.Load()

	store := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
	}

	caches := []struct {
		name string
		c    *cache.ResponseCache
	}{
		{"catalog", cache.New(store, "catalog_", cfg.CacheTTL)},
		{"detail", cache.New(store, "detail_", cfg.DetailCacheTTL)},
		{"video", cache.New(store, "video_", cfg.CacheTTL)},
	}

	for _, entry := range caches {
		if err := fn(ctx, entry.name, entry.c); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
}
