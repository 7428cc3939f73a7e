package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/botirk38/lastcorr/types"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces dataset keys.
const DefaultPrefix = "lastcorr:dataset:"

// RedisBackend implements DatasetBackend storing each dataset as a JSON
// string value under a common key prefix
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// parseRedisURL parses a Redis URL and returns redis.Options
func parseRedisURL(connectionString string) (*redis.Options, error) {
	// Handle redis:// or rediss:// URLs
	if strings.HasPrefix(connectionString, "redis://") || strings.HasPrefix(connectionString, "rediss://") {
		parsedURL, err := url.Parse(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}

		opts := &redis.Options{
			Addr: parsedURL.Host,
		}

		if parsedURL.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		if parsedURL.User != nil {
			opts.Username = parsedURL.User.Username()
			if password, ok := parsedURL.User.Password(); ok {
				opts.Password = password
			}
		}

		// Database number from path
		if parsedURL.Path != "" && parsedURL.Path != "/" {
			dbStr := strings.TrimPrefix(parsedURL.Path, "/")
			if db, err := strconv.Atoi(dbStr); err == nil {
				opts.DB = db
			}
		}

		return opts, nil
	}

	// Simple address format (host:port)
	return &redis.Options{
		Addr: connectionString,
	}, nil
}

// NewRedisBackend creates a new Redis backend
func NewRedisBackend(config types.BackendConfig) (*RedisBackend, error) {
	opts, err := parseRedisURL(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	// Explicit config values win over the URL
	if config.Username != "" {
		opts.Username = config.Username
	}
	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.Database != 0 {
		opts.DB = config.Database
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := DefaultPrefix
	if prefixOpt, ok := config.Options["prefix"]; ok {
		if p, ok := prefixOpt.(string); ok && p != "" {
			prefix = p
		}
	}

	return &RedisBackend{
		client: client,
		prefix: prefix,
		ttl:    config.TTL,
	}, nil
}

func (b *RedisBackend) key(name string) string {
	return b.prefix + name
}

// Put stores the dataset as JSON, replacing any previous version. A zero TTL
// keeps it until deleted.
func (b *RedisBackend) Put(ctx context.Context, ds types.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset %s: %w", ds.Name, err)
	}

	if err := b.client.Set(ctx, b.key(ds.Name), payload, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dataset in Redis: %w", err)
	}
	return nil
}

// Get retrieves a dataset from Redis
func (b *RedisBackend) Get(ctx context.Context, name string) (types.Dataset, bool, error) {
	payload, err := b.client.Get(ctx, b.key(name)).Bytes()
	if err == redis.Nil {
		return types.Dataset{}, false, nil
	}
	if err != nil {
		return types.Dataset{}, false, fmt.Errorf("failed to get dataset from Redis: %w", err)
	}

	var ds types.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return types.Dataset{}, false, fmt.Errorf("failed to unmarshal dataset %s: %w", name, err)
	}
	return ds, true, nil
}

// Delete removes a dataset from Redis
func (b *RedisBackend) Delete(ctx context.Context, name string) error {
	if err := b.client.Del(ctx, b.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete dataset from Redis: %w", err)
	}
	return nil
}

// scanKeys returns all keys with our prefix using SCAN
func (b *RedisBackend) scanKeys(ctx context.Context) ([]string, error) {
	pattern := b.prefix + "*"
	var keys []string
	var cursor uint64

	for {
		result, nextCursor, err := b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys from Redis: %w", err)
		}

		keys = append(keys, result...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Names returns the stored dataset names in ascending order
func (b *RedisBackend) Names(ctx context.Context) ([]string, error) {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, b.prefix))
	}
	sort.Strings(names)
	return names, nil
}

// Flush clears all datasets with the configured prefix from Redis
func (b *RedisBackend) Flush(ctx context.Context) error {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		if err := b.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to flush Redis: %w", err)
		}
	}
	return nil
}

// Len returns the number of datasets in Redis with our prefix
func (b *RedisBackend) Len(ctx context.Context) (int, error) {
	keys, err := b.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Close closes the Redis connection
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
