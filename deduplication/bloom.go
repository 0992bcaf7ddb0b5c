package deduplication

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BloomConfig configures RedisBloom connection and key
type BloomConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis key for bloom filter
	TTL      time.Duration
	// Capacity sets the initial BF.RESERVE capacity (number of items)
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001)
	ErrorRate float64
	// If true, BF.RESERVE NONSCALING flag will be used
	NonScaling bool
}

// RedisBloom is a minimal Redis-backed Bloom wrapper using RedisBloom commands.
// It holds item fingerprints. The filter is advisory: adds are best-effort and
// the key may be younger than the index's history, so callers confirm every
// verdict against the fingerprint index.
type RedisBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBloomFromEnv creates a RedisBloom client using environment variables
// REDIS_ADDR, REDIS_PASS, BLOOM_KEY (optional), BLOOM_TTL_SECONDS (optional).
// Returns (nil, nil) when REDIS_ADDR is unset: the bloom layer is opt-in.
// window is the dedup lookback; unless BLOOM_TTL_SECONDS overrides it, the
// filter key expires on the same horizon so filter and index age together.
func NewRedisBloomFromEnv(window time.Duration) (*RedisBloom, error) {
	cfg := bloomConfigFromEnv(window)
	if cfg == nil {
		return nil, nil
	}
	return NewRedisBloom(*cfg)
}

// bloomConfigFromEnv assembles the filter config from the environment, or
// nil when REDIS_ADDR is unset.
func bloomConfigFromEnv(window time.Duration) *BloomConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	pass := os.Getenv("REDIS_PASS")
	key := os.Getenv("BLOOM_KEY")
	if key == "" {
		key = "mediawatch:fingerprints:bloom"
	}
	ttl := window
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	if t := os.Getenv("BLOOM_TTL_SECONDS"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	// Optional capacity and error rate for BF.RESERVE
	capacity := 100000
	if c := os.Getenv("BLOOM_CAPACITY"); c != "" {
		if v, err := strconv.Atoi(c); err == nil && v > 0 {
			capacity = v
		}
	}
	errorRate := 0.001
	if e := os.Getenv("BLOOM_ERROR_RATE"); e != "" {
		if v, err := strconv.ParseFloat(e, 64); err == nil && v > 0 {
			errorRate = v
		}
	}
	nonScaling := false
	if ns := os.Getenv("BLOOM_NONSCALING"); ns != "" {
		if b, err := strconv.ParseBool(ns); err == nil {
			nonScaling = b
		}
	}

	return &BloomConfig{Addr: addr, Password: pass, DB: 0, Key: key, TTL: ttl, Capacity: capacity, ErrorRate: errorRate, NonScaling: nonScaling}
}

// NewRedisBloom creates a RedisBloom wrapper and verifies connectivity
func NewRedisBloom(cfg BloomConfig) (*RedisBloom, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Ping to verify
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	rb := &RedisBloom{client: client, key: cfg.Key, ttl: cfg.TTL}

	// If the key does not exist, attempt to create the filter with BF.RESERVE
	// at the configured capacity and error rate. A failure here is non-fatal:
	// BF.ADD auto-creates the filter on servers with default RedisBloom settings.
	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		args := []interface{}{"BF.RESERVE", cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity}
		if cfg.NonScaling {
			args = append(args, "NONSCALING")
		}
		_ = client.Do(ctx, args...).Err()
	}

	return rb, nil
}

// Close closes the underlying Redis client
func (r *RedisBloom) Close() error {
	return r.client.Close()
}

// Exists checks if the fingerprint is present in the bloom filter.
// Uses the RedisBloom BF.EXISTS command.
func (r *RedisBloom) Exists(fingerprint string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := r.client.Do(ctx, "BF.EXISTS", r.key, fingerprint).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the fingerprint into the bloom filter and ensures TTL on the key.
func (r *RedisBloom) Add(fingerprint string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Do(ctx, "BF.ADD", r.key, fingerprint).Err(); err != nil {
		return err
	}

	// Sliding window TTL behaviour: reset the expire on each add so that the
	// filter remains active for `ttl` after the most recent insertion.
	if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
		return err
	}
	return nil
}
