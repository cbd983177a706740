package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the Redis backend writes.
const DefaultRedisPrefix = "lmcache:"

const (
	fieldPayload   = "payload"
	fieldWrittenAt = "written_at"
)

// RedisBackend stores each record as a hash and indexes write times in a
// sorted set. Value and index are updated in one MULTI/EXEC transaction.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
	index  string
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	b := NewRedisBackend(redis.NewClient(opt), prefix)
	if err := b.Ping(ctx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return b, nil
}

// NewRedisBackend wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, index: prefix + "index"}
}

func (b *RedisBackend) entryKey(key string) string {
	return b.prefix + "entry:" + key
}

// Load reads the record stored under key.
func (b *RedisBackend) Load(ctx context.Context, key string) (Record, bool, error) {
	fields, err := b.client.HGetAll(ctx, b.entryKey(key)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("loading %s: %w", key, err)
	}
	if len(fields) == 0 {
		return Record{}, false, nil
	}

	nanos, err := strconv.ParseInt(fields[fieldWrittenAt], 10, 64)
	if err != nil {
		return Record{}, false, fmt.Errorf("loading %s: bad %s: %w", key, fieldWrittenAt, err)
	}
	return Record{
		Key:       key,
		Payload:   []byte(fields[fieldPayload]),
		WrittenAt: time.Unix(0, nanos),
	}, true, nil
}

// Save writes rec and its index entry in one transaction. The index is
// scored in whole milliseconds; written_at keeps full precision.
func (b *RedisBackend) Save(ctx context.Context, rec Record) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.entryKey(rec.Key),
			fieldPayload, rec.Payload,
			fieldWrittenAt, rec.WrittenAt.UnixNano(),
		)
		pipe.ZAdd(ctx, b.index, redis.Z{Score: float64(rec.WrittenAt.UnixMilli()), Member: rec.Key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes key and its index entry. A missing key is not an error.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.entryKey(key))
		pipe.ZRem(ctx, b.index, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every indexed record and the index itself.
func (b *RedisBackend) DeleteAll(ctx context.Context) error {
	keys, err := b.client.ZRange(ctx, b.index, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	toDelete := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		toDelete = append(toDelete, b.entryKey(k))
	}
	toDelete = append(toDelete, b.index)

	if err := b.client.Del(ctx, toDelete...).Err(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// ExpiredKeys lists keys written before cutoff. Index entries in the
// cutoff's own millisecond are checked against written_at, so the result
// agrees with the other backends to the nanosecond.
func (b *RedisBackend) ExpiredKeys(ctx context.Context, cutoff time.Time) ([]string, error) {
	cutoffMilli := cutoff.UnixMilli()
	entries, err := b.client.ZRangeByScoreWithScores(ctx, b.index, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoffMilli, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing expired: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, z := range entries {
		key, _ := z.Member.(string)
		if int64(z.Score) < cutoffMilli {
			keys = append(keys, key)
			continue
		}
		raw, err := b.client.HGet(ctx, b.entryKey(key), fieldWrittenAt).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing expired: %w", err)
		}
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("listing expired: bad %s for %s: %w", fieldWrittenAt, key, err)
		}
		if time.Unix(0, nanos).Before(cutoff) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

var _ Backend = (*RedisBackend)(nil)
