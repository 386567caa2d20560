package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound     = errors.New("key not found")
	ErrEncodeFailed = errors.New("failed to encode value")
	ErrDecodeFailed = errors.New("failed to decode value")
)

// Encoder converts a value of type T to bytes stored in Redis.
type Encoder[T any] func(value T) ([]byte, error)

// Decoder converts bytes from Redis back to a value of type T.
type Decoder[T any] func(data []byte) (T, error)

// Cache is a typed key space in Redis.
type Cache[T any] struct {
	client  redis.UniversalClient
	encoder Encoder[T]
	decoder Decoder[T]
	prefix  string
	ttl     time.Duration
}

type Options[T any] struct {
	Client  redis.UniversalClient
	Encoder Encoder[T]
	Decoder Decoder[T]
	Prefix  string
	// TTL applied by Set and Fetch. Zero means no expiration.
	TTL time.Duration
}

func New[T any](opts Options[T]) *Cache[T] {
	if opts.Encoder == nil {
		opts.Encoder = packMsgpack[T]
	}
	if opts.Decoder == nil {
		opts.Decoder = unpackMsgpack[T]
	}
	return &Cache[T]{
		client:  opts.Client,
		encoder: opts.Encoder,
		decoder: opts.Decoder,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
	}
}

func (c *Cache[T]) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Set stores value under key with the cache TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := c.encoder(value)
	if err != nil {
		return errors.Join(ErrEncodeFailed, err)
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}

// Get returns ErrNotFound if the key does not exist.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	value, err := c.decoder(data)
	if err != nil {
		return zero, errors.Join(ErrDecodeFailed, err)
	}
	return value, nil
}

// TTL returns the remaining lifetime of key.
func (c *Cache[T]) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.TTL(ctx, c.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if d == -2 {
		return 0, ErrNotFound
	}
	return d, nil
}

// Fetch returns the cached value for key or calls load and stores its
// result. Redis failures fall through to load; hit reports a cache hit.
func (c *Cache[T]) Fetch(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (value T, hit bool, err error) {
	value, err = c.Get(ctx, key)
	if err == nil {
		return value, true, nil
	}

	value, err = load(ctx)
	if err != nil {
		return value, false, err
	}
	_ = c.Set(ctx, key, value)
	return value, false, nil
}
