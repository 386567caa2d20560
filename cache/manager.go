package cache

import (
	"context"
	"time"

	"github.com/climalink/climalink/models"
	"github.com/redis/go-redis/v9"
)

// Manager holds the typed caches of the API server.
type Manager struct {
	client redis.UniversalClient

	// Current conditions: lat,lon rounded to 2 decimals -> models.Current
	Current *Cache[models.Current]

	// Forecasts: lat,lon rounded to 2 decimals -> models.Forecast
	Forecast *Cache[models.Forecast]
}

// NewManager configures all caches with the same TTL.
func NewManager(client redis.UniversalClient, ttl time.Duration) *Manager {
	return &Manager{
		client: client,
		Current: New(Options[models.Current]{
			Client: client,
			Prefix: "wx:cur",
			TTL:    ttl,
		}),
		Forecast: New(Options[models.Forecast]{
			Client: client,
			Prefix: "wx:fc",
			TTL:    ttl,
		}),
	}
}

// Ping checks that Redis is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Connect parses a redis:// URL and returns a ready Manager.
func Connect(ctx context.Context, url string, ttl time.Duration) (*Manager, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	m := NewManager(redis.NewClient(opts), ttl)
	if err := m.Ping(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}
