package weather

import (
	"context"
	"fmt"

	"github.com/climalink/climalink/cache"
	"github.com/climalink/climalink/models"
	"github.com/sirupsen/logrus"
)

// Upstream is the weather data source; *Client implements it.
type Upstream interface {
	Configured() bool
	Current(ctx context.Context, lat, lon float64) (models.Current, error)
	Forecast(ctx context.Context, lat, lon float64) (models.Forecast, error)
}

// Service serves weather requests, optionally through the Redis cache.
type Service struct {
	upstream Upstream
	caches   *cache.Manager
	logger   logrus.FieldLogger
}

// NewService returns a service. caches may be nil.
func NewService(upstream Upstream, caches *cache.Manager, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{upstream: upstream, caches: caches, logger: logger.WithField("component", "weather")}
}

// CacheKey groups coordinates that round to the same two decimals.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

func (s *Service) Current(ctx context.Context, lat, lon float64) (models.Current, error) {
	if !s.upstream.Configured() {
		return models.Current{}, ErrNoAPIKey
	}
	if s.caches == nil {
		return s.upstream.Current(ctx, lat, lon)
	}
	res, hit, err := s.caches.Current.Fetch(ctx, CacheKey(lat, lon), func(ctx context.Context) (models.Current, error) {
		return s.upstream.Current(ctx, lat, lon)
	})
	if err != nil {
		return res, err
	}
	s.logger.WithFields(logrus.Fields{"kind": "current", "hit": hit}).Trace("Weather cache")
	res.Latitude, res.Longitude = lat, lon
	return res, nil
}

func (s *Service) Forecast(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	if !s.upstream.Configured() {
		return models.Forecast{}, ErrNoAPIKey
	}
	if s.caches == nil {
		return s.upstream.Forecast(ctx, lat, lon)
	}
	res, hit, err := s.caches.Forecast.Fetch(ctx, CacheKey(lat, lon), func(ctx context.Context) (models.Forecast, error) {
		return s.upstream.Forecast(ctx, lat, lon)
	})
	if err != nil {
		return res, err
	}
	s.logger.WithFields(logrus.Fields{"kind": "forecast", "hit": hit}).Trace("Weather cache")
	res.Latitude, res.Longitude = lat, lon
	return res, nil
}
