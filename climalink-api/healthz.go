package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

type componentHealth struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMs *int64 `json:"latency_ms,omitempty"`
	ChainID   string `json:"chain_id,omitempty"`
}

type healthzResponse struct {
	OK              bool                       `json:"ok"`
	Now             int64                      `json:"now"`
	Clients         int                        `json:"clients"`
	WatchedAccounts int                        `json:"watched_accounts"`
	Components      map[string]componentHealth `json:"components"`
}

func measure(start time.Time) *int64 {
	ms := time.Since(start).Milliseconds()
	return &ms
}

func (s *Server) redisHealth(ctx context.Context) componentHealth {
	start := time.Now()
	status := componentHealth{OK: true}
	if err := s.caches.Ping(ctx); err != nil {
		status.OK = false
		status.Error = err.Error()
	}
	status.LatencyMs = measure(start)
	return status
}

func (s *Server) rpcHealth(ctx context.Context) componentHealth {
	start := time.Now()
	status := componentHealth{OK: true}
	id, err := s.node.ChainID(ctx)
	status.LatencyMs = measure(start)
	if err != nil {
		status.OK = false
		status.Error = err.Error()
		return status
	}
	status.ChainID = id.String()
	if s.settings.ChainID != 0 && id.Int64() != s.settings.ChainID {
		status.OK = false
		status.Error = fmt.Sprintf("expected chain %d", s.settings.ChainID)
	}
	return status
}

// Healthz reports the reachability of Redis and the RPC node. Components that
// are not configured are omitted.
func (s *Server) Healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	resp := healthzResponse{
		OK:              true,
		Now:             time.Now().Unix(),
		Clients:         s.hub.ClientCount(),
		WatchedAccounts: s.hub.Watched().Cardinality(),
		Components:      map[string]componentHealth{},
	}
	if s.caches != nil {
		resp.Components["redis"] = s.redisHealth(ctx)
	}
	if s.node != nil {
		resp.Components["rpc"] = s.rpcHealth(ctx)
	}
	for _, status := range resp.Components {
		if !status.OK {
			resp.OK = false
		}
	}

	code := fiber.StatusOK
	if !resp.OK {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}
