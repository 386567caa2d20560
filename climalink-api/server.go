package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/climalink/climalink/climalink-api/docs"
	"github.com/climalink/climalink/cache"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/weather"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("climalink-api")

// NodeClient is the part of the RPC client used for the chain id checks.
type NodeClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Deps are the collaborators of the server. Caches, Reader and Node may be
// nil.
type Deps struct {
	Settings Settings
	Upstream weather.Upstream
	Caches   *cache.Manager
	Reader   eligibility.Reader
	Node     NodeClient
	Logger   *logrus.Logger
}

type Server struct {
	settings    Settings
	app         *fiber.App
	weather     *weather.Service
	caches      *cache.Manager
	reader      eligibility.Reader
	eligibility *eligibility.Resolver
	node        NodeClient
	networkOK   atomic.Bool
	hub         *Hub
	logger      logrus.FieldLogger
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	resolverOpts := eligibility.Options{
		RefreshDelay: deps.Settings.RefreshDelay,
		Logger:       deps.Logger,
	}
	s := &Server{
		settings:    deps.Settings,
		weather:     weather.NewService(deps.Upstream, deps.Caches, deps.Logger),
		caches:      deps.Caches,
		reader:      deps.Reader,
		eligibility: eligibility.New(deps.Reader, resolverOpts),
		node:        deps.Node,
		hub:         NewHub(deps.Reader, resolverOpts, deps.Settings.WatchInterval, deps.Logger),
		logger:      deps.Logger.WithField("component", "api"),
	}

	s.networkOK.Store(true)
	s.hub.check = s.CheckNetwork
	s.CheckNetwork(context.Background())

	s.app = fiber.New(fiber.Config{
		AppName:      "ClimaLink API",
		ErrorHandler: s.ErrorHandlerFunc,
		ReadTimeout:  5 * time.Second,
		ProxyHeader:  fiber.HeaderXForwardedFor,
	})
	s.app.Use(logger.New(logger.Config{Output: deps.Logger.Writer()}))
	s.routes()
	return s
}

func (s *Server) routes() {
	app := s.app

	// healthcheck
	app.Get("/healthcheck", HealthCheck)
	app.Get("/healthz", s.Healthz)

	api := app.Group("/api", s.traceRequests)

	// weather
	api.Get("/current", s.GetCurrent)
	api.Get("/forecast", s.GetForecast)

	// eligibility
	api.Get("/eligibility", s.GetEligibility)
	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(WebSocketHandler(s.hub)))

	// swagger
	var swaggerConfig = swagger.Config{
		Title:           "ClimaLink API (" + s.settings.InstanceName + ") - Swagger UI",
		Layout:          "BaseLayout",
		DeepLinking:     true,
		TryItOutEnabled: true,
	}
	api.Get("/docs/*", swagger.New(swaggerConfig))
}

// traceRequests opens a server span per request and reports the handler time.
func (s *Server) traceRequests(c *fiber.Ctx) error {
	ctx, span := tracer.Start(c.UserContext(), c.Method()+" "+strings.Clone(c.Path()),
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.SetUserContext(ctx)
	if sc := span.SpanContext(); sc.IsValid() {
		c.Set("X-Trace-Id", sc.TraceID().String())
	}

	start := time.Now()
	err := c.Next()
	c.Append("Server-timing", fmt.Sprintf("app;dur=%v", time.Since(start).String()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("http.status_code", c.Response().StatusCode()))
	return err
}

func (s *Server) ErrorHandlerFunc(ctx *fiber.Ctx, err error) error {
	fields := logrus.Fields{
		"path":    ctx.Path(),
		"ip":      ctx.IP(),
		"queries": ctx.Queries(),
	}
	switch e := err.(type) {
	case weather.Error:
		if e.Code >= fiber.StatusInternalServerError {
			s.logger.WithFields(fields).WithField("code", e.Code).Warn(e.Message)
		}
		return ctx.Status(e.Code).JSON(e)
	case *fiber.Error:
		return ctx.Status(e.Code).JSON(fiber.Map{"error": e.Message})
	default:
		s.logger.WithFields(fields).WithError(err).Error("Request failed")
		resp := map[string]string{}
		resp["error"] = fmt.Sprintf("internal server error: %s", err.Error())
		return ctx.Status(fiber.StatusInternalServerError).JSON(resp)
	}
}
