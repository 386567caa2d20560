package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/climalink/climalink/cache"
	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/telemetry"
	"github.com/climalink/climalink/weather"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

type Settings struct {
	Bind            string
	InstanceName    string
	Weather         weather.Settings
	RedisDsn        string
	WeatherCacheTTL time.Duration
	RPC             string
	NetworkFile     string
	ChainID         int64
	Token           string
	Climate         string
	DAO             string
	RefreshDelay    time.Duration
	WatchInterval   time.Duration
	LogLevel        string
	Telemetry       telemetry.Config
}

//	@title			ClimaLink API
//	@version		1.0.0
//	@description	Weather proxy for the ClimaLink DApp and read-only role/eligibility resolution against the ClimaLink contracts.
//	@BasePath		/api

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseSettings(args []string) (Settings, error) {
	var s Settings
	fs := flag.NewFlagSet("climalink-api", flag.ContinueOnError)
	bind := ":5000"
	if port := os.Getenv("PORT"); port != "" {
		bind = ":" + port
	}
	fs.StringVar(&s.Bind, "bind", bind, "Bind address, defaults to :$PORT or :5000")
	fs.StringVar(&s.InstanceName, "name", "Go", "Instance name to show in Swagger UI")
	fs.StringVar(&s.Weather.APIKey, "owm-apikey", os.Getenv("OPENWEATHER_API_KEY"), "OpenWeatherMap API key")
	fs.StringVar(&s.Weather.BaseURL, "owm-endpoint", weather.DefaultBaseURL, "OpenWeatherMap API endpoint")
	fs.DurationVar(&s.Weather.Timeout, "owm-timeout", 10*time.Second, "OpenWeatherMap request timeout")
	fs.Float64Var(&s.Weather.RPS, "owm-rps", 0, "Max upstream requests per second, 0 for unlimited")
	fs.StringVar(&s.RedisDsn, "redis", os.Getenv("REDIS_URL"), "Redis connection string for the weather cache")
	fs.DurationVar(&s.WeatherCacheTTL, "weather-cache-ttl", 5*time.Minute, "Weather cache TTL")
	fs.StringVar(&s.RPC, "rpc", os.Getenv("CLIMALINK_RPC"), "Ethereum JSON-RPC endpoint")
	fs.StringVar(&s.NetworkFile, "network", envOr("CLIMALINK_NETWORK", ""), "Network profile (TOML)")
	fs.Int64Var(&s.ChainID, "chain-id", 0, "Expected chain id, 0 accepts any")
	fs.StringVar(&s.Token, "token", "", "CLT token contract address")
	fs.StringVar(&s.Climate, "climate", "", "Climate contract address")
	fs.StringVar(&s.DAO, "dao", "", "DAO contract address")
	fs.DurationVar(&s.RefreshDelay, "refresh-delay", eligibility.DefaultRefreshDelay, "Default delay of a scheduled eligibility refresh")
	fs.DurationVar(&s.WatchInterval, "watch-interval", 30*time.Second, "Re-resolve watched accounts at this interval, 0 disables")
	fs.StringVar(&s.LogLevel, "log-level", "info", "Log level")
	fs.StringVar(&s.Telemetry.Endpoint, "otel-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP collector host:port, empty disables tracing")
	fs.StringVar(&s.Telemetry.Protocol, "otel-protocol", "http", "OTLP protocol: http or grpc")
	fs.BoolVar(&s.Telemetry.Insecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	fs.Float64Var(&s.Telemetry.SampleRate, "otel-sample-rate", 1, "Trace sample rate")
	if err := fs.Parse(args); err != nil {
		return s, err
	}
	s.Telemetry.ServiceName = "climalink-api"
	return s, nil
}

// contractAddresses merges the network profile with the address flags. Flags
// win.
func (s *Settings) contractAddresses() (chain.Addresses, error) {
	var addrs chain.Addresses
	if s.NetworkFile != "" {
		network, err := chain.LoadNetwork(s.NetworkFile)
		if err != nil {
			return addrs, err
		}
		if addrs, err = network.Addresses(); err != nil {
			return addrs, err
		}
		if s.RPC == "" {
			s.RPC = network.RPCURL
		}
		if s.ChainID == 0 {
			s.ChainID = network.ChainID
		}
	}
	for _, f := range []struct {
		hex string
		dst *common.Address
	}{
		{s.Token, &addrs.Token},
		{s.Climate, &addrs.Climate},
		{s.DAO, &addrs.DAO},
	} {
		if f.hex != "" {
			*f.dst = common.HexToAddress(f.hex)
		}
	}
	return addrs, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func main() {
	settings, err := parseSettings(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	logger := newLogger(settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, settings.Telemetry, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	deps := Deps{
		Settings: settings,
		Upstream: weather.NewClient(settings.Weather),
		Logger:   logger,
	}
	if !deps.Upstream.Configured() {
		logger.Warn("OPENWEATHER_API_KEY is not set, weather routes will answer 400")
	}

	if settings.RedisDsn != "" {
		caches, err := cache.Connect(ctx, settings.RedisDsn, settings.WeatherCacheTTL)
		if err != nil {
			logger.WithError(err).Warn("Weather cache disabled")
		} else {
			defer caches.Close()
			deps.Caches = caches
			logger.WithField("ttl", settings.WeatherCacheTTL).Info("Weather cache enabled")
		}
	}

	addrs, err := settings.contractAddresses()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load network profile")
	}
	if settings.RPC != "" {
		client, err := ethclient.DialContext(ctx, settings.RPC)
		if err != nil {
			logger.WithError(err).Fatal("Failed to dial RPC node")
		}
		defer client.Close()
		contracts, err := chain.NewContracts(client, addrs, nil)
		if err != nil {
			logger.WithError(err).Warn("Eligibility endpoints disabled")
		} else {
			deps.Reader = contracts
			deps.Node = client
		}
	} else {
		logger.Warn("No RPC node configured, eligibility endpoints will answer 503")
	}

	srv := NewServer(deps)
	go srv.hub.Run(ctx)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := srv.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Warn("Shutdown failed")
		}
	}()

	logger.WithField("bind", settings.Bind).Info("Starting server")
	if err := srv.app.Listen(settings.Bind); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
