package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/climalink/climalink/models"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	CurrentConfidence     = 95
	forecastConfidence    = 90
	forecastConfidenceMin = 50
	forecastDecayPerDay   = 5
	// the upstream forecast has one entry every 3 hours
	entriesPerDay = 8
)

var tracer = otel.Tracer("weather")

type Settings struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RPS limits upstream calls per second. Zero disables limiting.
	RPS   float64
	Burst int
}

// Client calls the OpenWeatherMap REST API.
type Client struct {
	settings Settings
	limiter  *rate.Limiter
}

func NewClient(settings Settings) *Client {
	if settings.BaseURL == "" {
		settings.BaseURL = DefaultBaseURL
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if settings.RPS > 0 {
		burst := settings.Burst
		if burst <= 0 {
			burst = int(settings.RPS) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(settings.RPS), burst)
	}
	return &Client{settings: settings, limiter: limiter}
}

func (c *Client) Configured() bool {
	return c.settings.APIKey != ""
}

type owmConditions struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Dt int64 `json:"dt"`
}

func (o owmConditions) condition() string {
	if len(o.Weather) == 0 {
		return ""
	}
	return o.Weather[0].Main
}

func (o owmConditions) timestamp() time.Time {
	if o.Dt == 0 {
		return time.Now().UTC()
	}
	return time.Unix(o.Dt, 0).UTC()
}

type owmForecast struct {
	List []owmConditions `json:"list"`
}

type owmError struct {
	Message string `json:"message"`
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (models.Current, error) {
	var raw owmConditions
	if err := c.get(ctx, "/weather", lat, lon, &raw); err != nil {
		return models.Current{}, err
	}
	return models.Current{
		Latitude:         lat,
		Longitude:        lon,
		Temperature:      raw.Main.Temp,
		Humidity:         raw.Main.Humidity,
		WeatherCondition: raw.condition(),
		Timestamp:        raw.timestamp(),
		Confidence:       CurrentConfidence,
	}, nil
}

// Forecast returns one entry per day, with confidence decaying by day.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	var raw owmForecast
	if err := c.get(ctx, "/forecast", lat, lon, &raw); err != nil {
		return models.Forecast{}, err
	}
	out := models.Forecast{Latitude: lat, Longitude: lon, Forecast: []models.ForecastEntry{}}
	for i := 0; i < len(raw.List); i += entriesPerDay {
		item := raw.List[i]
		out.Forecast = append(out.Forecast, models.ForecastEntry{
			Timestamp:        item.timestamp(),
			Temperature:      item.Main.Temp,
			Humidity:         item.Main.Humidity,
			WeatherCondition: item.condition(),
			Confidence:       ForecastConfidence(i / entriesPerDay),
		})
	}
	return out, nil
}

// ForecastConfidence is the confidence of a forecast day days ahead.
func ForecastConfidence(day int) int {
	if v := forecastConfidence - forecastDecayPerDay*day; v > forecastConfidenceMin {
		return v
	}
	return forecastConfidenceMin
}

func (c *Client) get(ctx context.Context, path string, lat, lon float64, out interface{}) error {
	if !c.Configured() {
		return ErrNoAPIKey
	}
	ctx, span := tracer.Start(ctx, "weather.upstream"+path)
	defer span.End()
	span.SetAttributes(attribute.Float64("latitude", lat), attribute.Float64("longitude", lon))

	if err := c.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Error{Code: 429, Message: "upstream rate limit: " + err.Error()}
	}

	baseUrl, err := url.Parse(strings.TrimRight(c.settings.BaseURL, "/") + path)
	if err != nil {
		return Error{Code: 500, Message: err.Error()}
	}
	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Add("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Add("appid", c.settings.APIKey)
	params.Add("units", "metric")
	baseUrl.RawQuery = params.Encode()

	agent := fiber.Get(baseUrl.String())
	agent.Timeout(c.settings.Timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		span.SetStatus(codes.Error, errs[0].Error())
		return Error{Code: 500, Message: errs[0].Error()}
	}
	span.SetAttributes(attribute.Int("http.status_code", code))

	if code != fiber.StatusOK {
		var upstream owmError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &upstream) == nil && upstream.Message != "" {
			msg = upstream.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", code)
		}
		span.SetStatus(codes.Error, msg)
		return Error{Code: code, Message: msg}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return Error{Code: 500, Message: err.Error()}
	}
	return nil
}
