package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/eligibility"
	"github.com/climalink/climalink/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

// apiClient talks to climalink-api.
type apiClient struct {
	url    string
	client *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		url: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{MaxIdleConns: 4},
			Timeout:   timeout,
		},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (a *apiClient) get(ctx context.Context, path string, params url.Values, out any) error {
	target, err := url.JoinPath(a.url, path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (status %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("climalink-api returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func coordinates(lat, lon float64) url.Values {
	params := url.Values{}
	params.Add("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Add("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return params
}

func (a *apiClient) Current(ctx context.Context, lat, lon float64) (models.Current, error) {
	var out models.Current
	err := a.get(ctx, "/api/current", coordinates(lat, lon), &out)
	return out, err
}

func (a *apiClient) Forecast(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	var out models.Forecast
	err := a.get(ctx, "/api/forecast", coordinates(lat, lon), &out)
	return out, err
}

// wsURL maps the http(s) base url to the ws(s) stream endpoint.
func wsURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path += "/api/ws"
	return u.String(), nil
}

type streamMessage struct {
	Type   string               `json:"type"`
	Data   eligibility.Snapshot `json:"data"`
	Status string               `json:"status"`
	Error  string               `json:"error"`
}

// Watch connects account on the eligibility stream and calls fn for every
// snapshot until ctx is done or the stream fails.
func (a *apiClient) Watch(ctx context.Context, account common.Address, fn func(eligibility.Snapshot)) error {
	target, err := wsURL(a.url)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(map[string]string{
		"id":        "connect",
		"operation": "connect",
		"address":   account.Hex(),
	}); err != nil {
		return err
	}
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch {
		case msg.Error != "":
			return fmt.Errorf("stream: %s", msg.Error)
		case msg.Type == "eligibility":
			fn(msg.Data)
		}
	}
}

// reportFromCurrent fills the observation fields of r from the current
// conditions.
func reportFromCurrent(r chain.Report, cur models.Current) chain.Report {
	r.Temperature = cur.Temperature
	r.Humidity = uint64(math.Round(math.Max(0, cur.Humidity)))
	if r.Condition == "" {
		r.Condition = cur.WeatherCondition
	}
	return r
}
