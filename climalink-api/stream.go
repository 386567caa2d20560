package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/climalink/climalink/eligibility"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Operation string

const (
	OpConnect    Operation = "connect"
	OpDisconnect Operation = "disconnect"
	OpRefresh    Operation = "refresh"
	OpPing       Operation = "ping"
)

const sendBufferSize = 64

type Envelope struct {
	Id        *string   `json:"id"`
	Operation Operation `json:"operation"`
}

// connect: track the eligibility of one account
type ConnectRequest struct {
	Address string `json:"address"`
}

// refresh: resolve again, now or after delay_ms
type RefreshRequest struct {
	DelayMs int64 `json:"delay_ms"`
}

type ErrorResponse struct {
	Id    *string `json:"id,omitempty"`
	Error string  `json:"error"`
}

type StatusResponse struct {
	Id     *string `json:"id,omitempty"`
	Status string  `json:"status"`
}

type EligibilityEvent struct {
	Type string               `json:"type"`
	Data eligibility.Snapshot `json:"data"`
}

// Client is one websocket connection with its own resolver.
type Client struct {
	ID        string
	Connected bool
	Account   common.Address
	SendEvent func([]byte) error
	resolver  *eligibility.Resolver
	sendChan  chan []byte
	mu        sync.Mutex
}

func (c *Client) startSender() {
	go func() {
		for msg := range c.sendChan {
			c.mu.Lock()
			if !c.Connected {
				c.mu.Unlock()
				break
			}
			err := c.SendEvent(msg)
			if err != nil {
				c.Connected = false
			}
			c.mu.Unlock()
			if err != nil {
				break
			}
		}
	}()
}

// enqueue hands msg to the sender goroutine. Messages are dropped when the
// buffer is full or the client is gone.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Connected {
		return false
	}
	select {
	case c.sendChan <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(v any) {
	if msg, err := json.Marshal(v); err == nil {
		c.enqueue(msg)
	}
}

func (c *Client) sendErr(id *string, err error) {
	c.sendJSON(ErrorResponse{Id: id, Error: err.Error()})
}

func (c *Client) sendStatus(id *string, status string) {
	c.sendJSON(StatusResponse{Id: id, Status: status})
}

func (c *Client) account() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Account
}

// Hub manages the websocket clients and re-resolves their accounts
// periodically.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	reader    eligibility.Reader
	opts      eligibility.Options
	interval  time.Duration
	networkOK atomic.Bool
	// check runs on every tick before the refresh and reports whether it
	// already re-resolved the watched accounts.
	check  func(ctx context.Context) bool
	logger logrus.FieldLogger
}

func NewHub(reader eligibility.Reader, opts eligibility.Options, interval time.Duration, logger logrus.FieldLogger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		reader:     reader,
		opts:       opts,
		interval:   interval,
		logger:     logger.WithField("component", "hub"),
	}
	h.networkOK.Store(true)
	h.opts.NetworkOK = h.networkOK.Load
	return h
}

// Available reports whether accounts can be resolved at all.
func (h *Hub) Available() bool {
	return h.reader != nil
}

func (h *Hub) newClient(send func([]byte) error) *Client {
	c := &Client{
		ID:        uuid.NewString(),
		Connected: true,
		SendEvent: send,
		resolver:  eligibility.New(h.reader, h.opts),
		sendChan:  make(chan []byte, sendBufferSize),
	}
	c.resolver.Subscribe(func(snap eligibility.Snapshot) {
		c.sendJSON(EligibilityEvent{Type: "eligibility", Data: snap})
	})
	return c
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var tick <-chan time.Time
	if h.interval > 0 {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			client.startSender()
			h.logger.WithField("client", client.ID).Debug("Client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.resolver.Stop()
				client.mu.Lock()
				client.Connected = false
				close(client.sendChan)
				client.mu.Unlock()
				h.logger.WithField("client", client.ID).Debug("Client disconnected")
			}
			h.mu.Unlock()
		case <-tick:
			go h.refreshWatched(ctx)
		}
	}
}

// watching returns the clients that track an account.
func (h *Hub) watching() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if client.account() != (common.Address{}) {
			clients = append(clients, client)
		}
	}
	return clients
}

func (h *Hub) refreshWatched(ctx context.Context) {
	if h.check != nil && h.check(ctx) {
		return
	}
	for _, client := range h.watching() {
		go client.resolver.Refresh(ctx)
	}
}

// SetNetwork switches every client resolver between live reads and the
// unavailable snapshot, re-resolving the watched accounts.
func (h *Hub) SetNetwork(ctx context.Context, ok bool) {
	h.networkOK.Store(ok)
	for _, client := range h.watching() {
		go client.resolver.SetNetwork(ctx, ok)
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Watched returns the distinct accounts tracked by connected clients.
func (h *Hub) Watched() mapset.Set[common.Address] {
	watched := mapset.NewSet[common.Address]()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if account := client.account(); account != (common.Address{}) {
			watched.Add(account)
		}
	}
	return watched
}

// ────────────────────────────────────────────────────────────────────────────────
// WebSocket handler
// ────────────────────────────────────────────────────────────────────────────────

func WebSocketHandler(hub *Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.newClient(func(b []byte) error { return c.WriteMessage(websocket.TextMessage, b) })
		if !hub.Register(client) {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer func() {
			cancel()
			hub.Unregister(client)
		}()
		logger := hub.logger.WithField("client", client.ID)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				logger.WithError(err).Trace("read")
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				client.sendErr(nil, fmt.Errorf("invalid request: %v", err))
				continue
			}
			switch env.Operation {
			case OpPing:
				client.sendStatus(env.Id, "pong")

			case OpConnect:
				var req ConnectRequest
				if err := json.Unmarshal(msg, &req); err != nil {
					client.sendErr(env.Id, fmt.Errorf("invalid connect request: %v", err))
					continue
				}
				if !hub.Available() {
					client.sendErr(env.Id, errNoRPC)
					continue
				}
				if !common.IsHexAddress(req.Address) {
					client.sendErr(env.Id, fmt.Errorf("invalid address: %s", req.Address))
					continue
				}
				account := common.HexToAddress(req.Address)
				client.mu.Lock()
				client.Account = account
				client.mu.Unlock()
				client.sendStatus(env.Id, "connected")
				go client.resolver.SetAccount(ctx, account)

			case OpDisconnect:
				client.mu.Lock()
				client.Account = common.Address{}
				client.mu.Unlock()
				client.resolver.Stop()
				client.sendStatus(env.Id, "disconnected")
				go client.resolver.SetAccount(ctx, common.Address{})

			case OpRefresh:
				var req RefreshRequest
				if err := json.Unmarshal(msg, &req); err != nil {
					client.sendErr(env.Id, fmt.Errorf("invalid refresh request: %v", err))
					continue
				}
				if client.account() == (common.Address{}) {
					client.sendErr(env.Id, fmt.Errorf("no account connected"))
					continue
				}
				if req.DelayMs > 0 {
					client.resolver.RefreshAfter(ctx, time.Duration(req.DelayMs)*time.Millisecond)
					client.sendStatus(env.Id, "refresh_scheduled")
				} else {
					client.sendStatus(env.Id, "refreshing")
					go client.resolver.Refresh(ctx)
				}

			default:
				client.sendErr(env.Id, fmt.Errorf("unknown operation: %s", env.Operation))
			}
		}
	}
}
