package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/commonenv/internal/events"
)

// SendEvent is emitted with the *Client just before a batch is posted.
const SendEvent = "json_rpc.sending"

var (
	ErrNotInitialized = errors.New("jsonrpc: client has not been initialized")
	ErrNoURL          = errors.New("jsonrpc: client has not been initialized with a URL")
	ErrUnknownMethod  = errors.New("jsonrpc: method is not registered")
	ErrNoResponse     = errors.New("jsonrpc: no response for request")
)

// Error is a JSON-RPC error object returned by the server.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: error %d: %s", e.Code, e.Message)
}

// Request is one entry of a batch.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Response is one entry of a batch reply.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Emitter is the subset of events.Emitter the client needs.
type Emitter interface {
	On(path string, handler events.Handler) error
	Emit(path string, args ...any) error
}

// Client collects calls into a batch and posts the batch on Send.
type Client struct {
	transport Transport
	emitter   Emitter
	logger    *zap.Logger

	mu          sync.Mutex
	nextID      uint64
	url         string
	methods     []string
	batch       []*Call
	initialized bool
}

// Option customizes Client construction.
type Option func(*Client)

// WithTransport overrides the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithEmitter shares an emitter for SendEvent.
func WithEmitter(e Emitter) Option {
	return func(c *Client) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithLogger injects a logger for failed batches.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns an uninitialized client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		transport: NewHTTPTransport(),
		emitter:   events.NewEmitter(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Init sets the endpoint and the methods Append accepts and starts an empty
// batch.
func (c *Client) Init(url string, methods []string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
	c.methods = append([]string(nil), methods...)
	c.batch = nil
	c.initialized = true
	return c
}

// SetURL changes the endpoint.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
}

// URL returns the endpoint.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Pending returns the number of calls waiting for the next Send.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batch)
}

// BeforeSend registers handler for SendEvent.
func (c *Client) BeforeSend(handler events.Handler) error {
	return c.emitter.On(SendEvent, handler)
}

// Append adds a call to the current batch.
func (c *Client) Append(method string, params ...any) (*Call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, ErrNotInitialized
	}
	if !c.registered(method) {
		return nil, fmt.Errorf("%w: %q not in %s", ErrUnknownMethod, method, strings.Join(c.methods, ", "))
	}
	if params == nil {
		params = []any{}
	}
	c.nextID++
	call := newCall(c.nextID, method, params)
	c.batch = append(c.batch, call)
	return call, nil
}

func (c *Client) registered(method string) bool {
	for _, m := range c.methods {
		if m == method {
			return true
		}
	}
	return false
}

// Send notifies BeforeSend handlers, posts the current batch and settles
// every call in it. A new batch is started before the post.
func (c *Client) Send(ctx context.Context) error {
	c.mu.Lock()
	initialized := c.initialized
	c.mu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}

	if err := c.emitter.Emit(SendEvent, c); err != nil {
		return err
	}

	c.mu.Lock()
	url := c.url
	batch := c.batch
	c.batch = nil
	c.mu.Unlock()

	if url == "" {
		err := ErrNoURL
		rejectAll(batch, err)
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	requests := make([]Request, len(batch))
	for i, call := range batch {
		requests[i] = Request{JSONRPC: "2.0", ID: call.ID, Method: call.Method, Params: call.Params}
	}
	var responses []Response
	if err := c.transport.Do(ctx, url, requests, &responses); err != nil {
		c.logger.Debug("request response failed",
			zap.String("url", url),
			zap.Int("calls", len(batch)),
			zap.Error(err),
		)
		rejectAll(batch, err)
		return err
	}

	byID := make(map[uint64]Response, len(responses))
	for _, resp := range responses {
		byID[resp.ID] = resp
	}
	for _, call := range batch {
		resp, ok := byID[call.ID]
		switch {
		case !ok:
			call.settle(nil, fmt.Errorf("%w %d (%s)", ErrNoResponse, call.ID, call.Method))
		case resp.Error != nil:
			call.settle(nil, resp.Error)
		default:
			call.settle(resp.Result, nil)
		}
	}
	return nil
}

func rejectAll(batch []*Call, err error) {
	for _, call := range batch {
		call.settle(nil, err)
	}
}
