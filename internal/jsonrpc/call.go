package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Call is a pending request. It settles once its batch is sent.
type Call struct {
	ID     uint64
	Method string
	Params []any

	once   sync.Once
	done   chan struct{}
	result json.RawMessage
	err    error
}

func newCall(id uint64, method string, params []any) *Call {
	return &Call{ID: id, Method: method, Params: params, done: make(chan struct{})}
}

func (c *Call) settle(result json.RawMessage, err error) {
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// Done is closed when the call settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx ends.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the call and unmarshals its result into out.
func (c *Call) Decode(ctx context.Context, out any) error {
	raw, err := c.Wait(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("jsonrpc: decode result of %s: %w", c.Method, err)
	}
	return nil
}
