// Package diagnostics correlates diagnostics pushed by language servers with the tool calls waiting for them.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/clock"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -source=diagnostics.go -destination=diagnosticsmock/diagnostics_mock.go -package=diagnosticsmock

const (
	_nameKey          = "diagnostics"
	_configKeyTimeout = "sessions.diagnosticsTimeoutMs"
	_defaultTimeout   = 2000 * time.Millisecond
)

// Controller matches each pushed diagnostics notification to the oldest pending waiter for its document.
type Controller interface {
	// Register adds a waiter for the document. Register before announcing the document so a fast push is not lost.
	Register(ctx context.Context, id entity.DocumentIdentity) *Waiter
	// Publish resolves the oldest pending waiter for the document, reporting whether one was pending.
	Publish(ctx context.Context, id entity.DocumentIdentity, diagnostics json.RawMessage) bool
	// Await blocks until the waiter is resolved by a push, the wait budget elapses or ctx is done.
	// ok is false when no push arrived in time. Each waiter must be awaited or cancelled exactly once.
	Await(ctx context.Context, w *Waiter) (diagnostics json.RawMessage, ok bool)
	// Cancel removes a waiter that will not be awaited.
	Cancel(w *Waiter)
	// Pending returns the number of waiters registered for the document.
	Pending(id entity.DocumentIdentity) int
}

// Waiter is a pending diagnostics request.
type Waiter struct {
	Token        uuid.UUID
	Identity     entity.DocumentIdentity
	RegisteredAt time.Time

	// buffered so Publish never blocks; at most one value is ever sent
	result chan json.RawMessage
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
	Stats  tally.Scope
	Clock  clock.Clock
}

type controller struct {
	logger  *zap.SugaredLogger
	stats   tally.Scope
	clock   clock.Clock
	timeout time.Duration

	mu      sync.Mutex
	waiters map[entity.DocumentIdentity][]*Waiter
}

// New creates a new diagnostics correlator.
func New(p Params) (Controller, error) {
	c := &controller{
		logger:  p.Logger.With("plugin", _nameKey),
		stats:   p.Stats.SubScope(_nameKey),
		clock:   p.Clock,
		timeout: _defaultTimeout,
		waiters: make(map[entity.DocumentIdentity][]*Waiter),
	}

	var timeoutMs int
	if err := p.Config.Get(_configKeyTimeout).Populate(&timeoutMs); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyTimeout, err)
	}
	if timeoutMs > 0 {
		c.timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return c, nil
}

func (c *controller) Register(ctx context.Context, id entity.DocumentIdentity) *Waiter {
	w := &Waiter{
		Token:        uuid.Must(uuid.NewV4()),
		Identity:     id,
		RegisteredAt: c.clock.Now(),
		result:       make(chan json.RawMessage, 1),
	}

	c.mu.Lock()
	c.waiters[id] = append(c.waiters[id], w)
	c.mu.Unlock()

	c.logger.Debugw("registered diagnostics waiter", "uri", id.URI, "token", w.Token)
	return w
}

func (c *controller) Publish(ctx context.Context, id entity.DocumentIdentity, diagnostics json.RawMessage) bool {
	c.mu.Lock()
	queue := c.waiters[id]
	if len(queue) == 0 {
		c.mu.Unlock()
		c.stats.Counter("unmatched").Inc(1)
		c.logger.Debugw("dropping diagnostics with no pending waiter", "uri", id.URI)
		return false
	}
	w := queue[0]
	c.removeLocked(id, 0)
	c.mu.Unlock()

	w.result <- diagnostics
	return true
}

func (c *controller) Await(ctx context.Context, w *Waiter) (json.RawMessage, bool) {
	timer := c.clock.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case diagnostics := <-w.result:
		return c.matched(w, diagnostics), true
	case <-timer.C():
	case <-ctx.Done():
	}

	if c.expire(w) {
		c.stats.Counter("timeout").Inc(1)
		c.logger.Debugw("diagnostics wait timed out", "uri", w.Identity.URI, "token", w.Token)
		return nil, false
	}
	// Publish removed the waiter first, so its result is already on the way.
	return c.matched(w, <-w.result), true
}

func (c *controller) Cancel(w *Waiter) {
	c.expire(w)
}

func (c *controller) Pending(id entity.DocumentIdentity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters[id])
}

func (c *controller) matched(w *Waiter, diagnostics json.RawMessage) json.RawMessage {
	c.stats.Counter("matched").Inc(1)
	c.logger.Debugw("diagnostics matched", "uri", w.Identity.URI, "token", w.Token, "waited", c.clock.Now().Sub(w.RegisteredAt))
	return diagnostics
}

// expire removes the waiter if it is still pending and reports whether it did.
func (c *controller) expire(w *Waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, pending := range c.waiters[w.Identity] {
		if pending == w {
			c.removeLocked(w.Identity, i)
			return true
		}
	}
	return false
}

func (c *controller) removeLocked(id entity.DocumentIdentity, i int) {
	queue := c.waiters[id]
	if len(queue) == 1 {
		delete(c.waiters, id)
		return
	}
	c.waiters[id] = append(queue[:i:i], queue[i+1:]...)
}
