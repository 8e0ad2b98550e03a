// Package languageserver provides the connection used to exchange messages with a language server process.
package languageserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

//go:generate mockgen -source=language_server.go -destination=languageservermock/language_server_mock.go -package=languageservermock

const _errSendToServer = "sending %s to language server: %w"

// NotificationHandler handles a notification sent by the language server.
// Handlers run on the connection's read loop and must not block on further exchanges with the same server.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// RequestHandler answers a request sent by the language server.
// The same restriction as NotificationHandler applies.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Connection is a bidirectional JSON-RPC connection to a single language server.
// Messages are written in the order they are sent.
type Connection interface {
	// Request sends a request and waits for its response. The raw result is nil or "null" when the server returned no result.
	Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	// Notify sends a one way notification.
	Notify(ctx context.Context, method string, params interface{}) error
	// OnNotification registers the handler for an inbound notification method, replacing any previous one.
	OnNotification(method string, handler NotificationHandler)
	// OnRequest registers the handler for an inbound request method, replacing any previous one.
	OnRequest(method string, handler RequestHandler)
	// Listen starts processing inbound messages. Handlers should be registered first. Calling Listen again has no effect.
	Listen(ctx context.Context)
	// Close releases the connection and its underlying stream.
	Close() error
	// Done is closed when the connection stops processing messages.
	Done() <-chan struct{}
	// Err returns the reason the connection stopped, once Done is closed.
	Err() error
}

type connection struct {
	conn   jsonrpc2.Conn
	logger *zap.SugaredLogger
	once   sync.Once

	handlersMu    sync.RWMutex
	notifications map[string]NotificationHandler
	requests      map[string]RequestHandler
}

// New returns a Connection speaking header framed JSON-RPC over rwc.
func New(rwc io.ReadWriteCloser, logger *zap.SugaredLogger) Connection {
	return NewWithStream(jsonrpc2.NewStream(rwc), logger)
}

// NewWithStream returns a Connection over an existing stream.
func NewWithStream(stream jsonrpc2.Stream, logger *zap.SugaredLogger) Connection {
	return &connection{
		conn:          jsonrpc2.NewConn(stream),
		logger:        logger,
		notifications: make(map[string]NotificationHandler),
		requests:      make(map[string]RequestHandler),
	}
}

func (c *connection) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pending calls are not failed when the stream breaks, so stop waiting once the connection is gone.
	go func() {
		select {
		case <-c.conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var result json.RawMessage
	if _, err := c.conn.Call(ctx, method, params, &result); err != nil {
		if connErr := c.closedErr(); connErr != nil {
			return nil, fmt.Errorf(_errSendToServer, method, connErr)
		}
		return nil, fmt.Errorf(_errSendToServer, method, err)
	}

	if result == nil {
		return nil, nil
	}
	return append(json.RawMessage(nil), result...), nil
}

func (c *connection) Notify(ctx context.Context, method string, params interface{}) error {
	if err := c.conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf(_errSendToServer, method, err)
	}
	return nil
}

func (c *connection) OnNotification(method string, handler NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.notifications[method] = handler
}

func (c *connection) OnRequest(method string, handler RequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.requests[method] = handler
}

func (c *connection) Listen(ctx context.Context) {
	c.once.Do(func() {
		c.conn.Go(ctx, c.handle)
	})
}

func (c *connection) Close() error {
	return c.conn.Close()
}

func (c *connection) Done() <-chan struct{} {
	return c.conn.Done()
}

func (c *connection) Err() error {
	return c.conn.Err()
}

func (c *connection) closedErr() error {
	select {
	case <-c.conn.Done():
		if err := c.conn.Err(); err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}
		return fmt.Errorf("connection closed")
	default:
		return nil
	}
}

func (c *connection) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	c.handlersMu.RLock()
	notificationHandler, isNotificationHandled := c.notifications[req.Method()]
	requestHandler, isRequestHandled := c.requests[req.Method()]
	c.handlersMu.RUnlock()

	if _, isCall := req.(*jsonrpc2.Call); !isCall {
		if !isNotificationHandled {
			c.logger.Debugw("unhandled notification from language server", "method", req.Method())
			return reply(ctx, nil, nil)
		}
		notificationHandler(ctx, req.Params())
		return reply(ctx, nil, nil)
	}

	if !isRequestHandled {
		c.logger.Debugw("unhandled request from language server", "method", req.Method())
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}

	result, err := requestHandler(ctx, req.Params())
	if err != nil {
		c.logger.Warnw("answering language server request", "method", req.Method(), "error", err)
	}
	return reply(ctx, result, err)
}
