package factory

import (
	"context"
	"encoding/json"
	"net"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/uber/ulsp-bridge/src/ulsp/internal/executor"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

var _fakePid int32 = 40000

// FakeHandler answers a message received by a FakeLanguageServer.
// Handlers run on the server's read loop, so a handler that calls back into the bridge must do so on its own goroutine.
type FakeHandler func(ctx context.Context, s *FakeLanguageServer, params json.RawMessage) (interface{}, error)

// FakeExecutor starts an in-memory FakeLanguageServer for every command instead of a real process.
type FakeExecutor struct {
	// Setup runs for each new server before it starts reading messages.
	Setup func(s *FakeLanguageServer)
	// StartErr, when set, is returned by Start.
	StartErr error

	mu       sync.Mutex
	commands []*exec.Cmd
	servers  []*FakeLanguageServer
}

// Start implements executor.Executor.
func (e *FakeExecutor) Start(cmd *exec.Cmd) (executor.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commands = append(e.commands, cmd)
	if e.StartErr != nil {
		return nil, e.StartErr
	}

	s := newFakeLanguageServer()
	if e.Setup != nil {
		e.Setup(s)
	}
	s.conn.Go(context.Background(), s.handle)
	e.servers = append(e.servers, s)
	return s.process, nil
}

// Commands returns every command passed to Start.
func (e *FakeExecutor) Commands() []*exec.Cmd {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*exec.Cmd(nil), e.commands...)
}

// Servers returns every server started so far.
func (e *FakeExecutor) Servers() []*FakeLanguageServer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*FakeLanguageServer(nil), e.servers...)
}

// FakeReceived is a message received by a FakeLanguageServer.
type FakeReceived struct {
	Method string
	Params json.RawMessage
}

// FakeLanguageServer answers language server requests over an in-memory pipe.
// By default it answers initialize and shutdown, exits on exit, and answers other requests with null.
type FakeLanguageServer struct {
	process *fakeProcess
	conn    jsonrpc2.Conn

	mu       sync.Mutex
	handlers map[string]FakeHandler
	received []FakeReceived
}

func newFakeLanguageServer() *FakeLanguageServer {
	client, server := net.Pipe()
	s := &FakeLanguageServer{
		handlers: make(map[string]FakeHandler),
	}
	s.process = &fakeProcess{
		Conn: client,
		pid:  int(atomic.AddInt32(&_fakePid, 1)),
		done: make(chan struct{}),
		exit: s.Exit,
	}
	s.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(server))

	s.Handle(protocol.MethodInitialize, func(ctx context.Context, s *FakeLanguageServer, params json.RawMessage) (interface{}, error) {
		return map[string]interface{}{"capabilities": map[string]interface{}{}}, nil
	})
	s.Handle(protocol.MethodShutdown, func(ctx context.Context, s *FakeLanguageServer, params json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	s.Handle(protocol.MethodExit, func(ctx context.Context, s *FakeLanguageServer, params json.RawMessage) (interface{}, error) {
		go s.Exit()
		return nil, nil
	})
	return s
}

// Handle sets the handler for method, replacing the default one.
func (s *FakeLanguageServer) Handle(method string, h FakeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Notify sends a notification to the bridge.
func (s *FakeLanguageServer) Notify(ctx context.Context, method string, params interface{}) error {
	return s.conn.Notify(ctx, method, params)
}

// Call sends a request to the bridge and decodes its result.
func (s *FakeLanguageServer) Call(ctx context.Context, method string, params, result interface{}) error {
	_, err := s.conn.Call(ctx, method, params, result)
	return err
}

// Received returns every message received so far, in order.
func (s *FakeLanguageServer) Received() []FakeReceived {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FakeReceived(nil), s.received...)
}

// Count returns how many messages of method were received.
func (s *FakeLanguageServer) Count(method string) int {
	n := 0
	for _, r := range s.Received() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Exit simulates the process terminating.
func (s *FakeLanguageServer) Exit() {
	s.process.once.Do(func() {
		_ = s.conn.Close()
		<-s.conn.Done()
		close(s.process.done)
	})
}

// Process returns the process handed to the bridge.
func (s *FakeLanguageServer) Process() executor.Process {
	return s.process
}

// Killed reports whether the bridge killed the process.
func (s *FakeLanguageServer) Killed() bool {
	return s.process.killed.Load()
}

func (s *FakeLanguageServer) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.mu.Lock()
	s.received = append(s.received, FakeReceived{Method: req.Method(), Params: req.Params()})
	h, ok := s.handlers[req.Method()]
	s.mu.Unlock()

	if !ok {
		return reply(ctx, nil, nil)
	}
	result, err := h(ctx, s, req.Params())
	return reply(ctx, result, err)
}

type fakeProcess struct {
	net.Conn

	pid    int
	done   chan struct{}
	once   sync.Once
	killed atomic.Bool
	exit   func()
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Err() error { return nil }

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit()
	return nil
}
