package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:generate mockgen -source=executor.go -destination=executormock/executor_mock.go -package=executormock

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(func(logger *zap.SugaredLogger) Executor {
		return NewExecutor(WithLogger(logger))
	}),
)

// Executor wraps the execution of "os/exec".Cmd's to allow adding logs/metrics to
// each exec and makes it easier to test.
type Executor interface {
	// Start - logs and starts the Cmd specified, returning a handle to its stdin/stdout streams.
	// cmd.Stdin and cmd.Stdout must be unset; cmd.Stderr is left to the caller.
	Start(cmd *exec.Cmd) (Process, error)
}

// Process is a running child process. Read consumes its stdout and Write feeds its stdin.
type Process interface {
	io.ReadWriteCloser

	// Pid returns the operating system process id.
	Pid() int
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Err returns the exit error once Done is closed.
	Err() error
	// Kill terminates the process immediately. Killing an exited process is not an error.
	Kill() error
}

// executorImp implements Executor
type executorImp struct {
	Logger *zap.SugaredLogger
	// StartFunc may be replaced to use executorImp in tests.
	StartFunc func(e *exec.Cmd) error
}

// Option defines options to customize executorImp's behavior
type Option func(*executorImp)

// WithLogger overrides the default noop logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *executorImp) {
		executor.Logger = logger
	}
}

// WithStartFunc provides customized start behavior for executorImp
func WithStartFunc(startFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.StartFunc = startFunc
	}
}

// NewExecutor - creates a new executorImp with a noop logger and a default start function
func NewExecutor(opts ...Option) Executor {
	executor := &executorImp{
		Logger:    zap.NewNop().Sugar(),
		StartFunc: func(cmd *exec.Cmd) error { return cmd.Start() },
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Start - logs the Path/Args, wires stdin/stdout and calls StartFunc.
func (l *executorImp) Start(cmd *exec.Cmd) (Process, error) {
	if cmd.Stdin != nil || cmd.Stdout != nil {
		return nil, errors.New("stdin and stdout are owned by the executor")
	}
	l.logCommand(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// An os.Pipe keeps the read end open past Wait, so trailing output is not lost.
	stdout, childStdout, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = childStdout

	if err := l.StartFunc(cmd); err != nil {
		stdin.Close()
		return nil, multierr.Combine(err, stdout.Close(), childStdout.Close())
	}
	childStdout.Close()

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		done:   make(chan struct{}),
	}
	go p.wait(l.Logger)
	return p, nil
}

// Logs the command specified: Path, Dir, Args
func (l *executorImp) logCommand(cmd *exec.Cmd) {
	args := []string{}
	if len(cmd.Args) > 1 {
		// First arg is always the command itself
		args = cmd.Args[1:]
	}
	l.Logger.Infow("Exec",
		"Path", cmd.Path,
		"Dir", cmd.Dir,
		"Args", args,
	)
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (p *process) wait(logger *zap.SugaredLogger) {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	logger.Infow("process exited", "pid", p.Pid(), "error", err)
	close(p.done)
}

func (p *process) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *process) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close releases both streams. The process itself is not signalled.
func (p *process) Close() error {
	return multierr.Combine(
		ignoreClosed(p.stdin.Close()),
		ignoreClosed(p.stdout.Close()),
	)
}

func (p *process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing pid %d: %w", p.Pid(), err)
	}
	return nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
