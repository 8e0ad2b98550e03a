// Package registry owns the language server sessions of the bridge, one per language and project.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/diagnostics"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	languageserver "github.com/uber/ulsp-bridge/src/ulsp/gateway/language-server"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/clock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/executor"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/logfilewriter"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverconfig"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile"
	"github.com/uber/ulsp-bridge/src/ulsp/mapper"
	"github.com/uber/ulsp-bridge/src/ulsp/repository/session"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=registry.go -destination=registrymock/registry_mock.go -package=registrymock

const (
	_nameKey                  = "sessions"
	_configKey                = "sessions"
	_clientName               = "ulsp-bridge"
	_clientVersion            = "1.0.0"
	_fmtSessionInfoKey        = "session:%s"
	_defaultInitializeTimeout = 30 * time.Second
	_defaultShutdownGrace     = 3 * time.Second
)

// Controller creates, shares and tears down language server sessions.
// It is the only component that starts or stops language server processes.
type Controller interface {
	// Acquire returns the Ready session for key, creating it on first use.
	// Concurrent first uses of a key share a single creation.
	Acquire(ctx context.Context, key entity.SessionKey) (*entity.Session, error)
	// Evict tears down the session stored under key, if any.
	Evict(ctx context.Context, key entity.SessionKey) error
	// EvictIdle tears down sessions unused for longer than the configured idle timeout and returns how many were removed.
	EvictIdle(ctx context.Context) (int, error)
	// Shutdown tears down every session. Failures are logged and combined, and never stop the remaining teardowns.
	Shutdown(ctx context.Context) error
}

// Params are inbound parameters to initialize a new registry.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	Stats          tally.Scope
	Clock          clock.Clock
	FS             fs.UlspFS
	Executor       executor.Executor
	ServerConfig   serverconfig.Source
	Diagnostics    diagnostics.Controller
	Sessions       session.Repository
	OutputWriters  logfilewriter.Factory
	ServerInfoFile serverinfofile.ServerInfoFile
}

type sessionsConfig struct {
	InitializeTimeoutSeconds int `yaml:"initializeTimeoutSeconds"`
	ShutdownGraceSeconds     int `yaml:"shutdownGraceSeconds"`
	IdleTimeoutMinutes       int `yaml:"idleTimeoutMinutes"`
}

type controller struct {
	logger         *zap.SugaredLogger
	stats          tally.Scope
	clock          clock.Clock
	fs             fs.UlspFS
	executor       executor.Executor
	serverConfig   serverconfig.Source
	diagnostics    diagnostics.Controller
	sessions       session.Repository
	outputWriters  logfilewriter.Factory
	serverInfoFile serverinfofile.ServerInfoFile

	initializeTimeout time.Duration
	shutdownGrace     time.Duration
	idleTimeout       time.Duration

	group    singleflight.Group
	watchers sync.WaitGroup
	creating sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once

	// base scopes every session creation; Shutdown cancels it.
	base       context.Context
	cancelBase context.CancelFunc

	mu     sync.Mutex
	closed bool
	live   map[uuid.UUID]*handle
}

// handle holds the resources of one started session until it is disposed.
type handle struct {
	session *entity.Session
	stderr  logfilewriter.Writer

	once sync.Once
	err  error
}

// New creates a new session registry.
func New(p Params) (Controller, error) {
	c := &controller{
		logger:            p.Logger.With("plugin", _nameKey),
		stats:             p.Stats.SubScope(_nameKey),
		clock:             p.Clock,
		fs:                p.FS,
		executor:          p.Executor,
		serverConfig:      p.ServerConfig,
		diagnostics:       p.Diagnostics,
		sessions:          p.Sessions,
		outputWriters:     p.OutputWriters,
		serverInfoFile:    p.ServerInfoFile,
		initializeTimeout: _defaultInitializeTimeout,
		shutdownGrace:     _defaultShutdownGrace,
		stop:              make(chan struct{}),
		live:              make(map[uuid.UUID]*handle),
	}
	c.base, c.cancelBase = context.WithCancel(context.Background())

	var cfg sessionsConfig
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.InitializeTimeoutSeconds > 0 {
		c.initializeTimeout = time.Duration(cfg.InitializeTimeoutSeconds) * time.Second
	}
	if cfg.ShutdownGraceSeconds > 0 {
		c.shutdownGrace = time.Duration(cfg.ShutdownGraceSeconds) * time.Second
	}
	if cfg.IdleTimeoutMinutes > 0 {
		c.idleTimeout = time.Duration(cfg.IdleTimeoutMinutes) * time.Minute
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if c.idleTimeout > 0 {
				c.watchers.Add(1)
				go c.sweepIdle()
			}
			return nil
		},
	})

	return c, nil
}

func (c *controller) Acquire(ctx context.Context, key entity.SessionKey) (*entity.Session, error) {
	key, err := c.normalizeKey(key)
	if err != nil {
		return nil, err
	}

	if s, ok := c.ready(ctx, key); ok {
		return s, nil
	}

	// Unconfigured languages fail before anything is started.
	invocation, ok := c.serverConfig.Invocation(key.LanguageID)
	if !ok {
		return nil, &errors.ConfigurationMissingError{LanguageID: key.LanguageID}
	}

	resultChan := c.group.DoChan(key.String(), func() (interface{}, error) {
		if s, ok := c.ready(ctx, key); ok {
			return s, nil
		}

		// The creation is shared by every waiting caller, so it is bound to the registry and not to the caller that started it.
		createCtx, cancel := context.WithTimeout(c.base, c.initializeTimeout)
		defer cancel()
		return c.create(createCtx, key, invocation)
	})

	select {
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *controller) Evict(ctx context.Context, key entity.SessionKey) error {
	key, err := c.normalizeKey(key)
	if err != nil {
		return err
	}

	s, err := c.sessions.Get(ctx, key)
	if err != nil {
		if _, ok := errors.NotFoundSession(err); ok {
			return nil
		}
		return err
	}

	if _, err := c.sessions.CompareAndDelete(ctx, key, s.UUID); err != nil {
		return err
	}
	c.stats.Counter("evicted").Inc(1)
	c.logger.Infow("evicting session", "language", key.LanguageID, "projectRoot", key.ProjectRoot)

	h, ok := c.liveHandle(s.UUID)
	if !ok {
		return nil
	}
	return c.dispose(h)
}

func (c *controller) EvictIdle(ctx context.Context) (int, error) {
	if c.idleTimeout <= 0 {
		return 0, nil
	}

	all, err := c.sessions.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := c.clock.Now().Add(-c.idleTimeout)
	var (
		evicted int
		errs    error
	)
	for _, s := range all {
		if !s.LastUsed.Before(cutoff) {
			continue
		}
		removed, err := c.sessions.CompareAndDelete(ctx, s.Key, s.UUID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !removed {
			continue
		}

		evicted++
		c.stats.Counter("evicted").Inc(1)
		c.logger.Infow("evicting idle session", "language", s.Key.LanguageID, "projectRoot", s.Key.ProjectRoot, "lastUsed", s.LastUsed)
		if h, ok := c.liveHandle(s.UUID); ok {
			errs = multierr.Append(errs, c.dispose(h))
		}
	}
	return evicted, errs
}

func (c *controller) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	c.closed = true
	handles := make([]*handle, 0, len(c.live))
	for _, h := range c.live {
		handles = append(handles, h)
	}
	c.mu.Unlock()
	c.cancelBase()

	var (
		errsMu sync.Mutex
		errs   error
	)
	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			key := h.session.Key
			if _, err := c.sessions.CompareAndDelete(ctx, key, h.session.UUID); err != nil {
				c.logger.Warnw("removing session failed", "language", key.LanguageID, "projectRoot", key.ProjectRoot, zap.Error(err))
			}
			if err := c.dispose(h); err != nil {
				c.logger.Errorw("session teardown failed", "language", key.LanguageID, "projectRoot", key.ProjectRoot, zap.Error(err))
				errsMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("tearing down %s: %w", key, err))
				errsMu.Unlock()
			}
			// Errors are collected above so every teardown runs to completion.
			return nil
		})
	}
	_ = g.Wait()

	// A creation that had not reached the snapshot above disposes its own process once it sees the registry closed.
	c.creating.Wait()
	c.watchers.Wait()
	c.logger.Infow("all sessions shut down", "count", len(handles))
	return errs
}

// ready returns the stored session for key if it can serve calls, recording the use.
func (c *controller) ready(ctx context.Context, key entity.SessionKey) (*entity.Session, bool) {
	s, err := c.sessions.Get(ctx, key)
	if err != nil || s.Status != entity.SessionStatusReady {
		return nil, false
	}

	now := c.clock.Now()
	if err := c.sessions.Touch(ctx, key, now); err == nil {
		s.LastUsed = now
	}
	return s, true
}

func (c *controller) create(ctx context.Context, key entity.SessionKey, invocation entity.ServerInvocation) (*entity.Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.RegistryClosedError
	}
	c.creating.Add(1)
	c.mu.Unlock()
	defer c.creating.Done()

	logger := c.logger.With("language", key.LanguageID, "projectRoot", key.ProjectRoot)
	now := c.clock.Now()
	s := &entity.Session{
		UUID:          uuid.Must(uuid.NewV4()),
		Key:           key,
		WorkspaceRoot: c.workspaceRoot(key.ProjectRoot, logger),
		Status:        entity.SessionStatusInitializing,
		StartedAt:     now,
		LastUsed:      now,
	}
	h := &handle{session: s}

	stderr, err := c.outputWriters.New(key.LanguageID)
	if err != nil {
		logger.Warnw("language server output will not be recorded", zap.Error(err))
	} else {
		h.stderr = stderr
		s.StderrLog = stderr.Path()
	}

	cmd := exec.Command(invocation.Command, invocation.Args...)
	cmd.Dir = s.WorkspaceRoot
	if h.stderr != nil {
		cmd.Stderr = h.stderr
	}

	process, err := c.executor.Start(cmd)
	if err != nil {
		if h.stderr != nil {
			if err := h.stderr.Close(); err != nil {
				logger.Warnw("closing language server output failed", zap.Error(err))
			}
		}
		c.stats.Counter("failed").Inc(1)
		return nil, &errors.SpawnError{LanguageID: key.LanguageID, Err: err}
	}
	s.Process = process
	s.Conn = languageserver.New(process, logger)

	// Track the handle right away so a shutdown during the handshake also stops this process.
	c.mu.Lock()
	c.live[s.UUID] = h
	c.mu.Unlock()

	c.installHandlers(s, logger)
	s.Conn.Listen(context.Background())

	if err := c.handshake(ctx, s, logger); err != nil {
		c.stats.Counter("failed").Inc(1)
		if disposeErr := c.dispose(h); disposeErr != nil {
			logger.Warnw("cleaning up failed session", zap.Error(disposeErr))
		}
		return nil, err
	}

	s.Status = entity.SessionStatusReady

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err := c.dispose(h); err != nil {
			logger.Warnw("cleaning up session created during shutdown", zap.Error(err))
		}
		return nil, errors.RegistryClosedError
	}
	if err := c.sessions.Set(ctx, s); err != nil {
		c.mu.Unlock()
		if disposeErr := c.dispose(h); disposeErr != nil {
			logger.Warnw("cleaning up unrecorded session failed", zap.Error(disposeErr))
		}
		return nil, err
	}
	c.watchers.Add(1)
	c.mu.Unlock()

	go c.watch(h)

	if err := c.serverInfoFile.UpdateField(fmt.Sprintf(_fmtSessionInfoKey, key), strconv.Itoa(process.Pid())); err != nil {
		logger.Warnw("recording session in server info file failed", zap.Error(err))
	}

	c.stats.Counter("spawned").Inc(1)
	logger.Infow("session ready", "pid", process.Pid(), "workspaceRoot", s.WorkspaceRoot, "stderrLog", s.StderrLog)
	return s, nil
}

// handshake runs initialize, initialized and the best effort configuration push.
func (c *controller) handshake(ctx context.Context, s *entity.Session, logger *zap.SugaredLogger) error {
	params := mapper.WorkspaceRootToInitializeParams(s.WorkspaceRoot, int32(os.Getpid()), protocol.ClientInfo{
		Name:    _clientName,
		Version: _clientVersion,
	})
	if _, err := s.Conn.Request(ctx, protocol.MethodInitialize, params); err != nil {
		select {
		case <-s.Process.Done():
			// The process never got far enough to answer.
			exitErr := s.Process.Err()
			if exitErr == nil {
				exitErr = err
			}
			return &errors.SpawnError{LanguageID: s.Key.LanguageID, Err: exitErr}
		default:
		}
		return &errors.HandshakeError{LanguageID: s.Key.LanguageID, Stage: errors.StageInitialize, Err: err}
	}

	if err := s.Conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		return &errors.HandshakeError{LanguageID: s.Key.LanguageID, Stage: errors.StageInitialized, Err: err}
	}

	if settings := c.serverConfig.Settings(s.Key.LanguageID); len(settings) > 0 {
		if err := s.Conn.Notify(ctx, protocol.MethodWorkspaceDidChangeConfiguration, mapper.SettingsToDidChangeConfigurationParams(settings)); err != nil {
			logger.Warnw("pushing default settings failed", zap.Error(err))
		}
	}
	return nil
}

// installHandlers registers inbound message handlers. It runs before Listen so no early push is lost.
func (c *controller) installHandlers(s *entity.Session, logger *zap.SugaredLogger) {
	s.Conn.OnNotification(protocol.MethodTextDocumentPublishDiagnostics, func(ctx context.Context, params json.RawMessage) {
		published, err := mapper.NotificationToPublishDiagnostics(params)
		if err != nil {
			logger.Warnw("ignoring malformed diagnostics", zap.Error(err))
			return
		}
		c.diagnostics.Publish(ctx, entity.DocumentIdentity{SessionUUID: s.UUID, URI: published.URI}, published.Diagnostics)
	})

	s.Conn.OnNotification(protocol.MethodWindowLogMessage, func(ctx context.Context, params json.RawMessage) {
		msg, err := mapper.NotificationToLogMessageParams(params)
		if err != nil {
			return
		}
		logger.Debugw("language server message", "type", msg.Type, "message", msg.Message)
	})

	s.Conn.OnRequest(protocol.MethodWorkspaceConfiguration, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		req, err := mapper.RequestToConfigurationParams(params)
		if err != nil {
			return nil, err
		}
		settings := c.serverConfig.Settings(s.Key.LanguageID)
		result := make([]interface{}, len(req.Items))
		for i, item := range req.Items {
			result[i] = serverconfig.Section(settings, item.Section)
		}
		return result, nil
	})

	acknowledge := func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, nil
	}
	s.Conn.OnRequest(protocol.MethodWorkDoneProgressCreate, acknowledge)
	s.Conn.OnRequest(protocol.MethodClientRegisterCapability, acknowledge)
	s.Conn.OnRequest(protocol.MethodClientUnregisterCapability, acknowledge)
}

// watch evicts the session once its connection or process ends on its own.
func (c *controller) watch(h *handle) {
	defer c.watchers.Done()

	s := h.session
	select {
	case <-s.Conn.Done():
	case <-s.Process.Done():
	case <-c.stop:
		return
	}

	removed, err := c.sessions.CompareAndDelete(context.Background(), s.Key, s.UUID)
	if err != nil {
		c.logger.Warnw("removing exited session failed", "language", s.Key.LanguageID, zap.Error(err))
	}
	if removed {
		c.stats.Counter("evicted").Inc(1)
		c.logger.Warnw("language server exited, session evicted",
			"language", s.Key.LanguageID,
			"projectRoot", s.Key.ProjectRoot,
			"pid", s.Process.Pid(),
			"stderrLog", s.StderrLog,
		)
	}
	if err := c.dispose(h); err != nil {
		c.logger.Debugw("cleaning up exited session", "language", s.Key.LanguageID, zap.Error(err))
	}
}

// dispose stops the language server of a handle. Only the first call has any effect.
func (c *controller) dispose(h *handle) error {
	h.once.Do(func() {
		s := h.session
		ctx, cancel := context.WithTimeout(context.Background(), c.shutdownGrace)
		defer cancel()

		var errs error
		select {
		case <-s.Conn.Done():
		default:
			if _, err := s.Conn.Request(ctx, protocol.MethodShutdown, nil); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("shutdown request: %w", err))
			} else if err := s.Conn.Notify(ctx, protocol.MethodExit, nil); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("exit notification: %w", err))
			}
		}

		select {
		case <-s.Process.Done():
		case <-ctx.Done():
			if err := s.Process.Kill(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("killing process: %w", err))
			} else {
				<-s.Process.Done()
			}
		}

		errs = multierr.Append(errs, s.Conn.Close())
		if h.stderr != nil {
			errs = multierr.Append(errs, h.stderr.Close())
		}
		if err := c.serverInfoFile.RemoveField(fmt.Sprintf(_fmtSessionInfoKey, s.Key)); err != nil {
			c.logger.Debugw("removing session from server info file", zap.Error(err))
		}

		c.mu.Lock()
		delete(c.live, s.UUID)
		c.mu.Unlock()

		h.err = errs
	})
	return h.err
}

func (c *controller) sweepIdle() {
	defer c.watchers.Done()

	ticker := c.clock.NewTicker(c.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			if _, err := c.EvictIdle(context.Background()); err != nil {
				c.logger.Warnw("idle session eviction failed", zap.Error(err))
			}
		case <-c.stop:
			return
		}
	}
}

func (c *controller) liveHandle(id uuid.UUID) (*handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.live[id]
	return h, ok
}

// normalizeKey makes the project root absolute. An empty root means the bridge's working directory.
func (c *controller) normalizeKey(key entity.SessionKey) (entity.SessionKey, error) {
	if key.ProjectRoot == "" {
		wd, err := c.fs.Getwd()
		if err != nil {
			return key, fmt.Errorf("resolving working directory: %w", err)
		}
		key.ProjectRoot = wd
		return key, nil
	}

	if !filepath.IsAbs(key.ProjectRoot) {
		abs, err := c.fs.Abs(key.ProjectRoot)
		if err != nil {
			return key, fmt.Errorf("resolving project root %q: %w", key.ProjectRoot, err)
		}
		key.ProjectRoot = abs
	}
	key.ProjectRoot = filepath.Clean(key.ProjectRoot)
	return key, nil
}

// workspaceRoot returns the project root if it exists on disk, otherwise the bridge's working directory.
func (c *controller) workspaceRoot(projectRoot string, logger *zap.SugaredLogger) string {
	if ok, err := c.fs.DirExists(projectRoot); err == nil && ok {
		return projectRoot
	}

	wd, err := c.fs.Getwd()
	if err != nil {
		logger.Warnw("working directory unavailable, using project root as given", zap.Error(err))
		return projectRoot
	}
	logger.Infow("project root does not exist, using working directory", "workspaceRoot", wd)
	return wd
}
