package registry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/diagnostics"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/factory"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/clock"
	ulsperrors "github.com/uber/ulsp-bridge/src/ulsp/internal/errors"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/logfilewriter/logfilewritermock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverconfig/serverconfigmock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile/serverinfofilemock"
	"github.com/uber/ulsp-bridge/src/ulsp/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var _typescriptSettings = map[string]interface{}{
	"typescript": map[string]interface{}{
		"format": map[string]interface{}{"enable": true},
	},
}

// offsetClock is a real clock whose Now can be moved forward.
type offsetClock struct {
	clock.Clock

	mu     sync.Mutex
	offset time.Duration
}

func (c *offsetClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Clock.Now().Add(c.offset)
}

func (c *offsetClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type fixture struct {
	registry    *controller
	executor    *factory.FakeExecutor
	sessions    session.Repository
	diagnostics diagnostics.Controller
	clock       *offsetClock
	stats       tally.TestScope
	serverCfg   *serverconfigmock.MockSource
	logs        *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)

	provider, err := config.NewStaticProvider(map[string]interface{}{
		"sessions": map[string]interface{}{
			"diagnosticsTimeoutMs":     1000,
			"initializeTimeoutSeconds": 2,
			"shutdownGraceSeconds":     1,
			"idleTimeoutMinutes":       1,
		},
	})
	require.NoError(t, err)

	serverCfg := serverconfigmock.NewMockSource(ctrl)
	serverCfg.EXPECT().Invocation("typescript").Return(entity.ServerInvocation{Command: "typescript-language-server", Args: []string{"--stdio"}}, true).AnyTimes()
	serverCfg.EXPECT().Invocation("json").Return(entity.ServerInvocation{Command: "vscode-json-language-server", Args: []string{"--stdio"}}, true).AnyTimes()
	serverCfg.EXPECT().Invocation(gomock.Any()).Return(entity.ServerInvocation{}, false).AnyTimes()
	serverCfg.EXPECT().Settings("typescript").Return(_typescriptSettings).AnyTimes()
	serverCfg.EXPECT().Settings(gomock.Any()).Return(nil).AnyTimes()

	writer := logfilewritermock.NewMockWriter(ctrl)
	writer.EXPECT().Path().Return("/tmp/ulsp-bridge/typescript.log").AnyTimes()
	writer.EXPECT().Close().Return(nil).AnyTimes()
	writers := logfilewritermock.NewMockFactory(ctrl)
	writers.EXPECT().New(gomock.Any()).Return(writer, nil).AnyTimes()

	infoFile := serverinfofilemock.NewMockServerInfoFile(ctrl)
	infoFile.EXPECT().UpdateField(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	infoFile.EXPECT().RemoveField(gomock.Any()).Return(nil).AnyTimes()

	stats := tally.NewTestScope("testing", nil)
	clk := &offsetClock{Clock: clock.New()}
	core, recorded := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()

	diag, err := diagnostics.New(diagnostics.Params{
		Config: provider,
		Logger: logger,
		Stats:  stats,
		Clock:  clk,
	})
	require.NoError(t, err)

	executor := &factory.FakeExecutor{}
	sessions := session.New(stats)
	c, err := New(Params{
		Config:         provider,
		Lifecycle:      fxtest.NewLifecycle(t),
		Logger:         logger,
		Stats:          stats,
		Clock:          clk,
		FS:             fs.New(),
		Executor:       executor,
		ServerConfig:   serverCfg,
		Diagnostics:    diag,
		Sessions:       sessions,
		OutputWriters:  writers,
		ServerInfoFile: infoFile,
	})
	require.NoError(t, err)

	f := &fixture{
		registry:    c.(*controller),
		executor:    executor,
		sessions:    sessions,
		diagnostics: diag,
		clock:       clk,
		stats:       stats,
		serverCfg:   serverCfg,
		logs:        recorded,
	}
	t.Cleanup(func() {
		_ = f.registry.Shutdown(context.Background())
	})
	return f
}

func (f *fixture) counter(name string) int64 {
	c, ok := f.stats.Snapshot().Counters()["testing.sessions."+name+"+"]
	if !ok {
		return 0
	}
	return c.Value()
}

func processDone(p interface{ Done() <-chan struct{} }) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("reuses ready session", func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()
		key := entity.SessionKey{LanguageID: "typescript", ProjectRoot: root}

		first, err := f.registry.Acquire(ctx, key)
		require.NoError(t, err)
		second, err := f.registry.Acquire(ctx, key)
		require.NoError(t, err)

		assert.Equal(t, first.UUID, second.UUID)
		assert.Equal(t, entity.SessionStatusReady, second.Status)
		assert.Equal(t, root, first.WorkspaceRoot)
		assert.Equal(t, "/tmp/ulsp-bridge/typescript.log", first.StderrLog)
		require.Len(t, f.executor.Commands(), 1)
		assert.Equal(t, []string{"typescript-language-server", "--stdio"}, f.executor.Commands()[0].Args)
		assert.Equal(t, root, f.executor.Commands()[0].Dir)
		assert.EqualValues(t, 1, f.counter("spawned"))

		server := f.executor.Servers()[0]
		assert.Equal(t, 1, server.Count(protocol.MethodInitialize))
		assert.Equal(t, 1, server.Count(protocol.MethodInitialized))
		assert.Equal(t, 1, server.Count(protocol.MethodWorkspaceDidChangeConfiguration))

		received := server.Received()
		require.NotEmpty(t, received)
		assert.Equal(t, protocol.MethodInitialize, received[0].Method)
		var params protocol.InitializeParams
		require.NoError(t, json.Unmarshal(received[0].Params, &params))
		assert.Equal(t, uri.File(root), params.RootURI)
		require.Len(t, params.WorkspaceFolders, 1)
		assert.Equal(t, string(uri.File(root)), params.WorkspaceFolders[0].URI)
		assert.Equal(t, _clientName, params.ClientInfo.Name)
	})

	t.Run("single flight", func(t *testing.T) {
		f := newFixture(t)
		release := make(chan struct{})
		f.executor.Setup = func(s *factory.FakeLanguageServer) {
			s.Handle(protocol.MethodInitialize, func(ctx context.Context, s *factory.FakeLanguageServer, params json.RawMessage) (interface{}, error) {
				<-release
				return map[string]interface{}{"capabilities": map[string]interface{}{}}, nil
			})
		}
		key := entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()}

		var wg sync.WaitGroup
		results := make([]*entity.Session, 8)
		errs := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = f.registry.Acquire(ctx, key)
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for i := range results {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].UUID, results[i].UUID)
		}
		assert.Len(t, f.executor.Commands(), 1)
	})

	t.Run("configuration missing before spawn", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "cobol", ProjectRoot: t.TempDir()})
		require.Error(t, err)
		assert.True(t, ulsperrors.IsConfigurationMissing(err))
		assert.Contains(t, err.Error(), "cobol")
		assert.Empty(t, f.executor.Commands())
	})

	t.Run("spawn failure is not cached", func(t *testing.T) {
		f := newFixture(t)
		f.executor.StartErr = errors.New("executable file not found")
		key := entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()}

		_, err := f.registry.Acquire(ctx, key)
		var spawnErr *ulsperrors.SpawnError
		require.ErrorAs(t, err, &spawnErr)
		assert.Equal(t, "typescript", spawnErr.LanguageID)
		assert.EqualValues(t, 1, f.counter("failed"))

		f.executor.StartErr = nil
		s, err := f.registry.Acquire(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, entity.SessionStatusReady, s.Status)
		assert.Len(t, f.executor.Commands(), 2)
	})

	t.Run("spawn failure reports output close error", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		writer := logfilewritermock.NewMockWriter(ctrl)
		writer.EXPECT().Path().Return("/tmp/ulsp-bridge/typescript.log").AnyTimes()
		writer.EXPECT().Close().Return(errors.New("disk full"))
		writers := logfilewritermock.NewMockFactory(ctrl)
		writers.EXPECT().New("typescript").Return(writer, nil)
		f.registry.outputWriters = writers
		f.executor.StartErr = errors.New("executable file not found")

		_, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()})
		var spawnErr *ulsperrors.SpawnError
		require.ErrorAs(t, err, &spawnErr)
		logs := f.logs.FilterMessage("closing language server output failed").All()
		require.Len(t, logs, 1)
		assert.Equal(t, "disk full", logs[0].ContextMap()["error"])
	})

	t.Run("handshake failure terminates process", func(t *testing.T) {
		f := newFixture(t)
		f.executor.Setup = func(s *factory.FakeLanguageServer) {
			s.Handle(protocol.MethodInitialize, func(ctx context.Context, s *factory.FakeLanguageServer, params json.RawMessage) (interface{}, error) {
				return nil, jsonrpc2.NewError(jsonrpc2.InternalError, "cannot initialize")
			})
		}
		key := entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()}

		_, err := f.registry.Acquire(ctx, key)
		var handshakeErr *ulsperrors.HandshakeError
		require.ErrorAs(t, err, &handshakeErr)
		assert.Equal(t, ulsperrors.StageInitialize, handshakeErr.Stage)
		assert.True(t, ulsperrors.IsSessionCreation(err))

		server := f.executor.Servers()[0]
		assert.True(t, processDone(server.Process()))
		_, err = f.sessions.Get(ctx, key)
		assert.Error(t, err)

		// The next call retries from scratch.
		f.executor.Setup = nil
		_, err = f.registry.Acquire(ctx, key)
		require.NoError(t, err)
		assert.Len(t, f.executor.Commands(), 2)
	})

	t.Run("missing project root falls back to working directory", func(t *testing.T) {
		f := newFixture(t)
		root := filepath.Join(t.TempDir(), "does", "not", "exist")
		wd, err := os.Getwd()
		require.NoError(t, err)

		s, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: root})
		require.NoError(t, err)
		assert.Equal(t, root, s.Key.ProjectRoot)
		assert.Equal(t, wd, s.WorkspaceRoot)
	})

	t.Run("empty project root uses working directory", func(t *testing.T) {
		f := newFixture(t)
		wd, err := os.Getwd()
		require.NoError(t, err)

		s, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript"})
		require.NoError(t, err)
		assert.Equal(t, wd, s.Key.ProjectRoot)

		again, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: wd})
		require.NoError(t, err)
		assert.Equal(t, s.UUID, again.UUID)
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		f := newFixture(t)
		root := t.TempDir()

		ts, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: root})
		require.NoError(t, err)
		js, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "json", ProjectRoot: root})
		require.NoError(t, err)

		assert.NotEqual(t, ts.UUID, js.UUID)
		assert.Len(t, f.executor.Commands(), 2)
		// No default settings exist for json.
		assert.Equal(t, 0, f.executor.Servers()[1].Count(protocol.MethodWorkspaceDidChangeConfiguration))
	})

	t.Run("after shutdown", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.registry.Shutdown(ctx))

		_, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()})
		assert.ErrorIs(t, err, ulsperrors.RegistryClosedError)
		assert.Empty(t, f.executor.Servers())
	})
}

func TestCrashEviction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	key := entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()}

	first, err := f.registry.Acquire(ctx, key)
	require.NoError(t, err)

	f.executor.Servers()[0].Exit()
	require.Eventually(t, func() bool {
		_, err := f.sessions.Get(ctx, key)
		return err != nil
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, f.counter("evicted"))

	second, err := f.registry.Acquire(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, first.UUID, second.UUID)
	assert.Len(t, f.executor.Commands(), 2)
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	tsKey := entity.SessionKey{LanguageID: "typescript", ProjectRoot: root}
	jsonKey := entity.SessionKey{LanguageID: "json", ProjectRoot: root}

	_, err := f.registry.Acquire(ctx, tsKey)
	require.NoError(t, err)
	other, err := f.registry.Acquire(ctx, jsonKey)
	require.NoError(t, err)

	require.NoError(t, f.registry.Evict(ctx, tsKey))

	servers := f.executor.Servers()
	assert.True(t, processDone(servers[0].Process()))
	assert.Equal(t, 1, servers[0].Count(protocol.MethodShutdown))
	assert.Equal(t, 1, servers[0].Count(protocol.MethodExit))
	assert.False(t, servers[0].Killed())
	assert.False(t, processDone(servers[1].Process()))

	kept, err := f.sessions.Get(ctx, jsonKey)
	require.NoError(t, err)
	assert.Equal(t, other.UUID, kept.UUID)

	// Evicting an unknown key is a no-op.
	assert.NoError(t, f.registry.Evict(ctx, entity.SessionKey{LanguageID: "go", ProjectRoot: root}))
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()
	staleKey := entity.SessionKey{LanguageID: "typescript", ProjectRoot: root}
	freshKey := entity.SessionKey{LanguageID: "json", ProjectRoot: root}

	_, err := f.registry.Acquire(ctx, staleKey)
	require.NoError(t, err)

	f.clock.advance(2 * time.Minute)
	_, err = f.registry.Acquire(ctx, freshKey)
	require.NoError(t, err)

	evicted, err := f.registry.EvictIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	_, err = f.sessions.Get(ctx, staleKey)
	assert.Error(t, err)
	_, err = f.sessions.Get(ctx, freshKey)
	assert.NoError(t, err)
	assert.True(t, processDone(f.executor.Servers()[0].Process()))
}

func TestShutdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	started := 0
	f.executor.Setup = func(s *factory.FakeLanguageServer) {
		started++
		if started == 1 {
			s.Handle(protocol.MethodShutdown, func(ctx context.Context, s *factory.FakeLanguageServer, params json.RawMessage) (interface{}, error) {
				return nil, jsonrpc2.NewError(jsonrpc2.InternalError, "refusing to shut down")
			})
		}
	}
	root := t.TempDir()

	_, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: root})
	require.NoError(t, err)
	_, err = f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "json", ProjectRoot: root})
	require.NoError(t, err)

	err = f.registry.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typescript:"+root)
	assert.Contains(t, err.Error(), "refusing to shut down")

	servers := f.executor.Servers()
	require.Len(t, servers, 2)
	for _, s := range servers {
		assert.True(t, processDone(s.Process()))
	}
	assert.True(t, servers[0].Killed())
	assert.False(t, servers[1].Killed())

	count, err := f.sessions.SessionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestShutdownWaitsForCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	// Setup runs inside Start, before the session is tracked.
	f.executor.Setup = func(s *factory.FakeLanguageServer) {
		close(entered)
		<-release
	}

	acquired := make(chan error, 1)
	go func() {
		_, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: t.TempDir()})
		acquired <- err
	}()
	<-entered

	shutdown := make(chan error, 1)
	go func() {
		shutdown <- f.registry.Shutdown(ctx)
	}()

	select {
	case <-shutdown:
		t.Fatal("shutdown returned while a session was still starting")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not return")
	}
	servers := f.executor.Servers()
	require.Len(t, servers, 1)
	assert.True(t, processDone(servers[0].Process()))

	require.Error(t, <-acquired)
	count, err := f.sessions.SessionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInboundMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := t.TempDir()

	s, err := f.registry.Acquire(ctx, entity.SessionKey{LanguageID: "typescript", ProjectRoot: root})
	require.NoError(t, err)
	server := f.executor.Servers()[0]

	t.Run("workspace configuration", func(t *testing.T) {
		var result []interface{}
		err := server.Call(ctx, protocol.MethodWorkspaceConfiguration, &protocol.ConfigurationParams{
			Items: []protocol.ConfigurationItem{
				{Section: "typescript.format"},
				{Section: "missing"},
			},
		}, &result)
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, map[string]interface{}{"enable": true}, result[0])
		assert.Nil(t, result[1])
	})

	t.Run("acknowledged requests", func(t *testing.T) {
		var result interface{}
		require.NoError(t, server.Call(ctx, protocol.MethodClientRegisterCapability, map[string]interface{}{"registrations": []interface{}{}}, &result))
		assert.Nil(t, result)
		require.NoError(t, server.Call(ctx, protocol.MethodWorkDoneProgressCreate, map[string]interface{}{"token": "1"}, &result))
	})

	t.Run("unknown request", func(t *testing.T) {
		var result interface{}
		err := server.Call(ctx, "custom/unknown", nil, &result)
		require.Error(t, err)
	})

	t.Run("published diagnostics reach the correlator", func(t *testing.T) {
		documentURI := uri.File(filepath.Join(root, "src", "index.ts"))
		id := entity.DocumentIdentity{SessionUUID: s.UUID, URI: documentURI}
		w := f.diagnostics.Register(ctx, id)

		require.NoError(t, server.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, map[string]interface{}{
			"uri":         documentURI,
			"diagnostics": []interface{}{map[string]interface{}{"message": "unused variable"}},
		}))

		diags, ok := f.diagnostics.Await(ctx, w)
		require.True(t, ok)
		assert.JSONEq(t, `[{"message":"unused variable"}]`, string(diags))
	})
}
