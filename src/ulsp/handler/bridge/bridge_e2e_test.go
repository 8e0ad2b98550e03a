package bridge

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/diagnostics"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/registry"
	"github.com/uber/ulsp-bridge/src/ulsp/controller/tools"
	"github.com/uber/ulsp-bridge/src/ulsp/entity"
	"github.com/uber/ulsp-bridge/src/ulsp/factory"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/clock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/jsonrpcfx/jsonrpcfxmock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/logfilewriter/logfilewritermock"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverconfig"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/serverinfofile/serverinfofilemock"
	"github.com/uber/ulsp-bridge/src/ulsp/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// endToEnd drives the bridge over a real JSON-RPC connection, with fake language servers behind it.
type endToEnd struct {
	executor *factory.FakeExecutor
	front    jsonrpc2.Conn
	root     string
	stats    tally.TestScope
}

func newEndToEnd(t *testing.T, setup func(s *factory.FakeLanguageServer)) *endToEnd {
	ctrl := gomock.NewController(t)
	logger := zap.NewNop().Sugar()
	stats := tally.NewTestScope("testing", nil)

	provider, err := config.NewStaticProvider(map[string]interface{}{
		"languageServers": map[string]interface{}{
			"envPrefix": "ULSP_BRIDGE_E2E_",
			"servers": map[string]interface{}{
				"typescript": map[string]interface{}{
					"command": "typescript-language-server",
					"args":    []string{"--stdio"},
				},
			},
		},
		"sessions": map[string]interface{}{
			"diagnosticsTimeoutMs":     2000,
			"initializeTimeoutSeconds": 5,
			"shutdownGraceSeconds":     1,
		},
	})
	require.NoError(t, err)

	serverCfg, err := serverconfig.New(serverconfig.Params{Config: provider, Logger: logger})
	require.NoError(t, err)

	writer := logfilewritermock.NewMockWriter(ctrl)
	writer.EXPECT().Path().Return(filepath.Join(os.TempDir(), "ulsp-bridge", "typescript.log")).AnyTimes()
	writer.EXPECT().Close().Return(nil).AnyTimes()
	writers := logfilewritermock.NewMockFactory(ctrl)
	writers.EXPECT().New(gomock.Any()).Return(writer, nil).AnyTimes()

	infoFile := serverinfofilemock.NewMockServerInfoFile(ctrl)
	infoFile.EXPECT().UpdateField(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	infoFile.EXPECT().RemoveField(gomock.Any()).Return(nil).AnyTimes()

	diag, err := diagnostics.New(diagnostics.Params{Config: provider, Logger: logger, Stats: stats, Clock: clock.New()})
	require.NoError(t, err)

	executor := &factory.FakeExecutor{Setup: setup}
	reg, err := registry.New(registry.Params{
		Config:         provider,
		Lifecycle:      fxtest.NewLifecycle(t),
		Logger:         logger,
		Stats:          stats,
		Clock:          clock.New(),
		FS:             fs.New(),
		Executor:       executor,
		ServerConfig:   serverCfg,
		Diagnostics:    diag,
		Sessions:       session.New(stats),
		OutputWriters:  writers,
		ServerInfoFile: infoFile,
	})
	require.NoError(t, err)

	toolsCtrl := tools.New(tools.Params{Registry: reg, Diagnostics: diag, FS: fs.New(), Logger: logger, Stats: stats})

	jsonRPCMock := jsonrpcfxmock.NewMockJSONRPCModule(ctrl)
	jsonRPCMock.EXPECT().RegisterRouter(gomock.Any()).Return(nil)
	h, err := New(Params{Tools: toolsCtrl, Registry: reg, JSONRPC: jsonRPCMock, Logger: logger, Stats: stats})
	require.NoError(t, err)

	client, server := net.Pipe()
	serverConn := jsonrpc2.NewConn(jsonrpc2.NewStream(server))
	serverConn.Go(context.Background(), h.HandleReq)
	front := jsonrpc2.NewConn(jsonrpc2.NewStream(client))
	front.Go(context.Background(), jsonrpc2.MethodNotFoundHandler)

	t.Cleanup(func() {
		assert.NoError(t, h.Shutdown(context.Background()))
		_ = front.Close()
		_ = serverConn.Close()
		<-front.Done()
		<-serverConn.Done()
	})

	return &endToEnd{
		executor: executor,
		front:    front,
		root:     t.TempDir(),
		stats:    stats,
	}
}

func (e *endToEnd) callTool(t *testing.T, name entity.ToolName, args map[string]interface{}) (*entity.ToolCallResult, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	var result entity.ToolCallResult
	_, err = e.front.Call(context.Background(), MethodToolsCall, &entity.ToolCallParams{Name: name, Arguments: raw}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func TestEndToEndHover(t *testing.T) {
	e := newEndToEnd(t, func(s *factory.FakeLanguageServer) {
		s.Handle(protocol.MethodTextDocumentHover, func(ctx context.Context, s *factory.FakeLanguageServer, params json.RawMessage) (interface{}, error) {
			return map[string]interface{}{
				"contents": map[string]string{"kind": "markdown", "value": "const x: number"},
			}, nil
		})
	})

	var initResult entity.InitializeResult
	_, err := e.front.Call(context.Background(), MethodInitialize, map[string]interface{}{"protocolVersion": "2024-11-05"}, &initResult)
	require.NoError(t, err)
	assert.Equal(t, "ulsp-bridge", initResult.ServerInfo.Name)

	args := map[string]interface{}{
		"languageId":  "typescript",
		"filePath":    "src/index.ts",
		"content":     "const x = 1;\n",
		"line":        0,
		"character":   6,
		"projectRoot": e.root,
	}
	result, err := e.callTool(t, entity.ToolHover, args)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "{\n  \"kind\": \"markdown\",\n  \"value\": \"const x: number\"\n}", result.Content[0].Text)

	// A second call reuses the running session.
	_, err = e.callTool(t, entity.ToolHover, args)
	require.NoError(t, err)

	servers := e.executor.Servers()
	require.Len(t, servers, 1)
	s := servers[0]
	assert.Equal(t, 1, s.Count(protocol.MethodInitialize))
	assert.Equal(t, 1, s.Count(protocol.MethodInitialized))
	assert.Equal(t, 2, s.Count(protocol.MethodTextDocumentDidOpen))
	assert.Equal(t, 2, s.Count(protocol.MethodTextDocumentHover))

	assert.DirExists(t, filepath.Join(e.root, "src"))
	assert.Equal(t, e.root, e.executor.Commands()[0].Dir)
}

func TestEndToEndDiagnostics(t *testing.T) {
	e := newEndToEnd(t, func(s *factory.FakeLanguageServer) {
		s.Handle(protocol.MethodTextDocumentDidOpen, func(ctx context.Context, s *factory.FakeLanguageServer, params json.RawMessage) (interface{}, error) {
			var open protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(params, &open); err != nil {
				return nil, err
			}
			go func() {
				_ = s.Notify(context.Background(), protocol.MethodTextDocumentPublishDiagnostics, map[string]interface{}{
					"uri": open.TextDocument.URI,
					"diagnostics": []map[string]interface{}{
						{
							"range": map[string]interface{}{
								"start": map[string]int{"line": 0, "character": 4},
								"end":   map[string]int{"line": 0, "character": 5},
							},
							"message": "Type 'string' is not assignable to type 'number'.",
						},
					},
				})
			}()
			return nil, nil
		})
	})

	result, err := e.callTool(t, entity.ToolDiagnostics, map[string]interface{}{
		"languageId":  "typescript",
		"filePath":    filepath.Join(e.root, "index.ts"),
		"content":     "let x: number = 'a';\n",
		"projectRoot": e.root,
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, `"message": "Type 'string' is not assignable to type 'number'."`)
}

func TestEndToEndErrors(t *testing.T) {
	e := newEndToEnd(t, nil)

	t.Run("unknown tool", func(t *testing.T) {
		_, err := e.callTool(t, "get_definition", map[string]interface{}{"languageId": "typescript"})
		var rpcErr *jsonrpc2.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)
	})

	t.Run("unconfigured language", func(t *testing.T) {
		_, err := e.callTool(t, entity.ToolDiagnostics, map[string]interface{}{
			"languageId":  "cobol",
			"filePath":    "main.cbl",
			"content":     "",
			"projectRoot": e.root,
		})
		var rpcErr *jsonrpc2.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, jsonrpc2.InvalidParams, rpcErr.Code)
		assert.Empty(t, e.executor.Commands())
	})
}
