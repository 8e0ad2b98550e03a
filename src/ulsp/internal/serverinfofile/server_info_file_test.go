package serverinfofile

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs"
	"github.com/uber/ulsp-bridge/src/ulsp/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newConfigProvider(t *testing.T, yamlConfig string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yamlConfig)))
	require.NoError(t, err)
	return provider
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{
			name:    "all required params are present",
			config:  "serverInfoFilePath: /my/sample/path/.ulsp-bridge",
			wantErr: false,
		},
		{
			name:    "disabled",
			config:  "otherKey: sample",
			wantErr: false,
		},
		{
			name:    "config processing error",
			config:  "serverInfoFilePath:\n  infofile: /sample/.file",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Params{
				Config:    newConfigProvider(t, tt.config),
				FS:        fs.New(),
				Lifecycle: fxtest.NewLifecycle(t),
				Logger:    zap.NewNop().Sugar(),
			})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	infofile := filepath.Join(t.TempDir(), "info.json")
	lc := fxtest.NewLifecycle(t)
	_, err := New(Params{
		Config:    newConfigProvider(t, "serverInfoFilePath: "+infofile),
		FS:        fs.New(),
		Lifecycle: lc,
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)

	lc.RequireStart()
	contents, err := os.ReadFile(infofile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pid":"`+strconv.Itoa(os.Getpid())+`"}`, string(contents))

	lc.RequireStop()
	_, err = os.Stat(infofile)
	assert.True(t, os.IsNotExist(err))
}

func TestOnStop(t *testing.T) {
	t.Run("file removed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockUlspFS(ctrl)
		fsMock.EXPECT().Remove("/tmp/info.json").Return(nil)

		m := module{
			logger:   zap.NewNop().Sugar(),
			fs:       fsMock,
			infofile: "/tmp/info.json",
		}
		assert.NoError(t, m.OnStop(context.Background()))
	})

	t.Run("file removal error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockUlspFS(ctrl)
		fsMock.EXPECT().Remove("/tmp/info.json").Return(os.ErrPermission)

		m := module{
			logger:   zap.NewNop().Sugar(),
			fs:       fsMock,
			infofile: "/tmp/info.json",
		}
		assert.ErrorIs(t, m.OnStop(context.Background()), os.ErrPermission)
	})

	t.Run("disabled", func(t *testing.T) {
		m := module{logger: zap.NewNop().Sugar()}
		assert.NoError(t, m.OnStop(context.Background()))
	})
}

func TestUpdateField(t *testing.T) {
	t.Run("multiple successful updates", func(t *testing.T) {
		infofile := filepath.Join(t.TempDir(), "info.json")

		m := module{
			infofile:     infofile,
			fs:           fs.New(),
			logger:       zap.NewNop().Sugar(),
			fileContents: make(map[string]string),
		}

		// Make several step by step updates and confirm file contents are as expected
		steps := []struct {
			key        string
			value      string
			remove     bool
			expectJSON string
		}{
			{
				key:        "key1",
				value:      "value1",
				expectJSON: "{\"key1\":\"value1\"}",
			},
			{
				key:        "key1",
				value:      "value2",
				expectJSON: "{\"key1\":\"value2\"}",
			},
			{
				key:        "key2",
				value:      "value2",
				expectJSON: "{\"key1\":\"value2\",\"key2\":\"value2\"}",
			},
			{
				key:        "key1",
				remove:     true,
				expectJSON: "{\"key2\":\"value2\"}",
			},
		}

		for _, step := range steps {
			if step.remove {
				require.NoError(t, m.RemoveField(step.key))
				assert.NotContains(t, m.fileContents, step.key)
			} else {
				require.NoError(t, m.UpdateField(step.key, step.value))
				assert.Equal(t, step.value, m.fileContents[step.key])
			}
			contents, err := os.ReadFile(infofile)
			assert.NoError(t, err)
			assert.Equal(t, step.expectJSON, string(contents))
		}
	})

	t.Run("file write failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockUlspFS(ctrl)
		fsMock.EXPECT().WriteFile("/tmp/info.json", `{"key":"value"}`).Return(os.ErrPermission)

		m := module{
			infofile:     "/tmp/info.json",
			fs:           fsMock,
			logger:       zap.NewNop().Sugar(),
			fileContents: make(map[string]string),
		}
		err := m.UpdateField("key", "value")
		assert.ErrorIs(t, err, os.ErrPermission)
	})

	t.Run("disabled writes nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		m := module{
			fs:           fsmock.NewMockUlspFS(ctrl),
			logger:       zap.NewNop().Sugar(),
			fileContents: make(map[string]string),
		}
		assert.NoError(t, m.UpdateField("key", "value"))
		assert.NoError(t, m.RemoveField("key"))
		assert.NoError(t, m.RemoveField("missing"))
	})
}

func TestProcessConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		wantPath    string
		wantErr     bool
	}{
		{
			name:     "valid configuration",
			config:   "serverInfoFilePath: /my/sample/path/.ulsp-bridge",
			wantPath: "/my/sample/path/.ulsp-bridge",
		},
		{
			name:     "missing path key",
			config:   "otherKey: /my/sample/path/.ulsp-bridge",
			wantPath: "",
		},
		{
			name:    "incorrectly formatted entry",
			config:  "serverInfoFilePath:\n  infofile: /sample/.file\n  address:\n    key: val",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := module{
				logger: zap.NewNop().Sugar(),
			}
			err := m.processConfig(newConfigProvider(t, tt.config))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), `getting config field "serverInfoFilePath"`)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantPath, m.infofile)
			}
		})
	}
}
