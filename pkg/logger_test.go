package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig() *Config {
	cfg := DefaultConfig()
	cfg.Console.Enable = false
	return cfg
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() *Config
		wantErr bool
	}{
		{
			name: "default config",
			cfg:  func() *Config { return nil },
		},
		{
			name: "json to stdout",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Format = FormatJSON
				cfg.Console.Output = "stdout"
				return cfg
			},
		},
		{
			name: "no output",
			cfg:  quietConfig,
		},
		{
			name: "async output",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.AsyncWrite = true
				return cfg
			},
		},
		{
			name: "invalid level",
			cfg: func() *Config {
				cfg := quietConfig()
				cfg.Level = "loud"
				return cfg
			},
			wantErr: true,
		},
		{
			name: "file output without path",
			cfg: func() *Config {
				cfg := quietConfig()
				cfg.File.Enable = true
				cfg.File.Path = ""
				return cfg
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.NoError(t, logger.Close())
		})
	}
}

func TestLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ring.log")

	cfg := quietConfig()
	cfg.Format = FormatJSON
	cfg.File.Enable = true
	cfg.File.Path = path
	cfg.File.Compress = false

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Info().Int("node_id", 65).Msg("node joined")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"node_id":65`)
	assert.Contains(t, string(data), "node joined")
}

func TestLoggerWithFields(t *testing.T) {
	logger, err := New(quietConfig())
	require.NoError(t, err)

	child := logger.WithFields(Fields{"component": "ring"})
	grandchild := child.WithFields(Fields{"node_id": 30})

	assert.Equal(t, Fields{"component": "ring"}, child.Fields())
	assert.Equal(t, Fields{"component": "ring", "node_id": 30}, grandchild.Fields())
	assert.Empty(t, logger.Fields(), "parent must not see child fields")

	withErr := grandchild.WithError(errors.New("boom"))
	assert.Equal(t, "boom", withErr.Fields()["error"])
	assert.Same(t, grandchild, grandchild.WithError(nil))
}

func TestLoggerUpdateLevel(t *testing.T) {
	logger, err := New(quietConfig())
	require.NoError(t, err)

	require.NoError(t, logger.UpdateLevel("debug"))
	assert.Equal(t, "debug", logger.GetLevel().String())
	assert.Error(t, logger.UpdateLevel("nope"))
}

func TestGlobalLogger(t *testing.T) {
	nop := NewNop()
	SetGlobal(nop)
	assert.Same(t, nop, Get())

	assert.NotPanics(t, func() {
		Get().Info().Msg("discarded")
	})
}
