package logger

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "file without path", mutate: func(c *Config) { c.EnableFile = true }, wantErr: ErrInvalidOutputPath},
		{name: "no output", mutate: func(c *Config) { c.EnableConsole = false }, wantErr: ErrNoOutputEnabled},
		{name: "bad level", mutate: func(c *Config) { c.Level = "verbose" }, wantErr: ErrInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gacha.log")
	l, err := New(&Config{
		Level:      DebugLevel,
		Format:     JSONFormat,
		EnableFile: true,
		OutputPath: path,
	})
	require.NoError(t, err)

	assert.False(t, l.config.EnableConsole)

	l.Named("test").Info("hello", "player_id", int64(7))
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)
}

func TestNewFallsBackToConsole(t *testing.T) {
	l, err := New(&Config{Level: DebugLevel})
	require.NoError(t, err)
	assert.True(t, l.config.EnableConsole)
	assert.NoError(t, l.Sync())
}

type failingSyncer struct {
	err error
}

func (f failingSyncer) Write(p []byte) (int, error) { return len(p), nil }
func (f failingSyncer) Sync() error                 { return f.err }

func TestConsoleSyncerIgnoresUnsyncableStdout(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.EINVAL, syscall.ENOTTY} {
		s := consoleSyncer{failingSyncer{err: &os.PathError{Op: "sync", Path: "/dev/stdout", Err: errno}}}
		assert.NoError(t, s.Sync())
	}
	s := consoleSyncer{failingSyncer{err: syscall.EIO}}
	assert.ErrorIs(t, s.Sync(), syscall.EIO)
}

func TestKeyValueFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.WithFields("component", "summon").Info("draw", "player_id", int64(42), zap.Int("tier", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "summon", ctx["component"])
	assert.Equal(t, int64(42), ctx["player_id"])
	assert.Equal(t, int64(3), ctx["tier"])
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := WithContextFields(context.Background(), "player_id", int64(9))
	ctx = WithContextFields(ctx, "op", "fusion")
	l.WarnContext(ctx, "lock contention")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(9), fields["player_id"])
	assert.Equal(t, "fusion", fields["op"])
}

func TestOddKeyValues(t *testing.T) {
	fields := toZapFields("only-key")
	require.Len(t, fields, 1)
	assert.Equal(t, "!BADKEY", fields[0].Key)
}

func TestEnabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core))

	assert.False(t, l.Enabled(DebugLevel))
	assert.True(t, l.Enabled(InfoLevel))
	assert.True(t, l.Named("summon").Enabled(ErrorLevel))
	assert.False(t, NewNoop().Enabled(ErrorLevel))
}
