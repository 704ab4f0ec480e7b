package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poolCfg struct {
	MaxConns int           `mapstructure:"max_conns" validate:"gt=0"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type sampleCfg struct {
	Name   string         `mapstructure:"name" validate:"required"`
	Mode   string         `mapstructure:"mode" validate:"oneof=memory postgres"`
	Pool   poolCfg        `mapstructure:"pool"`
	Tags   []string       `mapstructure:"tags"`
	Levels map[string]int `mapstructure:"levels"`
	Extra  *poolCfg       `mapstructure:"extra"`
}

func TestMergeConfig(t *testing.T) {
	dst := &sampleCfg{
		Name:   "default",
		Mode:   "memory",
		Pool:   poolCfg{MaxConns: 10, Timeout: time.Second},
		Levels: map[string]int{"tier_1": 1},
	}
	src := &sampleCfg{
		Mode:   "postgres",
		Pool:   poolCfg{MaxConns: 25},
		Tags:   []string{"a"},
		Levels: map[string]int{"tier_2": 5},
		Extra:  &poolCfg{MaxConns: 1},
	}

	merged, err := MergeConfig(dst, src)
	require.NoError(t, err)
	assert.Equal(t, "default", merged.Name)
	assert.Equal(t, "postgres", merged.Mode)
	assert.Equal(t, 25, merged.Pool.MaxConns)
	assert.Equal(t, time.Second, merged.Pool.Timeout)
	assert.Equal(t, []string{"a"}, merged.Tags)
	assert.Equal(t, map[string]int{"tier_1": 1, "tier_2": 5}, merged.Levels)
	require.NotNil(t, merged.Extra)
	assert.Equal(t, 1, merged.Extra.MaxConns)
}

func TestMergeConfigNil(t *testing.T) {
	_, err := MergeConfig[sampleCfg](nil, nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	src := &sampleCfg{Name: "x"}
	got, err := MergeConfig(nil, src)
	require.NoError(t, err)
	assert.Same(t, src, got)
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&sampleCfg{Mode: "sqlite", Pool: poolCfg{MaxConns: 0}})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "sampleCfg.Name' is required")
	assert.Contains(t, err.Error(), "must be one of [memory postgres]")
	assert.Contains(t, err.Error(), "must be greater than 0")

	assert.NoError(t, v.Validate(&sampleCfg{Name: "ok", Mode: "memory", Pool: poolCfg{MaxConns: 1}}))
	assert.ErrorIs(t, v.Validate(nil), ErrNilConfig)
}

func TestManagerLoadAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "name: gacha\nmode: memory\npool:\n  max_conns: 4\n  timeout: 3s\ntags: a,b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("GACHATEST_POOL_MAX_CONNS", "9")

	m := NewManager()
	m.BindEnv("GACHATEST")
	require.NoError(t, m.LoadFile(path))

	var cfg sampleCfg
	require.NoError(t, m.Unmarshal(&cfg))
	assert.Equal(t, "gacha", cfg.Name)
	assert.Equal(t, 9, cfg.Pool.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Pool.Timeout)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)

	var pool poolCfg
	require.NoError(t, m.UnmarshalKey("pool", &pool))
	assert.Equal(t, 3*time.Second, pool.Timeout)
	assert.True(t, m.IsSet("mode"))
}

func TestManagerUnmarshalKeyBeforeLoad(t *testing.T) {
	var pool poolCfg
	assert.ErrorIs(t, NewManager().UnmarshalKey("pool", &pool), ErrNotLoaded)
}
