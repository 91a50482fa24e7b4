package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.BakeFrames)
	assert.Equal(t, 1.0, cfg.Speed)
	assert.Equal(t, "interpolated", cfg.Type)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, time.Second, cfg.ProfileInterval)
	assert.Empty(t, cfg.BakeStore)
	assert.GreaterOrEqual(t, cfg.WorkerCount(), 1)
	assert.InDelta(t, 1.0/60, cfg.TickInterval(), 1e-12)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OXY_ANIM_BAKE_FRAMES", "24")
	t.Setenv("OXY_ANIM_SPEED", "0.5")
	t.Setenv("OXY_ANIM_TYPE", "baked")
	t.Setenv("OXY_ANIM_WORKERS", "3")
	t.Setenv("OXY_ANIM_PROFILE_INTERVAL", "250ms")
	t.Setenv("OXY_ANIM_BAKE_STORE", "/tmp/bakes.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.BakeFrames)
	assert.Equal(t, 0.5, cfg.Speed)
	assert.Equal(t, "baked", cfg.Type)
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.Equal(t, 250*time.Millisecond, cfg.ProfileInterval)
	assert.Equal(t, "/tmp/bakes.db", cfg.BakeStore)
}

func TestLoad_OptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("OXY_ANIM_BAKE_FRAMES", "24")

	cfg, err := Load(WithBakeFrames(12), WithTickRate(30), WithBakeStore("x.db"), WithSpeed(2), WithWorkers(1), WithType("baked"), WithProfileInterval(0))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BakeFrames)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, "x.db", cfg.BakeStore)
	assert.Equal(t, 2.0, cfg.Speed)
	assert.Equal(t, 1, cfg.WorkerCount())
	assert.Equal(t, "baked", cfg.Type)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		t.Setenv("OXY_ANIM_BAKE_FRAMES", "lots")
		_, err := Load()
		require.ErrorContains(t, err, "parse env:")
	})

	for name, opt := range map[string]ConfigBuilderOption{
		"frames":   WithBakeFrames(0),
		"speed":    WithSpeed(-1),
		"type":     WithType("sampled"),
		"workers":  WithWorkers(-2),
		"tickRate": WithTickRate(0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(opt)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
