package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16*time.Millisecond, cfg.Simulation.StepInterval)
	assert.Equal(t, OnBusyRestart, cfg.Simulation.OnBusy)
	assert.Equal(t, "16ms", DefaultSettings()["simulation.step_interval"])
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := map[string]func(*Config){
		"zero step":      func(c *Config) { c.Simulation.StepInterval = 0 },
		"negative scale": func(c *Config) { c.Simulation.TimeScale = -1 },
		"negative stop":  func(c *Config) { c.Simulation.StopSettle = -time.Second },
		"unknown policy": func(c *Config) { c.Simulation.OnBusy = "queue" },
		"negative loops": func(c *Config) { c.Simulation.MaxLoopIterations = -1 },
		"zero write":     func(c *Config) { c.Server.WriteWait = 0 },
	}
	for name, mutate := range tests {
		cfg := Defaults()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := map[string]any{
		"simulation": map[string]any{"step_interval": "10ms", "time_scale": 0, "on_busy": "reject"},
		"server":     map[string]any{"addr": "127.0.0.1:9000", "write_wait": "1s"},
	}
	require.NoError(t, ValidateSettings(valid))

	invalid := []map[string]any{
		{"simulation": map[string]any{"on_busy": "queue"}},
		{"simulation": map[string]any{"time_scale": -1}},
		{"simulation": map[string]any{"step_interval": "fast"}},
		{"simulation": map[string]any{"unknown": 1}},
		{"server": map[string]any{"write_wait": true}},
		{"agents": map[string]any{}},
	}
	for _, settings := range invalid {
		err := ValidateSettings(settings)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config schema validation failed")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`simulation:
  step_interval: 8ms
  time_scale: 0
  on_busy: reject
server:
  addr: 127.0.0.1:9000
`), 0o600))

	cfg, err := Load(viper.New(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 8*time.Millisecond, cfg.Simulation.StepInterval)
	assert.Equal(t, 0.0, cfg.Simulation.TimeScale)
	assert.Equal(t, OnBusyReject, cfg.Simulation.OnBusy)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.StopSettle)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteWait)
}

func TestLoad_JSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"simulation": {"max_loop_iterations": 5}}`), 0o600))

	cfg, err := Load(viper.New(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Simulation.MaxLoopIterations)
}

func TestLoad_RejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  on_busy: queue\n"), 0o600))

	_, err := Load(viper.New(), path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config schema validation failed")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROBOLAB_SIMULATION_TIME_SCALE", "2.5")
	t.Setenv("ROBOLAB_SERVER_WRITE_WAIT", "3s")

	cfg, err := Load(viper.New(), "", false)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Simulation.TimeScale)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteWait)
}
