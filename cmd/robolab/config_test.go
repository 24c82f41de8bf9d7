package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestResolveConfigPath_DefaultYAMLPreferred(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), "simulation:\n  time_scale: 2\n"); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}
	if err := writeTestFile(filepath.Join(repoRoot, jsonConfigPath), "{}"); err != nil {
		t.Fatalf("write json config: %v", err)
	}

	got := resolveConfigPath(repoRoot, defaultConfigPath)
	want := filepath.Join(repoRoot, defaultConfigPath)
	if got != want {
		t.Fatalf("resolve config path = %q, want %q", got, want)
	}
}

func TestResolveConfigPath_FallsBackToJSON(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, jsonConfigPath), "{}"); err != nil {
		t.Fatalf("write json config: %v", err)
	}

	got := resolveConfigPath(repoRoot, "")
	want := filepath.Join(repoRoot, jsonConfigPath)
	if got != want {
		t.Fatalf("resolve config path = %q, want %q", got, want)
	}
}

func TestResolveConfigPath_ExplicitPathKept(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	got := resolveConfigPath(repoRoot, "custom.yaml")
	want := filepath.Join(repoRoot, "custom.yaml")
	if got != want {
		t.Fatalf("resolve config path = %q, want %q", got, want)
	}

	abs := filepath.Join(t.TempDir(), "abs.yaml")
	if got := resolveConfigPath(repoRoot, abs); got != abs {
		t.Fatalf("resolve config path = %q, want %q", got, abs)
	}
}

func TestLoadConfig_UsesYAML(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), `simulation:
  time_scale: 0.5
  step_interval: 20ms
  on_busy: reject
server:
  addr: ":9090"
`); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Simulation.TimeScale != 0.5 {
		t.Fatalf("simulation.time_scale = %v, want %v", cfg.Simulation.TimeScale, 0.5)
	}
	if cfg.Simulation.StepInterval != 20*time.Millisecond {
		t.Fatalf("simulation.step_interval = %v, want %v", cfg.Simulation.StepInterval, 20*time.Millisecond)
	}
	if cfg.Simulation.OnBusy != "reject" {
		t.Fatalf("simulation.on_busy = %q, want %q", cfg.Simulation.OnBusy, "reject")
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("server.addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Server.WriteWait != 10*time.Second {
		t.Fatalf("server.write_wait = %v, want default %v", cfg.Server.WriteWait, 10*time.Second)
	}
}

func TestLoadConfig_DefaultFileIsOptional(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Simulation.TimeScale != 1 {
		t.Fatalf("simulation.time_scale = %v, want %v", cfg.Simulation.TimeScale, 1.0)
	}
}

func TestLoadConfig_ExplicitFileMustExist(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", "missing.yaml")

	if _, err := loadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	repoRoot := t.TempDir()
	if err := writeTestFile(filepath.Join(repoRoot, defaultConfigPath), "simulation:\n  warp: 9\n"); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", defaultConfigPath)

	if _, err := loadConfig(repoRoot); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	t.Parallel()

	if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
}

func writeTestFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
