// Package config provides configuration loading and management for robolab.
package config

import (
	"fmt"
	"time"
)

// Busy policies accepted by simulation.on_busy.
const (
	OnBusyRestart = "restart"
	OnBusyReject  = "reject"
)

// Config is the root configuration.
type Config struct {
	Simulation SimulationConfig `json:"simulation" mapstructure:"simulation"`
	Catalog    CatalogConfig    `json:"catalog"    mapstructure:"catalog"`
	Server     ServerConfig     `json:"server"     mapstructure:"server"`
}

// SimulationConfig controls the timing of the command interpreter.
type SimulationConfig struct {
	StepInterval      time.Duration `json:"step_interval"       mapstructure:"step_interval"`
	TimeScale         float64       `json:"time_scale"          mapstructure:"time_scale"`
	StopSettle        time.Duration `json:"stop_settle"         mapstructure:"stop_settle"`
	OnBusy            string        `json:"on_busy"             mapstructure:"on_busy"`
	MaxLoopIterations int           `json:"max_loop_iterations" mapstructure:"max_loop_iterations"`
}

// CatalogConfig points at an alternative challenge catalog.
type CatalogConfig struct {
	Path string `json:"path,omitempty" mapstructure:"path"`
}

// ServerConfig configures the web observer.
type ServerConfig struct {
	Addr      string        `json:"addr"       mapstructure:"addr"`
	WriteWait time.Duration `json:"write_wait" mapstructure:"write_wait"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Simulation: SimulationConfig{
			StepInterval:      16 * time.Millisecond,
			TimeScale:         1,
			StopSettle:        50 * time.Millisecond,
			OnBusy:            OnBusyRestart,
			MaxLoopIterations: 100000,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			WriteWait: 10 * time.Second,
		},
	}
}

// DefaultSettings returns Defaults as a flat key map for viper.SetDefault.
func DefaultSettings() map[string]any {
	d := Defaults()
	return map[string]any{
		"simulation.step_interval":       d.Simulation.StepInterval.String(),
		"simulation.time_scale":          d.Simulation.TimeScale,
		"simulation.stop_settle":         d.Simulation.StopSettle.String(),
		"simulation.on_busy":             d.Simulation.OnBusy,
		"simulation.max_loop_iterations": d.Simulation.MaxLoopIterations,
		"catalog.path":                   d.Catalog.Path,
		"server.addr":                    d.Server.Addr,
		"server.write_wait":              d.Server.WriteWait.String(),
	}
}

// Validate checks the semantic constraints the schema cannot express.
func (c Config) Validate() error {
	if c.Simulation.StepInterval <= 0 {
		return fmt.Errorf("simulation.step_interval must be > 0")
	}
	if c.Simulation.TimeScale < 0 {
		return fmt.Errorf("simulation.time_scale must be >= 0")
	}
	if c.Simulation.StopSettle < 0 {
		return fmt.Errorf("simulation.stop_settle must be >= 0")
	}
	switch c.Simulation.OnBusy {
	case OnBusyRestart, OnBusyReject:
	default:
		return fmt.Errorf("simulation.on_busy must be %q or %q", OnBusyRestart, OnBusyReject)
	}
	if c.Simulation.MaxLoopIterations < 0 {
		return fmt.Errorf("simulation.max_loop_iterations must be >= 0")
	}
	if c.Server.WriteWait <= 0 {
		return fmt.Errorf("server.write_wait must be > 0")
	}
	return nil
}
