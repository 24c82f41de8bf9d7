package main

import (
	"os"

	"github.com/metalagman/robolab/internal/challenge"
	"github.com/metalagman/robolab/internal/config"
	"github.com/metalagman/robolab/internal/run"
	"github.com/metalagman/robolab/internal/script"
	"github.com/metalagman/robolab/internal/sim"
)

type env struct {
	cfg     config.Config
	catalog *challenge.Catalog
}

func loadEnv() (env, error) {
	root, err := os.Getwd()
	if err != nil {
		return env{}, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return env{}, err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, catalog: cat}, nil
}

func (e env) coordinator(timeScale float64) *run.Coordinator {
	sc := e.cfg.Simulation
	return run.New(run.Options{
		Catalog:      e.catalog,
		Clock:        sim.WallClock{Scale: timeScale},
		StepInterval: sc.StepInterval,
		StopSettle:   sc.StopSettle,
		OnBusy:       run.BusyPolicy(sc.OnBusy),
		Limits:       script.Limits{MaxLoopIterations: sc.MaxLoopIterations},
	})
}
