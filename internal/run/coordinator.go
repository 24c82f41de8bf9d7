// Package run coordinates program runs: at most one active run, a fresh
// cancellation signal per run, reset and scenario selection.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/robolab/internal/challenge"
	"github.com/metalagman/robolab/internal/history"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/robot"
	"github.com/metalagman/robolab/internal/script"
	"github.com/metalagman/robolab/internal/sim"
	"github.com/metalagman/robolab/internal/world"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned by Start when a run is active and the busy policy is
// BusyReject.
var ErrBusy = errors.New("a run is already in progress")

// BusyPolicy decides what Start does while another run is active.
type BusyPolicy string

const (
	// BusyRestart aborts the active run and starts the new one.
	BusyRestart BusyPolicy = "restart"
	// BusyReject refuses the new run with ErrBusy.
	BusyReject BusyPolicy = "reject"
)

// Options configures a Coordinator.
type Options struct {
	Catalog      *challenge.Catalog
	Clock        sim.Clock
	StepInterval time.Duration
	StopSettle   time.Duration
	OnBusy       BusyPolicy
	Limits       script.Limits
	// Initial is the spawn state used when no scenario is active.
	Initial *model.RobotState
}

// Result summarizes a finished run.
type Result struct {
	RunID      string           `json:"run_id"`
	ScenarioID string           `json:"scenario_id,omitempty"`
	Status     model.RunStatus  `json:"status"`
	Success    bool             `json:"success"`
	Fault      string           `json:"fault,omitempty"`
	Start      model.RobotState `json:"start"`
	End        model.RobotState `json:"end"`
	History    history.Snapshot `json:"history"`
	Duration   time.Duration    `json:"duration"`
}

// Status is an observer snapshot of the coordinator.
type Status struct {
	State      model.RunState `json:"state"`
	Running    bool           `json:"running"`
	Success    bool           `json:"success"`
	ScenarioID string         `json:"scenario_id,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	Fault      string         `json:"fault,omitempty"`
}

// Handle refers to one started run.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// ID returns the run id.
func (h *Handle) ID() string { return h.id }

// Done is closed once the run has finished and its result is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel aborts the run. It does not wait for it to stop.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the run finishes and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Coordinator owns the run lifecycle around a single robot.
type Coordinator struct {
	opts  Options
	store *robot.Store
	hist  *history.Recorder

	mu       sync.Mutex
	scenario *challenge.Scenario
	active   *Handle
	state    model.RunState
	success  bool
	runID    string
	fault    string
}

// New creates a coordinator with the robot at its spawn state.
func New(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = sim.WallClock{Scale: 1}
	}
	if opts.OnBusy == "" {
		opts.OnBusy = BusyRestart
	}
	c := &Coordinator{
		opts:  opts,
		hist:  history.NewRecorder(),
		state: model.RunIdle,
	}
	c.store = robot.NewStore(c.spawnLocked())
	return c
}

// Store exposes the robot state store to passive observers.
func (c *Coordinator) Store() *robot.Store { return c.store }

// Layout returns the arena of the active scenario.
func (c *Coordinator) Layout() world.Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return world.LayoutFor(c.scenarioIDLocked())
}

// Readings returns the sensor panel at the current pose.
func (c *Coordinator) Readings() world.Readings {
	s := c.store.Snapshot()
	return world.Sense(s.X, s.Z, s.Rotation, c.Layout())
}

// Status returns the coordinator state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state,
		Running:    c.state == model.RunRunning,
		Success:    c.success,
		ScenarioID: c.scenarioIDLocked(),
		RunID:      c.runID,
		Fault:      c.fault,
	}
}

// Scenario returns the active scenario, if any.
func (c *Coordinator) Scenario() (challenge.Scenario, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scenario == nil {
		return challenge.Scenario{}, false
	}
	return *c.scenario, true
}

// Start launches prog in the background. The robot starts from wherever it
// currently is; the run's history is cleared first.
func (c *Coordinator) Start(prog *script.Program) (*Handle, error) {
	return c.StartIn("", prog)
}

// StartIn is Start preceded by selecting scenarioID when it is not the
// active scenario already, which resets the robot to its spawn. An empty id
// keeps the active scenario. The busy policy is applied before anything
// changes.
func (c *Coordinator) StartIn(scenarioID string, prog *script.Program) (*Handle, error) {
	if prog == nil {
		return nil, errors.New("nil program")
	}
	var next *challenge.Scenario
	if scenarioID != "" {
		if c.opts.Catalog == nil {
			return nil, fmt.Errorf("%w: %q", challenge.ErrUnknownScenario, scenarioID)
		}
		s, err := c.opts.Catalog.Lookup(scenarioID)
		if err != nil {
			return nil, err
		}
		next = &s
	}
	if err := c.lockIdle(c.opts.OnBusy == BusyReject); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if next != nil && next.ID != c.scenarioIDLocked() {
		c.scenario = next
		c.resetLocked()
		log.Debug().Str("scenario", next.ID).Msg("scenario selected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// An aborted run leaves the moving flag set; a new run clears it.
	start := c.store.Update(model.StateUpdate{IsMoving: model.Bool(false)})
	c.hist.Begin(start.X, start.Z)

	var scenario *challenge.Scenario
	if c.scenario != nil {
		s := *c.scenario
		scenario = &s
	}
	bot := sim.New(ctx, c.store, c.hist, sim.Options{
		Clock:        c.opts.Clock,
		StepInterval: c.opts.StepInterval,
		StopSettle:   c.opts.StopSettle,
		Layout:       world.LayoutFor(c.scenarioIDLocked()),
	})

	c.active = h
	c.state = model.RunRunning
	c.success = false
	c.fault = ""
	c.runID = h.id

	log.Debug().Str("run_id", h.id).Str("scenario", c.scenarioIDLocked()).Str("program", prog.Name).Msg("run started")
	go c.execute(ctx, h, bot, prog, start, scenario)
	return h, nil
}

// Run starts prog and waits for it. Cancelling ctx aborts the run. The
// returned error is only set when the run could not be started; the outcome
// of the program is in Result.Status.
func (c *Coordinator) Run(ctx context.Context, prog *script.Program) (Result, error) {
	h, err := c.Start(prog)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-h.done:
	case <-ctx.Done():
		h.cancel()
	}
	return h.Wait(), nil
}

func (c *Coordinator) execute(ctx context.Context, h *Handle, bot *sim.Robot, prog *script.Program, start model.RobotState, scenario *challenge.Scenario) {
	startedAt := time.Now()
	res := Result{RunID: h.id, Start: start}
	if scenario != nil {
		res.ScenarioID = scenario.ID
	}

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", script.ErrFault, p)
		}
		res.End = c.store.Snapshot()
		res.History = c.hist.Snapshot()
		res.Duration = time.Since(startedAt)
		switch {
		case err == nil:
			res.Status = model.StatusCompleted
			if scenario != nil {
				res.Success = scenario.Evaluate(res.Start, res.End, res.History)
			}
		case errors.Is(err, sim.ErrAborted):
			res.Status = model.StatusAborted
		default:
			res.Status = model.StatusFailed
			res.Fault = err.Error()
		}
		c.finish(h, res)
		logFinished(res, err)
	}()

	err = script.Exec(ctx, bot, prog, c.opts.Limits)
}

func (c *Coordinator) finish(h *Handle, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h.result = res
	if c.active == h {
		c.success = res.Success
		c.fault = res.Fault
		if res.Status == model.StatusAborted {
			c.state = model.RunAborted
		} else {
			c.state = model.RunIdle
		}
	}
	h.cancel()
	close(h.done)
}

func logFinished(res Result, err error) {
	event := log.Info()
	switch res.Status {
	case model.StatusAborted:
		event = log.Debug()
	case model.StatusFailed:
		event = log.Warn().Err(err)
	}
	event.
		Str("run_id", res.RunID).
		Str("scenario", res.ScenarioID).
		Str("status", string(res.Status)).
		Bool("success", res.Success).
		Dur("duration", res.Duration).
		Msg("run finished")
}

// Reset aborts the active run, waits for it to stop and puts the robot back
// at the spawn state of the active scenario. Calling it repeatedly is safe.
func (c *Coordinator) Reset() {
	_ = c.lockIdle(false)
	defer c.mu.Unlock()
	c.resetLocked()
}

// SelectScenario makes id the active scenario and resets to its spawn state.
func (c *Coordinator) SelectScenario(id string) error {
	if c.opts.Catalog == nil {
		return fmt.Errorf("%w: %q", challenge.ErrUnknownScenario, id)
	}
	s, err := c.opts.Catalog.Lookup(id)
	if err != nil {
		return err
	}
	_ = c.lockIdle(false)
	defer c.mu.Unlock()
	c.scenario = &s
	c.resetLocked()
	log.Debug().Str("scenario", id).Msg("scenario selected")
	return nil
}

// ClearScenario deactivates the scenario and resets to the default spawn.
func (c *Coordinator) ClearScenario() {
	_ = c.lockIdle(false)
	defer c.mu.Unlock()
	c.scenario = nil
	c.resetLocked()
}

// lockIdle acquires mu with no run active. Unless reject is set, an active
// run is cancelled and waited for first.
func (c *Coordinator) lockIdle(reject bool) error {
	for {
		c.mu.Lock()
		h := c.active
		if h == nil || h.finished() {
			return nil
		}
		c.mu.Unlock()
		if reject {
			return ErrBusy
		}
		log.Debug().Str("run_id", h.id).Msg("aborting active run")
		h.cancel()
		<-h.done
	}
}

func (c *Coordinator) resetLocked() {
	spawn := c.spawnLocked()
	c.store.Replace(spawn)
	c.hist.Begin(spawn.X, spawn.Z)
	c.state = model.RunIdle
	c.success = false
	c.fault = ""
}

func (c *Coordinator) spawnLocked() model.RobotState {
	base := model.DefaultState()
	if c.opts.Initial != nil {
		base = *c.opts.Initial
	}
	if c.scenario != nil {
		return c.scenario.StartState(base)
	}
	return base
}

func (c *Coordinator) scenarioIDLocked() string {
	if c.scenario == nil {
		return ""
	}
	return c.scenario.ID
}
