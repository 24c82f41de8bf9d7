package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/metalagman/robolab/internal/logging"
	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/run"
	"github.com/metalagman/robolab/internal/script"
	"github.com/metalagman/robolab/internal/tui"
	"github.com/spf13/cobra"
)

var (
	errRunFailed  = errors.New("program failed")
	errRunAborted = errors.New("program aborted")
)

func runCmd() *cobra.Command {
	var challengeID string
	var useTUI bool
	var realtime bool
	cmd := &cobra.Command{
		Use:          "run <program>",
		Short:        "Run a robot program",
		Long:         "Run a robot program file (YAML or JSON). With a challenge the run is graded against it.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := script.ParseFile(args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}

			scale := 0.0
			if realtime || useTUI {
				scale = e.cfg.Simulation.TimeScale
			}
			coord := e.coordinator(scale)
			if challengeID == "" {
				challengeID = prog.Challenge
			}
			if challengeID != "" {
				if err := coord.SelectScenario(challengeID); err != nil {
					return err
				}
			}

			title := prog.Name
			if title == "" {
				title = filepath.Base(args[0])
			}
			graded := false
			if s, ok := coord.Scenario(); ok {
				title = fmt.Sprintf("%s · %s %s", title, s.ID, s.Title)
				graded = true
			}

			var res run.Result
			if useTUI {
				res, err = runTUI(cmd, coord, prog, title, graded)
			} else {
				res, err = coord.Run(cmd.Context(), prog)
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res, graded)

			switch res.Status {
			case model.StatusFailed:
				return fmt.Errorf("%w: %s", errRunFailed, res.Fault)
			case model.StatusAborted:
				return errRunAborted
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&challengeID, "challenge", "c", "", "grade the run against this challenge id")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a live terminal view (implies --realtime)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace the run by simulation.time_scale instead of running instantly")
	return cmd
}

func runTUI(cmd *cobra.Command, coord *run.Coordinator, prog *script.Program, title string, graded bool) (run.Result, error) {
	logging.InitWriter(io.Discard, debug)
	defer logging.Init(debug)

	updates, unsubscribe := coord.Store().Subscribe()
	defer unsubscribe()
	h, err := coord.Start(prog)
	if err != nil {
		return run.Result{}, err
	}
	m := tui.New(title, graded, coord.Layout(), coord.Store().Snapshot(), updates, h)
	if _, err := tui.Run(m, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		h.Cancel()
		return h.Wait(), err
	}
	return h.Wait(), nil
}

func printResult(w io.Writer, res run.Result, graded bool) {
	_, _ = fmt.Fprintf(w, "run %s: %s\n", res.RunID, res.Status)
	if res.Fault != "" {
		_, _ = fmt.Fprintf(w, "fault: %s\n", res.Fault)
	}
	end := res.End
	_, _ = fmt.Fprintf(w, "end: x=%.2f y=%.2f z=%.2f heading=%.1f\n", end.X, end.Y, end.Z, end.Rotation)
	h := res.History
	_, _ = fmt.Fprintf(w, "moved: %.2f  rotated: %.1f  touched wall: %t\n", h.MaxDistanceMoved, h.TotalRotation, h.TouchedWall)
	if graded && res.Status == model.StatusCompleted {
		verdict := "not passed"
		if res.Success {
			verdict = "passed"
		}
		_, _ = fmt.Fprintf(w, "challenge %s: %s\n", res.ScenarioID, verdict)
	}
}
