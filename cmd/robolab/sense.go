package main

import (
	"fmt"

	"github.com/metalagman/robolab/internal/model"
	"github.com/metalagman/robolab/internal/world"
	"github.com/spf13/cobra"
)

func senseCmd() *cobra.Command {
	var x, z float64
	var heading float64
	var challengeID string
	cmd := &cobra.Command{
		Use:          "sense",
		Short:        "Print the sensor readings of a robot at a given pose",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if challengeID != "" {
				e, err := loadEnv()
				if err != nil {
					return err
				}
				if _, err := e.catalog.Lookup(challengeID); err != nil {
					return err
				}
			}
			r := world.Sense(x, z, heading, world.LayoutFor(challengeID))
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "gyro:      %d\n", r.Gyro)
			_, _ = fmt.Fprintf(out, "touch:     %t\n", r.Touch)
			_, _ = fmt.Fprintf(out, "distance:  %s\n", r.DistanceLabel())
			_, _ = fmt.Fprintf(out, "color:     %s (%s)\n", r.Color, world.HexColor(r.RawColor))
			_, _ = fmt.Fprintf(out, "intensity: %d\n", r.Intensity)
			return nil
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "x coordinate")
	cmd.Flags().Float64Var(&z, "z", 0, "z coordinate")
	cmd.Flags().Float64Var(&heading, "heading", model.DefaultState().Rotation, "heading in degrees")
	cmd.Flags().StringVarP(&challengeID, "challenge", "c", "", "use the arena of this challenge")
	return cmd
}
