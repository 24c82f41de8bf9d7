package main

import (
	"fmt"

	"github.com/metalagman/robolab/internal/script"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "validate <program>...",
		Short:        "Check robot programs without running them",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				prog, err := script.ParseFile(path)
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d statements)\n", path, len(prog.Body))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d programs invalid", failed, len(args))
			}
			return nil
		},
	}
}
