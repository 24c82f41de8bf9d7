package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/robolab/internal/challenge"
	"github.com/spf13/cobra"
)

var (
	idStyle         = lipgloss.NewStyle().Bold(true).Width(5)
	difficultyStyle = lipgloss.NewStyle().Width(8)
	difficultyColor = map[challenge.Difficulty]lipgloss.Color{
		challenge.Easy:   lipgloss.Color("10"),
		challenge.Medium: lipgloss.Color("11"),
		challenge.Hard:   lipgloss.Color("9"),
	}
)

func challengesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenges",
		Short: "Browse the challenge catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "list",
		Short:        "List all challenges",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			for _, s := range e.catalog.All() {
				d := difficultyStyle.Foreground(difficultyColor[s.Difficulty]).Render(string(s.Difficulty))
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s\n", idStyle.Render(s.ID), d, s.Title)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:          "show <id>",
		Short:        "Describe one challenge",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			s, err := e.catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			out, err := renderScenario(s)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	})
	return cmd
}

func renderScenario(s challenge.Scenario) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s: %s\n\n", s.ID, s.Title)
	fmt.Fprintf(&md, "*Difficulty: %s*\n\n", s.Difficulty)
	md.WriteString(s.Description)
	md.WriteString("\n")
	if s.Start != nil {
		fmt.Fprintf(&md, "\nStarts at x=%g z=%g, heading %g.\n", s.Start.X, s.Start.Z, s.Start.Heading)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(md.String())
}
