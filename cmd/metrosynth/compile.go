package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cbegin/metrosynth-go/internal/notation"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

var compileCmd = &cobra.Command{
	Use:   "compile <notation>",
	Short: "Print the notes of a notation string",
	Long: `Compile note notation and print one line per note with its start
time, frequency and duration in seconds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	notes, err := notation.Compile(strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%3s  %8s  %12s  %7s", "#", "start", "frequency", "length")))
	var at float64
	for i, n := range notes {
		fmt.Fprintf(out, "%3d  %7.3fs  %9.3f Hz  %6.3fs\n", i, at, n.Frequency, n.Duration)
		at += n.Duration
	}
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d notes, %.3fs", len(notes), notation.TotalDuration(notes))))
	return nil
}
