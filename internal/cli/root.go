// Package cli implements the leakscan command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatAuto = "auto"
	formatJSON = "json"
	formatText = "text"
)

// NewRootCmd builds the command tree. Tests build a fresh tree per case.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leakscan",
		Short:         "Find recurring opening mistakes in a player's games",
		Long:          "leakscan replays a player's recent games, finds the opening positions they keep reaching and asks an evaluation oracle whether their habitual move there loses more than a threshold.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("format", "f", formatAuto, "Output format: auto, json or text")
	root.PersistentFlags().String("log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// resolveFormat picks text for terminals and JSON for pipes when the user
// asked for auto.
func resolveFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatJSON, formatText:
		return format, nil
	case formatAuto, "":
		if isTerminal(cmd.OutOrStdout()) {
			return formatText, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
