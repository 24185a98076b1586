package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
)

func renderJSON(w io.Writer, r model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(types.FromReport(r))
}

func renderText(w io.Writer, r model.Report) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Opening leaks for %s", r.Username)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("run %s: %d games, %d repeated positions, %d leaks",
		r.RunID, r.GamesAnalyzed, r.RepeatedPositions, len(r.Leaks))))

	if len(r.Leaks) == 0 {
		fmt.Fprintln(w, "No leaks found.")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLOSS\tREACH\tPLAYED\tBEST\tSIDE\tFEN")
	for i, l := range r.Leaks {
		best := l.BestMove
		if !l.HasBestMove() {
			best = "-"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s (%d)\t%s\t%s\t%s\n",
			i+1, l.CPLoss, l.ReachCount, l.Move, l.MoveCount, best, l.SideToMove, l.Before)
	}
	return tw.Flush()
}
