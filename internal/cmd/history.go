package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"wtpulse/internal/ports"
)

// HistoryCmd lists or prunes recorded stats
type HistoryCmd struct {
	Format   string        `help:"Output format: table or json" enum:"table,json" default:"table"`
	Limit    int           `help:"Maximum number of entries to show" default:"50"`
	Prune    time.Duration `help:"Delete entries older than this instead of listing (e.g. 720h)"`
	Worktree string        `help:"Only show entries of this worktree ID"`
}

// Run executes the history command
func (h *HistoryCmd) Run(cli *CLI) error {
	svc, err := cli.Container.HistoryService()
	if err != nil {
		return err
	}

	ctx := context.Background()

	if h.Prune > 0 {
		removed, err := svc.Prune(ctx, h.Prune)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Printf("Removed %d entries older than %s\n", removed, h.Prune)
		return nil
	}

	entries, err := svc.List(ctx, ports.HistoryFilter{Limit: h.Limit, WorktreeID: h.Worktree})
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if h.Format == "json" {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	writeHistoryTable(os.Stdout, entries)
	return nil
}

func writeHistoryTable(out io.Writer, entries []ports.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history recorded yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tKIND\tNAME\tADDED\tDELETED\tCOMMITS")
	for _, e := range entries {
		name := e.Branch
		if e.Kind != "local" {
			name = e.WorktreeID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t+%d\t-%d\t%d\n",
			e.RecordedAt.Local().Format(time.DateTime),
			e.Kind,
			name,
			e.Additions,
			e.Deletions,
			e.Commits)
	}
	w.Flush()
}
