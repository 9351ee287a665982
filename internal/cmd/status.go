package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"wtpulse/internal/domain"
)

// statusTimeout bounds one local measurement, fetch included
const statusTimeout = 20 * time.Second

// StatusCmd prints the current branch's stats for shell prompts and status bars
type StatusCmd struct {
	Format string `help:"Output format: text or json" enum:"text,json" default:"text"`
}

// Run executes the status command
func (s *StatusCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	var (
		stats domain.LocalStats
		ok    bool
	)
	if cli.Container.Root != "" {
		cli.Container.Poller.RunLocalOnce(ctx)
		stats, ok = cli.Container.Poller.LastLocalStats()
	}

	return writeStatus(os.Stdout, s.Format, stats, ok)
}

// writeStatus prints "branch +adds -dels ↑commits", or "?" when nothing could be measured
func writeStatus(w io.Writer, format string, stats domain.LocalStats, ok bool) error {
	if format == "json" {
		if !ok {
			_, err := fmt.Fprintln(w, "null")
			return err
		}
		return json.NewEncoder(w).Encode(stats)
	}

	if !ok {
		_, err := fmt.Fprint(w, "?")
		return err
	}
	_, err := fmt.Fprintf(w, "%s +%d -%d ↑%d", stats.Branch, stats.Additions, stats.Deletions, stats.Commits)
	return err
}
