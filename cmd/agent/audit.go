package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vision-navigator/internal/domain/entity"
	"vision-navigator/internal/infrastructure/audit"
	"vision-navigator/internal/infrastructure/logger"
)

func newAuditCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0, got %d", limit)
			}
			log, err := audit.NewFileLog(a.cfg.Audit.Path, a.cfg.Audit.Enabled, logger.NewNop())
			if err != nil {
				return err
			}
			if !log.Enabled() {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Audit logging is disabled; showing entries from earlier runs.")
			}
			entries, err := log.Entries()
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), log.Path(), entries, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show, 0 for all")
	return cmd
}

func printEntries(out io.Writer, path string, entries []entity.AuditEntry, limit int) {
	if len(entries) == 0 {
		fmt.Fprintf(out, "No audit entries in %s\n", path)
		return
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	for _, e := range entries {
		coords := "-"
		if e.Coordinates != nil {
			coords = e.Coordinates.String()
		}
		fmt.Fprintf(out, "%s  %s  #%-3d ", e.Timestamp.Local().Format("2006-01-02 15:04:05"), shortID(e.RequestID), e.Iteration)
		statusColor(e.Status).Fprintf(out, "%-7s", e.Status)
		fmt.Fprintf(out, "  %-12s %-12s %.2f  %s\n", e.ActionTaken, coords, e.Confidence, e.Reasoning)
		if e.Error != nil {
			color.New(color.FgRed).Fprintf(out, "    error: %s\n", *e.Error)
		}
	}
}

func statusColor(s entity.AuditStatus) *color.Color {
	switch s {
	case entity.AuditSuccess:
		return color.New(color.FgGreen)
	case entity.AuditError:
		return color.New(color.FgRed)
	case entity.AuditSkipped:
		return color.New(color.FgYellow)
	}
	return color.New(color.Reset)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
