package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"adtrim/internal/adwindow"
	"adtrim/internal/config"
	"adtrim/internal/ledger"
)

type historyEntry struct {
	ID          int64             `json:"id"`
	Path        string            `json:"path"`
	Status      string            `json:"status"`
	Parts       int               `json:"parts"`
	AdSeconds   float64           `json:"ad_seconds"`
	Windows     []adwindow.Window `json:"windows,omitempty"`
	Error       string            `json:"error,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	Attempts    int               `json:"attempts"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func toHistoryEntry(e ledger.Entry) historyEntry {
	return historyEntry{
		ID:          e.ID,
		Path:        e.Path,
		Status:      string(e.Status),
		Parts:       e.Parts,
		AdSeconds:   e.AdSeconds,
		Windows:     e.Windows,
		Error:       e.ErrorMessage,
		RequestID:   e.RequestID,
		Attempts:    e.Attempts,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		CompletedAt: e.CompletedAt,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List episodes recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ledger.ListOptions{Limit: limit}
			for _, value := range statusFlags {
				status, ok := ledger.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", value, validStatuses())
				}
				opts.Statuses = append(opts.Statuses, status)
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				entries, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]historyEntry, 0, len(entries))
					for _, e := range entries {
						views = append(views, toHistoryEntry(e))
					}
					return writeJSON(cmd, views)
				}
				renderHistory(cmd, entries)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newHistoryForgetCommand(ctx))
	return cmd
}

func newHistoryForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <file>...",
		Short: "Drop ledger entries so the episodes are processed again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return fmt.Errorf("resolve %s: %w", arg, err)
					}
					removed, err := store.Forget(cmd.Context(), path)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Forgot %s\n", path)
					} else {
						fmt.Fprintf(out, "No ledger entry for %s\n", path)
					}
					if ledger.HasMarker(path) {
						fmt.Fprintf(out, "Legacy marker %s still present; delete it to reprocess\n", filepath.Base(ledger.MarkerPath(path)))
					}
				}
				return nil
			})
		},
	}
}

func renderHistory(cmd *cobra.Command, entries []ledger.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No episodes recorded")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		note := ""
		if e.ErrorMessage != "" {
			note = truncate(e.ErrorMessage, 60)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			filepath.Base(e.Path),
			string(e.Status),
			strconv.Itoa(e.Parts),
			formatSeconds(e.AdSeconds),
			strconv.Itoa(e.Attempts),
			formatTimestamp(e.UpdatedAt),
			note,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"ID", "Episode", "Status", "Parts", "Ads", "Tries", "Updated", "Note"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintln(out)
}

func validStatuses() string {
	statuses := ledger.AllStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
