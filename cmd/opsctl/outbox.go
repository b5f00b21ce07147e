package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/retailops-backend/pkg/pagination"
)

func newOutboxCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect the transactional outbox",
	}
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "Dead-lettered outbox events",
	}
	dlq.AddCommand(newDLQListCmd(d))
	cmd.AddCommand(dlq)
	return cmd
}

func newDLQListCmd(d deps) *cobra.Command {
	var (
		limit  int
		cursor string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered events, newest first",
		Example: `  opsctl outbox dlq list --limit 10
  opsctl outbox dlq list --limit 10 --cursor <next_cursor from the previous page>`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			repo, closeFn, err := d.dlq(cmd.Context(), cfg, commandLogger(cfg))
			if err != nil {
				return err
			}
			defer closeFn()

			entries, next, err := repo.List(cmd.Context(), pagination.Params{Limit: limit, Cursor: cursor})
			if err != nil {
				return fmt.Errorf("list dlq: %w", err)
			}
			rows := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				row := map[string]any{
					"event_id":       e.EventID.String(),
					"event_type":     e.EventType,
					"aggregate_type": e.AggregateType,
					"aggregate_id":   e.AggregateID.String(),
					"reason":         e.ErrorReason,
					"attempts":       e.AttemptCount,
					"failed_at":      e.FailedAt.UTC().Format(time.RFC3339),
				}
				if e.ErrorMessage != nil {
					row["error"] = *e.ErrorMessage
				}
				rows = append(rows, row)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"entries":     rows,
				"next_cursor": next,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "maximum rows to print")
	cmd.Flags().StringVar(&cursor, "cursor", "", "resume after the page that returned this cursor")
	return cmd
}
