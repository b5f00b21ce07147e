package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/retailops-backend/pkg/db/models"
)

func newPaymentsCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect and reconcile M-Pesa STK push attempts",
	}
	cmd.AddCommand(newReconcileCmd(d), newQueryCmd(d))
	return cmd
}

func newReconcileCmd(d deps) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Poll the gateway for pending attempts older than a threshold",
		Example: `  # Resolve anything pending for more than five minutes
  opsctl payments reconcile --older-than 5m --limit 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			logg := commandLogger(cfg)
			svc, closeFn, err := d.payments(cmd.Context(), cfg, logg)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.ReconcileStale(cmd.Context(), olderThan, limit)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int{
				"checked":       report.Checked,
				"resolved":      report.Resolved,
				"still_pending": report.StillPending,
				"failed":        report.Failed,
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 2*time.Minute, "only attempts created before now minus this duration")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum attempts to poll")
	return cmd
}

func newQueryCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "query <checkout-request-id>",
		Short: "Query the gateway for one attempt and apply the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}
			logg := commandLogger(cfg)
			svc, closeFn, err := d.payments(cmd.Context(), cfg, logg)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.Query(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("query %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), attemptView(result.Attempt, string(result.Outcome)))
		},
	}
}

func attemptView(a *models.PaymentAttempt, outcome string) map[string]any {
	view := map[string]any{
		"outcome":             outcome,
		"checkout_request_id": a.CheckoutRequestID,
		"status":              a.Status,
		"amount_cents":        a.AmountCents,
		"callback_received":   a.CallbackReceived,
	}
	if a.SaleID != nil {
		view["sale_id"] = a.SaleID.String()
	}
	if a.ResultCode != nil {
		view["result_code"] = *a.ResultCode
	}
	if a.TransactionID != nil {
		view["transaction_id"] = *a.TransactionID
	}
	if a.ResolvedVia != nil {
		view["resolved_via"] = *a.ResolvedVia
	}
	return view
}
