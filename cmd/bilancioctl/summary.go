package main

import (
	"encoding/json"

	"bilancio/internal/backend"
	"bilancio/internal/dashboard"
	apphttp "bilancio/internal/http"

	"github.com/spf13/cobra"
)

func (a *app) summaryCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary of an owner as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bc, err := backend.FromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bc)
			if err != nil {
				return err
			}
			defer res.Close()

			svc := dashboard.NewService(res.Backend, dashboard.Options{
				IncomeWindow:  a.cfg.IncomeWindow(),
				ExpenseWindow: a.cfg.ExpenseWindow(),
				RecentLimit:   a.cfg.RecentLimit,
				Logger:        a.logger,
			})
			summary, err := svc.Summary(ctx, owner)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(apphttp.NewSummaryResponse(summary))
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (UUID)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
