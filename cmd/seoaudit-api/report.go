package main

import (
	"github.com/MarcoPoloResearchLab/seoaudit/internal/report"
	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the KPI summary of the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, logger, application, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer logger.Sync()       //nolint:errcheck
			defer application.Close() //nolint:errcheck

			audits, err := application.Store.GetAllAudits(ctx)
			if err != nil {
				return err
			}
			repositories, err := application.Store.GetAllRepositories(ctx)
			if err != nil {
				return err
			}
			fixes, err := application.Store.GetAllAiFixReports(ctx)
			if err != nil {
				return err
			}

			summary := report.BuildSummary(audits, repositories, fixes, application.Clock())
			return report.WriteSummaryTable(cmd.OutOrStdout(), summary)
		},
	}
}
