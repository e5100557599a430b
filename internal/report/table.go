package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteSummaryTable prints the KPIs and the recent audits as terminal tables.
func WriteSummaryTable(w io.Writer, summary Summary) error {
	if w == nil {
		return fmt.Errorf("report: nil writer")
	}

	kpis := table.NewWriter()
	kpis.SetOutputMirror(w)
	kpis.SetStyle(table.StyleLight)
	kpis.SetTitle("SEO Overview")
	kpis.AppendHeader(table.Row{"Metric", "Value"})
	kpis.AppendRow(table.Row{"Overall score", summary.KPIs.OverallScore})
	kpis.AppendRow(table.Row{"Score change vs last month", fmt.Sprintf("%+d", summary.KPIs.ScoreChange)})
	kpis.AppendRow(table.Row{"Total audits", summary.KPIs.TotalAudits})
	kpis.AppendRow(table.Row{"Audits this month", summary.KPIs.AuditsChange})
	kpis.AppendRow(table.Row{"Total fixes", summary.KPIs.TotalFixes})
	kpis.AppendRow(table.Row{"Repositories", summary.KPIs.Repositories})
	kpis.AppendRow(table.Row{"Critical issues", summary.KPIs.CriticalIssues})
	kpis.AppendRow(table.Row{"Critical change vs last week", fmt.Sprintf("%+d", summary.KPIs.IssuesChange)})
	kpis.AppendRow(table.Row{"Warnings", summary.KPIs.WarningIssues})
	kpis.Render()

	if len(summary.RecentAudits) == 0 {
		_, err := fmt.Fprintln(w, "No audits recorded yet.")
		return err
	}

	recent := table.NewWriter()
	recent.SetOutputMirror(w)
	recent.SetStyle(table.StyleLight)
	recent.SetTitle("Recent Audits")
	recent.AppendHeader(table.Row{"ID", "Repository", "Date", "Score", "Issues", "Status"})
	for _, audit := range summary.RecentAudits {
		recent.AppendRow(table.Row{
			audit.ID,
			audit.Repository,
			audit.Date,
			formatScore(audit.Score),
			audit.Issues,
			valueOrUnknown(audit.Status),
		})
	}
	recent.Render()
	return nil
}
