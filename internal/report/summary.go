package report

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
)

const (
	recentAuditLimit  = 5
	scoreHistoryLimit = 10
	recentDateLayout  = "2006-01-02"
	week              = 7 * 24 * time.Hour
)

// KPIs holds the headline numbers of the reports view.
//
// ScoreChange is this calendar month's average score minus last month's,
// 0 unless both months have a scored audit. IssuesChange is the number of
// critical issues found in the last 7 days minus the 7 days before.
// AuditsChange counts the audits created this calendar month.
type KPIs struct {
	OverallScore   int `json:"overallScore"`
	ScoreChange    int `json:"scoreChange"`
	CriticalIssues int `json:"criticalIssues"`
	IssuesChange   int `json:"issuesChange"`
	WarningIssues  int `json:"warningIssues"`
	TotalAudits    int `json:"totalAudits"`
	AuditsChange   int `json:"auditsChange"`
	TotalFixes     int `json:"totalFixes"`
	Repositories   int `json:"repositories"`
}

// ScorePoint is one point of the score-over-time chart.
type ScorePoint struct {
	Month string `json:"month"`
	Score int    `json:"score"`
}

// IssueCount is one bar of the issue breakdown chart.
type IssueCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ChartData groups the chart-ready series.
type ChartData struct {
	SEOScoreOverTime []ScorePoint `json:"seoScoreOverTime"`
	IssuesBreakdown  []IssueCount `json:"issuesBreakdown"`
}

// RecentAudit is a row of the recent audits table.
type RecentAudit struct {
	ID         int64   `json:"id"`
	Repository string  `json:"repository"`
	Date       string  `json:"date"`
	Score      *int    `json:"score"`
	Issues     string  `json:"issues"`
	Status     *string `json:"status"`
}

// Summary is the aggregate served by the reports endpoint.
type Summary struct {
	KPIs         KPIs          `json:"kpis"`
	ChartData    ChartData     `json:"chartData"`
	RecentAudits []RecentAudit `json:"recentAudits"`
}

// AverageScore returns the rounded mean score of the audits that carry one,
// or 0 when none do.
func AverageScore(audits []storage.Audit) int {
	total, scored := 0, 0
	for _, audit := range audits {
		if audit.Score == nil {
			continue
		}
		total += *audit.Score
		scored++
	}
	if scored == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(scored)))
}

// BuildSummary computes KPIs, chart series and the recent audits list.
func BuildSummary(audits []storage.Audit, repositories []storage.Repository, fixes []storage.AiFixReport, now time.Time) Summary {
	repositoryIndex := indexRepositories(repositories)

	critical, warning := 0, 0
	for _, audit := range audits {
		c, w := countSeverities(audit.Issues)
		critical += c
		warning += w
	}

	newestFirst := slices.Clone(audits)
	slices.SortStableFunc(newestFirst, func(a, b storage.Audit) int {
		if order := dateOr(b.CreatedAt, now).Compare(dateOr(a.CreatedAt, now)); order != 0 {
			return order
		}
		return cmp.Compare(b.ID, a.ID)
	})

	recent := make([]RecentAudit, 0, recentAuditLimit)
	for _, audit := range newestFirst[:min(recentAuditLimit, len(newestFirst))] {
		recent = append(recent, RecentAudit{
			ID:         audit.ID,
			Repository: RepositoryName(lookupRepository(repositoryIndex, audit.RepositoryID)),
			Date:       dateOr(audit.CreatedAt, now).Format(recentDateLayout),
			Score:      audit.Score,
			Issues:     issueSummary(audit.Issues),
			Status:     audit.Status,
		})
	}

	window := newestFirst[:min(scoreHistoryLimit, len(newestFirst))]
	history := make([]ScorePoint, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		audit := window[i]
		score := 0
		if audit.Score != nil {
			score = *audit.Score
		}
		history = append(history, ScorePoint{
			Month: dateOr(audit.CreatedAt, now).Format("Jan"),
			Score: score,
		})
	}

	kpis := KPIs{
		OverallScore:   AverageScore(audits),
		CriticalIssues: critical,
		WarningIssues:  warning,
		TotalAudits:    len(audits),
		TotalFixes:     len(fixes),
		Repositories:   len(repositories),
	}
	kpis.ScoreChange, kpis.IssuesChange, kpis.AuditsChange = trends(audits, now)

	return Summary{
		KPIs: kpis,
		ChartData: ChartData{
			SEOScoreOverTime: history,
			IssuesBreakdown: []IssueCount{
				{Type: "Critical", Count: critical},
				{Type: "Warnings", Count: warning},
			},
		},
		RecentAudits: recent,
	}
}

// trends compares the current calendar month and the last 7 days with the
// periods right before them. Audits dated after now are ignored.
func trends(audits []storage.Audit, now time.Time) (scoreChange, issuesChange, auditsChange int) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	weekStart := now.Add(-week)
	lastWeekStart := weekStart.Add(-week)

	var thisMonth, lastMonth []storage.Audit
	thisWeek, lastWeek := 0, 0
	for _, audit := range audits {
		created := dateOr(audit.CreatedAt, now).UTC()
		if created.After(now) {
			continue
		}
		switch {
		case !created.Before(monthStart):
			thisMonth = append(thisMonth, audit)
		case !created.Before(lastMonthStart):
			lastMonth = append(lastMonth, audit)
		}
		critical, _ := countSeverities(audit.Issues)
		switch {
		case created.After(weekStart):
			thisWeek += critical
		case created.After(lastWeekStart):
			lastWeek += critical
		}
	}

	if hasScore(thisMonth) && hasScore(lastMonth) {
		scoreChange = AverageScore(thisMonth) - AverageScore(lastMonth)
	}
	return scoreChange, thisWeek - lastWeek, len(thisMonth)
}

func hasScore(audits []storage.Audit) bool {
	return slices.ContainsFunc(audits, func(audit storage.Audit) bool { return audit.Score != nil })
}

func issueSummary(issues []storage.Issue) string {
	critical, warning := countSeverities(issues)
	parts := make([]string, 0, 2)
	if critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", critical))
	}
	switch {
	case warning == 1:
		parts = append(parts, "1 warning")
	case warning > 1:
		parts = append(parts, fmt.Sprintf("%d warnings", warning))
	}
	if len(parts) == 0 {
		return "No issues"
	}
	return strings.Join(parts, ", ")
}
