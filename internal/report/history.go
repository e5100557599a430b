package report

import (
	"slices"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
)

const (
	// ActivityAudit marks a history entry produced by an audit run.
	ActivityAudit = "audit"
	// ActivityFix marks a history entry produced by fix generation.
	ActivityFix = "fix"
)

// Activity is one entry of the merged audit and fix history.
type Activity struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	RepositoryID  *int64    `json:"repositoryId"`
	Repository    string    `json:"repository"`
	Status        *string   `json:"status"`
	Score         *int      `json:"score,omitempty"`
	AuditID       *int64    `json:"auditId,omitempty"`
	IssuesCount   int       `json:"issuesCount"`
	CriticalCount int       `json:"criticalCount"`
	WarningCount  int       `json:"warningCount"`
	FixesCount    int       `json:"fixesCount"`
}

// BuildHistory merges audits and fix reports into one activity list, newest
// first. Entries with equal dates keep audits before fixes, each in input
// order. Records without a date are placed at now.
func BuildHistory(audits []storage.Audit, fixes []storage.AiFixReport, repositories []storage.Repository, now time.Time) []Activity {
	repositoryIndex := indexRepositories(repositories)
	auditIndex := make(map[int64]storage.Audit, len(audits))
	for _, audit := range audits {
		auditIndex[audit.ID] = audit
	}

	activities := make([]Activity, 0, len(audits)+len(fixes))
	for _, audit := range audits {
		critical, warning := countSeverities(audit.Issues)
		activities = append(activities, Activity{
			ID:            audit.ID,
			Type:          ActivityAudit,
			Date:          dateOr(audit.CreatedAt, now),
			RepositoryID:  audit.RepositoryID,
			Repository:    RepositoryName(lookupRepository(repositoryIndex, audit.RepositoryID)),
			Status:        audit.Status,
			Score:         audit.Score,
			IssuesCount:   len(audit.Issues),
			CriticalCount: critical,
			WarningCount:  warning,
		})
	}
	for _, report := range fixes {
		var repositoryID *int64
		if report.AuditID != nil {
			if audit, ok := auditIndex[*report.AuditID]; ok {
				repositoryID = audit.RepositoryID
			}
		}
		activities = append(activities, Activity{
			ID:           report.ID,
			Type:         ActivityFix,
			Date:         dateOr(report.AppliedAt, now),
			RepositoryID: repositoryID,
			Repository:   RepositoryName(lookupRepository(repositoryIndex, repositoryID)),
			Status:       report.Status,
			AuditID:      report.AuditID,
			FixesCount:   len(report.Fixes),
		})
	}

	slices.SortStableFunc(activities, func(a, b Activity) int {
		return b.Date.Compare(a.Date)
	})
	return activities
}

func indexRepositories(repositories []storage.Repository) map[int64]*storage.Repository {
	index := make(map[int64]*storage.Repository, len(repositories))
	for i := range repositories {
		index[repositories[i].ID] = &repositories[i]
	}
	return index
}

func lookupRepository(index map[int64]*storage.Repository, id *int64) *storage.Repository {
	if id == nil {
		return nil
	}
	return index[*id]
}

func countSeverities(issues []storage.Issue) (critical, warning int) {
	for _, issue := range issues {
		switch issue.Severity {
		case storage.SeverityCritical:
			critical++
		case storage.SeverityWarning:
			warning++
		}
	}
	return critical, warning
}

func dateOr(value *time.Time, fallback time.Time) time.Time {
	if value == nil || value.IsZero() {
		return fallback.UTC()
	}
	return value.UTC()
}
