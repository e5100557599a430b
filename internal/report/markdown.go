package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
)

const (
	unknownValue = "Unknown"
	dateLayout   = "January 2, 2006 15:04 MST"
)

var recommendations = []string{
	"Give every page a unique meta description of 150-160 characters.",
	"Keep page titles between 50 and 60 characters and lead with the primary keyword.",
	"Describe every meaningful image with alt text.",
	"Keep a single h1 per page and do not skip heading levels.",
	"Re-run the audit after applying fixes to confirm the score improves.",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// RepositoryName returns the repository name or "Unknown" when unresolved.
func RepositoryName(repository *storage.Repository) string {
	if repository == nil || strings.TrimSpace(repository.Name) == "" {
		return unknownValue
	}
	return repository.Name
}

// RenderAuditMarkdown renders an audit as a downloadable Markdown document.
// A nil repository is rendered as "Unknown".
func RenderAuditMarkdown(audit storage.Audit, repository *storage.Repository) string {
	name := RepositoryName(repository)
	var doc strings.Builder

	fmt.Fprintf(&doc, "# SEO Audit Report: %s\n\n", name)
	fmt.Fprintf(&doc, "- **Repository:** %s\n", name)
	fmt.Fprintf(&doc, "- **Audit ID:** %d\n", audit.ID)
	fmt.Fprintf(&doc, "- **Audit Date:** %s\n", formatDate(audit.CreatedAt))
	fmt.Fprintf(&doc, "- **Score:** %s\n", formatScore(audit.Score))
	fmt.Fprintf(&doc, "- **Status:** %s\n\n", valueOrUnknown(audit.Status))

	doc.WriteString("## Issues\n\n")
	switch {
	case audit.Issues == nil:
		doc.WriteString("No issues data available.\n\n")
	case len(audit.Issues) == 0:
		doc.WriteString("No issues found.\n\n")
	default:
		for index, issue := range audit.Issues {
			fmt.Fprintf(&doc, "%d. **%s**\n", index+1, issue.Error)
			fmt.Fprintf(&doc, "   - File: `%s`\n", issue.File)
			fmt.Fprintf(&doc, "   - Line: %d\n", issue.Line)
			fmt.Fprintf(&doc, "   - Severity: %s\n", issue.Severity)
		}
		doc.WriteString("\n")
	}

	doc.WriteString("## Recommendations\n\n")
	for index, recommendation := range recommendations {
		fmt.Fprintf(&doc, "%d. %s\n", index+1, recommendation)
	}
	return doc.String()
}

// RenderFixMarkdown renders a fix report together with the audit and
// repository it was generated for. Either may be nil when unresolved.
func RenderFixMarkdown(report storage.AiFixReport, audit *storage.Audit, repository *storage.Repository) string {
	var doc strings.Builder

	fmt.Fprintf(&doc, "# AI Fix Report #%d\n\n", report.ID)
	fmt.Fprintf(&doc, "- **Repository:** %s\n", RepositoryName(repository))
	auditID := unknownValue
	if audit != nil {
		auditID = fmt.Sprintf("%d", audit.ID)
	} else if report.AuditID != nil {
		auditID = fmt.Sprintf("%d", *report.AuditID)
	}
	fmt.Fprintf(&doc, "- **Audit ID:** %s\n", auditID)
	fmt.Fprintf(&doc, "- **Status:** %s\n", valueOrUnknown(report.Status))
	fmt.Fprintf(&doc, "- **Applied:** %s\n\n", formatDate(report.AppliedAt))

	doc.WriteString("## Fixes\n\n")
	switch {
	case report.Fixes == nil:
		doc.WriteString("No fixes data available.\n")
	case len(report.Fixes) == 0:
		doc.WriteString("No fixes were generated.\n")
	default:
		for index, fix := range report.Fixes {
			if index > 0 {
				doc.WriteString("\n")
			}
			fmt.Fprintf(&doc, "### %d. %s\n\n", index+1, fix.Title)
			if fix.Description != "" {
				fmt.Fprintf(&doc, "%s\n\n", fix.Description)
			}
			fmt.Fprintf(&doc, "**File:** `%s`\n\n", fix.File)
			fence := codeFence(fix.Code)
			fmt.Fprintf(&doc, "%s\n%s\n%s\n", fence, fix.Code, fence)
		}
	}
	return doc.String()
}

// AuditFilename names the attachment for an audit download.
func AuditFilename(repositoryName string, auditID int64) string {
	return fmt.Sprintf("audit-%s-%d.md", filenameSlug(repositoryName), auditID)
}

// FixFilename names the attachment for a fix report download.
func FixFilename(repositoryName string, reportID int64) string {
	return fmt.Sprintf("fix-%s-%d.md", filenameSlug(repositoryName), reportID)
}

func filenameSlug(name string) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if slug == "" {
		return "unknown"
	}
	return slug
}

// codeFence picks a backtick fence longer than any run inside the code.
func codeFence(code string) string {
	fence := "```"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	return fence
}

func formatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return unknownValue
	}
	return value.UTC().Format(dateLayout)
}

func formatScore(score *int) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d/100", *score)
}

func valueOrUnknown(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return unknownValue
	}
	return *value
}
