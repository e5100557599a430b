package storage

import (
	"slices"
	"strings"
	"time"
)

// Severity classifies an audit issue.
type Severity string

const (
	// SeverityCritical marks issues that block a good score.
	SeverityCritical Severity = "critical"
	// SeverityWarning marks advisory issues.
	SeverityWarning Severity = "warning"
)

// User is the account owning repositories and audits.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Password       string    `json:"password"`
	GithubUsername *string   `json:"githubUsername"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewUser carries the caller-supplied fields for CreateUser.
type NewUser struct {
	Username       string
	Password       string
	GithubUsername *string
}

// Repository is a GitHub repository registered for auditing.
type Repository struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Language    *string    `json:"language"`
	LastUpdated *time.Time `json:"lastUpdated"`
	IsActive    bool       `json:"isActive"`
}

// NewRepository carries the caller-supplied fields for CreateRepository.
// A nil IsActive defaults to true.
type NewRepository struct {
	UserID   int64
	Name     string
	URL      string
	Language *string
	IsActive *bool
}

// RepositoryUpdate lists the fields to replace; nil fields are left untouched.
type RepositoryUpdate struct {
	Name        *string
	URL         *string
	Language    *string
	LastUpdated *time.Time
	IsActive    *bool
}

// IsEmpty reports whether the update carries no field.
func (u RepositoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.URL == nil && u.Language == nil && u.LastUpdated == nil && u.IsActive == nil
}

func (u RepositoryUpdate) applyTo(repo Repository) Repository {
	if u.Name != nil {
		repo.Name = *u.Name
	}
	if u.URL != nil {
		repo.URL = *u.URL
	}
	if u.Language != nil {
		repo.Language = cloneString(u.Language)
	}
	if u.LastUpdated != nil {
		repo.LastUpdated = cloneTime(u.LastUpdated)
	}
	if u.IsActive != nil {
		repo.IsActive = *u.IsActive
	}
	return repo
}

// Issue is a single SEO finding inside an audit.
type Issue struct {
	Error    string   `json:"error"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
}

// Audit is the stored result of one audit run over a repository.
// Issues is nil when no issue data was recorded.
type Audit struct {
	ID           int64      `json:"id"`
	RepositoryID *int64     `json:"repositoryId"`
	UserID       *int64     `json:"userId"`
	Score        *int       `json:"score"`
	Issues       []Issue    `json:"issues"`
	Status       *string    `json:"status"`
	CreatedAt    *time.Time `json:"createdAt"`
}

// NewAudit carries the caller-supplied fields for CreateAudit.
type NewAudit struct {
	RepositoryID *int64
	UserID       *int64
	Score        *int
	Issues       []Issue
	Status       *string
}

// Fix is one suggested code change in an AI fix report.
type Fix struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	File        string `json:"file"`
}

// AiFixReport is the stored set of fixes generated for an audit.
type AiFixReport struct {
	ID        int64      `json:"id"`
	AuditID   *int64     `json:"auditId"`
	Fixes     []Fix      `json:"fixes"`
	AppliedAt *time.Time `json:"appliedAt"`
	Status    *string    `json:"status"`
}

// NewAiFixReport carries the caller-supplied fields for CreateAiFixReport.
type NewAiFixReport struct {
	AuditID *int64
	Fixes   []Fix
	Status  *string
}

func normalizeUsername(value string) string {
	return strings.TrimSpace(value)
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func (u User) clone() User {
	u.GithubUsername = cloneString(u.GithubUsername)
	return u
}

func (r Repository) clone() Repository {
	r.Language = cloneString(r.Language)
	r.LastUpdated = cloneTime(r.LastUpdated)
	return r
}

func (a Audit) clone() Audit {
	a.RepositoryID = cloneInt64(a.RepositoryID)
	a.UserID = cloneInt64(a.UserID)
	a.Score = cloneInt(a.Score)
	a.Issues = slices.Clone(a.Issues)
	a.Status = cloneString(a.Status)
	a.CreatedAt = cloneTime(a.CreatedAt)
	return a
}

func (r AiFixReport) clone() AiFixReport {
	r.AuditID = cloneInt64(r.AuditID)
	r.Fixes = slices.Clone(r.Fixes)
	r.AppliedAt = cloneTime(r.AppliedAt)
	r.Status = cloneString(r.Status)
	return r
}
