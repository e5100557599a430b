package storage

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Table and column names follow the schema the dashboard has always used,
// so an existing database keeps working.

type userRecord struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username       string     `gorm:"column:username;not null;uniqueIndex"`
	Password       string     `gorm:"column:password;not null"`
	GithubUsername *string    `gorm:"column:github_username"`
	CreatedAt      *time.Time `gorm:"column:created_at"`
}

func (userRecord) TableName() string {
	return "users"
}

type repositoryRecord struct {
	ID          int64       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      *int64      `gorm:"column:user_id;index"`
	User        *userRecord `gorm:"foreignKey:UserID;references:ID"`
	Name        string      `gorm:"column:name;not null"`
	URL         string      `gorm:"column:url;not null"`
	Language    *string     `gorm:"column:language"`
	LastUpdated *time.Time  `gorm:"column:last_updated"`
	IsActive    *bool       `gorm:"column:is_active;default:true"`
}

func (repositoryRecord) TableName() string {
	return "repositories"
}

type auditRecord struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID *int64            `gorm:"column:repository_id;index"`
	Repository   *repositoryRecord `gorm:"foreignKey:RepositoryID;references:ID"`
	UserID       *int64            `gorm:"column:user_id;index"`
	User         *userRecord       `gorm:"foreignKey:UserID;references:ID"`
	Score        *int              `gorm:"column:score"`
	Issues       datatypes.JSON    `gorm:"column:issues"`
	Status       *string           `gorm:"column:status"`
	CreatedAt    *time.Time        `gorm:"column:created_at"`
}

func (auditRecord) TableName() string {
	return "audits"
}

type aiFixReportRecord struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	AuditID   *int64         `gorm:"column:audit_id;index"`
	Audit     *auditRecord   `gorm:"foreignKey:AuditID;references:ID"`
	Fixes     datatypes.JSON `gorm:"column:fixes"`
	AppliedAt *time.Time     `gorm:"column:applied_at"`
	Status    *string        `gorm:"column:status"`
}

func (aiFixReportRecord) TableName() string {
	return "ai_fix_reports"
}

// Models lists the GORM models backing the relational store, parents first.
func Models() []any {
	return []any{&userRecord{}, &repositoryRecord{}, &auditRecord{}, &aiFixReportRecord{}}
}

// encodePayload always yields a JSON document; an absent payload is stored
// as the JSON literal null so the column never holds SQL NULL.
func encodePayload(value any) (datatypes.JSON, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

func decodePayload[T any](raw datatypes.JSON) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r userRecord) toUser() User {
	user := User{
		ID:             r.ID,
		Username:       r.Username,
		Password:       r.Password,
		GithubUsername: r.GithubUsername,
	}
	if r.CreatedAt != nil {
		user.CreatedAt = r.CreatedAt.UTC()
	}
	return user
}

func (r repositoryRecord) toRepository() Repository {
	repo := Repository{
		ID:          r.ID,
		Name:        r.Name,
		URL:         r.URL,
		Language:    r.Language,
		LastUpdated: utcPtr(r.LastUpdated),
		IsActive:    true,
	}
	if r.UserID != nil {
		repo.UserID = *r.UserID
	}
	if r.IsActive != nil {
		repo.IsActive = *r.IsActive
	}
	return repo
}

func (r auditRecord) toAudit() (Audit, error) {
	issues, err := decodePayload[Issue](r.Issues)
	if err != nil {
		return Audit{}, err
	}
	return Audit{
		ID:           r.ID,
		RepositoryID: r.RepositoryID,
		UserID:       r.UserID,
		Score:        r.Score,
		Issues:       issues,
		Status:       r.Status,
		CreatedAt:    utcPtr(r.CreatedAt),
	}, nil
}

func (r aiFixReportRecord) toAiFixReport() (AiFixReport, error) {
	fixes, err := decodePayload[Fix](r.Fixes)
	if err != nil {
		return AiFixReport{}, err
	}
	return AiFixReport{
		ID:        r.ID,
		AuditID:   r.AuditID,
		Fixes:     fixes,
		AppliedAt: utcPtr(r.AppliedAt),
		Status:    r.Status,
	}, nil
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	converted := value.UTC()
	return &converted
}
