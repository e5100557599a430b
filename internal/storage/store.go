package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the relational backend has no verified connection.
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrInvalidUser indicates the user fields failed validation.
	ErrInvalidUser = errors.New("storage: invalid user")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("storage: username already exists")
)

const (
	opGetUser               = "storage.get_user"
	opGetUserByUsername     = "storage.get_user_by_username"
	opCreateUser            = "storage.create_user"
	opGetRepositories       = "storage.get_repositories"
	opCreateRepository      = "storage.create_repository"
	opUpdateRepository      = "storage.update_repository"
	opGetAudits             = "storage.get_audits"
	opGetAuditsByRepository = "storage.get_audits_by_repository"
	opCreateAudit           = "storage.create_audit"
	opGetAiFixReports       = "storage.get_ai_fix_reports"
	opCreateAiFixReport     = "storage.create_ai_fix_report"
	opGetAllAudits          = "storage.get_all_audits"
	opGetAllRepositories    = "storage.get_all_repositories"
	opGetAllAiFixReports    = "storage.get_all_ai_fix_reports"
	opGetAudit              = "storage.get_audit"
	opGetAiFixReport        = "storage.get_ai_fix_report"
	opSeed                  = "storage.seed"
)

// Error tags a storage failure with a stable code of the form
// "<operation>.<reason>".
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *Error) Code() string {
	return e.code
}

func newError(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Store is the persistence contract shared by the in-memory and relational
// backends. Lookups report absence through the boolean result, never an error.
// List operations return records in insertion (ascending id) order.
type Store interface {
	GetUser(ctx context.Context, id int64) (User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (User, bool, error)
	CreateUser(ctx context.Context, user NewUser) (User, error)

	GetRepositories(ctx context.Context, userID int64) ([]Repository, error)
	CreateRepository(ctx context.Context, repository NewRepository) (Repository, error)
	UpdateRepository(ctx context.Context, id int64, update RepositoryUpdate) (Repository, bool, error)

	GetAudits(ctx context.Context, userID int64) ([]Audit, error)
	GetAuditsByRepository(ctx context.Context, repositoryID int64) ([]Audit, error)
	CreateAudit(ctx context.Context, audit NewAudit) (Audit, error)

	GetAiFixReports(ctx context.Context, auditID int64) ([]AiFixReport, error)
	CreateAiFixReport(ctx context.Context, report NewAiFixReport) (AiFixReport, error)

	GetAllAudits(ctx context.Context) ([]Audit, error)
	GetAllRepositories(ctx context.Context) ([]Repository, error)
	GetAllAiFixReports(ctx context.Context) ([]AiFixReport, error)
	GetAuditByID(ctx context.Context, id int64) (Audit, bool, error)
	GetAiFixReportByID(ctx context.Context, id int64) (AiFixReport, bool, error)
}
