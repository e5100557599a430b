package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("database handle is required")

// GormConfig describes the dependencies of the relational store.
type GormConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// GormStore implements Store on top of a relational database through GORM.
// It refuses every operation until Probe has confirmed connectivity.
type GormStore struct {
	db        *gorm.DB
	clock     func() time.Time
	logger    *zap.Logger
	available atomic.Bool
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps an opened database. The store starts unavailable.
func NewGormStore(cfg GormConfig) (*GormStore, error) {
	if cfg.Database == nil {
		return nil, newError("storage.gorm.new", "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Probe runs a trivial round trip and records whether the database answered.
func (s *GormStore) Probe(ctx context.Context) error {
	var one int
	err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
	s.available.Store(err == nil)
	if err != nil {
		return newError("storage.probe", "unreachable", err)
	}
	return nil
}

// Available reports whether the last probe succeeded.
func (s *GormStore) Available() bool {
	return s.available.Load()
}

func (s *GormStore) conn(ctx context.Context, operation string) (*gorm.DB, error) {
	if !s.available.Load() {
		return nil, newError(operation, "unavailable", ErrUnavailable)
	}
	return s.db.WithContext(ctx), nil
}

// Seed inserts the demo user and repositories unless the demo user exists.
func (s *GormStore) Seed(ctx context.Context) error {
	db, err := s.conn(ctx, opSeed)
	if err != nil {
		return err
	}
	_, found, err := takeOne[userRecord](db, opSeed, "username = ?", SeedUsername)
	if err != nil {
		return err
	}
	if found {
		s.logger.Info("seed data already present", zap.String("username", SeedUsername))
		return nil
	}

	now := s.clock().UTC()
	txErr := db.Transaction(func(tx *gorm.DB) error {
		input := seedUser()
		user := userRecord{
			Username:       input.Username,
			Password:       input.Password,
			GithubUsername: input.GithubUsername,
			CreatedAt:      &now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		for _, repo := range seedRepositoryRecords(user.ID, now) {
			record := repositoryToRecord(repo)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return newError(opSeed, "insert_failed", txErr)
	}
	s.logger.Info("seed data created", zap.Int("repositories", len(seedRepositories)))
	return nil
}

// GetUser returns the user with the given id.
func (s *GormStore) GetUser(ctx context.Context, id int64) (User, bool, error) {
	db, err := s.conn(ctx, opGetUser)
	if err != nil {
		return User{}, false, err
	}
	record, found, err := takeOne[userRecord](db, opGetUser, "id = ?", id)
	if err != nil || !found {
		return User{}, false, err
	}
	return record.toUser(), true, nil
}

// GetUserByUsername returns the user with the given username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (User, bool, error) {
	db, err := s.conn(ctx, opGetUserByUsername)
	if err != nil {
		return User{}, false, err
	}
	record, found, err := takeOne[userRecord](db, opGetUserByUsername, "username = ?", normalizeUsername(username))
	if err != nil || !found {
		return User{}, false, err
	}
	return record.toUser(), true, nil
}

// CreateUser inserts a user with a database-assigned id.
func (s *GormStore) CreateUser(ctx context.Context, input NewUser) (User, error) {
	db, err := s.conn(ctx, opCreateUser)
	if err != nil {
		return User{}, err
	}
	username := normalizeUsername(input.Username)
	if username == "" {
		return User{}, newError(opCreateUser, "invalid_username", ErrInvalidUser)
	}
	_, exists, err := takeOne[userRecord](db, opCreateUser, "username = ?", username)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, newError(opCreateUser, "duplicate_username", ErrDuplicateUsername)
	}

	createdAt := s.clock().UTC()
	record := userRecord{
		Username:       username,
		Password:       input.Password,
		GithubUsername: cloneString(input.GithubUsername),
		CreatedAt:      &createdAt,
	}
	if err := db.Create(&record).Error; err != nil {
		return User{}, newError(opCreateUser, "insert_failed", err)
	}
	return record.toUser(), nil
}

// GetRepositories lists repositories owned by the user.
func (s *GormStore) GetRepositories(ctx context.Context, userID int64) ([]Repository, error) {
	db, err := s.conn(ctx, opGetRepositories)
	if err != nil {
		return nil, err
	}
	records, err := findAll[repositoryRecord](db, opGetRepositories, "user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	return repositoriesFromRecords(records), nil
}

// GetAllRepositories lists every repository.
func (s *GormStore) GetAllRepositories(ctx context.Context) ([]Repository, error) {
	db, err := s.conn(ctx, opGetAllRepositories)
	if err != nil {
		return nil, err
	}
	records, err := findAll[repositoryRecord](db, opGetAllRepositories)
	if err != nil {
		return nil, err
	}
	return repositoriesFromRecords(records), nil
}

// CreateRepository inserts a repository stamped with the current time.
func (s *GormStore) CreateRepository(ctx context.Context, input NewRepository) (Repository, error) {
	db, err := s.conn(ctx, opCreateRepository)
	if err != nil {
		return Repository{}, err
	}
	lastUpdated := s.clock().UTC()
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	record := repositoryToRecord(Repository{
		UserID:      input.UserID,
		Name:        input.Name,
		URL:         input.URL,
		Language:    cloneString(input.Language),
		LastUpdated: &lastUpdated,
		IsActive:    isActive,
	})
	if err := db.Create(&record).Error; err != nil {
		return Repository{}, newError(opCreateRepository, "insert_failed", err)
	}
	return record.toRepository(), nil
}

// UpdateRepository merges the provided fields into an existing repository and
// returns the stored result.
func (s *GormStore) UpdateRepository(ctx context.Context, id int64, update RepositoryUpdate) (Repository, bool, error) {
	db, err := s.conn(ctx, opUpdateRepository)
	if err != nil {
		return Repository{}, false, err
	}

	var (
		updated Repository
		found   bool
	)
	txErr := db.Transaction(func(tx *gorm.DB) error {
		_, exists, err := takeOne[repositoryRecord](tx, opUpdateRepository, "id = ?", id)
		if err != nil || !exists {
			return err
		}
		if columns := repositoryUpdateColumns(update); len(columns) > 0 {
			if err := tx.Model(&repositoryRecord{}).Where("id = ?", id).Updates(columns).Error; err != nil {
				return newError(opUpdateRepository, "update_failed", err)
			}
		}
		record, exists, err := takeOne[repositoryRecord](tx, opUpdateRepository, "id = ?", id)
		if err != nil {
			return err
		}
		updated, found = record.toRepository(), exists
		return nil
	})
	if txErr != nil {
		var storageErr *Error
		if errors.As(txErr, &storageErr) {
			return Repository{}, false, txErr
		}
		return Repository{}, false, newError(opUpdateRepository, "transaction_failed", txErr)
	}
	return updated, found, nil
}

func repositoryUpdateColumns(update RepositoryUpdate) map[string]any {
	columns := map[string]any{}
	if update.Name != nil {
		columns["name"] = *update.Name
	}
	if update.URL != nil {
		columns["url"] = *update.URL
	}
	if update.Language != nil {
		columns["language"] = *update.Language
	}
	if update.LastUpdated != nil {
		columns["last_updated"] = update.LastUpdated.UTC()
	}
	if update.IsActive != nil {
		columns["is_active"] = *update.IsActive
	}
	return columns
}

// GetAudits lists audits recorded for the user.
func (s *GormStore) GetAudits(ctx context.Context, userID int64) ([]Audit, error) {
	return s.listAudits(ctx, opGetAudits, "user_id = ?", userID)
}

// GetAuditsByRepository lists audits recorded for the repository.
func (s *GormStore) GetAuditsByRepository(ctx context.Context, repositoryID int64) ([]Audit, error) {
	return s.listAudits(ctx, opGetAuditsByRepository, "repository_id = ?", repositoryID)
}

// GetAllAudits lists every audit.
func (s *GormStore) GetAllAudits(ctx context.Context) ([]Audit, error) {
	return s.listAudits(ctx, opGetAllAudits)
}

func (s *GormStore) listAudits(ctx context.Context, operation string, conds ...any) ([]Audit, error) {
	db, err := s.conn(ctx, operation)
	if err != nil {
		return nil, err
	}
	records, err := findAll[auditRecord](db, operation, conds...)
	if err != nil {
		return nil, err
	}
	audits := make([]Audit, 0, len(records))
	for _, record := range records {
		audit, err := record.toAudit()
		if err != nil {
			return nil, newError(operation, "decode_failed", err)
		}
		audits = append(audits, audit)
	}
	return audits, nil
}

// GetAuditByID returns one audit.
func (s *GormStore) GetAuditByID(ctx context.Context, id int64) (Audit, bool, error) {
	db, err := s.conn(ctx, opGetAudit)
	if err != nil {
		return Audit{}, false, err
	}
	record, found, err := takeOne[auditRecord](db, opGetAudit, "id = ?", id)
	if err != nil || !found {
		return Audit{}, false, err
	}
	audit, err := record.toAudit()
	if err != nil {
		return Audit{}, false, newError(opGetAudit, "decode_failed", err)
	}
	return audit, true, nil
}

// CreateAudit inserts an audit stamped with the current time.
func (s *GormStore) CreateAudit(ctx context.Context, input NewAudit) (Audit, error) {
	db, err := s.conn(ctx, opCreateAudit)
	if err != nil {
		return Audit{}, err
	}
	issues, err := encodePayload(input.Issues)
	if err != nil {
		return Audit{}, newError(opCreateAudit, "encode_failed", err)
	}
	createdAt := s.clock().UTC()
	record := auditRecord{
		RepositoryID: cloneInt64(input.RepositoryID),
		UserID:       cloneInt64(input.UserID),
		Score:        cloneInt(input.Score),
		Issues:       issues,
		Status:       cloneString(input.Status),
		CreatedAt:    &createdAt,
	}
	if err := db.Create(&record).Error; err != nil {
		return Audit{}, newError(opCreateAudit, "insert_failed", err)
	}
	audit, err := record.toAudit()
	if err != nil {
		return Audit{}, newError(opCreateAudit, "decode_failed", err)
	}
	return audit, nil
}

// GetAiFixReports lists fix reports generated for the audit.
func (s *GormStore) GetAiFixReports(ctx context.Context, auditID int64) ([]AiFixReport, error) {
	return s.listFixReports(ctx, opGetAiFixReports, "audit_id = ?", auditID)
}

// GetAllAiFixReports lists every fix report.
func (s *GormStore) GetAllAiFixReports(ctx context.Context) ([]AiFixReport, error) {
	return s.listFixReports(ctx, opGetAllAiFixReports)
}

func (s *GormStore) listFixReports(ctx context.Context, operation string, conds ...any) ([]AiFixReport, error) {
	db, err := s.conn(ctx, operation)
	if err != nil {
		return nil, err
	}
	records, err := findAll[aiFixReportRecord](db, operation, conds...)
	if err != nil {
		return nil, err
	}
	reports := make([]AiFixReport, 0, len(records))
	for _, record := range records {
		report, err := record.toAiFixReport()
		if err != nil {
			return nil, newError(operation, "decode_failed", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// GetAiFixReportByID returns one fix report.
func (s *GormStore) GetAiFixReportByID(ctx context.Context, id int64) (AiFixReport, bool, error) {
	db, err := s.conn(ctx, opGetAiFixReport)
	if err != nil {
		return AiFixReport{}, false, err
	}
	record, found, err := takeOne[aiFixReportRecord](db, opGetAiFixReport, "id = ?", id)
	if err != nil || !found {
		return AiFixReport{}, false, err
	}
	report, err := record.toAiFixReport()
	if err != nil {
		return AiFixReport{}, false, newError(opGetAiFixReport, "decode_failed", err)
	}
	return report, true, nil
}

// CreateAiFixReport inserts a fix report stamped with the current time.
func (s *GormStore) CreateAiFixReport(ctx context.Context, input NewAiFixReport) (AiFixReport, error) {
	db, err := s.conn(ctx, opCreateAiFixReport)
	if err != nil {
		return AiFixReport{}, err
	}
	fixes, err := encodePayload(input.Fixes)
	if err != nil {
		return AiFixReport{}, newError(opCreateAiFixReport, "encode_failed", err)
	}
	appliedAt := s.clock().UTC()
	record := aiFixReportRecord{
		AuditID:   cloneInt64(input.AuditID),
		Fixes:     fixes,
		AppliedAt: &appliedAt,
		Status:    cloneString(input.Status),
	}
	if err := db.Create(&record).Error; err != nil {
		return AiFixReport{}, newError(opCreateAiFixReport, "insert_failed", err)
	}
	report, err := record.toAiFixReport()
	if err != nil {
		return AiFixReport{}, newError(opCreateAiFixReport, "decode_failed", err)
	}
	return report, nil
}

func takeOne[R any](db *gorm.DB, operation string, query string, args ...any) (R, bool, error) {
	var record R
	err := db.Where(query, args...).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record, false, nil
	}
	if err != nil {
		return record, false, newError(operation, "query_failed", err)
	}
	return record, true, nil
}

func findAll[R any](db *gorm.DB, operation string, conds ...any) ([]R, error) {
	var records []R
	tx := db.Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&records).Error; err != nil {
		return nil, newError(operation, "query_failed", err)
	}
	return records, nil
}

func repositoryToRecord(repo Repository) repositoryRecord {
	userID := repo.UserID
	isActive := repo.IsActive
	return repositoryRecord{
		ID:          repo.ID,
		UserID:      &userID,
		Name:        repo.Name,
		URL:         repo.URL,
		Language:    cloneString(repo.Language),
		LastUpdated: cloneTime(repo.LastUpdated),
		IsActive:    &isActive,
	}
}

func repositoriesFromRecords(records []repositoryRecord) []Repository {
	repos := make([]Repository, 0, len(records))
	for _, record := range records {
		repos = append(repos, record.toRepository())
	}
	return repos
}
