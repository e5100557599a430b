package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig describes optional dependencies of the in-memory store.
type MemoryConfig struct {
	Clock func() time.Time
}

// MemoryStore keeps entities in process memory. A single lock guards every
// map so that composite operations such as UpdateRepository are atomic.
type MemoryStore struct {
	mu    sync.RWMutex
	clock func() time.Time

	users        map[int64]User
	repositories map[int64]Repository
	audits       map[int64]Audit
	fixReports   map[int64]AiFixReport

	// insertion order per entity, used for deterministic listings
	userOrder       []int64
	repositoryOrder []int64
	auditOrder      []int64
	fixReportOrder  []int64

	nextUserID       int64
	nextRepositoryID int64
	nextAuditID      int64
	nextFixReportID  int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store seeded with the demo user and repositories.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	store := &MemoryStore{
		clock:            clock,
		users:            make(map[int64]User),
		repositories:     make(map[int64]Repository),
		audits:           make(map[int64]Audit),
		fixReports:       make(map[int64]AiFixReport),
		nextUserID:       1,
		nextRepositoryID: 1,
		nextAuditID:      1,
		nextFixReportID:  1,
	}
	store.seed()
	return store
}

func (m *MemoryStore) seed() {
	now := m.clock().UTC()
	input := seedUser()
	user := m.insertUser(User{
		Username:       input.Username,
		Password:       input.Password,
		GithubUsername: input.GithubUsername,
		CreatedAt:      now,
	})
	for _, repo := range seedRepositoryRecords(user.ID, now) {
		m.insertRepository(repo)
	}
}

func (m *MemoryStore) insertUser(user User) User {
	user.ID = m.nextUserID
	m.nextUserID++
	m.users[user.ID] = user.clone()
	m.userOrder = append(m.userOrder, user.ID)
	return user
}

func (m *MemoryStore) insertRepository(repo Repository) Repository {
	repo.ID = m.nextRepositoryID
	m.nextRepositoryID++
	m.repositories[repo.ID] = repo.clone()
	m.repositoryOrder = append(m.repositoryOrder, repo.ID)
	return repo
}

// GetUser returns the user with the given id.
func (m *MemoryStore) GetUser(_ context.Context, id int64) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return User{}, false, nil
	}
	return user.clone(), true, nil
}

// GetUserByUsername scans for a user with a matching username.
func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.findUserByUsername(normalizeUsername(username))
	if !ok {
		return User{}, false, nil
	}
	return user.clone(), true, nil
}

func (m *MemoryStore) findUserByUsername(username string) (User, bool) {
	for _, id := range m.userOrder {
		if user := m.users[id]; user.Username == username {
			return user, true
		}
	}
	return User{}, false
}

// CreateUser registers a user with a fresh id.
func (m *MemoryStore) CreateUser(_ context.Context, input NewUser) (User, error) {
	username := normalizeUsername(input.Username)
	if username == "" {
		return User{}, newError(opCreateUser, "invalid_username", ErrInvalidUser)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.findUserByUsername(username); exists {
		return User{}, newError(opCreateUser, "duplicate_username", ErrDuplicateUsername)
	}
	user := m.insertUser(User{
		Username:       username,
		Password:       input.Password,
		GithubUsername: cloneString(input.GithubUsername),
		CreatedAt:      m.clock().UTC(),
	})
	return user.clone(), nil
}

// GetRepositories lists repositories owned by the user.
func (m *MemoryStore) GetRepositories(_ context.Context, userID int64) ([]Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRepositories(func(repo Repository) bool { return repo.UserID == userID }), nil
}

// GetAllRepositories lists every repository.
func (m *MemoryStore) GetAllRepositories(_ context.Context) ([]Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRepositories(nil), nil
}

func (m *MemoryStore) listRepositories(keep func(Repository) bool) []Repository {
	result := make([]Repository, 0, len(m.repositoryOrder))
	for _, id := range m.repositoryOrder {
		repo := m.repositories[id]
		if keep == nil || keep(repo) {
			result = append(result, repo.clone())
		}
	}
	return result
}

// CreateRepository stores a repository stamped with the current time.
func (m *MemoryStore) CreateRepository(_ context.Context, input NewRepository) (Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lastUpdated := m.clock().UTC()
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	repo := m.insertRepository(Repository{
		UserID:      input.UserID,
		Name:        input.Name,
		URL:         input.URL,
		Language:    cloneString(input.Language),
		LastUpdated: &lastUpdated,
		IsActive:    isActive,
	})
	return repo.clone(), nil
}

// UpdateRepository merges the provided fields into an existing repository.
func (m *MemoryStore) UpdateRepository(_ context.Context, id int64, update RepositoryUpdate) (Repository, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repositories[id]
	if !ok {
		return Repository{}, false, nil
	}
	updated := update.applyTo(repo)
	m.repositories[id] = updated.clone()
	return updated.clone(), true, nil
}

// GetAudits lists audits recorded for the user.
func (m *MemoryStore) GetAudits(_ context.Context, userID int64) ([]Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAudits(func(audit Audit) bool {
		return audit.UserID != nil && *audit.UserID == userID
	}), nil
}

// GetAuditsByRepository lists audits recorded for the repository.
func (m *MemoryStore) GetAuditsByRepository(_ context.Context, repositoryID int64) ([]Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAudits(func(audit Audit) bool {
		return audit.RepositoryID != nil && *audit.RepositoryID == repositoryID
	}), nil
}

// GetAllAudits lists every audit.
func (m *MemoryStore) GetAllAudits(_ context.Context) ([]Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAudits(nil), nil
}

func (m *MemoryStore) listAudits(keep func(Audit) bool) []Audit {
	result := make([]Audit, 0, len(m.auditOrder))
	for _, id := range m.auditOrder {
		audit := m.audits[id]
		if keep == nil || keep(audit) {
			result = append(result, audit.clone())
		}
	}
	return result
}

// GetAuditByID returns one audit.
func (m *MemoryStore) GetAuditByID(_ context.Context, id int64) (Audit, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	audit, ok := m.audits[id]
	if !ok {
		return Audit{}, false, nil
	}
	return audit.clone(), true, nil
}

// CreateAudit stores an audit stamped with the current time.
func (m *MemoryStore) CreateAudit(_ context.Context, input NewAudit) (Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	createdAt := m.clock().UTC()
	audit := Audit{
		ID:           m.nextAuditID,
		RepositoryID: cloneInt64(input.RepositoryID),
		UserID:       cloneInt64(input.UserID),
		Score:        cloneInt(input.Score),
		Issues:       input.Issues,
		Status:       cloneString(input.Status),
		CreatedAt:    &createdAt,
	}
	m.nextAuditID++
	m.audits[audit.ID] = audit.clone()
	m.auditOrder = append(m.auditOrder, audit.ID)
	return audit.clone(), nil
}

// GetAiFixReports lists fix reports generated for the audit.
func (m *MemoryStore) GetAiFixReports(_ context.Context, auditID int64) ([]AiFixReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listFixReports(func(report AiFixReport) bool {
		return report.AuditID != nil && *report.AuditID == auditID
	}), nil
}

// GetAllAiFixReports lists every fix report.
func (m *MemoryStore) GetAllAiFixReports(_ context.Context) ([]AiFixReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listFixReports(nil), nil
}

func (m *MemoryStore) listFixReports(keep func(AiFixReport) bool) []AiFixReport {
	result := make([]AiFixReport, 0, len(m.fixReportOrder))
	for _, id := range m.fixReportOrder {
		report := m.fixReports[id]
		if keep == nil || keep(report) {
			result = append(result, report.clone())
		}
	}
	return result
}

// GetAiFixReportByID returns one fix report.
func (m *MemoryStore) GetAiFixReportByID(_ context.Context, id int64) (AiFixReport, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.fixReports[id]
	if !ok {
		return AiFixReport{}, false, nil
	}
	return report.clone(), true, nil
}

// CreateAiFixReport stores a fix report stamped with the current time.
func (m *MemoryStore) CreateAiFixReport(_ context.Context, input NewAiFixReport) (AiFixReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appliedAt := m.clock().UTC()
	report := AiFixReport{
		ID:        m.nextFixReportID,
		AuditID:   cloneInt64(input.AuditID),
		Fixes:     input.Fixes,
		AppliedAt: &appliedAt,
		Status:    cloneString(input.Status),
	}
	m.nextFixReportID++
	m.fixReports[report.ID] = report.clone()
	m.fixReportOrder = append(m.fixReportOrder, report.ID)
	return report.clone(), nil
}
