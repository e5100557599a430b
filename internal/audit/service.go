package audit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	"go.uber.org/zap"
)

const (
	// StatusComplete is recorded on every audit produced by RunAudits.
	StatusComplete = "complete"
	// StatusGenerated is recorded on every fix report produced by GenerateFixes.
	StatusGenerated = "generated"

	minScore    = 60
	scoreSpread = 40
)

var (
	// ErrNoRepositories indicates an audit run without any repository id.
	ErrNoRepositories = errors.New("audit: no repositories requested")
	// ErrRepositoryNotFound indicates a requested repository does not exist for the user.
	ErrRepositoryNotFound = errors.New("audit: repository not found")
	// ErrAuditNotFound indicates fixes were requested for an unknown audit.
	ErrAuditNotFound = errors.New("audit: audit not found")

	errMissingStore = errors.New("audit: store is required")
)

// ScoreSource yields pseudo-random integers in [0, n).
type ScoreSource interface {
	IntN(n int) int
}

type globalScoreSource struct{}

func (globalScoreSource) IntN(n int) int {
	return rand.IntN(n)
}

// ServiceConfig describes the dependencies of the audit service.
type ServiceConfig struct {
	Store  storage.Store
	Scores ScoreSource
	Logger *zap.Logger
}

// Service produces demo audits and fix reports and persists them.
type Service struct {
	store  storage.Store
	scores ScoreSource
	logger *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	scores := cfg.Scores
	if scores == nil {
		scores = globalScoreSource{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: cfg.Store, scores: scores, logger: logger}, nil
}

// Score draws an audit score in [60, 100).
func (s *Service) Score() int {
	return minScore + s.scores.IntN(scoreSpread)
}

// RunAudits records one audit per repository id, in request order. Every id
// must name a repository owned by userID; nothing is written otherwise.
// Audits are created one by one, so a storage failure midway leaves the
// earlier audits in place.
func (s *Service) RunAudits(ctx context.Context, userID int64, repositoryIDs []int64) ([]storage.Audit, error) {
	if len(repositoryIDs) == 0 {
		return nil, ErrNoRepositories
	}

	owned, err := s.store.GetRepositories(ctx, userID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]struct{}, len(owned))
	for _, repo := range owned {
		known[repo.ID] = struct{}{}
	}
	for _, id := range repositoryIDs {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrRepositoryNotFound, id)
		}
	}

	audits := make([]storage.Audit, 0, len(repositoryIDs))
	for _, id := range repositoryIDs {
		repositoryID := id
		owner := userID
		score := s.Score()
		status := StatusComplete
		audit, err := s.store.CreateAudit(ctx, storage.NewAudit{
			RepositoryID: &repositoryID,
			UserID:       &owner,
			Score:        &score,
			Issues:       MockIssues(),
			Status:       &status,
		})
		if err != nil {
			return audits, err
		}
		s.logger.Info("audit recorded",
			zap.Int64("audit_id", audit.ID),
			zap.Int64("repository_id", repositoryID),
			zap.Int("score", score),
		)
		audits = append(audits, audit)
	}
	return audits, nil
}

// GenerateFixes records a fix report for the audit. A nil auditID produces a
// report that is not linked to any audit.
func (s *Service) GenerateFixes(ctx context.Context, auditID *int64) (storage.AiFixReport, error) {
	if auditID != nil {
		_, found, err := s.store.GetAuditByID(ctx, *auditID)
		if err != nil {
			return storage.AiFixReport{}, err
		}
		if !found {
			return storage.AiFixReport{}, fmt.Errorf("%w: %d", ErrAuditNotFound, *auditID)
		}
	}

	status := StatusGenerated
	report, err := s.store.CreateAiFixReport(ctx, storage.NewAiFixReport{
		AuditID: auditID,
		Fixes:   MockFixes(),
		Status:  &status,
	})
	if err != nil {
		return storage.AiFixReport{}, err
	}
	s.logger.Info("fix report recorded", zap.Int64("report_id", report.ID))
	return report, nil
}
