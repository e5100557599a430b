package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/audit"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/report"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errInvalidRequest = errors.New("invalid request")

type auditRequestPayload struct {
	RepositoryID  *int64  `json:"repositoryId"`
	RepositoryIDs []int64 `json:"repositoryIds"`
}

func (p auditRequestPayload) ids() []int64 {
	ids := make([]int64, 0, len(p.RepositoryIDs)+1)
	if p.RepositoryID != nil {
		ids = append(ids, *p.RepositoryID)
	}
	return append(ids, p.RepositoryIDs...)
}

type fixRequestPayload struct {
	AuditID *int64 `json:"auditId"`
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	user, found, err := h.store.GetUser(c.Request.Context(), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) handleListRepositories(c *gin.Context) {
	repositories, err := h.store.GetRepositories(c.Request.Context(), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, repositories)
}

func (h *httpHandler) handleListRepositoryAudits(c *gin.Context) {
	repositoryID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "repository_not_found"})
		return
	}
	repositories, err := h.store.GetRepositories(c.Request.Context(), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if findRepository(repositories, &repositoryID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "repository_not_found"})
		return
	}
	audits, err := h.store.GetAuditsByRepository(c.Request.Context(), repositoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

func (h *httpHandler) handleRunAudit(c *gin.Context) {
	var request auditRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, errInvalidRequest)
		return
	}
	audits, err := h.auditor.RunAudits(c.Request.Context(), actingUserID(c), request.ids())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

func (h *httpHandler) handleGenerateFixes(c *gin.Context) {
	var request fixRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, errInvalidRequest)
		return
	}
	fixReport, err := h.auditor.GenerateFixes(c.Request.Context(), request.AuditID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fixReport)
}

func (h *httpHandler) handleListAudits(c *gin.Context) {
	audits, err := h.store.GetAudits(c.Request.Context(), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

func (h *httpHandler) handleListAuditFixes(c *gin.Context) {
	auditID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit_not_found"})
		return
	}
	_, found, err := h.store.GetAuditByID(c.Request.Context(), auditID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit_not_found"})
		return
	}
	fixReports, err := h.store.GetAiFixReports(c.Request.Context(), auditID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fixReports)
}

func (h *httpHandler) handleHistory(c *gin.Context) {
	snapshot, err := h.loadSnapshot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.BuildHistory(snapshot.audits, snapshot.fixes, snapshot.repositories, h.clock()))
}

func (h *httpHandler) handleReports(c *gin.Context) {
	snapshot, err := h.loadSnapshot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.BuildSummary(snapshot.audits, snapshot.repositories, snapshot.fixes, h.clock()))
}

type snapshot struct {
	audits       []storage.Audit
	fixes        []storage.AiFixReport
	repositories []storage.Repository
}

func (h *httpHandler) loadSnapshot(c *gin.Context) (snapshot, error) {
	ctx := c.Request.Context()
	audits, err := h.store.GetAllAudits(ctx)
	if err != nil {
		return snapshot{}, err
	}
	fixes, err := h.store.GetAllAiFixReports(ctx)
	if err != nil {
		return snapshot{}, err
	}
	repositories, err := h.store.GetAllRepositories(ctx)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{audits: audits, fixes: fixes, repositories: repositories}, nil
}

// respondError maps service and storage failures onto the JSON error body.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var storageErr *storage.Error
	switch {
	case errors.Is(err, audit.ErrRepositoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "repository_not_found"})
	case errors.Is(err, audit.ErrAuditNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "audit_not_found"})
	case errors.Is(err, errInvalidRequest), errors.Is(err, audit.ErrNoRepositories):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid_request"})
	case errors.As(err, &storageErr):
		h.logger.Error("storage operation failed", zap.String("code", storageErr.Code()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": storageErr.Code()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func findRepository(repositories []storage.Repository, id *int64) *storage.Repository {
	if id == nil {
		return nil
	}
	for index := range repositories {
		if repositories[index].ID == *id {
			return &repositories[index]
		}
	}
	return nil
}
