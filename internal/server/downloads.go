package server

import (
	"fmt"
	"net/http"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/report"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const markdownContentType = "text/markdown; charset=utf-8"

func (h *httpHandler) handleDownloadAudit(c *gin.Context) {
	auditID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit_not_found"})
		return
	}
	ctx := c.Request.Context()
	found, exists, err := h.store.GetAuditByID(ctx, auditID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit_not_found"})
		return
	}
	repositories, err := h.store.GetAllRepositories(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	repository := findRepository(repositories, found.RepositoryID)
	filename := report.AuditFilename(report.RepositoryName(repository), found.ID)
	h.sendMarkdown(c, filename, report.RenderAuditMarkdown(found, repository))
}

func (h *httpHandler) handleDownloadFix(c *gin.Context) {
	reportID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "ai_fix_report_not_found"})
		return
	}
	ctx := c.Request.Context()
	fixReport, exists, err := h.store.GetAiFixReportByID(ctx, reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "ai_fix_report_not_found"})
		return
	}

	var linked *storage.Audit
	if fixReport.AuditID != nil {
		found, exists, err := h.store.GetAuditByID(ctx, *fixReport.AuditID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if exists {
			linked = &found
		}
	}
	var repository *storage.Repository
	if linked != nil {
		repositories, err := h.store.GetAllRepositories(ctx)
		if err != nil {
			h.respondError(c, err)
			return
		}
		repository = findRepository(repositories, linked.RepositoryID)
	}

	filename := report.FixFilename(report.RepositoryName(repository), fixReport.ID)
	h.sendMarkdown(c, filename, report.RenderFixMarkdown(fixReport, linked, repository))
}

func (h *httpHandler) sendMarkdown(c *gin.Context, filename, document string) {
	h.logger.Debug("serving markdown download", zap.String("filename", filename))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, markdownContentType, []byte(document))
}
