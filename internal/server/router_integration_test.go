package server

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/app"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/report"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
)

func TestRepositoriesServedWithoutDatabase(t *testing.T) {
	application := app.New(context.Background(), app.Config{Clock: testClock})
	t.Cleanup(func() { _ = application.Close() })
	server := newTestServer(t, application.Store)

	recorder := server.do(t, http.MethodGet, "/api/repositories", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if repositories := decodeBody[[]storage.Repository](t, recorder); len(repositories) != 4 {
		t.Fatalf("expected four seeded repositories, got %d", len(repositories))
	}
}

func TestAuditToDownloadFlow(t *testing.T) {
	backends := map[string]string{
		"memory":     "",
		"relational": "sqlite://" + filepath.Join(t.TempDir(), "seo.db"),
	}
	for name, url := range backends {
		t.Run(name, func(t *testing.T) {
			application := app.New(context.Background(), app.Config{DatabaseURL: url, Clock: testClock})
			t.Cleanup(func() { _ = application.Close() })
			if application.Backend != name {
				t.Fatalf("expected %s backend, got %s", name, application.Backend)
			}
			server := newTestServer(t, application.Store)

			recorder := server.do(t, http.MethodPost, "/api/audit", `{"repositoryIds":[3,1]}`)
			audits := decodeBody[[]storage.Audit](t, recorder)
			if len(audits) != 2 {
				t.Fatalf("expected two audits, got %s", recorder.Body.String())
			}
			recorder = server.do(t, http.MethodPost, "/api/ai-fix", `{"auditId":1}`)
			if recorder.Code != http.StatusOK {
				t.Fatalf("expected fix report, got %d %s", recorder.Code, recorder.Body.String())
			}

			recorder = server.do(t, http.MethodGet, "/api/audits", "")
			if listed := decodeBody[[]storage.Audit](t, recorder); len(listed) != 2 || listed[0].ID != 1 {
				t.Fatalf("unexpected audit listing %s", recorder.Body.String())
			}

			recorder = server.do(t, http.MethodGet, "/api/history", "")
			history := decodeBody[[]report.Activity](t, recorder)
			if len(history) != 3 {
				t.Fatalf("expected three history entries, got %d", len(history))
			}
			for _, activity := range history {
				if activity.Type == report.ActivityAudit && activity.IssuesCount != 3 {
					t.Fatalf("unexpected issue count %+v", activity)
				}
				if activity.Type == report.ActivityFix && (activity.FixesCount != 3 || activity.Repository != "blog-platform") {
					t.Fatalf("unexpected fix activity %+v", activity)
				}
			}

			recorder = server.do(t, http.MethodGet, "/api/reports", "")
			summary := decodeBody[report.Summary](t, recorder)
			if summary.KPIs.TotalAudits != 2 || summary.KPIs.OverallScore != 87 || summary.KPIs.TotalFixes != 1 || summary.KPIs.Repositories != 4 {
				t.Fatalf("unexpected summary %+v", summary.KPIs)
			}
			if summary.KPIs.CriticalIssues != 4 || summary.KPIs.WarningIssues != 2 {
				t.Fatalf("unexpected issue totals %+v", summary.KPIs)
			}

			recorder = server.do(t, http.MethodGet, "/api/download/audit/1", "")
			if recorder.Code != http.StatusOK {
				t.Fatalf("expected audit download, got %d %s", recorder.Code, recorder.Body.String())
			}
			if recorder.Header().Get("Content-Type") != markdownContentType {
				t.Fatalf("unexpected content type %s", recorder.Header().Get("Content-Type"))
			}
			if recorder.Header().Get("Content-Disposition") != `attachment; filename="audit-blog-platform-1.md"` {
				t.Fatalf("unexpected disposition %s", recorder.Header().Get("Content-Disposition"))
			}
			document := recorder.Body.String()
			for _, want := range []string{"blog-platform", "Missing meta description", "pages/index.js", "87/100"} {
				if !strings.Contains(document, want) {
					t.Fatalf("expected %q in audit document:\n%s", want, document)
				}
			}

			recorder = server.do(t, http.MethodGet, "/api/download/fix/1", "")
			if recorder.Header().Get("Content-Disposition") != `attachment; filename="fix-blog-platform-1.md"` {
				t.Fatalf("unexpected disposition %s", recorder.Header().Get("Content-Disposition"))
			}
			if !strings.Contains(recorder.Body.String(), "Title Optimization") {
				t.Fatalf("expected fixes in document:\n%s", recorder.Body.String())
			}

			for _, path := range []string{"/api/download/audit/77", "/api/download/fix/77"} {
				recorder = server.do(t, http.MethodGet, path, "")
				if recorder.Code != http.StatusNotFound {
					t.Fatalf("expected 404 for %s, got %d", path, recorder.Code)
				}
			}
		})
	}
}
