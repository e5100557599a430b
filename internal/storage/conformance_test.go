package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

var conformanceNow = time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)

type storeFactory func(t *testing.T, clock func() time.Time) Store

func fixedClock(value time.Time) func() time.Time {
	return func() time.Time {
		return value
	}
}

func stringPtr(value string) *string {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

// runStoreConformance exercises the contract every backend must honor,
// including the insertion-order listing policy.
func runStoreConformance(t *testing.T, newStore storeFactory) {
	t.Run("seeded-user", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		user, found, err := store.GetUser(context.Background(), 1)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		if !found {
			t.Fatalf("expected seeded user")
		}
		if user.Username != SeedUsername || user.Password != "hashed_password" {
			t.Fatalf("unexpected seeded user %+v", user)
		}
		if user.GithubUsername == nil || *user.GithubUsername != "john.doe" {
			t.Fatalf("unexpected github username %v", user.GithubUsername)
		}

		byName, found, err := store.GetUserByUsername(context.Background(), SeedUsername)
		if err != nil || !found || byName.ID != user.ID {
			t.Fatalf("lookup by username failed: found=%v err=%v user=%+v", found, err, byName)
		}
	})

	t.Run("seeded-repositories", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		repos, err := store.GetRepositories(context.Background(), 1)
		if err != nil {
			t.Fatalf("get repositories: %v", err)
		}
		expected := []struct {
			name     string
			language string
			age      time.Duration
		}{
			{"portfolio-site", "Next.js", 48 * time.Hour},
			{"ecommerce-app", "React", 7 * 24 * time.Hour},
			{"blog-platform", "Vue.js", 72 * time.Hour},
			{"company-website", "HTML/CSS", 5 * 24 * time.Hour},
		}
		if len(repos) != len(expected) {
			t.Fatalf("expected %d repositories, got %d", len(expected), len(repos))
		}
		for index, want := range expected {
			repo := repos[index]
			if repo.Name != want.name {
				t.Fatalf("repository %d: expected %s, got %s", index, want.name, repo.Name)
			}
			if repo.URL != "https://github.com/john.doe/"+want.name {
				t.Fatalf("repository %s: unexpected url %s", want.name, repo.URL)
			}
			if repo.Language == nil || *repo.Language != want.language {
				t.Fatalf("repository %s: unexpected language %v", want.name, repo.Language)
			}
			if repo.LastUpdated == nil || !repo.LastUpdated.Equal(conformanceNow.Add(-want.age)) {
				t.Fatalf("repository %s: unexpected lastUpdated %v", want.name, repo.LastUpdated)
			}
			if !repo.IsActive || repo.UserID != 1 {
				t.Fatalf("repository %s: unexpected owner/active %+v", want.name, repo)
			}
		}
	})

	t.Run("create-repository-ids-increase", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		existing, err := store.GetAllRepositories(ctx)
		if err != nil {
			t.Fatalf("list repositories: %v", err)
		}
		maxID := int64(0)
		for _, repo := range existing {
			maxID = max(maxID, repo.ID)
		}

		for _, name := range []string{"docs-site", "landing-page", "api-gateway"} {
			repo, err := store.CreateRepository(ctx, NewRepository{
				UserID: 1,
				Name:   name,
				URL:    "https://github.com/john.doe/" + name,
			})
			if err != nil {
				t.Fatalf("create repository: %v", err)
			}
			if repo.ID <= maxID {
				t.Fatalf("expected id greater than %d, got %d", maxID, repo.ID)
			}
			maxID = repo.ID
			if !repo.IsActive {
				t.Fatalf("expected isActive to default to true")
			}
			if repo.Language != nil {
				t.Fatalf("expected nil language, got %q", *repo.Language)
			}
			if repo.LastUpdated == nil || !repo.LastUpdated.Equal(conformanceNow) {
				t.Fatalf("expected lastUpdated to be stamped, got %v", repo.LastUpdated)
			}
		}

		inactive, err := store.CreateRepository(ctx, NewRepository{UserID: 1, Name: "archived", URL: "https://github.com/john.doe/archived", IsActive: boolPtr(false)})
		if err != nil {
			t.Fatalf("create inactive repository: %v", err)
		}
		if inactive.IsActive {
			t.Fatalf("expected explicit isActive=false to be kept")
		}

		repos, err := store.GetRepositories(ctx, 1)
		if err != nil {
			t.Fatalf("get repositories: %v", err)
		}
		for index := 1; index < len(repos); index++ {
			if repos[index-1].ID >= repos[index].ID {
				t.Fatalf("expected insertion order, got ids %d then %d", repos[index-1].ID, repos[index].ID)
			}
		}
	})

	t.Run("update-unknown-repository", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		before, err := store.GetAllRepositories(ctx)
		if err != nil {
			t.Fatalf("list repositories: %v", err)
		}
		_, found, err := store.UpdateRepository(ctx, 999, RepositoryUpdate{Name: stringPtr("ghost")})
		if err != nil {
			t.Fatalf("update repository: %v", err)
		}
		if found {
			t.Fatalf("expected unknown repository to be absent")
		}
		after, err := store.GetAllRepositories(ctx)
		if err != nil {
			t.Fatalf("list repositories: %v", err)
		}
		if len(after) != len(before) {
			t.Fatalf("expected no new repositories, got %d then %d", len(before), len(after))
		}
		for index := range before {
			if before[index].Name != after[index].Name {
				t.Fatalf("repository %d mutated: %s -> %s", before[index].ID, before[index].Name, after[index].Name)
			}
		}
	})

	t.Run("update-merges-given-fields", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		repos, err := store.GetRepositories(ctx, 1)
		if err != nil {
			t.Fatalf("get repositories: %v", err)
		}
		original := repos[2]

		updated, found, err := store.UpdateRepository(ctx, original.ID, RepositoryUpdate{
			Language: stringPtr("Nuxt"),
			IsActive: boolPtr(false),
		})
		if err != nil {
			t.Fatalf("update repository: %v", err)
		}
		if !found {
			t.Fatalf("expected repository %d to exist", original.ID)
		}
		if updated.Language == nil || *updated.Language != "Nuxt" || updated.IsActive {
			t.Fatalf("expected given fields to change, got %+v", updated)
		}
		if updated.ID != original.ID || updated.UserID != original.UserID || updated.Name != original.Name || updated.URL != original.URL {
			t.Fatalf("expected untouched fields to be kept, got %+v from %+v", updated, original)
		}
		if updated.LastUpdated == nil || !updated.LastUpdated.Equal(*original.LastUpdated) {
			t.Fatalf("expected lastUpdated to be kept, got %v", updated.LastUpdated)
		}

		reloaded, err := store.GetRepositories(ctx, 1)
		if err != nil {
			t.Fatalf("get repositories: %v", err)
		}
		if reloaded[2].Language == nil || *reloaded[2].Language != "Nuxt" {
			t.Fatalf("expected update to persist, got %+v", reloaded[2])
		}

		unchanged, found, err := store.UpdateRepository(ctx, original.ID, RepositoryUpdate{})
		if err != nil || !found {
			t.Fatalf("empty update failed: found=%v err=%v", found, err)
		}
		if unchanged.Name != original.Name {
			t.Fatalf("empty update changed the record: %+v", unchanged)
		}
	})

	t.Run("create-user-validation", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		_, err := store.CreateUser(ctx, NewUser{Username: "  ", Password: "x"})
		if !errors.Is(err, ErrInvalidUser) {
			t.Fatalf("expected ErrInvalidUser, got %v", err)
		}
		_, err = store.CreateUser(ctx, NewUser{Username: SeedUsername, Password: "x"})
		if !errors.Is(err, ErrDuplicateUsername) {
			t.Fatalf("expected ErrDuplicateUsername, got %v", err)
		}
		user, err := store.CreateUser(ctx, NewUser{Username: "jane.roe", Password: "secret"})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		if user.ID <= 1 || !user.CreatedAt.Equal(conformanceNow) || user.GithubUsername != nil {
			t.Fatalf("unexpected created user %+v", user)
		}
	})

	t.Run("audits-round-trip", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		issues := []Issue{
			{Error: "Missing meta description", File: "pages/index.js", Line: 12, Severity: SeverityCritical},
			{Error: "Missing alt text", File: "components/Hero.js", Line: 24, Severity: SeverityWarning},
		}
		first, err := store.CreateAudit(ctx, NewAudit{
			RepositoryID: int64Ptr(1),
			UserID:       int64Ptr(1),
			Score:        intPtr(82),
			Issues:       issues,
			Status:       stringPtr("complete"),
		})
		if err != nil {
			t.Fatalf("create audit: %v", err)
		}
		second, err := store.CreateAudit(ctx, NewAudit{RepositoryID: int64Ptr(3), UserID: int64Ptr(1)})
		if err != nil {
			t.Fatalf("create audit: %v", err)
		}
		if second.ID <= first.ID {
			t.Fatalf("expected increasing audit ids, got %d then %d", first.ID, second.ID)
		}
		if second.Issues != nil || second.Score != nil || second.Status != nil {
			t.Fatalf("expected absent fields to stay absent, got %+v", second)
		}
		if first.CreatedAt == nil || !first.CreatedAt.Equal(conformanceNow) {
			t.Fatalf("expected createdAt to be stamped, got %v", first.CreatedAt)
		}

		loaded, found, err := store.GetAuditByID(ctx, first.ID)
		if err != nil || !found {
			t.Fatalf("get audit: found=%v err=%v", found, err)
		}
		if len(loaded.Issues) != 2 || loaded.Issues[0] != issues[0] || loaded.Issues[1] != issues[1] {
			t.Fatalf("unexpected issues %+v", loaded.Issues)
		}
		if loaded.Score == nil || *loaded.Score != 82 {
			t.Fatalf("unexpected score %v", loaded.Score)
		}

		userAudits, err := store.GetAudits(ctx, 1)
		if err != nil || len(userAudits) != 2 || userAudits[0].ID != first.ID {
			t.Fatalf("unexpected user audits %+v err=%v", userAudits, err)
		}
		repoAudits, err := store.GetAuditsByRepository(ctx, 3)
		if err != nil || len(repoAudits) != 1 || repoAudits[0].ID != second.ID {
			t.Fatalf("unexpected repository audits %+v err=%v", repoAudits, err)
		}
		none, err := store.GetAudits(ctx, 42)
		if err != nil || len(none) != 0 {
			t.Fatalf("expected no audits for unknown user, got %+v err=%v", none, err)
		}
		_, found, err = store.GetAuditByID(ctx, 999)
		if err != nil || found {
			t.Fatalf("expected missing audit, found=%v err=%v", found, err)
		}
	})

	t.Run("fix-reports-round-trip", func(t *testing.T) {
		store := newStore(t, fixedClock(conformanceNow))
		ctx := context.Background()
		audit, err := store.CreateAudit(ctx, NewAudit{RepositoryID: int64Ptr(2), UserID: int64Ptr(1), Score: intPtr(70)})
		if err != nil {
			t.Fatalf("create audit: %v", err)
		}
		fixes := []Fix{{Title: "Alt Text", Description: "Add alt text", Code: `<img alt="x" />`, File: "components/Hero.js"}}
		report, err := store.CreateAiFixReport(ctx, NewAiFixReport{AuditID: int64Ptr(audit.ID), Fixes: fixes, Status: stringPtr("generated")})
		if err != nil {
			t.Fatalf("create fix report: %v", err)
		}
		if report.AppliedAt == nil || !report.AppliedAt.Equal(conformanceNow) {
			t.Fatalf("expected appliedAt to be stamped, got %v", report.AppliedAt)
		}
		empty, err := store.CreateAiFixReport(ctx, NewAiFixReport{AuditID: int64Ptr(audit.ID)})
		if err != nil {
			t.Fatalf("create empty fix report: %v", err)
		}
		if empty.Fixes != nil {
			t.Fatalf("expected nil fixes, got %+v", empty.Fixes)
		}

		byAudit, err := store.GetAiFixReports(ctx, audit.ID)
		if err != nil || len(byAudit) != 2 || byAudit[0].ID != report.ID {
			t.Fatalf("unexpected fix reports %+v err=%v", byAudit, err)
		}
		loaded, found, err := store.GetAiFixReportByID(ctx, report.ID)
		if err != nil || !found {
			t.Fatalf("get fix report: found=%v err=%v", found, err)
		}
		if len(loaded.Fixes) != 1 || loaded.Fixes[0] != fixes[0] {
			t.Fatalf("unexpected fixes %+v", loaded.Fixes)
		}
		all, err := store.GetAllAiFixReports(ctx)
		if err != nil || len(all) != 2 {
			t.Fatalf("unexpected all fix reports %+v err=%v", all, err)
		}
		_, found, err = store.GetAiFixReportByID(ctx, 999)
		if err != nil || found {
			t.Fatalf("expected missing fix report, found=%v err=%v", found, err)
		}
	})
}
