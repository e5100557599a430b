package storage

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreConformance(t *testing.T) {
	runStoreConformance(t, func(t *testing.T, clock func() time.Time) Store {
		return NewMemoryStore(MemoryConfig{Clock: clock})
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{Clock: fixedClock(conformanceNow)})
	ctx := context.Background()

	audit, err := store.CreateAudit(ctx, NewAudit{
		RepositoryID: int64Ptr(1),
		Issues:       []Issue{{Error: "Title too short", File: "pages/about.js", Line: 8, Severity: SeverityCritical}},
	})
	if err != nil {
		t.Fatalf("create audit: %v", err)
	}
	audit.Issues[0].Error = "mutated"
	*audit.RepositoryID = 99

	stored, _, err := store.GetAuditByID(ctx, audit.ID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if stored.Issues[0].Error != "Title too short" || *stored.RepositoryID != 1 {
		t.Fatalf("store state leaked through returned value: %+v", stored)
	}

	repos, err := store.GetRepositories(ctx, 1)
	if err != nil {
		t.Fatalf("get repositories: %v", err)
	}
	*repos[0].Language = "mutated"
	reloaded, err := store.GetRepositories(ctx, 1)
	if err != nil {
		t.Fatalf("get repositories: %v", err)
	}
	if *reloaded[0].Language != "Next.js" {
		t.Fatalf("expected language to be isolated, got %s", *reloaded[0].Language)
	}
}

func TestMemoryStoreConcurrentCreatesIssueUniqueIDs(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	ctx := context.Background()

	const workers = 16
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo, err := store.CreateRepository(ctx, NewRepository{UserID: 1, Name: "concurrent", URL: "https://github.com/john.doe/concurrent"})
			if err != nil {
				t.Errorf("create repository: %v", err)
				return
			}
			ids <- repo.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate repository id %d", id)
		}
		if id <= 4 {
			t.Fatalf("expected ids after the seeded repositories, got %d", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d ids, got %d", workers, len(seen))
	}
}
