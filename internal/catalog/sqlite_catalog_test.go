package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/f-sync/uiflow/internal/model"
)

func TestSQLiteCatalogFetchTestCase(t *testing.T) {
	store, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	testCase := model.TestCase{ID: "tc-1", Name: "Login", URL: "https://example.org"}
	if err := store.Seed(ctx, testCase, "module-1", "user-1", "project-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.FetchTestCase(ctx, "tc-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Name != "Login" {
		t.Fatalf("unexpected test case: %+v", got)
	}
}

func TestSQLiteCatalogFetchTestCaseNotFound(t *testing.T) {
	store, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, err = store.FetchTestCase(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteCatalogFetchByModuleIDsFiltered(t *testing.T) {
	store, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	seed := func(id, module, user, project string) {
		if err := store.Seed(ctx, model.TestCase{ID: id, Name: id}, module, user, project); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("tc-1", "m1", "u1", "p1")
	seed("tc-2", "m1", "u1", "p1")
	seed("tc-3", "m2", "u1", "p1")
	seed("tc-4", "m1", "u2", "p1")

	testCases, err := store.FetchTestCasesByModuleIDs(ctx, Filter{ModuleIDs: []string{"m1"}, UserID: "u1", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("fetch by module: %v", err)
	}
	if len(testCases) != 2 {
		t.Fatalf("expected 2 test cases scoped to user/project, got %d: %+v", len(testCases), testCases)
	}
}
