// Package catalog is the read-only Test Case collaborator of spec §6: it
// fetches one TestCase by id, or an ordered list filtered by module.
package catalog

import (
	"context"
	"errors"

	"github.com/f-sync/uiflow/internal/model"
)

// ErrNotFound is returned by FetchTestCase when no test case exists for
// the given id. The HTTP layer maps this to a 404 via errors.Is.
var ErrNotFound = errors.New("catalog: test case not found")

// Filter scopes a batch fetch to a module list, user, and project.
type Filter struct {
	ModuleIDs []string
	UserID    string
	ProjectID string
}

// Client is the catalog contract the orchestrator depends on.
type Client interface {
	// FetchTestCase returns the test case for id, or ErrNotFound.
	FetchTestCase(ctx context.Context, id string) (*model.TestCase, error)
	// FetchTestCasesByModuleIDs returns test cases scoped by filter,
	// ordered ascending by creation time.
	FetchTestCasesByModuleIDs(ctx context.Context, filter Filter) ([]model.TestCase, error)
}
