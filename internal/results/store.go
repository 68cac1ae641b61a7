// Package results is the write-only persistence collaborator of spec §6:
// it upserts the latest result for a test case and appends a run-history
// entry. The orchestrator depends only on Store; persistence failures are
// logged and swallowed (spec §5 "Persistence is fire-and-log").
package results

import (
	"context"

	"github.com/f-sync/uiflow/internal/model"
)

// Record is one persisted test execution, matching spec §6's
// saveTestResults payload shape.
type Record struct {
	RunID         string
	UserID        string
	TestCaseID    string
	TestCaseName  string
	ProjectID     string
	ModuleID      string
	Status        model.StepStatus
	Report        model.TestReport
	FailScreenshot string
}

// Store persists test execution results.
type Store interface {
	// SaveTestResult upserts the latest-result row for record.TestCaseID
	// and appends a run-history entry referencing it.
	SaveTestResult(ctx context.Context, record Record) error
}

// NoopStore discards every record. Spec §9 "Persistence decoupling"
// requires a no-op implementation be acceptable with no behavior change
// other than the absence of stored records.
type NoopStore struct{}

// SaveTestResult implements Store by doing nothing.
func (NoopStore) SaveTestResult(ctx context.Context, record Record) error { return nil }
