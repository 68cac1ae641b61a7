package results

import (
	"context"
	"testing"

	"github.com/f-sync/uiflow/internal/model"
)

func TestSQLiteStoreUpsertsLatestAndAppendsHistory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	record := Record{
		TestCaseID:   "tc-1",
		TestCaseName: "Login",
		UserID:       "user-1",
		Status:       model.StatusFail,
		Report:       model.TestReport{TestCaseID: "tc-1", Status: model.StatusFail},
	}

	if err := store.SaveTestResult(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	record.Status = model.StatusPass
	record.Report.Status = model.StatusPass
	if err := store.SaveTestResult(ctx, record); err != nil {
		t.Fatalf("save second: %v", err)
	}

	var status string
	if err := store.db.QueryRowContext(ctx, `SELECT status FROM latest_results WHERE test_case_id = ?`, "tc-1").Scan(&status); err != nil {
		t.Fatalf("query latest: %v", err)
	}
	if status != string(model.StatusPass) {
		t.Fatalf("expected latest status to reflect most recent save, got %q", status)
	}

	history, err := store.History(ctx, "tc-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d: %v", len(history), history)
	}
}

func TestSQLiteStoreGeneratesRunIDWhenAbsent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	record := Record{TestCaseID: "tc-2", Status: model.StatusPass, Report: model.TestReport{TestCaseID: "tc-2", Status: model.StatusPass}}
	if err := store.SaveTestResult(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	history, err := store.History(ctx, "tc-2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0] == "" {
		t.Fatalf("expected a generated run id, got %v", history)
	}
}

func TestSQLiteStoreSharesOneRunIDAcrossTestCasesInABatch(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	const runID = "batch-run-1"

	for _, testCaseID := range []string{"tc-a", "tc-b", "tc-c"} {
		record := Record{
			RunID:      runID,
			TestCaseID: testCaseID,
			Status:     model.StatusPass,
			Report:     model.TestReport{TestCaseID: testCaseID, Status: model.StatusPass},
		}
		if err := store.SaveTestResult(ctx, record); err != nil {
			t.Fatalf("save %s: %v", testCaseID, err)
		}
	}

	for _, testCaseID := range []string{"tc-a", "tc-b", "tc-c"} {
		history, err := store.History(ctx, testCaseID)
		if err != nil {
			t.Fatalf("history %s: %v", testCaseID, err)
		}
		if len(history) != 1 || history[0] != runID {
			t.Fatalf("expected %s's history to record the shared run id, got %v", testCaseID, history)
		}
	}
}

func TestNoopStoreDiscardsRecord(t *testing.T) {
	store := NoopStore{}
	if err := store.SaveTestResult(context.Background(), Record{TestCaseID: "tc-1"}); err != nil {
		t.Fatalf("noop save should never fail: %v", err)
	}
}
