package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS latest_results (
	test_case_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	test_case_name TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	module_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	report_json TEXT NOT NULL,
	fail_screenshot TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	test_case_id TEXT NOT NULL,
	latest_result_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (latest_result_id) REFERENCES latest_results(test_case_id)
);

CREATE INDEX IF NOT EXISTS idx_run_history_test_case_id ON run_history(test_case_id);
`

// SQLiteStore is the reference write-only Store implementation (spec
// §4.9 "modernc.org/sqlite"): it upserts one row per test case holding
// the latest status, and appends an immutable run-history row (keyed by
// an autoincrement id) that carries the record's run id, or a freshly
// minted ULID when none is given, and links back to it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed result store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("results: open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTestResult implements Store.
func (s *SQLiteStore) SaveTestResult(ctx context.Context, record Record) error {
	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("results: marshal report: %w", err)
	}

	runID := record.RunID
	if runID == "" {
		runID = ulid.Make().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("results: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO latest_results (test_case_id, run_id, user_id, test_case_name, project_id, module_id, status, report_json, fail_screenshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(test_case_id) DO UPDATE SET
		   run_id=excluded.run_id, user_id=excluded.user_id, test_case_name=excluded.test_case_name,
		   project_id=excluded.project_id, module_id=excluded.module_id, status=excluded.status,
		   report_json=excluded.report_json, fail_screenshot=excluded.fail_screenshot, updated_at=CURRENT_TIMESTAMP`,
		record.TestCaseID, runID, record.UserID, record.TestCaseName, record.ProjectID, record.ModuleID,
		string(record.Status), string(reportJSON), record.FailScreenshot)
	if err != nil {
		return fmt.Errorf("results: upsert latest result: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO run_history (run_id, test_case_id, latest_result_id) VALUES (?, ?, ?)`,
		runID, record.TestCaseID, record.TestCaseID)
	if err != nil {
		return fmt.Errorf("results: append run history: %w", err)
	}

	return tx.Commit()
}

// History returns the run ids of a test case's run-history rows, newest
// first; it exists for reference deployments and integration tests that
// want to confirm the append-only log behaves as documented.
func (s *SQLiteStore) History(ctx context.Context, testCaseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM run_history WHERE test_case_id = ? ORDER BY created_at DESC, id DESC`, testCaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runIDs []string
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, err
		}
		runIDs = append(runIDs, runID)
	}
	return runIDs, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
