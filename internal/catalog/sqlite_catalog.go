package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/f-sync/uiflow/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS test_cases (
	id TEXT PRIMARY KEY,
	module_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteCatalog is the reference read-only Catalog implementation, used by
// default in local/dev/test runs (spec §4.9 "modernc.org/sqlite").
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens (creating if absent) a SQLite-backed catalog at dsn.
func NewSQLiteCatalog(dsn string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Seed inserts or replaces a test case, for use by reference deployments
// and integration tests that don't have a separate authoring UI.
func (c *SQLiteCatalog) Seed(ctx context.Context, testCase model.TestCase, moduleID, userID, projectID string) error {
	body, err := json.Marshal(testCase)
	if err != nil {
		return fmt.Errorf("catalog: marshal test case: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO test_cases (id, module_id, user_id, project_id, body) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET module_id=excluded.module_id, user_id=excluded.user_id, project_id=excluded.project_id, body=excluded.body`,
		testCase.ID, moduleID, userID, projectID, string(body))
	return err
}

// FetchTestCase implements Client.
func (c *SQLiteCatalog) FetchTestCase(ctx context.Context, id string) (*model.TestCase, error) {
	var body string
	err := c.db.QueryRowContext(ctx, `SELECT body FROM test_cases WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: query test case: %w", err)
	}
	var testCase model.TestCase
	if err := json.Unmarshal([]byte(body), &testCase); err != nil {
		return nil, fmt.Errorf("catalog: decode test case: %w", err)
	}
	return &testCase, nil
}

// FetchTestCasesByModuleIDs implements Client.
func (c *SQLiteCatalog) FetchTestCasesByModuleIDs(ctx context.Context, filter Filter) ([]model.TestCase, error) {
	if len(filter.ModuleIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(filter.ModuleIDs))
	args := make([]any, 0, len(filter.ModuleIDs)+2)
	for i, moduleID := range filter.ModuleIDs {
		placeholders[i] = "?"
		args = append(args, moduleID)
	}
	query := fmt.Sprintf(`SELECT body FROM test_cases WHERE module_id IN (%s)`, joinPlaceholders(placeholders))
	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query test cases: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("catalog: scan test case: %w", err)
		}
		var testCase model.TestCase
		if err := json.Unmarshal([]byte(body), &testCase); err != nil {
			return nil, fmt.Errorf("catalog: decode test case: %w", err)
		}
		testCases = append(testCases, testCase)
	}
	return testCases, rows.Err()
}

func joinPlaceholders(placeholders []string) string {
	joined := ""
	for i, p := range placeholders {
		if i > 0 {
			joined += ","
		}
		joined += p
	}
	return joined
}
