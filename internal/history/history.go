// Package history persists coordination runs in a local SQLite database so
// successive runs over the same site can be compared. The coordinator
// itself never reads this state; history is a write-behind audit log.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/optiserve/geocoord/internal/coordinator"
)

// Store wraps the run-history database.
type Store struct {
	*sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	site               TEXT NOT NULL,
	generated_at       TEXT NOT NULL,
	units_analyzed     INTEGER NOT NULL,
	agents_run         INTEGER NOT NULL,
	recommendations    INTEGER NOT NULL,
	conflicts          INTEGER NOT NULL,
	phases             INTEGER NOT NULL,
	blocked            INTEGER NOT NULL,
	overall_confidence REAL NOT NULL,
	total_days         INTEGER NOT NULL,
	report             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site, generated_at);
`

// Open opens or creates the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: initialize schema: %w", err)
	}

	return &Store{DB: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordRun stores one coordinated output, including the full report JSON.
func (s *Store) RecordRun(ctx context.Context, out *coordinator.CoordinatedOutput) error {
	report, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("history: marshal report: %w", err)
	}

	_, err = s.ExecContext(ctx, `
		INSERT INTO runs (run_id, site, generated_at, units_analyzed, agents_run,
			recommendations, conflicts, phases, blocked, overall_confidence,
			total_days, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		out.RunID, out.Site, out.GeneratedAt.UTC().Format(time.RFC3339),
		out.Summary.UnitsAnalyzed, out.Summary.AgentsRun,
		out.Summary.TotalRecommendations, out.Summary.ConflictsResolved,
		out.Summary.PhaseCount, out.Summary.BlockedTasks,
		out.Summary.OverallConfidence, out.Timeline.TotalDays, string(report))
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID             string    `json:"runId"`
	Site              string    `json:"site"`
	GeneratedAt       time.Time `json:"generatedAt"`
	Recommendations   int       `json:"recommendations"`
	Conflicts         int       `json:"conflicts"`
	Phases            int       `json:"phases"`
	Blocked           int       `json:"blocked"`
	OverallConfidence float64   `json:"overallConfidence"`
	TotalDays         int       `json:"totalDays"`
}

// ListRuns returns the most recent runs, newest first. A non-empty site
// filters to that site.
func (s *Store) ListRuns(ctx context.Context, site string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, site, generated_at, recommendations, conflicts,
			phases, blocked, overall_confidence, total_days
		FROM runs`
	args := []any{}
	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY generated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var generatedAt string
		if err := rows.Scan(&r.RunID, &r.Site, &generatedAt, &r.Recommendations,
			&r.Conflicts, &r.Phases, &r.Blocked, &r.OverallConfidence, &r.TotalDays); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads the full report of one run.
func (s *Store) GetRun(ctx context.Context, runID string) (*coordinator.CoordinatedOutput, error) {
	var report string
	err := s.QueryRowContext(ctx, "SELECT report FROM runs WHERE run_id = ?", runID).Scan(&report)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}

	var out coordinator.CoordinatedOutput
	if err := json.Unmarshal([]byte(report), &out); err != nil {
		return nil, fmt.Errorf("history: decode report: %w", err)
	}
	return &out, nil
}
