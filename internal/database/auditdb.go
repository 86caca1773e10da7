package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mai-automation/linkstatus/internal/model"
)

// AuditDB provides SQLite-based storage for audit runs and their result
// records.
//
// Design decision: We store the full report as JSON alongside normalized
// result rows. The JSON blob makes run comparison trivial (deserialize and
// diff), while the rows keep individual URLs queryable with plain SQL.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in the specified directory.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, "linkstatus.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple readers don't help a
	// one-shot CLI either.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- One row per audit run, with the full report as JSON.
	CREATE TABLE IF NOT EXISTS audit_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		site TEXT NOT NULL,
		start_url TEXT NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER DEFAULT 0,
		pages_crawled INTEGER DEFAULT 0,
		links_total INTEGER DEFAULT 0,
		reported INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON audit_runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON audit_runs(started_at);

	-- One row per reported link, queryable with plain SQL.
	CREATE TABLE IF NOT EXISTS result_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		source_page TEXT NOT NULL,
		anchor_text TEXT,
		url TEXT NOT NULL,
		response_code TEXT NOT NULL,
		destination_url TEXT,
		FOREIGN KEY (run_id) REFERENCES audit_runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON result_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_url ON result_records(url);
	CREATE INDEX IF NOT EXISTS idx_records_code ON result_records(response_code);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditReport persists a finished run: the metadata row, the JSON
// report, and the per-record rows, in one transaction.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, report *model.AuditReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // No-op after commit
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO audit_runs (run_id, site, start_url, started_at, duration_ms, pages_crawled, links_total, reported, skipped, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Site,
		report.StartURL,
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.Duration.Milliseconds(),
		report.PagesCrawled,
		len(report.Links),
		len(report.Records),
		report.SkippedCount,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit run: %w", err)
	}

	for _, rec := range report.Records {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO result_records (run_id, source_page, anchor_text, url, response_code, destination_url)
		VALUES (?, ?, ?, ?, ?, ?)
		`,
			report.RunID,
			rec.SourcePage,
			rec.AnchorText,
			rec.URL,
			rec.ResponseCode,
			rec.DestinationURL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result record: %w", err)
		}
	}

	return tx.Commit()
}

// RunMetadata summarizes one stored audit run without loading the full
// report.
type RunMetadata struct {
	// ID is the database row ID.
	ID int64

	// RunID is the run's unique identifier.
	RunID string

	// Site is the audited site.
	Site string

	// StartURL is the seed page.
	StartURL string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is the run's wall-clock time.
	Duration time.Duration

	// PagesCrawled, LinksTotal, Reported, and Skipped summarize the run.
	PagesCrawled int
	LinksTotal   int
	Reported     int
	Skipped      int
}

// ListRuns returns run metadata, newest first. If site is non-empty, only
// runs for that site are returned.
func (adb *AuditDB) ListRuns(ctx context.Context, site string) ([]RunMetadata, error) {
	query := `
	SELECT id, run_id, site, start_url, started_at, duration_ms, pages_crawled, links_total, reported, skipped
	FROM audit_runs
	`
	args := make([]any, 0, 1)
	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		var durationMs int64

		if err := rows.Scan(
			&meta.ID,
			&meta.RunID,
			&meta.Site,
			&meta.StartURL,
			&startedAt,
			&durationMs,
			&meta.PagesCrawled,
			&meta.LinksTotal,
			&meta.Reported,
			&meta.Skipped,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun retrieves the full report for a run ID.
// Returns nil without error when the run does not exist.
func (adb *AuditDB) GetRun(ctx context.Context, runID string) (*model.AuditReport, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx,
		`SELECT report_json FROM audit_runs WHERE run_id = ?`, runID,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// LatestRuns returns up to n most recent reports for a site, newest first.
// Used by comparison to diff the latest two audits.
func (adb *AuditDB) LatestRuns(ctx context.Context, site string, n int) ([]*model.AuditReport, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT report_json FROM audit_runs
	WHERE site = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, site, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var reports []*model.AuditReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var report model.AuditReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ListSites returns all sites with at least one stored run.
func (adb *AuditDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx,
		`SELECT DISTINCT site FROM audit_runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. Returns zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
