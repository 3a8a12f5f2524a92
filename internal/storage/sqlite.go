package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"funfeed/internal/model"
	"funfeed/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertContentBatch merges a harvest batch into the content table.
func (s *SQLite) UpsertContentBatch(ctx context.Context, batch []model.ContentRecord) (UpsertResult, error) {
	var res UpsertResult
	collapsed := CollapseBatch(batch)
	if len(collapsed) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	for _, rec := range collapsed {
		var existingID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM content WHERE type = ? AND natural_key = ?`,
			string(rec.Type), rec.NaturalKey,
		).Scan(&existingID)

		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO content (type, natural_key, provider, title, text, url, thumb, language, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				string(rec.Type), rec.NaturalKey, rec.Provider, rec.Title, rec.Text,
				rec.URL, rec.Thumb, rec.Language, now, now,
			)
			if err != nil {
				return UpsertResult{}, fmt.Errorf("insert content: %w", err)
			}
			res.Inserted++
		case err != nil:
			return UpsertResult{}, fmt.Errorf("query content identity: %w", err)
		default:
			_, err = tx.ExecContext(ctx,
				`UPDATE content SET provider = ?, title = ?, text = ?, url = ?, thumb = ?, language = ?, updated_at = ?
				 WHERE id = ?`,
				rec.Provider, rec.Title, rec.Text, rec.URL, rec.Thumb, rec.Language, now, existingID,
			)
			if err != nil {
				return UpsertResult{}, fmt.Errorf("update content: %w", err)
			}
			res.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit batch: %w", err)
	}
	return res, nil
}

// CountContent returns the all-time inventory grouped by content type.
func (s *SQLite) CountContent(ctx context.Context) (map[model.ContentType]int64, error) {
	return s.countContent(ctx, `SELECT type, COUNT(*) FROM content GROUP BY type`)
}

// CountContentCreatedBetween counts records with created_at in [start, end).
func (s *SQLite) CountContentCreatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error) {
	return s.countContent(ctx,
		`SELECT type, COUNT(*) FROM content WHERE created_at >= ? AND created_at < ? GROUP BY type`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout),
	)
}

// CountContentUpdatedBetween counts records with updated_at in [start, end).
func (s *SQLite) CountContentUpdatedBetween(ctx context.Context, start, end time.Time) (map[model.ContentType]int64, error) {
	return s.countContent(ctx,
		`SELECT type, COUNT(*) FROM content WHERE updated_at >= ? AND updated_at < ? GROUP BY type`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout),
	)
}

func (s *SQLite) countContent(ctx context.Context, query string, args ...any) (map[model.ContentType]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.ContentType]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.ContentType(typ)] = n
	}
	return counts, rows.Err()
}

// AppendCronRun appends one journal entry. Entries are never updated.
func (s *SQLite) AppendCronRun(ctx context.Context, entry *model.CronRunEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]string{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cron_runs (id, name, status, started_at, finished_at, duration_ms, triggered_by, details, details_truncated, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Name, string(entry.Status),
		entry.StartedAt.UTC().Format(timeLayout), entry.FinishedAt.UTC().Format(timeLayout),
		entry.DurationMs, string(entry.TriggeredBy), string(detailsJSON),
		entry.DetailsTruncated, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("insert cron run: %w", err)
	}
	return nil
}

// ListCronRuns returns journal entries in [start, end) ascending by started_at.
func (s *SQLite) ListCronRuns(ctx context.Context, start, end time.Time, names []string) ([]model.CronRunEntry, error) {
	query := `SELECT id, name, status, started_at, finished_at, duration_ms, triggered_by, details, details_truncated, error
	          FROM cron_runs WHERE started_at >= ? AND started_at < ?`
	args := []any{start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)}

	if len(names) > 0 {
		query += ` AND name IN (?` + strings.Repeat(",?", len(names)-1) + `)`
		for _, n := range names {
			args = append(args, n)
		}
	}
	query += ` ORDER BY started_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cron runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CronRunEntry
	for rows.Next() {
		var e model.CronRunEntry
		var status, startedStr, finishedStr, trigger, detailsJSON string
		if err := rows.Scan(&e.ID, &e.Name, &status, &startedStr, &finishedStr,
			&e.DurationMs, &trigger, &detailsJSON, &e.DetailsTruncated, &e.Error); err != nil {
			return nil, fmt.Errorf("scan cron run: %w", err)
		}
		e.Status = model.RunStatus(status)
		e.TriggeredBy = model.TriggerSource(trigger)
		e.StartedAt, _ = time.Parse(timeLayout, startedStr)
		e.FinishedAt, _ = time.Parse(timeLayout, finishedStr)
		if err := json.Unmarshal([]byte(detailsJSON), &e.Details); err != nil {
			e.Details = map[string]string{}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IncrementUsage bumps the day's counters in a single atomic upsert per bucket.
func (s *SQLite) IncrementUsage(ctx context.Context, day, contentType, language, provider string) error {
	buckets := []struct{ bucket, key string }{
		{"type", contentType},
		{"language", language},
		{"provider", provider},
	}
	for _, b := range buckets {
		if b.key == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO usage_counts (day, bucket, key, n) VALUES (?, ?, ?, 1)
			 ON CONFLICT (day, bucket, key) DO UPDATE SET n = n + 1`,
			day, b.bucket, b.key,
		)
		if err != nil {
			return fmt.Errorf("increment usage %s/%s: %w", b.bucket, b.key, err)
		}
	}
	return nil
}

// GetUsage returns the day's usage counter, or nil when the day has no events.
func (s *SQLite) GetUsage(ctx context.Context, day string) (*model.UsageCounter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bucket, key, n FROM usage_counts WHERE day = ?`, day,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counter := &model.UsageCounter{
		Day:        day,
		ByType:     make(map[string]int64),
		ByLanguage: make(map[string]int64),
		ByProvider: make(map[string]int64),
	}
	found := false
	for rows.Next() {
		var bucket, key string
		var n int64
		if err := rows.Scan(&bucket, &key, &n); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		found = true
		switch bucket {
		case "type":
			counter.ByType[key] = n
		case "language":
			counter.ByLanguage[key] = n
		case "provider":
			counter.ByProvider[key] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return counter, nil
}
