package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"codegraph/internal/types"
)

// FeedbackLog is the append-only persistence contract for feedback events
// and the revision records their propagation produces.
type FeedbackLog interface {
	AppendEvent(ctx context.Context, e *types.FeedbackEvent) error
	UpdateEventStatus(ctx context.Context, id string, status types.FeedbackStatus, attempt int) error
	AppendRevision(ctx context.Context, r *types.RevisionRecord) error
	History(ctx context.Context, entityID string) ([]types.RevisionRecord, error)
	Close() error
}

// SQLiteFeedbackLog implements FeedbackLog over modernc.org/sqlite, the
// teacher's persistence dependency, configured with the same WAL pragmas
// used for its own append-heavy storage.
type SQLiteFeedbackLog struct {
	db *sql.DB
}

// NewSQLiteFeedbackLog opens (and migrates) a sqlite database at dbPath.
// dbPath == ":memory:" is accepted for tests.
func NewSQLiteFeedbackLog(dbPath string, busyTimeoutMs int) (*SQLiteFeedbackLog, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("storage: database path cannot be empty")
	}
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", dbPath, busyTimeoutMs)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to ping database: %w", err)
	}
	if err := configurePragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteFeedbackLog{db: db}, nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("storage: failed to execute %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS feedback_events (
		id TEXT PRIMARY KEY,
		element_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		query_context TEXT,
		comment TEXT,
		created_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		attempt INTEGER NOT NULL DEFAULT 0,
		applied_delta TEXT,
		post_truth TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_events_element ON feedback_events(element_id);

	CREATE TABLE IF NOT EXISTS revision_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		pre_truth TEXT NOT NULL,
		post_truth TEXT NOT NULL,
		event_id TEXT NOT NULL,
		depth INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revision_records_entity ON revision_records(entity_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("storage: failed to migrate schema: %w", err)
	}
	return nil
}

// AppendEvent implements FeedbackLog.
func (l *SQLiteFeedbackLog) AppendEvent(ctx context.Context, e *types.FeedbackEvent) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, element_id, kind, query_context, comment, created_at, status, attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, attempt=excluded.attempt
	`, e.ID, e.ElementID, string(e.Kind), e.QueryContext, e.Comment, e.CreatedAt.Unix(), string(e.Status), e.Attempt)
	if err != nil {
		return fmt.Errorf("storage: append feedback event failed: %w", err)
	}
	return nil
}

// UpdateEventStatus implements FeedbackLog.
func (l *SQLiteFeedbackLog) UpdateEventStatus(ctx context.Context, id string, status types.FeedbackStatus, attempt int) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE feedback_events SET status = ?, attempt = ? WHERE id = ?
	`, string(status), attempt, id)
	if err != nil {
		return fmt.Errorf("storage: update feedback status failed: %w", err)
	}
	return nil
}

// AppendRevision implements FeedbackLog. Revision rows are immutable once
// written: this is the audit trail a reviewer consults to understand how an
// entity's truth value arrived where it is.
func (l *SQLiteFeedbackLog) AppendRevision(ctx context.Context, r *types.RevisionRecord) error {
	pre, err := json.Marshal(r.PreTruth)
	if err != nil {
		return fmt.Errorf("storage: marshal pre_truth failed: %w", err)
	}
	post, err := json.Marshal(r.PostTruth)
	if err != nil {
		return fmt.Errorf("storage: marshal post_truth failed: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO revision_records (entity_id, pre_truth, post_truth, event_id, depth, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.EntityID, string(pre), string(post), r.EventID, r.Depth, r.At.Unix())
	if err != nil {
		return fmt.Errorf("storage: append revision failed: %w", err)
	}
	return nil
}

// History implements FeedbackLog, returning an entity's revisions oldest-first.
func (l *SQLiteFeedbackLog) History(ctx context.Context, entityID string) ([]types.RevisionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT pre_truth, post_truth, event_id, depth, at
		FROM revision_records WHERE entity_id = ? ORDER BY id ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("storage: history query failed: %w", err)
	}
	defer rows.Close()

	var out []types.RevisionRecord
	for rows.Next() {
		var preRaw, postRaw string
		var rec types.RevisionRecord
		var at int64
		if err := rows.Scan(&preRaw, &postRaw, &rec.EventID, &rec.Depth, &at); err != nil {
			return nil, fmt.Errorf("storage: history scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(preRaw), &rec.PreTruth); err != nil {
			return nil, fmt.Errorf("storage: unmarshal pre_truth failed: %w", err)
		}
		if err := json.Unmarshal([]byte(postRaw), &rec.PostTruth); err != nil {
			return nil, fmt.Errorf("storage: unmarshal post_truth failed: %w", err)
		}
		rec.EntityID = entityID
		rec.At = time.Unix(at, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements FeedbackLog.
func (l *SQLiteFeedbackLog) Close() error {
	return l.db.Close()
}
