package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists records in one table. The state is stored as JSON.
type SQLiteStore struct {
	db    *sql.DB
	table string

	schemaMu sync.Mutex
	schemaOK bool
}

// NewSQLiteStore builds a store using the given DB and table name.
func NewSQLiteStore(db *sql.DB, table string) *SQLiteStore {
	if table == "" {
		table = "intake_sessions"
	}
	return &SQLiteStore{db: db, table: table}
}

// OpenSQLiteStore opens dsn with the sqlite3 driver and prepares the schema.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		// every pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := NewSQLiteStore(db, "")
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	q := fmt.Sprintf(`SELECT id, version, state, finished, created_at, updated_at FROM %s WHERE id = ?`, s.table)
	var (
		rec       Record
		stateJSON string
		finished  int
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(&rec.ID, &rec.Version, &stateJSON, &finished, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	rec.Finished = finished != 0
	rec.CreatedAt, _ = parseTimestamp(createdAt)
	rec.UpdatedAt, _ = parseTimestamp(updatedAt)
	return &rec, nil
}

func (s *SQLiteStore) SaveIfVersion(ctx context.Context, rec *Record, expectedVersion int) (int, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	rec = cloneRecord(rec)
	if rec == nil {
		return 0, errRecordRequired
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return 0, errors.New("session record id required")
	}
	if expectedVersion < 0 {
		expectedVersion = 0
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return 0, err
	}
	finished := 0
	if rec.Finished {
		finished = 1
	}

	if expectedVersion == 0 {
		q := fmt.Sprintf(`INSERT OR IGNORE INTO %s (id, version, state, finished, created_at, updated_at) VALUES (?, 1, ?, ?, ?, ?)`, s.table)
		result, err := s.db.ExecContext(ctx, q,
			rec.ID,
			string(stateJSON),
			finished,
			formatTimestamp(rec.CreatedAt),
			formatTimestamp(rec.UpdatedAt),
		)
		if err != nil {
			return 0, err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return 0, conflict(rec.ID, expectedVersion)
		}
		return 1, nil
	}

	newVersion := expectedVersion + 1
	q := fmt.Sprintf(`UPDATE %s SET version=?, state=?, finished=?, updated_at=? WHERE id=? AND version=?`, s.table)
	result, err := s.db.ExecContext(ctx, q,
		newVersion,
		string(stateJSON),
		finished,
		formatTimestamp(rec.UpdatedAt),
		rec.ID,
		expectedVersion,
	)
	if err != nil {
		return 0, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, conflict(rec.ID, expectedVersion)
	}
	return newVersion, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound(id)
	}
	return nil
}

// ListIdle compares parsed timestamps; RFC3339Nano text drops trailing zeros
// and does not sort chronologically. Rows with an unreadable timestamp count
// as idle.
func (s *SQLiteStore) ListIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, updated_at FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, updatedAt string
		if err := rows.Scan(&id, &updatedAt); err != nil {
			return nil, err
		}
		ts, ok := parseTimestamp(updatedAt)
		if !ok || ts.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store not configured")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaOK {
		return nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		state TEXT NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	s.schemaOK = true
	return nil
}
