package shocklet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// StoreConfig configures the SQLite window store.
type StoreConfig struct {
	// Path to the SQLite database file.
	Path string

	// BusyTimeout is the lock acquisition timeout in milliseconds.
	BusyTimeout int

	// MaxConnections is the max number of database connections.
	MaxConnections int
}

// DefaultStoreConfig returns default store configuration.
func DefaultStoreConfig(path string) StoreConfig {
	return StoreConfig{
		Path:           path,
		BusyTimeout:    5000,
		MaxConnections: 4,
	}
}

// RunRecord describes one persisted detection run.
type RunRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kernel    string    `json:"kernel"`
	Weighting string    `json:"weighting"`
	CreatedAt time.Time `json:"created_at"`
}

// WindowRecord is one detected window of a run, with its weight and peak
// location.
type WindowRecord struct {
	RunID  int64   `json:"run_id"`
	Row    int     `json:"row"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Weight float64 `json:"weight"`
	Peak   int     `json:"peak"`
}

// WindowStore persists detection runs and their windows in SQLite, so
// results can be queried with standard SQLite tools.
type WindowStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	insertRun    *sql.Stmt
	insertWindow *sql.Stmt
}

// OpenWindowStore opens (creating if needed) a window store.
func OpenWindowStore(cfg StoreConfig) (*WindowStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("store: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", cfg.Path, cfg.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxConnections)

	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	kernel TEXT NOT NULL,
	weighting TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS windows (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	row_idx INTEGER NOT NULL,
	start_idx INTEGER NOT NULL,
	end_idx INTEGER NOT NULL,
	weight REAL NOT NULL,
	peak INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}

	s := &WindowStore{db: db}
	if s.insertRun, err = db.Prepare(
		"INSERT INTO runs (name, kernel, weighting, created_at) VALUES (?, ?, ?, ?)"); err != nil {
		db.Close()
		return nil, err
	}
	if s.insertWindow, err = db.Prepare(
		"INSERT INTO windows (run_id, row_idx, start_idx, end_idx, weight, peak) VALUES (?, ?, ?, ?, ?, ?)"); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SaveRun persists a run record and its windows in one transaction and
// returns the run ID.
func (s *WindowStore) SaveRun(ctx context.Context, run RunRecord, windows []WindowRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("store: closed")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.Stmt(s.insertRun).ExecContext(ctx, run.Name, run.Kernel, run.Weighting, run.CreatedAt.UnixNano())
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	insert := tx.Stmt(s.insertWindow)
	for _, w := range windows {
		if _, err := insert.ExecContext(ctx, runID, w.Row, w.Start, w.End, w.Weight, w.Peak); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns all persisted runs, newest first.
func (s *WindowStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("store: closed")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, kernel, weighting, created_at FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Kernel, &r.Weighting, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListWindows returns the windows of a run ordered by row then start.
func (s *WindowStore) ListWindows(ctx context.Context, runID int64) ([]WindowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("store: closed")
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, row_idx, start_idx, end_idx, weight, peak FROM windows WHERE run_id = ? ORDER BY row_idx, start_idx", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WindowRecord
	for rows.Next() {
		var w WindowRecord
		if err := rows.Scan(&w.RunID, &w.Row, &w.Start, &w.End, &w.Weight, &w.Peak); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its windows.
func (s *WindowStore) DeleteRun(ctx context.Context, runID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("store: closed")
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM windows WHERE run_id = ?", runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	return err
}

// Close releases the store's statements and connections.
func (s *WindowStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.insertRun != nil {
		s.insertRun.Close()
	}
	if s.insertWindow != nil {
		s.insertWindow.Close()
	}
	return s.db.Close()
}
