// Package runstore persists enrichment runs in SQLite so an interrupted run
// can be resumed, inspected, or exported later.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"coverfill/internal/catalog"
	"coverfill/internal/config"
	"coverfill/internal/engine"
	"coverfill/internal/services"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is a persisted enrichment run.
type Run struct {
	ID         string
	SourcePath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time
	State      engine.State
}

// Summary is a lightweight view of a run for listings.
type Summary struct {
	ID         string                 `json:"id"`
	SourcePath string                 `json:"source"`
	Mode       engine.Mode            `json:"mode"`
	Cursor     int                    `json:"cursor"`
	Total      int                    `json:"total"`
	Completed  bool                   `json:"completed"`
	Counts     map[catalog.Status]int `json:"counts"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.StorePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create records a new run over state.Input and returns it.
func (s *Store) Create(ctx context.Context, sourcePath string, state engine.State) (*Run, error) {
	pending, err := marshalPending(state.Pending)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(timeLayout)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, source_path, mode, cursor, total, completed, pause_requested, pending_json, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			nullableString(sourcePath),
			string(state.Mode),
			state.Cursor,
			len(state.Input),
			boolToInt(state.Completed),
			boolToInt(state.PauseRequested),
			pending,
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for i, item := range state.Input {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshal input %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_inputs (run_id, position, name, item_json) VALUES (?, ?, ?, ?)`,
				id, i, item.Name, string(data),
			); err != nil {
				return fmt.Errorf("insert input %d: %w", i, err)
			}
		}
		return s.syncResults(ctx, tx, id, state.Accumulated)
	})
	if err != nil {
		return nil, err
	}
	return &Run{ID: id, SourcePath: sourcePath, CreatedAt: now, UpdatedAt: now, State: state.Clone()}, nil
}

// Save checkpoints the mutable parts of state for run id. The input list is
// fixed at creation and is not rewritten.
func (s *Store) Save(ctx context.Context, id string, state engine.State) error {
	pending, err := marshalPending(state.Pending)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeLayout)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE runs
             SET mode = ?, cursor = ?, completed = ?, pause_requested = ?, pending_json = ?,
                 updated_at = ?, finished_at = CASE WHEN ? = 1 THEN COALESCE(finished_at, ?) ELSE NULL END
             WHERE id = ?`,
			string(state.Mode),
			state.Cursor,
			boolToInt(state.Completed),
			boolToInt(state.PauseRequested),
			pending,
			now,
			boolToInt(state.Completed),
			now,
			id,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return services.Wrap(services.ErrNotFound, "runstore", "save", "run "+id, nil)
		}
		return s.syncResults(ctx, tx, id, state.Accumulated)
	})
}

// syncResults appends results not yet stored. When the stored prefix no
// longer matches, as after a reset, the stored results are replaced.
func (s *Store) syncResults(ctx context.Context, tx *sql.Tx, id string, acc *catalog.ResultSet) error {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM run_results WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return fmt.Errorf("query stored results: %w", err)
	}
	var stored []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan stored result: %w", err)
		}
		stored = append(stored, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stored results: %w", err)
	}

	items := acc.Items()
	start := len(stored)
	if !isPrefix(stored, items) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_results WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("clear results: %w", err)
		}
		start = 0
	}
	for seq := start; seq < len(items); seq++ {
		item := items[seq]
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal result %q: %w", item.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, seq, name, status, item_json) VALUES (?, ?, ?, ?, ?)`,
			id, seq, item.Name, string(item.Status), string(data),
		); err != nil {
			return fmt.Errorf("insert result %q: %w", item.Name, err)
		}
	}
	return nil
}

func isPrefix(stored []string, items []catalog.Item) bool {
	if len(stored) > len(items) {
		return false
	}
	for i, name := range stored {
		if items[i].Name != name {
			return false
		}
	}
	return true
}

// Load returns the run with the given id or unique id prefix.
func (s *Store) Load(ctx context.Context, idOrPrefix string) (*Run, error) {
	id, err := s.resolveID(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	var (
		run        Run
		sourcePath sql.NullString
		mode       string
		cursor     int
		completed  int
		pauseReq   int
		pending    sql.NullString
		createdRaw string
		updatedRaw string
		finished   sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, source_path, mode, cursor, completed, pause_requested, pending_json, created_at, updated_at, finished_at
         FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &sourcePath, &mode, &cursor, &completed, &pauseReq, &pending, &createdRaw, &updatedRaw, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "runstore", "load", "run "+idOrPrefix, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	run.SourcePath = sourcePath.String
	run.CreatedAt = parseTime(createdRaw)
	run.UpdatedAt = parseTime(updatedRaw)
	run.FinishedAt = parseTime(finished.String)

	state := engine.State{
		Cursor:         cursor,
		Mode:           engine.Mode(mode),
		Completed:      completed != 0,
		PauseRequested: pauseReq != 0,
	}
	if pending.Valid && pending.String != "" {
		state.Pending = &engine.Pending{}
		if err := json.Unmarshal([]byte(pending.String), state.Pending); err != nil {
			return nil, fmt.Errorf("decode pending item: %w", err)
		}
	}
	if state.Input, err = s.loadItems(ctx, `SELECT item_json FROM run_inputs WHERE run_id = ? ORDER BY position`, id); err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	results, err := s.loadItems(ctx, `SELECT item_json FROM run_results WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	state.Accumulated = catalog.NewResultSet()
	for _, item := range results {
		if !state.Accumulated.Insert(item) {
			return nil, fmt.Errorf("load results: duplicate name %q", item.Name)
		}
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	run.State = state
	return &run, nil
}

func (s *Store) loadItems(ctx context.Context, query, id string) ([]catalog.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var item catalog.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Latest returns the most recently updated run.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY updated_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "runstore", "latest", "no runs recorded", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return s.Load(ctx, id)
}

// LoadOrLatest loads idOrPrefix, or the latest run when it is blank.
func (s *Store) LoadOrLatest(ctx context.Context, idOrPrefix string) (*Run, error) {
	if strings.TrimSpace(idOrPrefix) == "" {
		return s.Latest(ctx)
	}
	return s.Load(ctx, idOrPrefix)
}

// List returns run summaries, most recent first. A limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT id, source_path, mode, cursor, total, completed, created_at, updated_at
              FROM runs ORDER BY updated_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var summaries []Summary
	for rows.Next() {
		var (
			summary    Summary
			sourcePath sql.NullString
			mode       string
			completed  int
			createdRaw string
			updatedRaw string
		)
		if err := rows.Scan(&summary.ID, &sourcePath, &mode, &summary.Cursor, &summary.Total, &completed, &createdRaw, &updatedRaw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.SourcePath = sourcePath.String
		summary.Mode = engine.Mode(mode)
		summary.Completed = completed != 0
		summary.CreatedAt = parseTime(createdRaw)
		summary.UpdatedAt = parseTime(updatedRaw)
		summaries = append(summaries, summary)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range summaries {
		counts, err := s.countByStatus(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Counts = counts
	}
	return summaries, nil
}

func (s *Store) countByStatus(ctx context.Context, id string) (map[catalog.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM run_results WHERE run_id = ? GROUP BY status`, id)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[catalog.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan result count: %w", err)
		}
		counts[catalog.Status(status)] = n
	}
	return counts, rows.Err()
}

// Delete removes a run and its inputs and results.
func (s *Store) Delete(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, idOrPrefix)
	if err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
		return err
	})
}

func (s *Store) resolveID(ctx context.Context, idOrPrefix string) (string, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return "", services.Wrap(services.ErrValidation, "runstore", "resolve", "run id is empty", nil)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return "", fmt.Errorf("resolve run id: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		if id == idOrPrefix {
			return id, nil
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve run id: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", services.Wrap(services.ErrNotFound, "runstore", "resolve", "run "+idOrPrefix, nil)
	case 1:
		return matches[0], nil
	default:
		return "", services.Wrap(services.ErrValidation, "runstore", "resolve", "run id prefix "+idOrPrefix+" is ambiguous", nil)
	}
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func marshalPending(p *engine.Pending) (any, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal pending item: %w", err)
	}
	return string(data), nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
