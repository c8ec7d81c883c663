package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	parent_id      TEXT,
	check_name     TEXT NOT NULL,
	msid           TEXT NOT NULL,
	load_name      TEXT,
	mode           TEXT NOT NULL,
	load_start     REAL NOT NULL,
	start_time     REAL NOT NULL,
	stop_time      REAL NOT NULL,
	terminal_time  REAL NOT NULL,
	terminal_state TEXT NOT NULL,
	violations     INTEGER NOT NULL DEFAULT 0,
	verdict        TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS run_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	check_name    TEXT NOT NULL,
	mode          TEXT NOT NULL,
	seed_source   TEXT,
	seed_value    REAL,
	gate_action   TEXT,
	reason        TEXT,
	report_json   TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS chain_head (
	check_name    TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

const runColumns = `run_id, parent_id, check_name, msid, load_name, mode, load_start, start_time,
	stop_time, terminal_time, terminal_state, violations, verdict, created_at`

// #endregion schema

// ErrNoRun is returned when a check has no chain head yet.
var ErrNoRun = errors.New("no run recorded")

// #region store-struct
// Store keeps the run chain of every check in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection: SQLite has a single writer, and each pooled
	// connection to ":memory:" would see its own empty database
	db.SetMaxOpenConns(1)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the run log writer.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region new-run
// NewRun returns a record with a fresh ID whose parent is the current head
// of check, if any.
func (s *Store) NewRun(check string) (RunRecord, error) {
	rec := RunRecord{
		RunID:     uuid.New().String(),
		Check:     check,
		CreatedAt: time.Now().UTC(),
	}
	head, err := s.Head(check)
	switch {
	case errors.Is(err, ErrNoRun):
	case err != nil:
		return RunRecord{}, err
	default:
		rec.ParentID = head.RunID
	}
	return rec, nil
}

// #endregion new-run

// #region commit-run
// CommitRun inserts a run and moves its check's head to it atomically.
func (s *Store) CommitRun(rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("commit run: empty run id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	stateJSON, err := json.Marshal(rec.TerminalState)
	if err != nil {
		return fmt.Errorf("marshal terminal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	_, err = tx.Exec(
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, parentPtr, rec.Check, rec.MSID, rec.LoadName, string(rec.Mode),
		rec.LoadStart, rec.Start, rec.Stop, rec.TerminalTime, string(stateJSON),
		rec.Violations, rec.Verdict, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO chain_head (check_name, run_id) VALUES (?, ?)
		 ON CONFLICT(check_name) DO UPDATE SET run_id = excluded.run_id`,
		rec.Check, rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("update head: %w", err)
	}

	return tx.Commit()
}

// #endregion commit-run

// #region head
// Head reads the chain head of check. It returns ErrNoRun for a check that
// has never been run.
func (s *Store) Head(check string) (RunRecord, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM chain_head WHERE check_name = ?`, check).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("head of %s: %w", check, ErrNoRun)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get head: %w", err)
	}
	return s.GetRun(runID)
}

// #endregion head

// #region get-run
// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-run

// #region rollback
// Rollback moves the head of check back to an earlier run of that check.
func (s *Store) Rollback(check, targetRunID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT check_name FROM runs WHERE run_id = ?`, targetRunID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", targetRunID)
	}
	if err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if owner != check {
		return fmt.Errorf("run %s belongs to check %s, not %s", targetRunID, owner, check)
	}

	_, err = s.db.Exec(
		`INSERT INTO chain_head (check_name, run_id) VALUES (?, ?)
		 ON CONFLICT(check_name) DO UPDATE SET run_id = excluded.run_id`,
		check, targetRunID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-runs
// ListRuns returns the most recent runs, newest first. An empty check lists
// every check.
func (s *Store) ListRuns(check string, limit int) ([]RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	args := []interface{}{}
	if check != "" {
		q += ` WHERE check_name = ?`
		args = append(args, check)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Chain walks parent pointers from runID back to the first run of the
// chain, newest first.
func (s *Store) Chain(runID string) ([]RunRecord, error) {
	var chain []RunRecord
	seen := make(map[string]bool)
	for id := runID; id != ""; {
		if seen[id] {
			return nil, fmt.Errorf("chain cycle at %s", id)
		}
		seen[id] = true
		rec, err := s.GetRun(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rec)
		id = rec.ParentID
	}
	return chain, nil
}

// #endregion list-runs

// #region scan
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var parentID, loadName, verdict sql.NullString
	var mode, stateJSON, createdStr string

	err := row.Scan(&rec.RunID, &parentID, &rec.Check, &rec.MSID, &loadName, &mode,
		&rec.LoadStart, &rec.Start, &rec.Stop, &rec.TerminalTime, &stateJSON,
		&rec.Violations, &verdict, &createdStr)
	if err != nil {
		return RunRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.LoadName = loadName.String
	rec.Verdict = verdict.String
	rec.Mode = continuity.Mode(mode)
	if err := json.Unmarshal([]byte(stateJSON), &rec.TerminalState); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal terminal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion scan
