// Package history keeps a SQLite record of evolution runs and their
// improvements.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("history: run not found")

const schema = `
	CREATE TABLE IF NOT EXISTS run (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		shape TEXT NOT NULL,
		genes INTEGER NOT NULL,
		max_generations INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		stopped_at INTEGER,
		generation INTEGER NOT NULL DEFAULT 0,
		iterations INTEGER NOT NULL DEFAULT 0,
		fitness REAL NOT NULL,
		status TEXT NOT NULL,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS improvement (
		run_id TEXT NOT NULL REFERENCES run(id),
		generation INTEGER NOT NULL,
		iteration INTEGER NOT NULL,
		fitness REAL NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, generation)
	);
`

// Run states.
const (
	StatusRunning     = "running"
	StatusFinished    = "finished"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

type Repository struct {
	Db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	repo, err := NewRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func NewRepository(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("error in db execution: %w", err)
	}
	return &Repository{Db: db}, nil
}

func (repo *Repository) Close() error { return repo.Db.Close() }

type Run struct {
	Id             string
	Target         string
	Shape          string
	Genes          int
	MaxGenerations int
	StartedAt      time.Time
	StoppedAt      sql.NullTime
	Generation     int
	Iterations     int
	Fitness        float64
	Status         string
	Error          sql.NullString
}

type Improvement struct {
	RunId      string
	Generation int
	Iteration  int
	Fitness    float64
	CreatedAt  time.Time
}

func (repo *Repository) AddRun(run *Run) error {
	return repo.execWrap(`INSERT INTO run(id, target, shape, genes, max_generations, started_at, generation, iterations, fitness, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Id, run.Target, run.Shape, run.Genes, run.MaxGenerations, run.StartedAt.UnixMilli(),
		run.Generation, run.Iterations, run.Fitness, run.Status)
}

func (repo *Repository) AddImprovement(imp *Improvement) error {
	return repo.execWrap(`INSERT INTO improvement(run_id, generation, iteration, fitness, created_at) VALUES (?, ?, ?, ?, ?)`,
		imp.RunId, imp.Generation, imp.Iteration, imp.Fitness, imp.CreatedAt.UnixMilli())
}

// FinishRun stores the final counters of a run; runErr, if not nil, marks it
// failed.
func (repo *Repository) FinishRun(id string, generation, iterations int, fitness float64, status string, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := repo.Db.Exec(`UPDATE run SET stopped_at = ?, generation = ?, iterations = ?, fitness = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UnixMilli(), generation, iterations, fitness, status, msg, id)
	if err != nil {
		return fmt.Errorf("error in db execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const runColumns = `id, target, shape, genes, max_generations, started_at, stopped_at, generation, iterations, fitness, status, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var started int64
	var stopped sql.NullInt64
	err := row.Scan(&run.Id, &run.Target, &run.Shape, &run.Genes, &run.MaxGenerations, &started, &stopped,
		&run.Generation, &run.Iterations, &run.Fitness, &run.Status, &run.Error)
	if err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(started)
	if stopped.Valid {
		run.StoppedAt = sql.NullTime{Time: time.UnixMilli(stopped.Int64), Valid: true}
	}
	return &run, nil
}

func (repo *Repository) FindRunById(id string) (*Run, error) {
	run, err := scanRun(repo.Db.QueryRow("SELECT "+runColumns+" FROM run WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error in db execution: %w", err)
	}
	return run, nil
}

// Runs lists runs, most recent first.
func (repo *Repository) Runs() ([]*Run, error) {
	rows, err := repo.Db.Query("SELECT " + runColumns + " FROM run ORDER BY started_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("error in db execution: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("error in db execution: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (repo *Repository) Improvements(runId string) ([]*Improvement, error) {
	rows, err := repo.Db.Query(`SELECT run_id, generation, iteration, fitness, created_at FROM improvement
		WHERE run_id = ? ORDER BY generation`, runId)
	if err != nil {
		return nil, fmt.Errorf("error in db execution: %w", err)
	}
	defer rows.Close()

	var imps []*Improvement
	for rows.Next() {
		var imp Improvement
		var created int64
		if err := rows.Scan(&imp.RunId, &imp.Generation, &imp.Iteration, &imp.Fitness, &created); err != nil {
			return nil, fmt.Errorf("error in db execution: %w", err)
		}
		imp.CreatedAt = time.UnixMilli(created)
		imps = append(imps, &imp)
	}
	return imps, rows.Err()
}

func (repo *Repository) execWrap(query string, args ...any) error {
	if _, err := repo.Db.Exec(query, args...); err != nil {
		return fmt.Errorf("error in db execution: %w", err)
	}
	return nil
}
