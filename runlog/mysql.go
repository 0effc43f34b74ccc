package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLOptions configures the connection pool.
type MySQLOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Table defaults to agent_runs.
	Table string
}

// MySQLStore keeps runs in a MySQL table created on first connect.
type MySQLStore struct {
	db    *sql.DB
	table string
}

// OpenMySQL connects to dsn, pings and creates the runs table if needed.
func OpenMySQL(ctx context.Context, dsn string, optFns ...func(o *MySQLOptions)) (*MySQLStore, error) {
	opts := MySQLOptions{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		Table:           "agent_runs",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("runlog: mysql dsn is required")
	}

	// parseTime lets the driver scan DATETIME columns into time.Time.
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("runlog: parse dsn: %w", err)
	}

	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("runlog: open mysql: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runlog: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db, table: opts.Table}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the pool.
func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        id VARCHAR(64) PRIMARY KEY,
        user_id VARCHAR(128) NOT NULL DEFAULT '',
        agent VARCHAR(128) NOT NULL,
        status VARCHAR(32) NOT NULL,
        input TEXT NOT NULL,
        response TEXT,
        tool_calls INT NOT NULL DEFAULT 0,
        steps INT NOT NULL DEFAULT 0,
        error TEXT,
        created_at DATETIME(6) NOT NULL,
        updated_at DATETIME(6) NOT NULL,
        INDEX idx_runs_user (user_id, created_at)
)`, s.table)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("runlog: create %s: %w", s.table, err)
	}

	return nil
}

// Create implements Store.
func (s *MySQLStore) Create(ctx context.Context, run *Run) error {
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now

	stmt := fmt.Sprintf(`INSERT INTO %s
        (id, user_id, agent, status, input, response, tool_calls, steps, error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)

	_, err := s.db.ExecContext(ctx, stmt,
		run.ID, run.UserID, run.Agent, run.Status, run.Input,
		run.Response, run.ToolCalls, run.Steps, run.Error,
		run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrConflict
		}

		return fmt.Errorf("runlog: insert run: %w", err)
	}

	return nil
}

// Claim implements Store.
func (s *MySQLStore) Claim(ctx context.Context, id string) (*Run, error) {
	stmt := fmt.Sprintf(`UPDATE %s SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, s.table)

	res, err := s.db.ExecContext(ctx, stmt, StatusRunning, time.Now().UTC(), id, StatusQueued)
	if err != nil {
		return nil, fmt.Errorf("runlog: claim run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("runlog: claim run: %w", err)
	}

	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}

		return nil, ErrNotClaimable
	}

	return s.Get(ctx, id)
}

// Finish implements Store.
func (s *MySQLStore) Finish(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()

	stmt := fmt.Sprintf(`UPDATE %s SET status = ?, response = ?, tool_calls = ?, steps = ?, error = ?, updated_at = ?
        WHERE id = ?`, s.table)

	res, err := s.db.ExecContext(ctx, stmt,
		run.Status, run.Response, run.ToolCalls, run.Steps, run.Error, run.UpdatedAt, run.ID)
	if err != nil {
		return fmt.Errorf("runlog: finish run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

const columns = `id, user_id, agent, status, input, response, tool_calls, steps, error, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		response sql.NullString
		errText  sql.NullString
	)

	if err := row.Scan(&run.ID, &run.UserID, &run.Agent, &run.Status, &run.Input,
		&response, &run.ToolCalls, &run.Steps, &errText, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}

	run.Response = response.String
	run.Error = errText.String

	return &run, nil
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, s.table), id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("runlog: get run: %w", err)
	}

	return run, nil
}

// List implements Store.
func (s *MySQLStore) List(ctx context.Context, userID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, columns, s.table),
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("runlog: scan run: %w", err)
		}

		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

var _ Store = (*MySQLStore)(nil)
