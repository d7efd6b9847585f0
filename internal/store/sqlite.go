package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/argowf/internal/logging"
	"github.com/me/argowf/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// timeLayout is fixed-width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const executionColumns = `namespace, name, entrypoint, label, phase, progress, message,
	completed, successful, submitted_at, updated_at, completed_at`

func (s *SQLiteStore) CreateExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "executions", "namespace", rec.Namespace, "name", rec.Name)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (`+executionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Namespace, rec.Name, rec.Entrypoint, rec.Label, rec.Phase, rec.Progress, rec.Message,
		rec.Completed, rec.Successful,
		rec.SubmittedAt.Format(timeLayout), rec.UpdatedAt.Format(timeLayout),
		formatTime(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert execution %s/%s: %w", rec.Namespace, rec.Name, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	s.logger.Debug("sql", "op", "update", "table", "executions", "namespace", rec.Namespace, "name", rec.Name)

	result, err := s.db.ExecContext(ctx,
		`UPDATE executions SET phase=?, progress=?, message=?, completed=?, successful=?, updated_at=?, completed_at=?
		 WHERE namespace=? AND name=?`,
		rec.Phase, rec.Progress, rec.Message, rec.Completed, rec.Successful,
		rec.UpdatedAt.Format(timeLayout), formatTime(rec.CompletedAt),
		rec.Namespace, rec.Name,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("execution %s/%s not found", rec.Namespace, rec.Name)
	}
	return nil
}

// GetExecution returns nil, nil when no such execution was recorded.
func (s *SQLiteStore) GetExecution(ctx context.Context, namespace, name string) (*model.ExecutionRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "executions", "namespace", namespace, "name", name)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	rec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListExecutions(ctx context.Context, opts model.ListOptions) ([]*model.ExecutionRecord, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "executions", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any

	if opts.Namespace != "" {
		whereClauses = append(whereClauses, "namespace = ?")
		countArgs = append(countArgs, opts.Namespace)
	}
	if opts.Phase != "" {
		whereClauses = append(whereClauses, "phase = ?")
		countArgs = append(countArgs, opts.Phase)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + executionColumns + ` FROM executions` + whereSQL +
		` ORDER BY submitted_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*model.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	var submittedAt, updatedAt string
	var completedAt *string

	if err := row.Scan(&rec.Namespace, &rec.Name, &rec.Entrypoint, &rec.Label, &rec.Phase, &rec.Progress, &rec.Message,
		&rec.Completed, &rec.Successful, &submittedAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}

	rec.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *completedAt)
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}
