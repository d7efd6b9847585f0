package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/me/argowf/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleExecution() *model.ExecutionRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.ExecutionRecord{
		Name:        "water-bodies-1234",
		Namespace:   "ns1",
		Entrypoint:  "water-bodies",
		Label:       "Water bodies detection",
		Phase:       "Pending",
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	// Migrate a second time; should not error.
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestMigrate_ExecutionColumns(t *testing.T) {
	st := testStore(t)
	rows, err := st.db.QueryContext(context.Background(), "SELECT name FROM pragma_table_info('executions')")
	if err != nil {
		t.Fatalf("table info: %v", err)
	}
	defer rows.Close()

	got := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got[name] = true
	}
	for _, col := range []string{"namespace", "name", "phase", "progress", "message", "completed_at"} {
		if !got[col] {
			t.Errorf("column %q missing from executions", col)
		}
	}
}

func TestCreateExecution_WithMessage(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rec := sampleExecution()
	rec.Message = "submitted by zoo"
	if err := st.CreateExecution(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.GetExecution(ctx, rec.Namespace, rec.Name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Message != "submitted by zoo" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestMigrate_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := context.Background()

	st, err := NewSQLiteStore(path, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := st.CreateExecution(ctx, sampleExecution()); err != nil {
		t.Fatalf("create: %v", err)
	}
	st.Close()

	st, err = NewSQLiteStore(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate reopened: %v", err)
	}
	got, err := st.GetExecution(ctx, "ns1", "water-bodies-1234")
	if err != nil || got == nil {
		t.Fatalf("get after reopen = %v, %v", got, err)
	}
}

func TestCreateAndGetExecution(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rec := sampleExecution()

	if err := st.CreateExecution(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetExecution(ctx, rec.Namespace, rec.Name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil execution")
	}
	if got.Entrypoint != rec.Entrypoint {
		t.Errorf("entrypoint = %q, want %q", got.Entrypoint, rec.Entrypoint)
	}
	if got.Label != rec.Label {
		t.Errorf("label = %q, want %q", got.Label, rec.Label)
	}
	if got.Phase != "Pending" || got.Completed || got.Successful {
		t.Errorf("state = %s completed=%v successful=%v", got.Phase, got.Completed, got.Successful)
	}
	if !got.SubmittedAt.Equal(rec.SubmittedAt) {
		t.Errorf("submitted_at = %v, want %v", got.SubmittedAt, rec.SubmittedAt)
	}
	if got.CompletedAt != nil {
		t.Errorf("completed_at = %v, want nil", got.CompletedAt)
	}
}

func TestCreateExecution_Duplicate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateExecution(ctx, sampleExecution()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.CreateExecution(ctx, sampleExecution()); err == nil {
		t.Fatal("expected error for duplicate execution")
	}
}

func TestGetExecution_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetExecution(context.Background(), "ns1", "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestUpdateExecution(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	rec := sampleExecution()
	st.CreateExecution(ctx, rec)

	done := time.Now().UTC().Truncate(time.Millisecond)
	rec.Phase = "Succeeded"
	rec.Progress = "2/2"
	rec.Message = "done"
	rec.Completed = true
	rec.Successful = true
	rec.UpdatedAt = done
	rec.CompletedAt = &done
	if err := st.UpdateExecution(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := st.GetExecution(ctx, rec.Namespace, rec.Name)
	if got.Phase != "Succeeded" || got.Progress != "2/2" || got.Message != "done" {
		t.Errorf("got %+v", got)
	}
	if !got.Completed || !got.Successful {
		t.Errorf("completed=%v successful=%v", got.Completed, got.Successful)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, done)
	}
}

func TestUpdateExecution_NotFound(t *testing.T) {
	st := testStore(t)
	if err := st.UpdateExecution(context.Background(), sampleExecution()); err == nil {
		t.Fatal("expected error for missing execution")
	}
}

func TestListExecutions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		rec := sampleExecution()
		rec.Name = fmt.Sprintf("water-bodies-%d", i)
		rec.SubmittedAt = base.Add(time.Duration(i) * time.Second)
		if i == 2 {
			rec.Namespace = "ns2"
			rec.Phase = "Running"
		}
		if err := st.CreateExecution(ctx, rec); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	tests := []struct {
		name  string
		opts  model.ListOptions
		total int
		first string
		count int
	}{
		{"all", model.DefaultListOptions(), 3, "water-bodies-2", 3},
		{"namespace", model.ListOptions{Namespace: "ns1"}, 2, "water-bodies-1", 2},
		{"phase", model.ListOptions{Phase: "Running"}, 1, "water-bodies-2", 1},
		{"page", model.ListOptions{Limit: 1, Offset: 1}, 3, "water-bodies-1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, total, err := st.ListExecutions(ctx, tt.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, want %d", total, tt.total)
			}
			if len(recs) != tt.count {
				t.Fatalf("len = %d, want %d", len(recs), tt.count)
			}
			if recs[0].Name != tt.first {
				t.Errorf("first = %q, want %q", recs[0].Name, tt.first)
			}
		})
	}
}

func TestListExecutions_Empty(t *testing.T) {
	st := testStore(t)
	recs, total, err := st.ListExecutions(context.Background(), model.DefaultListOptions())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(recs) != 0 {
		t.Errorf("total = %d, len = %d, want 0", total, len(recs))
	}
}
