package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/archive"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists budget snapshots. Implements archive.Store and
// archive.SyncTracker.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, budgetName string, document []byte) (string, error) {
	if budgetName == "" {
		return "", fmt.Errorf("budget name cannot be empty")
	}
	if len(document) == 0 {
		return "", fmt.Errorf("document cannot be empty")
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, budget_name, document, created_at, sync_status)
		 VALUES (?, ?, ?, ?, ?)`,
		id, budgetName, string(document), createdAt, archive.SyncPending)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"id", id,
		"budget", budgetName,
		"bytes", len(document))

	return id, nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id string) (archive.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, budget_name, document, created_at, sync_status, synced_at, sync_error
		 FROM snapshots WHERE id = ?`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return archive.Snapshot{}, archive.ErrNotFound
	}
	if err != nil {
		return archive.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]archive.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_name, document, created_at, sync_status, synced_at, sync_error
		 FROM snapshots ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

func (r *SQLiteRepository) PendingSnapshots(ctx context.Context, limit int) ([]archive.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_name, document, created_at, sync_status, synced_at, sync_error
		 FROM snapshots WHERE sync_status = ? ORDER BY created_at ASC LIMIT ?`,
		archive.SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending snapshots: %w", err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET sync_status = ?, synced_at = ?, sync_error = '' WHERE id = ?`,
		archive.SyncDone, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return archive.ErrNotFound
	}

	slog.InfoContext(ctx, "Snapshot marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, cause error) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET sync_status = ?, sync_error = ? WHERE id = ?`,
		archive.SyncError, cause.Error(), id)
	if err != nil {
		return fmt.Errorf("mark snapshot sync error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return archive.ErrNotFound
	}

	slog.WarnContext(ctx, "Snapshot marked with sync error", "id", id, "cause", cause)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (archive.Snapshot, error) {
	var (
		snap     archive.Snapshot
		document string
		status   string
		syncedAt sql.NullTime
	)
	err := row.Scan(&snap.ID, &snap.BudgetName, &document, &snap.CreatedAt, &status, &syncedAt, &snap.SyncErr)
	if err != nil {
		return archive.Snapshot{}, err
	}
	snap.Document = []byte(document)
	snap.SyncStatus = archive.SyncStatus(status)
	if syncedAt.Valid {
		t := syncedAt.Time
		snap.SyncedAt = &t
	}
	return snap, nil
}

func collectSnapshots(rows *sql.Rows) ([]archive.Snapshot, error) {
	var out []archive.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
