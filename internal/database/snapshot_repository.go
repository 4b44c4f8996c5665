package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

const snapshotColumns = `id, project_id, session_id, url, html, fingerprint, client_timestamp,
	title, viewport_width, viewport_height, received_at`

// SnapshotRepository stores the latest snapshot per (project, session, url).
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type snapshotRow struct {
	ID              string         `db:"id"`
	ProjectID       string         `db:"project_id"`
	SessionID       string         `db:"session_id"`
	URL             string         `db:"url"`
	HTML            string         `db:"html"`
	Fingerprint     string         `db:"fingerprint"`
	ClientTimestamp string         `db:"client_timestamp"`
	Title           sql.NullString `db:"title"`
	ViewportWidth   sql.NullInt64  `db:"viewport_width"`
	ViewportHeight  sql.NullInt64  `db:"viewport_height"`
	ReceivedAt      time.Time      `db:"received_at"`
}

func (r *snapshotRow) toDomain() *domain.Snapshot {
	s := &domain.Snapshot{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		SessionID:   r.SessionID,
		URL:         r.URL,
		HTML:        r.HTML,
		Fingerprint: r.Fingerprint,
		Timestamp:   r.ClientTimestamp,
		ReceivedAt:  r.ReceivedAt,
	}
	if r.Title.Valid {
		title := r.Title.String
		s.Title = &title
	}
	if r.ViewportWidth.Valid && r.ViewportHeight.Valid {
		s.Viewport = &domain.Viewport{
			Width:  int(r.ViewportWidth.Int64),
			Height: int(r.ViewportHeight.Int64),
		}
	}
	return s
}

// Get returns the stored snapshot for key, or domain.ErrNotFound.
func (r *SnapshotRepository) Get(ctx context.Context, key domain.SnapshotKey) (*domain.Snapshot, error) {
	query := r.db.Rebind(`SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE project_id = ? AND session_id = ? AND url = ?`)

	var row snapshotRow
	err := r.db.GetContext(ctx, &row, query, key.ProjectID, key.SessionID, key.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return row.toDomain(), nil
}

// Upsert stores sub as the snapshot for its key. An existing row keeps its
// id and has every other field replaced.
func (r *SnapshotRepository) Upsert(ctx context.Context, projectID string, sub *domain.SnapshotSubmission) error {
	var title sql.NullString
	if sub.Title != nil {
		title = sql.NullString{String: *sub.Title, Valid: true}
	}

	var width, height sql.NullInt64
	if sub.Viewport != nil {
		width = sql.NullInt64{Int64: int64(sub.Viewport.Width), Valid: true}
		height = sql.NullInt64{Int64: int64(sub.Viewport.Height), Valid: true}
	}

	query := r.db.Rebind(`
		INSERT INTO snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, session_id, url) DO UPDATE SET
			html = excluded.html,
			fingerprint = excluded.fingerprint,
			client_timestamp = excluded.client_timestamp,
			title = excluded.title,
			viewport_width = excluded.viewport_width,
			viewport_height = excluded.viewport_height,
			received_at = excluded.received_at`)

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), projectID, sub.SessionID, sub.URL, sub.HTML, sub.Fingerprint, sub.Timestamp,
		title, width, height, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetByID returns a snapshot by id. A non-empty projectID restricts the
// lookup to that project.
func (r *SnapshotRepository) GetByID(ctx context.Context, projectID, id string) (*domain.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`
	args := []any{id}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}

	var row snapshotRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return row.toDomain(), nil
}

// ListBySession returns a session's snapshots, newest first.
func (r *SnapshotRepository) ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Snapshot, error) {
	query := r.db.Rebind(`SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE project_id = ? AND session_id = ?
		ORDER BY received_at DESC`)

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]*domain.Snapshot, 0, len(rows))
	for i := range rows {
		snapshots = append(snapshots, rows[i].toDomain())
	}
	return snapshots, nil
}

// Count returns the number of snapshots a project holds.
func (r *SnapshotRepository) Count(ctx context.Context, projectID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM snapshots WHERE project_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, projectID); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// DeleteAllForProject removes every snapshot of a project.
func (r *SnapshotRepository) DeleteAllForProject(ctx context.Context, projectID string) (int64, error) {
	query := r.db.Rebind(`DELETE FROM snapshots WHERE project_id = ?`)
	result, err := r.db.ExecContext(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
