package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

const feedbackColumns = `id, project_id, client_timestamp, url, referrer, user_agent,
	viewport_width, viewport_height, session_id, trigger_type, trigger_element,
	trigger_x, trigger_y, dom_path, response_type, response_value, received_at`

// FeedbackRepository stores feedback submissions.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

type feedbackRow struct {
	ID              string          `db:"id"`
	ProjectID       string          `db:"project_id"`
	ClientTimestamp string          `db:"client_timestamp"`
	URL             string          `db:"url"`
	Referrer        string          `db:"referrer"`
	UserAgent       string          `db:"user_agent"`
	ViewportWidth   int             `db:"viewport_width"`
	ViewportHeight  int             `db:"viewport_height"`
	SessionID       string          `db:"session_id"`
	TriggerType     string          `db:"trigger_type"`
	TriggerElement  sql.NullString  `db:"trigger_element"`
	TriggerX        sql.NullFloat64 `db:"trigger_x"`
	TriggerY        sql.NullFloat64 `db:"trigger_y"`
	DomPath         string          `db:"dom_path"`
	ResponseType    string          `db:"response_type"`
	ResponseValue   string          `db:"response_value"`
	ReceivedAt      time.Time       `db:"received_at"`
}

func (r *feedbackRow) toDomain() *domain.Feedback {
	trigger := &domain.TriggerInfo{Type: domain.TriggerType(r.TriggerType)}
	if r.TriggerElement.Valid {
		element := r.TriggerElement.String
		trigger.Element = &element
	}
	if r.TriggerX.Valid && r.TriggerY.Valid {
		trigger.Coordinates = &domain.Coordinates{X: r.TriggerX.Float64, Y: r.TriggerY.Float64}
	}

	return &domain.Feedback{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Context: domain.FeedbackContext{
			Timestamp: r.ClientTimestamp,
			URL:       r.URL,
			Referrer:  r.Referrer,
			UserAgent: r.UserAgent,
			Viewport:  &domain.Viewport{Width: r.ViewportWidth, Height: r.ViewportHeight},
			SessionID: r.SessionID,
			Trigger:   trigger,
			DomPath:   r.DomPath,
		},
		Response: domain.FeedbackResponse{
			Type:  domain.PromptType(r.ResponseType),
			Value: json.RawMessage(r.ResponseValue),
		},
		ReceivedAt: r.ReceivedAt,
	}
}

// Insert stores a submission and returns the stored record.
func (r *FeedbackRepository) Insert(
	ctx context.Context, projectID string, sub *domain.FeedbackSubmission,
) (*domain.Feedback, error) {
	value, err := sub.Response.CompactValue()
	if err != nil {
		return nil, err
	}

	row := feedbackRow{
		ID:              uuid.NewString(),
		ProjectID:       projectID,
		ClientTimestamp: sub.Context.Timestamp,
		URL:             sub.Context.URL,
		Referrer:        sub.Context.Referrer,
		UserAgent:       sub.Context.UserAgent,
		SessionID:       sub.Context.SessionID,
		DomPath:         sub.Context.DomPath,
		ResponseType:    string(sub.Response.Type),
		ResponseValue:   value,
		ReceivedAt:      now(),
	}
	if vp := sub.Context.Viewport; vp != nil {
		row.ViewportWidth = vp.Width
		row.ViewportHeight = vp.Height
	}
	if trigger := sub.Context.Trigger; trigger != nil {
		row.TriggerType = string(trigger.Type)
		if trigger.Element != nil {
			row.TriggerElement = sql.NullString{String: *trigger.Element, Valid: true}
		}
		if trigger.Coordinates != nil {
			row.TriggerX = sql.NullFloat64{Float64: trigger.Coordinates.X, Valid: true}
			row.TriggerY = sql.NullFloat64{Float64: trigger.Coordinates.Y, Valid: true}
		}
	}

	query := r.db.Rebind(`
		INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.ProjectID, row.ClientTimestamp, row.URL, row.Referrer, row.UserAgent,
		row.ViewportWidth, row.ViewportHeight, row.SessionID, row.TriggerType, row.TriggerElement,
		row.TriggerX, row.TriggerY, row.DomPath, row.ResponseType, row.ResponseValue, row.ReceivedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}

	return row.toDomain(), nil
}

// GetByID returns a feedback record by id. A non-empty projectID restricts the
// lookup to that project.
func (r *FeedbackRepository) GetByID(ctx context.Context, projectID, id string) (*domain.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = ?`
	args := []any{id}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}

	var row feedbackRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return row.toDomain(), nil
}

// ListBySession returns a session's feedback, newest first.
func (r *FeedbackRepository) ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Feedback, error) {
	query := r.db.Rebind(`SELECT ` + feedbackColumns + `
		FROM feedback
		WHERE project_id = ? AND session_id = ?
		ORDER BY received_at DESC`)

	var rows []feedbackRow
	if err := r.db.SelectContext(ctx, &rows, query, projectID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	items := make([]*domain.Feedback, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}
	return items, nil
}

// Count returns the number of feedback records a project holds.
func (r *FeedbackRepository) Count(ctx context.Context, projectID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM feedback WHERE project_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, projectID); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// DeleteAllForProject removes every feedback record of a project.
func (r *FeedbackRepository) DeleteAllForProject(ctx context.Context, projectID string) (int64, error) {
	query := r.db.Rebind(`DELETE FROM feedback WHERE project_id = ?`)
	result, err := r.db.ExecContext(ctx, query, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feedback: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
