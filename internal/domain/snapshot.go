package domain

import (
	"strings"
	"time"
)

// Viewport is a browser viewport size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"  binding:"min=0" db:"width"`
	Height int `json:"height" binding:"min=0" db:"height"`
}

// SnapshotSubmission is the wire payload of POST /snapshots.
type SnapshotSubmission struct {
	HTML        string    `json:"html"        binding:"required"`
	URL         string    `json:"url"         binding:"required,url"`
	Timestamp   string    `json:"timestamp"   binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	SessionID   string    `json:"sessionId"   binding:"required,uuid"`
	Fingerprint string    `json:"fingerprint" binding:"required"`
	Title       *string   `json:"title,omitempty"`
	Viewport    *Viewport `json:"viewport,omitempty"`
}

// SnapshotKey identifies the single stored snapshot of a page in a session.
type SnapshotKey struct {
	ProjectID string
	SessionID string
	URL       string
}

// String renders the key for lock names and log fields.
func (k SnapshotKey) String() string {
	return strings.Join([]string{k.ProjectID, k.SessionID, k.URL}, "|")
}

// Key returns the storage key of s under projectID.
func (s *SnapshotSubmission) Key(projectID string) SnapshotKey {
	return SnapshotKey{ProjectID: projectID, SessionID: s.SessionID, URL: s.URL}
}

// Snapshot is the latest stored submission for a SnapshotKey.
type Snapshot struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"-"`
	SessionID   string    `json:"sessionId"`
	URL         string    `json:"url"`
	HTML        string    `json:"html"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   string    `json:"timestamp"`
	Title       *string   `json:"title,omitempty"`
	Viewport    *Viewport `json:"viewport,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
}
