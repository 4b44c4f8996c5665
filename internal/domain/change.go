// Package domain holds the data model of the feedback API.
package domain

// ChangeType classifies a detected UI change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Metadata keys emitted by the change detectors.
const (
	MetaCount          = "count"
	MetaContentChanged = "contentChanged"
)

// ChangedElement is one difference found between two snapshots.
type ChangedElement struct {
	Selector   string         `json:"selector"`
	ChangeType ChangeType     `json:"changeType"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ContentChanged reports whether the element carries contentChanged: true.
func (c ChangedElement) ContentChanged() bool {
	changed, ok := c.Metadata[MetaContentChanged].(bool)
	return ok && changed
}

// PromptType is the kind of prompt a client should render.
type PromptType string

const (
	PromptRating PromptType = "rating"
	PromptChoice PromptType = "choice"
	PromptText   PromptType = "text"
)

// PromptConfig is a suggested feedback prompt.
type PromptConfig struct {
	Title       string     `json:"title"`
	Type        PromptType `json:"type"`
	Options     []string   `json:"options,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// ChangeDetectionResult is the response to a snapshot submission.
type ChangeDetectionResult struct {
	HasChanges      bool             `json:"hasChanges"`
	ChangedElements []ChangedElement `json:"changedElements"`
	PromptConfig    *PromptConfig    `json:"promptConfig,omitempty"`
}

// NoChanges is the result for a first visit or an identical fingerprint.
func NoChanges() *ChangeDetectionResult {
	return &ChangeDetectionResult{ChangedElements: []ChangedElement{}}
}
