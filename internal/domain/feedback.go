package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TriggerType is the client event that opened a feedback prompt.
type TriggerType string

const (
	TriggerRageClick TriggerType = "rageClick"
	TriggerCustom    TriggerType = "custom"
	TriggerSnapshot  TriggerType = "snapshot"
)

// Coordinates is a page position in CSS pixels.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TriggerInfo describes what caused the prompt.
type TriggerInfo struct {
	Type        TriggerType  `json:"type"                  binding:"required,oneof=rageClick custom snapshot"`
	Element     *string      `json:"element,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// FeedbackContext is the page context captured with a response.
type FeedbackContext struct {
	Timestamp string       `json:"timestamp" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	URL       string       `json:"url"       binding:"required,url"`
	Referrer  string       `json:"referrer"`
	UserAgent string       `json:"userAgent"`
	Viewport  *Viewport    `json:"viewport"  binding:"required"`
	SessionID string       `json:"sessionId" binding:"required,uuid"`
	Trigger   *TriggerInfo `json:"trigger"   binding:"required"`
	DomPath   string       `json:"domPath"`
}

// FeedbackResponse is the user's answer. Value holds the raw JSON so it is
// stored and returned exactly as submitted.
type FeedbackResponse struct {
	Type  PromptType      `json:"type"  binding:"required,oneof=rating choice text"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// ValueKind is the JSON shape of a response value.
type ValueKind string

const (
	ValueString  ValueKind = "string"
	ValueNumber  ValueKind = "number"
	ValueStrings ValueKind = "strings"
)

// ValueKind classifies Value as a string, a number or a list of strings.
func (r FeedbackResponse) ValueKind() (ValueKind, error) {
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(r.Value))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: malformed value", ErrInvalidInput)
	}

	switch v := decoded.(type) {
	case string:
		return ValueString, nil
	case json.Number:
		return ValueNumber, nil
	case []any:
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return "", fmt.Errorf("%w: list values must be strings", ErrInvalidInput)
			}
		}
		return ValueStrings, nil
	default:
		return "", fmt.Errorf("%w: expected string, number, or array of strings", ErrInvalidInput)
	}
}

// CompactValue returns Value without insignificant whitespace.
func (r FeedbackResponse) CompactValue() (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Value); err != nil {
		return "", fmt.Errorf("%w: malformed value", ErrInvalidInput)
	}
	return buf.String(), nil
}

// FeedbackSubmission is the wire payload of POST /feedback.
type FeedbackSubmission struct {
	Context  FeedbackContext  `json:"context"`
	Response FeedbackResponse `json:"response"`
}

// Feedback is a stored submission.
type Feedback struct {
	ID         string           `json:"id"`
	ProjectID  string           `json:"-"`
	Context    FeedbackContext  `json:"context"`
	Response   FeedbackResponse `json:"response"`
	ReceivedAt time.Time        `json:"receivedAt"`
}

// SubmissionResult is the response to POST /feedback.
type SubmissionResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
