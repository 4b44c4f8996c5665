// Package detection compares two serialized pages and suggests a feedback
// prompt for the differences it finds.
//
// The default PatternDetector works on raw markup with regular expressions
// and accepts the imprecision that implies: attributes inside unrelated
// tags are counted and nested tags of the same name confuse extraction.
// DOMDetector applies the same rules over a parsed document.
package detection

import (
	"fmt"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

// Strategy names accepted by New.
const (
	StrategyPattern = "pattern"
	StrategyDOM     = "dom"
)

// InteractiveSelectors are counted in both documents, in this order.
var InteractiveSelectors = []string{
	"button",
	"a",
	"input",
	"form",
	"select",
	"[role='button']",
	"[data-feedback]",
}

// ContentAreaSelectors are compared by content, in this order.
var ContentAreaSelectors = []string{
	"main",
	"article",
	"[role='main']",
	".content",
}

// Detector finds differences between two documents. Implementations must
// be safe for concurrent use and must never fail: unreadable input means
// no changes.
type Detector interface {
	DetectChanges(oldHTML, newHTML string) []domain.ChangedElement
}

// New returns the Detector for strategy.
func New(strategy string) (Detector, error) {
	switch strategy {
	case "", StrategyPattern:
		return NewPatternDetector(), nil
	case StrategyDOM:
		return NewDOMDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detection strategy %q", strategy)
	}
}

var defaultDetector = NewPatternDetector()

// DetectChanges runs the default pattern detector.
func DetectChanges(oldHTML, newHTML string) []domain.ChangedElement {
	return defaultDetector.DetectChanges(oldHTML, newHTML)
}

// countChange emits added/removed for a count difference.
func countChange(selector string, oldCount, newCount int) (domain.ChangedElement, bool) {
	switch {
	case newCount > oldCount:
		return domain.ChangedElement{
			Selector:   selector,
			ChangeType: domain.ChangeAdded,
			Metadata:   map[string]any{domain.MetaCount: newCount - oldCount},
		}, true
	case newCount < oldCount:
		return domain.ChangedElement{
			Selector:   selector,
			ChangeType: domain.ChangeRemoved,
			Metadata:   map[string]any{domain.MetaCount: oldCount - newCount},
		}, true
	default:
		return domain.ChangedElement{}, false
	}
}

// contentChange emits modified when the region's content differs and at
// least one side has any. Appearance or disappearance of a whole region
// counts as a modification.
func contentChange(selector, oldContent, newContent string) (domain.ChangedElement, bool) {
	if oldContent == newContent || (oldContent == "" && newContent == "") {
		return domain.ChangedElement{}, false
	}
	return domain.ChangedElement{
		Selector:   selector,
		ChangeType: domain.ChangeModified,
		Metadata:   map[string]any{domain.MetaContentChanged: true},
	}, true
}
