package detection

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

// DOMDetector applies the same selector lists and emission rules as
// PatternDetector, but counts and extracts over a parsed document, so
// markup inside attributes or comments is not miscounted.
type DOMDetector struct{}

// NewDOMDetector creates a DOMDetector.
func NewDOMDetector() *DOMDetector {
	return &DOMDetector{}
}

// DetectChanges compares the parsed documents. Unparseable input is
// treated as an empty document.
func (d *DOMDetector) DetectChanges(oldHTML, newHTML string) []domain.ChangedElement {
	oldDoc := parseDocument(oldHTML)
	newDoc := parseDocument(newHTML)

	changes := []domain.ChangedElement{}

	for _, sel := range InteractiveSelectors {
		if change, ok := countChange(sel, countSelection(oldDoc, sel), countSelection(newDoc, sel)); ok {
			changes = append(changes, change)
		}
	}

	for _, sel := range ContentAreaSelectors {
		if change, ok := contentChange(sel, firstContent(oldDoc, sel), firstContent(newDoc, sel)); ok {
			changes = append(changes, change)
		}
	}

	return changes
}

func parseDocument(html string) *goquery.Document {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

func countSelection(doc *goquery.Document, selector string) int {
	if doc == nil {
		return 0
	}
	return doc.Find(selector).Length()
}

func firstContent(doc *goquery.Document, selector string) string {
	if doc == nil {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	html, err := sel.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}
