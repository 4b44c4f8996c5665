package detection

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

var (
	tagSelectorPattern       = regexp.MustCompile(`^[a-z]+$`)
	attributeSelectorPattern = regexp.MustCompile(`\[([^=]+)=['"]?([^'"\]]+)['"]?\]`)
)

// whitespace is ASCII whitespace plus the Unicode space separators, line
// separators and BOM. RE2's \s covers ASCII only.
const whitespace = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

// foldASCII quotes literal so that ASCII letters match either case and
// nothing else folds. RE2's (?i) would also fold ſ to s.
func foldASCII(literal string) string {
	var b strings.Builder
	for _, r := range literal {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteString("[" + string(r) + string(r-'a'+'A') + "]")
		case r >= 'A' && r <= 'Z':
			b.WriteString("[" + string(r+'a'-'A') + string(r) + "]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

func trimWhitespace(s string) string {
	return strings.TrimFunc(s, isWhitespace)
}

// matcher counts and extracts one selector in raw markup. A nil regexp
// means the selector form is not understood: it counts 0 and extracts "".
type matcher struct {
	selector string
	count    *regexp.Regexp
	extract  *regexp.Regexp
}

func (m matcher) countIn(html string) int {
	if m.count == nil || html == "" {
		return 0
	}
	return len(m.count.FindAllStringIndex(html, -1))
}

func (m matcher) contentOf(html string) string {
	if m.extract == nil || html == "" {
		return ""
	}
	match := m.extract.FindStringSubmatch(html)
	if len(match) < 2 {
		return ""
	}
	return trimWhitespace(match[1])
}

// compileMatcher builds the patterns for a tag (`main`), class (`.content`)
// or attribute (`[role='main']`) selector.
func compileMatcher(selector string) matcher {
	m := matcher{selector: selector}

	switch {
	case tagSelectorPattern.MatchString(selector):
		tag := foldASCII(selector)
		m.count = regexp.MustCompile(`<` + tag + `[` + whitespace + `>]`)
		m.extract = regexp.MustCompile(`<` + tag + `[^>]*>([\s\S]*?)</` + tag + `>`)

	case strings.HasPrefix(selector, "."):
		class := foldASCII(selector[1:])
		classAttr := foldASCII("class") + `=['"][^'"]*\b` + class + `\b[^'"]*['"]`
		m.count = regexp.MustCompile(classAttr)
		m.extract = regexp.MustCompile(`<[^>]+` + classAttr + `[^>]*>([\s\S]*?)</`)

	case strings.HasPrefix(selector, "["):
		parts := attributeSelectorPattern.FindStringSubmatch(selector)
		if parts == nil {
			// Presence-only selectors such as [data-feedback] carry no value.
			return m
		}
		attr := foldASCII(parts[1]) + `=['"]?` + foldASCII(parts[2]) + `['"]?`
		m.count = regexp.MustCompile(attr)
		m.extract = regexp.MustCompile(`<[^>]+` + attr + `[^>]*>([\s\S]*?)</`)
	}

	return m
}

// PatternDetector compares raw markup with regular expressions. Its
// patterns are compiled once; it holds no mutable state.
type PatternDetector struct {
	interactive []matcher
	content     []matcher
}

// NewPatternDetector compiles the fixed selector lists.
func NewPatternDetector() *PatternDetector {
	d := &PatternDetector{
		interactive: make([]matcher, 0, len(InteractiveSelectors)),
		content:     make([]matcher, 0, len(ContentAreaSelectors)),
	}
	for _, sel := range InteractiveSelectors {
		d.interactive = append(d.interactive, compileMatcher(sel))
	}
	for _, sel := range ContentAreaSelectors {
		d.content = append(d.content, compileMatcher(sel))
	}
	return d
}

// DetectChanges reports count changes for interactive selectors followed
// by content changes for content areas. The result is never nil.
func (d *PatternDetector) DetectChanges(oldHTML, newHTML string) []domain.ChangedElement {
	changes := []domain.ChangedElement{}

	for _, m := range d.interactive {
		if change, ok := countChange(m.selector, m.countIn(oldHTML), m.countIn(newHTML)); ok {
			changes = append(changes, change)
		}
	}

	for _, m := range d.content {
		if change, ok := contentChange(m.selector, m.contentOf(oldHTML), m.contentOf(newHTML)); ok {
			changes = append(changes, change)
		}
	}

	return changes
}

// CountMatches counts selector occurrences in html using the pattern rules.
func CountMatches(html, selector string) int {
	return compileMatcher(selector).countIn(html)
}

// ExtractContent returns the trimmed inner content of the first region
// matching selector, or "".
func ExtractContent(html, selector string) string {
	return compileMatcher(selector).contentOf(html)
}
