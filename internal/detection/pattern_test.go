package detection_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-api/internal/detection"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

func added(selector string, count int) domain.ChangedElement {
	return domain.ChangedElement{
		Selector:   selector,
		ChangeType: domain.ChangeAdded,
		Metadata:   map[string]any{"count": count},
	}
}

func removed(selector string, count int) domain.ChangedElement {
	return domain.ChangedElement{
		Selector:   selector,
		ChangeType: domain.ChangeRemoved,
		Metadata:   map[string]any{"count": count},
	}
}

func modified(selector string) domain.ChangedElement {
	return domain.ChangedElement{
		Selector:   selector,
		ChangeType: domain.ChangeModified,
		Metadata:   map[string]any{"contentChanged": true},
	}
}

func TestCountMatches(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		selector string
		want     int
	}{
		{name: "tag with attributes", html: `<button class="x">A</button><button>B</button>`, selector: "button", want: 2},
		{name: "tag is case-insensitive", html: `<BUTTON>A</BUTTON><Button>B</Button>`, selector: "button", want: 2},
		{name: "anchor ignores longer tag names", html: `<a href="/">x</a><abbr>y</abbr><article>z</article>`, selector: "a", want: 1},
		{name: "self-closing input", html: `<input type="text"/><input>`, selector: "input", want: 2},
		{name: "tag needs whitespace or close", html: `<select/><select>`, selector: "select", want: 1},
		{name: "attribute double-quoted", html: `<div role="button">x</div>`, selector: "[role='button']", want: 1},
		{name: "attribute unquoted and any tag", html: `<span ROLE=button></span><a role='button'>`, selector: "[role='button']", want: 2},
		{name: "presence-only attribute is not counted", html: `<div data-feedback="yes"></div>`, selector: "[data-feedback]", want: 0},
		{name: "class as whole word", html: `<div class="page content">a</div><div class="contented">b</div>`, selector: ".content", want: 1},
		{name: "vertical tab ends tag", html: "<button\v>A</button>", selector: "button", want: 1},
		{name: "no-break space ends tag", html: "<button\u00a0type=\"button\">A</button>", selector: "button", want: 1},
		{name: "long s does not fold to s", html: "<\u017felect >", selector: "select", want: 0},
		{name: "empty html", html: "", selector: "button", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detection.CountMatches(tc.html, tc.selector))
		})
	}
}

func TestExtractContent(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		selector string
		want     string
	}{
		{name: "tag is trimmed", html: "<main>\n  Hello <b>world</b>\n</main>", selector: "main", want: "Hello <b>world</b>"},
		{name: "tag takes first region", html: "<article>One</article><article>Two</article>", selector: "article", want: "One"},
		{name: "tag with attributes", html: `<main id="m" class="x">Body</main>`, selector: "main", want: "Body"},
		{name: "class region", html: `<section class="wide content">Copy</section>`, selector: ".content", want: "Copy"},
		{name: "attribute region stops at first closing tag", html: `<div role="main">Intro<p>x</p></div>`, selector: "[role='main']", want: "Intro<p>x"},
		{name: "no-break space is trimmed", html: "<main>\u00a0Body\u3000</main>", selector: "main", want: "Body"},
		{name: "no match", html: "<div>nothing</div>", selector: "main", want: ""},
		{name: "presence-only attribute", html: "<div data-feedback>x</div>", selector: "[data-feedback]", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detection.ExtractContent(tc.html, tc.selector))
		})
	}
}

func TestDetectChanges(t *testing.T) {
	testCases := []struct {
		name    string
		oldHTML string
		newHTML string
		want    []domain.ChangedElement
	}{
		{
			name:    "identical documents",
			oldHTML: `<main><button>A</button><a href="/">x</a></main>`,
			newHTML: `<main><button>A</button><a href="/">x</a></main>`,
			want:    []domain.ChangedElement{},
		},
		{
			name:    "both empty",
			want:    []domain.ChangedElement{},
		},
		{
			name:    "buttons added",
			oldHTML: `<div></div>`,
			newHTML: `<div><button>A</button><button>B</button></div>`,
			want:    []domain.ChangedElement{added("button", 2)},
		},
		{
			name:    "link removed",
			oldHTML: `<a href="/a">a</a><a href="/b">b</a>`,
			newHTML: `<a href="/a">a</a>`,
			want:    []domain.ChangedElement{removed("a", 1)},
		},
		{
			name:    "role button added on any element",
			oldHTML: `<div>x</div>`,
			newHTML: `<div role="button">x</div>`,
			want:    []domain.ChangedElement{added("[role='button']", 1)},
		},
		{
			name:    "data-feedback changes are invisible",
			oldHTML: `<p>x</p>`,
			newHTML: `<p data-feedback="true">x</p>`,
			want:    []domain.ChangedElement{},
		},
		{
			name:    "main content modified",
			oldHTML: `<main>Hello</main>`,
			newHTML: `<main>World</main>`,
			want:    []domain.ChangedElement{modified("main")},
		},
		{
			name:    "whitespace at the ends is ignored",
			oldHTML: "<main>  Hello \n</main>",
			newHTML: "<main>Hello</main>",
			want:    []domain.ChangedElement{},
		},
		{
			name:    "content region appears",
			oldHTML: `<div>x</div>`,
			newHTML: `<div>x</div><article>Story</article>`,
			want:    []domain.ChangedElement{modified("article")},
		},
		{
			name:    "content region disappears",
			oldHTML: `<div class="content">Copy</div>`,
			newHTML: `<div>Copy</div>`,
			want:    []domain.ChangedElement{modified(".content")},
		},
		{
			name:    "counts precede content areas in fixed order",
			oldHTML: `<main>Old</main><form><input name="a"></form>`,
			newHTML: `<main>New</main><form><input name="a"><input name="b"><select></select></form><button>Go</button>`,
			want: []domain.ChangedElement{
				added("button", 1),
				added("input", 1),
				added("select", 1),
				modified("main"),
			},
		},
		{
			name:    "heading change without tracked selectors",
			oldHTML: `<html><body><h1>Original</h1></body></html>`,
			newHTML: `<html><body><h1>Changed</h1><p>New content</p></body></html>`,
			want:    []domain.ChangedElement{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := detection.DetectChanges(tc.oldHTML, tc.newHTML)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectChanges_SelfDiffIsEmpty(t *testing.T) {
	documents := []string{
		"",
		"not html at all <<<",
		`<html><body><main><form><input><button>x</button></form></main></body></html>`,
		`<div role="main"><div class="content">c</div><a href="#">l</a></div>`,
		`<ARTICLE>Mixed <Button>case</Button></ARTICLE>`,
	}

	for _, doc := range documents {
		assert.Empty(t, detection.DetectChanges(doc, doc), "self diff of %q", doc)
	}
}

func TestDetectChanges_ModifiedIsSymmetric(t *testing.T) {
	oldHTML := `<main>Before</main><button>a</button>`
	newHTML := `<main>After</main>`

	forward := detection.DetectChanges(oldHTML, newHTML)
	backward := detection.DetectChanges(newHTML, oldHTML)

	assert.Equal(t, []domain.ChangedElement{removed("button", 1), modified("main")}, forward)
	assert.Equal(t, []domain.ChangedElement{added("button", 1), modified("main")}, backward)
}

func TestPatternDetector_ConcurrentUse(t *testing.T) {
	detector := detection.NewPatternDetector()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := detector.DetectChanges(`<main>a</main>`, `<main>b</main><button>x</button>`)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
}

func TestNew(t *testing.T) {
	pattern, err := detection.New("")
	require.NoError(t, err)
	assert.IsType(t, &detection.PatternDetector{}, pattern)

	dom, err := detection.New(detection.StrategyDOM)
	require.NoError(t, err)
	assert.IsType(t, &detection.DOMDetector{}, dom)

	_, err = detection.New("visual")
	assert.Error(t, err)
}
