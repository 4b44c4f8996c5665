package detection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/feedback-api/internal/detection"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

func TestDOMDetector_DetectChanges(t *testing.T) {
	detector := detection.NewDOMDetector()

	testCases := []struct {
		name    string
		oldHTML string
		newHTML string
		want    []domain.ChangedElement
	}{
		{
			name:    "identical",
			oldHTML: `<main><button>a</button></main>`,
			newHTML: `<main><button>a</button></main>`,
			want:    []domain.ChangedElement{},
		},
		{
			name:    "markup inside attributes is not counted",
			oldHTML: `<div title="x">y</div>`,
			newHTML: `<div title="<button>">y</div>`,
			want:    []domain.ChangedElement{},
		},
		{
			name:    "presence-only attribute is counted",
			oldHTML: `<p>x</p>`,
			newHTML: `<p data-feedback>x</p>`,
			want:    []domain.ChangedElement{added("[data-feedback]", 1)},
		},
		{
			name:    "nested same-name regions compare whole content",
			oldHTML: `<div class="content"><div>a</div>tail</div>`,
			newHTML: `<div class="content"><div>a</div>changed</div>`,
			want:    []domain.ChangedElement{modified(".content")},
		},
		{
			name:    "empty old document",
			oldHTML: "",
			newHTML: `<main>Hi</main><a href="/">x</a>`,
			want:    []domain.ChangedElement{added("a", 1), modified("main")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detector.DetectChanges(tc.oldHTML, tc.newHTML))
		})
	}
}

func TestDOMDetector_PatternDisagreement(t *testing.T) {
	oldHTML := `<div title="x">y</div>`
	newHTML := `<div title="<button>">y</div>`

	assert.Equal(t, []domain.ChangedElement{added("button", 1)}, detection.DetectChanges(oldHTML, newHTML))
	assert.Empty(t, detection.NewDOMDetector().DetectChanges(oldHTML, newHTML))
}
