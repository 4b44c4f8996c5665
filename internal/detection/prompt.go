package detection

import "github.com/jonesrussell/feedback-api/internal/domain"

// Prompt titles and options.
const (
	formPromptTitle    = "How was your experience with this form?"
	featurePromptTitle = "We noticed some new features. What do you think?"
	contentPromptTitle = "Was this content helpful?"
	defaultPromptTitle = "We've made some updates. How are we doing?"
)

var (
	featurePromptOptions = []string{"Love it!", "It's okay", "Not sure", "Don't like it"}
	contentPromptOptions = []string{"Yes, very helpful", "Somewhat helpful", "Not helpful"}
)

// BuildPromptConfig picks a single prompt for changes. The first matching
// rule wins:
//
//  1. no changes: nil
//  2. any form or input change: form rating
//  3. an added button or [role='button']: new-features choice
//  4. a modified content area: content-helpfulness choice
//  5. anything else: general rating
func BuildPromptConfig(changes []domain.ChangedElement) *domain.PromptConfig {
	if len(changes) == 0 {
		return nil
	}

	var formChanged, buttonsAdded, contentModified bool
	for _, c := range changes {
		switch {
		case c.Selector == "form" || c.Selector == "input":
			formChanged = true
		case c.ChangeType == domain.ChangeAdded && (c.Selector == "button" || c.Selector == "[role='button']"):
			buttonsAdded = true
		case c.ChangeType == domain.ChangeModified && c.ContentChanged():
			contentModified = true
		}
	}

	switch {
	case formChanged:
		return &domain.PromptConfig{Title: formPromptTitle, Type: domain.PromptRating}
	case buttonsAdded:
		return &domain.PromptConfig{
			Title:   featurePromptTitle,
			Type:    domain.PromptChoice,
			Options: append([]string(nil), featurePromptOptions...),
		}
	case contentModified:
		return &domain.PromptConfig{
			Title:   contentPromptTitle,
			Type:    domain.PromptChoice,
			Options: append([]string(nil), contentPromptOptions...),
		}
	default:
		return &domain.PromptConfig{Title: defaultPromptTitle, Type: domain.PromptRating}
	}
}
