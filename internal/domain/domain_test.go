package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

func TestFeedbackResponse_ValueKind(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    domain.ValueKind
		wantErr bool
	}{
		{name: "rating number", raw: `4`, want: domain.ValueNumber},
		{name: "decimal number", raw: `4.5`, want: domain.ValueNumber},
		{name: "free text", raw: `"Looks great"`, want: domain.ValueString},
		{name: "choices", raw: `["Love it!","Not sure"]`, want: domain.ValueStrings},
		{name: "empty choices", raw: `[]`, want: domain.ValueStrings},
		{name: "mixed list", raw: `["a",1]`, wantErr: true},
		{name: "object", raw: `{"a":1}`, wantErr: true},
		{name: "boolean", raw: `true`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := domain.FeedbackResponse{Value: json.RawMessage(tc.raw)}.ValueKind()
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestFeedbackResponse_CompactValue(t *testing.T) {
	compact, err := domain.FeedbackResponse{Value: json.RawMessage("[ \"a\",\n \"b\" ]")}.CompactValue()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, compact)
}

func TestProject_AllowsOrigin(t *testing.T) {
	project := &domain.Project{AllowedOrigins: []domain.AllowedOrigin{
		{Origin: "https://shop.example"},
	}}

	assert.True(t, project.AllowsOrigin("https://shop.example"))
	assert.False(t, project.AllowsOrigin("https://shop.example:8443"))
	assert.False(t, project.AllowsOrigin(""))

	project.AllowedOrigins = append(project.AllowedOrigins, domain.AllowedOrigin{Origin: domain.WildcardOrigin})
	assert.True(t, project.AllowsOrigin("https://anything.example"))
}

func TestNewAPIKey(t *testing.T) {
	key := domain.NewAPIKey()

	assert.True(t, strings.HasPrefix(key, domain.APIKeyPrefix))
	assert.Len(t, key, len(domain.APIKeyPrefix)+32)
	assert.NotContains(t, key, "-")
	assert.NotEqual(t, key, domain.NewAPIKey())
}

func TestChangedElement_ContentChanged(t *testing.T) {
	assert.True(t, domain.ChangedElement{Metadata: map[string]any{"contentChanged": true}}.ContentChanged())
	assert.False(t, domain.ChangedElement{Metadata: map[string]any{"count": 2}}.ContentChanged())
	assert.False(t, domain.ChangedElement{}.ContentChanged())
}

func TestNoChanges_SerializesEmptyList(t *testing.T) {
	body, err := json.Marshal(domain.NoChanges())
	require.NoError(t, err)
	assert.JSONEq(t, `{"hasChanges":false,"changedElements":[]}`, string(body))
}

func TestSnapshotKey_String(t *testing.T) {
	sub := &domain.SnapshotSubmission{SessionID: "s1", URL: "https://a.example/x"}
	assert.Equal(t, "p1|s1|https://a.example/x", sub.Key("p1").String())
}
