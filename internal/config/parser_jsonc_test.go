package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCStringListUnmarshal(t *testing.T) {
	var list jsoncStringList
	require.NoError(t, list.UnmarshalJSON([]byte(`["a","b"]`)))
	require.Equal(t, []string{"a", "b"}, []string(list))

	require.NoError(t, list.UnmarshalJSON([]byte(`"a, b, , c"`)))
	require.Equal(t, []string{"a", "b", "c"}, []string(list))

	require.Error(t, list.UnmarshalJSON([]byte(`123`)))
}

func TestParseJSONCOverridesSections(t *testing.T) {
	content := `
{
  // practice defaults
  "interview": {
    "modality": "voice",
    "timing": "continuous",
    "stack": "Go",
    "questions": 3,
    "session_minutes": 15,
    "skip_policy": "answered_only",
  },
  "voice": { "name": "en-US-Neural2-F", "speaking_rate": 1.1 },
  "ai": { "provider": " OpenAI ", "model": "gpt-4o" },
  "store": { "backend": "postgres" },
  "company": { "candidates": 4, "select_count": 1 },
  "vocab": {
    "global": "go",
    "sets": { "go": { "boost": 12, "phrases": ["goroutine", "gRPC"] } }
  }
}
`
	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "voice", cfg.Interview.Modality)
	require.Equal(t, "continuous", cfg.Interview.Timing)
	require.Equal(t, "Go", cfg.Interview.Stack)
	require.Equal(t, 3, cfg.Interview.Questions)
	require.Equal(t, 15, cfg.Interview.SessionMinutes)
	require.Equal(t, "answered_only", cfg.Interview.SkipPolicy)
	require.Equal(t, 60, cfg.Interview.QuestionSeconds)
	require.Equal(t, "en-US-Neural2-F", cfg.Voice.Name)
	require.InDelta(t, 1.1, cfg.Voice.SpeakingRate, 1e-9)
	require.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	require.Equal(t, "gpt-4o", cfg.AI.Model)
	require.Equal(t, BackendPostgres, cfg.Store.Backend)
	require.Equal(t, 4, cfg.Company.Candidates)
	require.Equal(t, 1, cfg.Company.SelectCount)
	require.Equal(t, []string{"go"}, cfg.Vocab.GlobalSets)
	require.Equal(t, VocabSet{Name: "go", Boost: 12, Phrases: []string{"goroutine", "gRPC"}}, cfg.Vocab.Sets["go"])
}

func TestParseDoesNotMutateBaseSets(t *testing.T) {
	base := Default()
	_, _, err := Parse(`{"vocab": {"sets": {"x": {"phrases": ["a"]}}}}`, base)
	require.NoError(t, err)
	require.Empty(t, base.Vocab.Sets)
}

func TestParseRejectsUnknownFieldsWithPosition(t *testing.T) {
	_, _, err := Parse("{\n  \"interview\": {\"questions\": \"five\"}\n}", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")

	_, _, err = Parse(`{"paste": {}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, _, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
