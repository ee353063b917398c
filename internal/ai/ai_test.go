package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestEvaluatorParsesWrappedJSON(t *testing.T) {
	fc := &fakeCompleter{reply: "Here you go:\n```json\n{\n  \"score\": 85,\n  \"feedback\": \" Solid answer. \"\n}\n```"}
	ev := NewEvaluator(fc)

	res, err := ev.Evaluate(context.Background(), evaluate.Request{
		Question: "Explain channels.",
		Answer:   "They are typed conduits.",
		Category: questions.Technical,
		Stack:    "Go",
	})
	require.NoError(t, err)
	require.Equal(t, 85.0, res.Score)
	require.Equal(t, score.Percent, res.Scale)
	require.Equal(t, "Solid answer.", res.Feedback)
	require.InDelta(t, 4.25, res.Canonical(), 1e-9)

	require.Len(t, fc.prompts, 1)
	require.Contains(t, fc.prompts[0], "for a Go position")
	require.Contains(t, fc.prompts[0], "Question Type: technical")
	require.Contains(t, fc.prompts[0], `"They are typed conduits."`)
}

func TestEvaluatorFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		is    error
	}{
		{name: "transport", err: errors.New("unavailable")},
		{name: "no json", reply: "I think it was fine.", is: ErrNoJSON},
		{name: "bad json", reply: "{score: eighty}", is: evaluate.ErrMalformed},
		{name: "out of range", reply: `{"score": 420, "feedback": "wow"}`, is: evaluate.ErrMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEvaluator(&fakeCompleter{reply: tc.reply, err: tc.err}).Evaluate(context.Background(), evaluate.Request{})
			require.Error(t, err)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestQuestionGenerator(t *testing.T) {
	fc := &fakeCompleter{reply: `Sure!
[
  {"type": "Technical", "question": "What is a goroutine?"},
  {"type": "behavioral", "question": "Describe a conflict you resolved."},
  {"type": "system-design", "question": "Design a rate limiter."}
]`}
	gen := NewQuestionGenerator(fc)
	gen.nonce = func() int { return 42 }

	qs, err := gen.Generate(context.Background(), "Go", 2)
	require.NoError(t, err)
	require.Equal(t, []questions.Question{
		{ID: "q1", Category: questions.Technical, Text: "What is a goroutine?"},
		{ID: "q2", Category: questions.Behavioral, Text: "Describe a conflict you resolved."},
	}, qs)
	require.Contains(t, fc.prompts[0], "Generate 2 interview questions for a Go position")
	require.Contains(t, fc.prompts[0], "Variation seed: 42")
}

func TestQuestionGeneratorEmpty(t *testing.T) {
	_, err := NewQuestionGenerator(&fakeCompleter{reply: "[]"}).Generate(context.Background(), "Go", 3)
	require.ErrorIs(t, err, questions.ErrNoQuestions)

	_, err = NewQuestionGenerator(&fakeCompleter{reply: "none"}).Generate(context.Background(), "Go", 3)
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestCategoryMix(t *testing.T) {
	tech, beh, prob, design := categoryMix(12)
	require.Equal(t, []int{4, 4, 2, 2}, []int{tech, beh, prob, design})

	tech, beh, prob, design = categoryMix(5)
	require.Equal(t, 5, tech+beh+prob+design)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, DefaultOpenAIModel, req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\": 70, \"feedback\": \"ok\"}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAI("sk-test", "", srv.URL+"/v1")
	require.NoError(t, err)

	res, err := NewEvaluator(client).Evaluate(context.Background(), evaluate.Request{Question: "q", Answer: "a"})
	require.NoError(t, err)
	require.Equal(t, 70.0, res.Score)
	require.Equal(t, "ok", res.Feedback)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAI("sk-test", "gpt-4o-mini", srv.URL+"/v1")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "openai chat completion"))
}

func TestConstructorsRejectEmptyCredentials(t *testing.T) {
	_, err := NewOpenAI(" ", "", "")
	require.Error(t, err)

	_, err = NewGemini(context.Background(), "", "")
	require.Error(t, err)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"score":`), genai.Text(` 90}`)}}},
			{Content: nil},
		},
	}
	require.Equal(t, `{"score": 90}`, responseText(resp))
	require.Empty(t, responseText(nil))
}
