package rpc

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyrily/hyrily/internal/evaluate"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/score"
)

// Messages are structpb.Struct values keyed as below.
const (
	fieldQuestion  = "question"
	fieldAnswer    = "answer"
	fieldType      = "type"
	fieldStack     = "stack"
	fieldScore     = "score"
	fieldScaleMin  = "scale_min"
	fieldScaleMax  = "scale_max"
	fieldFeedback  = "feedback"
	fieldCount     = "count"
	fieldID        = "id"
	fieldQuestions = "questions"
)

func encodeRequest(req evaluate.Request) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldQuestion: req.Question,
		fieldAnswer:   req.Answer,
		fieldType:     string(req.Category),
		fieldStack:    req.Stack,
	})
}

func decodeRequest(s *structpb.Struct) (evaluate.Request, error) {
	req := evaluate.Request{
		Question: stringField(s, fieldQuestion),
		Answer:   stringField(s, fieldAnswer),
		Category: questions.Category(stringField(s, fieldType)),
		Stack:    stringField(s, fieldStack),
	}
	if strings.TrimSpace(req.Question) == "" {
		return evaluate.Request{}, fmt.Errorf("%s is required", fieldQuestion)
	}
	return req, nil
}

func encodeResult(res evaluate.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldScore:    res.Score,
		fieldScaleMin: res.Scale.Min,
		fieldScaleMax: res.Scale.Max,
		fieldFeedback: res.Feedback,
	})
}

func decodeResult(s *structpb.Struct) (evaluate.Result, error) {
	value, ok := numberField(s, fieldScore)
	if !ok {
		return evaluate.Result{}, fmt.Errorf("%w: missing %s", evaluate.ErrMalformed, fieldScore)
	}
	res := evaluate.Result{
		Score:    value,
		Scale:    score.Canonical,
		Feedback: stringField(s, fieldFeedback),
	}
	minimum, hasMin := numberField(s, fieldScaleMin)
	maximum, hasMax := numberField(s, fieldScaleMax)
	if hasMin && hasMax {
		res.Scale = score.Scale{Min: minimum, Max: maximum}
	}
	return res, evaluate.Validate(res)
}

func encodeGenerate(stack string, count int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldStack: stack,
		fieldCount: count,
	})
}

func decodeGenerate(s *structpb.Struct) (string, int, error) {
	count, ok := numberField(s, fieldCount)
	if !ok || count < 1 || count != math.Trunc(count) {
		return "", 0, fmt.Errorf("%s must be a positive integer", fieldCount)
	}
	return stringField(s, fieldStack), int(count), nil
}

func encodeQuestions(qs []questions.Question) (*structpb.Struct, error) {
	list := make([]any, 0, len(qs))
	for _, q := range qs {
		list = append(list, map[string]any{
			fieldID:       q.ID,
			fieldType:     string(q.Category),
			fieldQuestion: q.Text,
		})
	}
	return structpb.NewStruct(map[string]any{fieldQuestions: list})
}

func decodeQuestions(s *structpb.Struct) ([]questions.Question, error) {
	items := s.GetFields()[fieldQuestions].GetListValue().GetValues()
	out := make([]questions.Question, 0, len(items))
	for i, item := range items {
		fields := item.GetStructValue()
		if fields == nil {
			return nil, fmt.Errorf("question %d is not an object", i)
		}
		out = append(out, questions.Question{
			ID:       stringField(fields, fieldID),
			Category: questions.Category(stringField(fields, fieldType)),
			Text:     stringField(fields, fieldQuestion),
		})
	}
	return questions.Normalize(out), nil
}

func stringField(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func numberField(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, false
	}
	return n.NumberValue, true
}
