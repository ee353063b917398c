package ai

import (
	"fmt"
	"strings"

	"github.com/hyrily/hyrily/internal/evaluate"
)

func evaluationPrompt(req evaluate.Request) string {
	stack := req.Stack
	if strings.TrimSpace(stack) == "" {
		stack = "software engineering"
	}
	category := string(req.Category)
	if category == "" {
		category = "general"
	}

	return fmt.Sprintf(`You are an expert interviewer evaluating a candidate's answer for a %s position.

Question Type: %s
Question: %q
Candidate's Answer: %q

Please evaluate this answer and provide:
1. A score from 0-100 based on:
   - Technical accuracy (for technical questions)
   - Relevance and completeness
   - Communication clarity
   - Problem-solving approach
   - Professional experience demonstrated

2. Constructive feedback (2-3 sentences) highlighting:
   - What was good about the answer
   - Areas for improvement
   - Specific suggestions

Return the response as JSON with this exact format:
{
  "score": 85,
  "feedback": "Good understanding of the concept. Could provide more specific examples and implementation details."
}

Be fair but thorough in your evaluation. Consider the question type and technology stack context.`,
		stack, category, req.Question, req.Answer)
}

// categoryMix splits count across categories in the 4:4:2:2 ratio used for
// twelve questions, giving any remainder to technical.
func categoryMix(count int) (technical, behavioral, problem, design int) {
	behavioral = count / 3
	problem = count / 6
	design = count / 6
	technical = count - behavioral - problem - design
	return technical, behavioral, problem, design
}

func questionPrompt(stack string, count int, nonce int) string {
	technical, behavioral, problem, design := categoryMix(count)

	return fmt.Sprintf(`Generate %d interview questions for a %s position.
The questions should be a mix of different types:
- %d technical questions (specific to %s)
- %d behavioral questions (soft skills, teamwork, problem-solving)
- %d problem-solving questions (algorithmic thinking, debugging)
- %d system design questions (architecture, scalability)

For each question, provide:
- type: "technical", "behavioral", "problem-solving", or "system-design"
- question: the actual question text

Return the response as a JSON array with this exact format:
[
  {
    "type": "technical",
    "question": "What is the difference between REST and GraphQL APIs?"
  }
]

Make sure the questions are relevant to %s and appropriate for a professional interview.
Vary the selection so repeated requests for the same stack differ. Variation seed: %d`,
		count, stack, technical, stack, behavioral, problem, design, stack, nonce)
}
