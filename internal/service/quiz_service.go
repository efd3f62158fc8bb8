package service

import (
	_ "embed"
	"fmt"
	"slices"

	"gigfolio/internal/observability"

	"gopkg.in/yaml.v3"
)

//go:embed quiz.yaml
var quizYAML []byte

// Question is one multiple-choice question. Answer is never sent to clients.
type Question struct {
	Text    string   `yaml:"text" json:"text"`
	Options []string `yaml:"options" json:"options"`
	Answer  string   `yaml:"answer" json:"-"`
}

// QuizResult is the outcome of scoring one submission.
type QuizResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

type QuizService struct {
	questions []Question
}

// NewQuizService loads the built-in question set.
func NewQuizService() (*QuizService, error) {
	var doc struct {
		Questions []Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(quizYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse quiz: %w", err)
	}
	for i, q := range doc.Questions {
		if q.Answer == "" || !slices.Contains(q.Options, q.Answer) {
			return nil, fmt.Errorf("quiz question %d: answer %q is not one of its options", i+1, q.Answer)
		}
	}
	return &QuizService{questions: doc.Questions}, nil
}

// Questions returns the question set in order.
func (s *QuizService) Questions() []Question {
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Score counts exact matches. Keys of answers are zero-based question indexes;
// missing or unknown keys score nothing.
func (s *QuizService) Score(answers map[int]string) QuizResult {
	result := QuizResult{Total: len(s.questions)}
	for i, q := range s.questions {
		if got, ok := answers[i]; ok && got == q.Answer {
			result.Score++
		}
	}
	observability.QuizSubmissionsTotal.Inc()
	return result
}
