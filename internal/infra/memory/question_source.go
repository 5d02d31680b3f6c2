package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"trivia-quiz/internal/domain"
)

// StaticQuestionSource serves questions from a fixed bank (useful for tests,
// demos and offline deployments).
type StaticQuestionSource struct {
	bank   []domain.Question
	amount int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewStaticQuestionSource returns up to amount questions per fetch, picked at
// random from bank. A non-positive amount returns the whole bank in order.
func NewStaticQuestionSource(bank []domain.Question, amount int) *StaticQuestionSource {
	return &StaticQuestionSource{
		bank:   bank,
		amount: amount,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *StaticQuestionSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.amount <= 0 || s.amount >= len(s.bank) {
		out := make([]domain.Question, len(s.bank))
		copy(out, s.bank)
		return out, nil
	}

	s.mu.Lock()
	picks := s.rnd.Perm(len(s.bank))[:s.amount]
	s.mu.Unlock()

	out := make([]domain.Question, 0, s.amount)
	for _, i := range picks {
		out = append(out, s.bank[i])
	}
	return out, nil
}

type questionBankFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// LoadQuestionBank reads a YAML file of the form:
//
//	questions:
//	  - question: "What is 2 + 2?"
//	    correct_answer: "4"
//	    incorrect_answers: ["3", "5", "22"]
func LoadQuestionBank(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file questionBankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", path, err)
	}
	return file.Questions, nil
}
