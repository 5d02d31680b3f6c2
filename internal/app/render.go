package app

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
)

// Shuffler reorders answer options in place.
type Shuffler interface {
	Shuffle(options []domain.AnswerOption)
}

// ComparatorShuffler sorts options with a comparator that answers at random.
// The resulting permutation is not uniform; earlier options tend to stay early.
type ComparatorShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewComparatorShuffler(seed int64) *ComparatorShuffler {
	return &ComparatorShuffler{rnd: rand.New(rand.NewSource(seed))}
}

func (s *ComparatorShuffler) Shuffle(options []domain.AnswerOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(options, func(i, j int) bool {
		return s.rnd.Float64()-0.5 < 0
	})
}

// UniformShuffler is a Fisher-Yates shuffle.
type UniformShuffler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewUniformShuffler(seed int64) *UniformShuffler {
	return &UniformShuffler{rnd: rand.New(rand.NewSource(seed))}
}

func (s *UniformShuffler) Shuffle(options []domain.AnswerOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}

// NewShuffler maps a config mode to a Shuffler. An empty mode selects the comparator shuffle.
func NewShuffler(mode string) (Shuffler, error) {
	seed := time.Now().UnixNano()
	switch mode {
	case "", "comparator":
		return NewComparatorShuffler(seed), nil
	case "uniform":
		return NewUniformShuffler(seed), nil
	}
	return nil, fmt.Errorf("%w: unknown shuffle mode %q", domain.ErrInvalidConfig, mode)
}

// RenderQuestions builds the answer controls for each question. The option built
// from the correct answer is the only one carrying the correctness marker.
func RenderQuestions(questions []domain.Question, shuffler Shuffler) []domain.RenderedQuestion {
	rendered := make([]domain.RenderedQuestion, 0, len(questions))
	for i, q := range questions {
		options := make([]domain.AnswerOption, 0, len(q.IncorrectAnswers)+1)
		options = append(options, domain.AnswerOption{Text: q.CorrectAnswer, Correct: true})
		for _, answer := range q.IncorrectAnswers {
			options = append(options, domain.AnswerOption{Text: answer})
		}
		shuffler.Shuffle(options)

		rendered = append(rendered, domain.RenderedQuestion{
			Index:   i,
			Text:    q.Question,
			Options: options,
		})
	}
	return rendered
}
