package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"trivia-quiz/internal/domain"
)

// DefaultIdentityTTL is how long a remembered username lives.
const DefaultIdentityTTL = 7 * 24 * time.Hour

// QuestionSource fetches a fresh question set (trivia API, static bank, etc).
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// RoundStore holds the round currently rendered for each client.
// Get returns domain.ErrRoundNotFound when the client has none.
type RoundStore interface {
	Get(ctx context.Context, clientID string) (domain.Round, error)
	Put(ctx context.Context, round domain.Round) error
}

// ScoreRepository is the append-only score ledger (in-memory, Redis, Postgres, SQLite).
type ScoreRepository interface {
	AppendScore(ctx context.Context, clientID string, record domain.ScoreRecord) error
	ListScores(ctx context.Context, clientID string) ([]domain.ScoreRecord, error)
}

// IdentityStore remembers the current player's name across rounds.
type IdentityStore interface {
	Username() (string, bool)
	SetUsername(name string, ttl time.Duration)
	ClearUsername()
}

// Settings tunes a TriviaService. Zero values fall back to defaults.
type Settings struct {
	IdentityTTL  time.Duration
	FetchTimeout time.Duration
	Shuffler     Shuffler
	Logger       *log.Logger
	Now          func() time.Time
}

// SubmitResult summarizes a scored submission.
type SubmitResult struct {
	Username string
	Score    int
	Total    int
	Next     domain.Round
}

// TriviaService drives rounds, scoring and the ledger.
type TriviaService struct {
	questions QuestionSource
	rounds    RoundStore
	scores    ScoreRepository

	identityTTL  time.Duration
	fetchTimeout time.Duration
	shuffler     Shuffler
	logger       *log.Logger
	now          func() time.Time

	sf       singleflight.Group
	wg       sync.WaitGroup
	watchers *roundWatchers
}

func NewTriviaService(questions QuestionSource, rounds RoundStore, scores ScoreRepository, settings Settings) *TriviaService {
	s := &TriviaService{
		questions:    questions,
		rounds:       rounds,
		scores:       scores,
		identityTTL:  settings.IdentityTTL,
		fetchTimeout: settings.FetchTimeout,
		shuffler:     settings.Shuffler,
		logger:       settings.Logger,
		now:          settings.Now,
		watchers:     newRoundWatchers(),
	}
	if s.identityTTL <= 0 {
		s.identityTTL = DefaultIdentityTTL
	}
	if s.shuffler == nil {
		s.shuffler = NewComparatorShuffler(time.Now().UnixNano())
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// StartRound marks the client's question area as loading and fetches a new
// question set in the background. It returns the loading round.
func (s *TriviaService) StartRound(ctx context.Context, clientID string) (domain.Round, error) {
	now := s.now()
	round := domain.Round{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		State:     domain.RoundLoading,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.rounds.Put(ctx, round); err != nil {
		return domain.Round{}, err
	}
	s.watchers.publish(round)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loadRound(clientID, round.ID)
	}()
	return round, nil
}

// loadRound runs detached from the request that triggered it. Failures leave
// the round showing with no questions. The result only paints roundID; a
// newer round started meanwhile owns its own fetch.
func (s *TriviaService) loadRound(clientID, roundID string) {
	fetchCtx := context.Background()
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, s.fetchTimeout)
		defer cancel()
	}

	// One fetch in flight per client; late joiners share its result.
	result, err, _ := s.sf.Do(clientID, func() (interface{}, error) {
		return s.questions.FetchQuestions(fetchCtx)
	})
	var questions []domain.Question
	if err != nil {
		s.logger.Printf("ROUND: error fetching questions for %s: %v", clientID, err)
	} else {
		questions = result.([]domain.Question)
	}

	ctx := context.Background()
	current, err := s.rounds.Get(ctx, clientID)
	if err != nil {
		s.logger.Printf("ROUND: error reading round for %s: %v", clientID, err)
		return
	}
	if current.ID != roundID || !current.Loading() {
		return
	}

	current.State = domain.RoundShowing
	current.Questions = RenderQuestions(questions, s.shuffler)
	current.UpdatedAt = s.now()
	if err := s.rounds.Put(ctx, current); err != nil {
		s.logger.Printf("ROUND: error storing round for %s: %v", clientID, err)
		return
	}
	s.watchers.publish(current)
}

// CurrentRound returns the client's round, starting one if none exists yet.
func (s *TriviaService) CurrentRound(ctx context.Context, clientID string) (domain.Round, error) {
	round, err := s.rounds.Get(ctx, clientID)
	if errors.Is(err, domain.ErrRoundNotFound) {
		return s.StartRound(ctx, clientID)
	}
	return round, err
}

// Submit scores the client's selections against the round the form was
// rendered from, records the score and starts the next round. A roundID that
// no longer matches the stored round returns domain.ErrStaleRound and records
// nothing.
func (s *TriviaService) Submit(ctx context.Context, clientID string, identity IdentityStore, usernameInput, roundID string, selections map[int]string) (SubmitResult, error) {
	round, err := s.rounds.Get(ctx, clientID)
	if errors.Is(err, domain.ErrRoundNotFound) {
		return SubmitResult{}, fmt.Errorf("%w: round %q expired", domain.ErrStaleRound, roundID)
	}
	if err != nil {
		return SubmitResult{}, err
	}
	if round.ID != roundID {
		return SubmitResult{}, fmt.Errorf("%w: submitted %q, current %q", domain.ErrStaleRound, roundID, round.ID)
	}

	username, ok := identity.Username()
	if !ok {
		if name := strings.TrimSpace(usernameInput); name != "" {
			username = name
			identity.SetUsername(name, s.identityTTL)
		}
	}

	score := CalculateScore(round, selections)
	record := domain.ScoreRecord{
		Username:   username,
		Score:      score,
		RecordedAt: s.now(),
	}
	if err := s.scores.AppendScore(ctx, clientID, record); err != nil {
		return SubmitResult{}, err
	}

	next, err := s.StartRound(ctx, clientID)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		Username: username,
		Score:    score,
		Total:    len(round.Questions),
		Next:     next,
	}, nil
}

// NewPlayer forgets the remembered username.
func (s *TriviaService) NewPlayer(identity IdentityStore) {
	identity.ClearUsername()
}

// Leaderboard lists the client's ledger in insertion order.
func (s *TriviaService) Leaderboard(ctx context.Context, clientID string) ([]domain.ScoreRecord, error) {
	return s.scores.ListScores(ctx, clientID)
}

// WatchRound streams round updates for a client, starting with its current
// round when one exists. The caller must invoke cancel to avoid leaks.
func (s *TriviaService) WatchRound(ctx context.Context, clientID string) (<-chan domain.Round, func(), error) {
	return s.watchers.subscribe(clientID, func() (domain.Round, bool, error) {
		round, err := s.rounds.Get(ctx, clientID)
		if errors.Is(err, domain.ErrRoundNotFound) {
			return domain.Round{}, false, nil
		}
		return round, err == nil, err
	})
}

// Wait blocks until background round fetches have finished.
func (s *TriviaService) Wait() {
	s.wg.Wait()
}

// IdentityStateOf reports which identity controls should be visible.
func IdentityStateOf(identity IdentityStore) domain.IdentityState {
	if name, ok := identity.Username(); ok && name != "" {
		return domain.Identified
	}
	return domain.Anonymous
}
