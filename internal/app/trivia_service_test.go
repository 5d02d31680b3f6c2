package app_test

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
)

func TestStartRoundPaintsQuestions(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(stubSource{questions: sampleQuestions()})

	loading, err := service.StartRound(ctx, "c1")
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if !loading.Loading() {
		t.Fatalf("expected loading round, got %s", loading.State)
	}
	service.Wait()

	round, err := service.CurrentRound(ctx, "c1")
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round.State != domain.RoundShowing {
		t.Fatalf("expected showing round, got %s", round.State)
	}
	if round.ID != loading.ID {
		t.Fatalf("expected round %s to be painted, got %s", loading.ID, round.ID)
	}
	if len(round.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(round.Questions))
	}
}

func TestFetchFailureShowsEmptyRound(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(stubSource{err: errors.New("network down")})

	if _, err := service.StartRound(ctx, "c1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	service.Wait()

	round, err := service.CurrentRound(ctx, "c1")
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round.Loading() {
		t.Fatalf("expected loading state cleared after failure")
	}
	if len(round.Questions) != 0 {
		t.Fatalf("expected no questions, got %d", len(round.Questions))
	}
}

func TestSubmitRecordsScoreAndRemembersUsername(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService(stubSource{questions: sampleQuestions()})
	showRound(t, service, "c1")

	round, _ := service.CurrentRound(ctx, "c1")
	identity := &fakeIdentity{}

	result, err := service.Submit(ctx, "c1", identity, "  alice ", round.ID, correctSelections(round))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	service.Wait()

	if result.Score != 2 || result.Total != 2 {
		t.Fatalf("expected 2/2, got %d/%d", result.Score, result.Total)
	}
	if identity.name != "alice" || identity.ttl != app.DefaultIdentityTTL {
		t.Fatalf("expected alice remembered for 7 days, got %q for %s", identity.name, identity.ttl)
	}

	ledger, _ := scores.ListScores(ctx, "c1")
	if len(ledger) != 1 || ledger[0].Username != "alice" || ledger[0].Score != 2 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
	if result.Next.ID == round.ID {
		t.Fatalf("expected a new round to start")
	}
}

func TestSubmitKeepsCookieUsername(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService(stubSource{questions: sampleQuestions()})
	showRound(t, service, "c1")

	identity := &fakeIdentity{name: "bob", set: true}
	if _, err := service.Submit(ctx, "c1", identity, "mallory", currentRoundID(t, service, "c1"), nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	service.Wait()

	if identity.name != "bob" || identity.writes != 0 {
		t.Fatalf("expected existing identity untouched, got %q (%d writes)", identity.name, identity.writes)
	}
	ledger, _ := scores.ListScores(ctx, "c1")
	if ledger[0].Username != "bob" || ledger[0].Score != 0 {
		t.Fatalf("unexpected record %+v", ledger[0])
	}
}

func TestSubmitWithoutUsernameRecordsAnonymous(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService(stubSource{questions: sampleQuestions()})
	showRound(t, service, "c1")

	identity := &fakeIdentity{}
	if _, err := service.Submit(ctx, "c1", identity, "   ", currentRoundID(t, service, "c1"), nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	service.Wait()

	if identity.writes != 0 {
		t.Fatalf("expected no identity written, got %d writes", identity.writes)
	}
	ledger, _ := scores.ListScores(ctx, "c1")
	if len(ledger) != 1 || ledger[0].Username != "" {
		t.Fatalf("expected one anonymous record, got %+v", ledger)
	}
}

func TestLedgerGrowsByOnePerSubmission(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(stubSource{questions: sampleQuestions()})
	identity := &fakeIdentity{name: "alice", set: true}

	for i := 1; i <= 3; i++ {
		showRound(t, service, "c1")
		if _, err := service.Submit(ctx, "c1", identity, "", currentRoundID(t, service, "c1"), nil); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		service.Wait()

		ledger, err := service.Leaderboard(ctx, "c1")
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		if len(ledger) != i {
			t.Fatalf("expected %d records, got %d", i, len(ledger))
		}
	}

	first, _ := service.Leaderboard(ctx, "c1")
	second, _ := service.Leaderboard(ctx, "c1")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("leaderboard not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestNewPlayerClearsIdentity(t *testing.T) {
	service, _ := newTestService(stubSource{})
	identity := &fakeIdentity{name: "alice", set: true}

	if app.IdentityStateOf(identity) != domain.Identified {
		t.Fatalf("expected identified before new player")
	}
	service.NewPlayer(identity)
	if app.IdentityStateOf(identity) != domain.Anonymous {
		t.Fatalf("expected anonymous after new player")
	}
}

func TestWatchRoundReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	source := &gatedSource{release: make(chan struct{}), questions: sampleQuestions()}
	service, _ := newTestService(source)

	ch, cancel, err := service.WatchRound(ctx, "c1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	if _, err := service.StartRound(ctx, "c1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if update := receive(t, ch); update.State != domain.RoundLoading {
		t.Fatalf("expected loading update, got %s", update.State)
	}

	close(source.release)
	if update := receive(t, ch); update.State != domain.RoundShowing || len(update.Questions) != 2 {
		t.Fatalf("expected showing update with 2 questions, got %+v", update)
	}
	service.Wait()
}

func TestSubmitExpiredRoundIsRejected(t *testing.T) {
	ctx := context.Background()
	scores := memory.NewScoreRepository()
	service := app.NewTriviaService(stubSource{questions: sampleQuestions()}, memory.NewRoundStore(200*time.Millisecond), scores, app.Settings{
		Shuffler: app.NewUniformShuffler(1),
		Logger:   log.New(io.Discard, "", 0),
	})
	showRound(t, service, "c1")
	round, _ := service.CurrentRound(ctx, "c1")
	selections := correctSelections(round)

	time.Sleep(300 * time.Millisecond)

	identity := &fakeIdentity{}
	_, err := service.Submit(ctx, "c1", identity, "alice", round.ID, selections)
	if !errors.Is(err, domain.ErrStaleRound) {
		t.Fatalf("expected ErrStaleRound, got %v", err)
	}
	if ledger, _ := scores.ListScores(ctx, "c1"); len(ledger) != 0 {
		t.Fatalf("expected nothing recorded for an expired round, got %+v", ledger)
	}
	if identity.writes != 0 {
		t.Fatalf("expected identity untouched on rejection")
	}
}

func TestSubmitReplacedRoundIsRejected(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService(stubSource{questions: sampleQuestions()})
	showRound(t, service, "c1")
	seen, _ := service.CurrentRound(ctx, "c1")
	selections := correctSelections(seen)

	// a submission from another tab replaces the round
	if _, err := service.Submit(ctx, "c1", &fakeIdentity{}, "", seen.ID, nil); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	service.Wait()

	_, err := service.Submit(ctx, "c1", &fakeIdentity{}, "", seen.ID, selections)
	if !errors.Is(err, domain.ErrStaleRound) {
		t.Fatalf("expected ErrStaleRound on resubmit, got %v", err)
	}
	if ledger, _ := scores.ListScores(ctx, "c1"); len(ledger) != 1 {
		t.Fatalf("expected only the first submission recorded, got %+v", ledger)
	}
}

func TestOlderFetchDoesNotPaintNewerRound(t *testing.T) {
	ctx := context.Background()
	source := &sequenceSource{sets: [][]domain.Question{sampleQuestions()[:1], sampleQuestions()}}
	rounds := &heldRoundStore{RoundStore: memory.NewRoundStore(time.Minute), entered: make(chan chan struct{})}
	service := app.NewTriviaService(source, rounds, memory.NewScoreRepository(), app.Settings{
		Shuffler: app.NewUniformShuffler(1),
		Logger:   log.New(io.Discard, "", 0),
	})

	rounds.hold.Store(true)
	if _, err := service.StartRound(ctx, "c1"); err != nil {
		t.Fatalf("start first round: %v", err)
	}
	releaseFirst := <-rounds.entered

	second, err := service.StartRound(ctx, "c1")
	if err != nil {
		t.Fatalf("start second round: %v", err)
	}
	releaseSecond := <-rounds.entered
	rounds.hold.Store(false)

	close(releaseFirst)
	close(releaseSecond)
	service.Wait()

	round, err := service.CurrentRound(ctx, "c1")
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round.ID != second.ID || round.Loading() {
		t.Fatalf("expected second round painted, got %s (%s)", round.ID, round.State)
	}
	if len(round.Questions) != 2 {
		t.Fatalf("expected the second fetch's 2 questions, got %d", len(round.Questions))
	}
}

func newTestService(source app.QuestionSource) (*app.TriviaService, *memory.ScoreRepository) {
	scores := memory.NewScoreRepository()
	service := app.NewTriviaService(source, memory.NewRoundStore(time.Minute), scores, app.Settings{
		Shuffler: app.NewUniformShuffler(1),
		Logger:   log.New(io.Discard, "", 0),
	})
	return service, scores
}

func showRound(t *testing.T, service *app.TriviaService, clientID string) {
	t.Helper()
	if _, err := service.StartRound(context.Background(), clientID); err != nil {
		t.Fatalf("start round: %v", err)
	}
	service.Wait()
}

func currentRoundID(t *testing.T, service *app.TriviaService, clientID string) string {
	t.Helper()
	round, err := service.CurrentRound(context.Background(), clientID)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	return round.ID
}

func correctSelections(round domain.Round) map[int]string {
	selections := make(map[int]string)
	for _, q := range round.Questions {
		for i, opt := range q.Options {
			if opt.Correct {
				selections[q.Index] = strconv.Itoa(i)
			}
		}
	}
	return selections
}

func receive(t *testing.T, ch <-chan domain.Round) domain.Round {
	t.Helper()
	select {
	case round := <-ch:
		return round
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for round update")
	}
	return domain.Round{}
}

type stubSource struct {
	questions []domain.Question
	err       error
}

func (s stubSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	return s.questions, s.err
}

type gatedSource struct {
	release   chan struct{}
	questions []domain.Question
}

func (s *gatedSource) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	select {
	case <-s.release:
		return s.questions, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sequenceSource returns sets[n] on its n-th fetch.
type sequenceSource struct {
	mu    sync.Mutex
	calls int
	sets  [][]domain.Question
}

func (s *sequenceSource) FetchQuestions(context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[s.calls%len(s.sets)]
	s.calls++
	return set, nil
}

// heldRoundStore parks each Get while hold is set until the test closes the
// channel it hands out on entered.
type heldRoundStore struct {
	*memory.RoundStore
	hold    atomic.Bool
	entered chan chan struct{}
}

func (s *heldRoundStore) Get(ctx context.Context, clientID string) (domain.Round, error) {
	if s.hold.Load() {
		release := make(chan struct{})
		s.entered <- release
		<-release
	}
	return s.RoundStore.Get(ctx, clientID)
}

type fakeIdentity struct {
	name   string
	set    bool
	ttl    time.Duration
	writes int
}

func (f *fakeIdentity) Username() (string, bool) {
	return f.name, f.set && f.name != ""
}

func (f *fakeIdentity) SetUsername(name string, ttl time.Duration) {
	f.name, f.set, f.ttl = name, true, ttl
	f.writes++
}

func (f *fakeIdentity) ClearUsername() {
	f.name, f.set = "", false
	f.writes++
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Question:         "What is 2 + 2?",
			CorrectAnswer:    "4",
			IncorrectAnswers: []string{"3", "5", "22"},
		},
		{
			Question:         "Capital of France?",
			CorrectAnswer:    "Paris",
			IncorrectAnswers: []string{"Lyon", "Nice", "Lille"},
		},
	}
}
