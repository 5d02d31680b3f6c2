package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
)

// RoundStore is an in-memory implementation of app.RoundStore. Rounds expire
// after ttl (plus jitter); a zero ttl keeps them forever.
type RoundStore struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu     sync.RWMutex
	rounds map[string]storedRound
}

type storedRound struct {
	round     domain.Round
	expiresAt time.Time
}

func NewRoundStore(ttl time.Duration) *RoundStore {
	return &RoundStore{
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		rounds: make(map[string]storedRound),
	}
}

func (s *RoundStore) Get(_ context.Context, clientID string) (domain.Round, error) {
	now := s.clock()

	s.mu.RLock()
	entry, ok := s.rounds[clientID]
	s.mu.RUnlock()

	if !ok {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		s.mu.Lock()
		if current, ok := s.rounds[clientID]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(s.rounds, clientID)
		}
		s.mu.Unlock()
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return entry.round, nil
}

func (s *RoundStore) Put(_ context.Context, round domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := storedRound{round: round}
	if ttl := s.ttlWithJitter(); ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.rounds[round.ClientID] = entry
	return nil
}

// ttlWithJitter must be called with s.mu held; rand.Rand is not goroutine safe.
func (s *RoundStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
