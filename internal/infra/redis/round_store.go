package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-quiz/internal/domain"
)

// RoundStore keeps each client's rendered round as JSON under
// trivia:{clientID}:round, expiring after ttl plus up to 10% jitter.
type RoundStore struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRoundStore(client *redis.Client, ttl time.Duration) *RoundStore {
	return &RoundStore{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *RoundStore) Get(ctx context.Context, clientID string) (domain.Round, error) {
	raw, err := s.client.Get(ctx, s.key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("get round: %w", err)
	}
	var round domain.Round
	if err := json.Unmarshal(raw, &round); err != nil {
		return domain.Round{}, fmt.Errorf("unmarshal round: %w", err)
	}
	return round, nil
}

func (s *RoundStore) Put(ctx context.Context, round domain.Round) error {
	raw, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	if err := s.client.Set(ctx, s.key(round.ClientID), raw, s.ttlWithJitter()).Err(); err != nil {
		return fmt.Errorf("put round: %w", err)
	}
	return nil
}

func (s *RoundStore) key(clientID string) string {
	return "trivia:" + clientID + ":round"
}

func (s *RoundStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
