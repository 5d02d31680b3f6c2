package app

import (
	"sync"

	"trivia-quiz/internal/domain"
)

// roundWatchers fans round updates out to subscribers, keyed by client.
type roundWatchers struct {
	mu   sync.Mutex
	subs map[string]map[*roundWatcher]struct{}
}

type roundWatcher struct {
	ch chan domain.Round
	// published is set once any update reaches ch; a snapshot read before
	// that update would be older, so it is discarded.
	published bool
}

func newRoundWatchers() *roundWatchers {
	return &roundWatchers{subs: make(map[string]map[*roundWatcher]struct{})}
}

// subscribe registers a channel and seeds it with snapshot's round unless a
// newer update was published while the snapshot was being read. snapshot runs
// without the lock held.
func (w *roundWatchers) subscribe(clientID string, snapshot func() (domain.Round, bool, error)) (<-chan domain.Round, func(), error) {
	sub := &roundWatcher{ch: make(chan domain.Round, 8)}

	w.mu.Lock()
	if w.subs[clientID] == nil {
		w.subs[clientID] = make(map[*roundWatcher]struct{})
	}
	w.subs[clientID][sub] = struct{}{}
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		subs := w.subs[clientID]
		if _, ok := subs[sub]; !ok {
			return
		}
		delete(subs, sub)
		close(sub.ch)
		if len(subs) == 0 {
			delete(w.subs, clientID)
		}
	}

	initial, ok, err := snapshot()
	if err != nil {
		cancel()
		return nil, nil, err
	}

	w.mu.Lock()
	if ok && !sub.published {
		sub.ch <- initial
	}
	w.mu.Unlock()

	return sub.ch, cancel, nil
}

func (w *roundWatchers) publish(round domain.Round) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for sub := range w.subs[round.ClientID] {
		sub.published = true
		select {
		case sub.ch <- round:
		default:
			// slow reader: replace its oldest pending update
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- round
		}
	}
}
