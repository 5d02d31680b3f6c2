package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"trivia-quiz/internal/domain"
)

type scoreJSON struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type questionJSON struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// roundJSON is the public view of a round. Correctness markers stay server side.
type roundJSON struct {
	ID        string            `json:"id"`
	State     domain.RoundState `json:"state"`
	Questions []questionJSON    `json:"questions"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func publicRound(round domain.Round) roundJSON {
	out := roundJSON{
		ID:        round.ID,
		State:     round.State,
		Questions: make([]questionJSON, 0, len(round.Questions)),
		UpdatedAt: round.UpdatedAt,
	}
	for _, q := range round.Questions {
		options := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, opt.Text)
		}
		out.Questions = append(out.Questions, questionJSON{Index: q.Index, Text: q.Text, Options: options})
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	s.securityHeaders(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("ERROR: encoding response: %v", err)
	}
}

func (s *Server) serveScores() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := clientID(w, r, s.opts.Secure)
		records, err := s.service.Leaderboard(r.Context(), id)
		if err != nil {
			s.logger.Printf("ERROR: loading scores for %s: %v", id, err)
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load scores"})
			return
		}
		out := make([]scoreJSON, 0, len(records))
		for _, rec := range records {
			out = append(out, scoreJSON{Username: displayName(rec.Username), Score: rec.Score})
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) serveRound() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := clientID(w, r, s.opts.Secure)
		round, err := s.service.CurrentRound(r.Context(), id)
		if err != nil {
			s.logger.Printf("ERROR: loading round for %s: %v", id, err)
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load round"})
			return
		}
		s.writeJSON(w, http.StatusOK, publicRound(round))
	}
}
