package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

const anonymousName = "anonymous"

type quizView struct {
	Prefix     string
	RoundID    string
	State      domain.RoundState
	Loading    bool
	Identified bool
	Username   string
	Questions  []domain.RenderedQuestion
	Scores     []scoreRow
}

type scoreRow struct {
	Username string
	Score    int
}

type errorView struct {
	Prefix  string
	Status  int
	Message string
}

func displayName(username string) string {
	if username == "" {
		return anonymousName
	}
	return username
}

func scoreRows(records []domain.ScoreRecord) []scoreRow {
	rows := make([]scoreRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, scoreRow{Username: displayName(rec.Username), Score: rec.Score})
	}
	return rows
}

// parseSelections reads answer{i} form fields into question index -> option value.
func parseSelections(form url.Values) map[int]string {
	selections := make(map[int]string)
	for key, values := range form {
		raw, ok := strings.CutPrefix(key, "answer")
		if !ok || len(values) == 0 {
			continue
		}
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			continue
		}
		selections[idx] = values[0]
	}
	return selections
}

func (s *Server) serveQuiz() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		id := clientID(w, r, s.opts.Secure)
		identity := newCookieIdentity(w, r)

		round, err := s.service.CurrentRound(r.Context(), id)
		if err != nil {
			s.logger.Printf("ERROR: loading round for %s: %v", id, err)
			s.renderError(w, http.StatusInternalServerError, "")
			return
		}
		records, err := s.service.Leaderboard(r.Context(), id)
		if err != nil {
			s.logger.Printf("ERROR: loading scores for %s: %v", id, err)
			s.renderError(w, http.StatusInternalServerError, "")
			return
		}

		username, _ := identity.Username()
		view := quizView{
			Prefix:     s.opts.Prefix,
			RoundID:    round.ID,
			State:      round.State,
			Loading:    round.Loading(),
			Identified: app.IdentityStateOf(identity) == domain.Identified,
			Username:   username,
			Questions:  round.Questions,
			Scores:     scoreRows(records),
		}

		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
			s.logger.Printf("ERROR: rendering quiz page: %v", err)
			s.renderError(w, http.StatusInternalServerError, "")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		s.securityHeaders(w)
		w.WriteHeader(http.StatusOK)
		written, _ := w.Write(buf.Bytes())

		s.logf("SERVE: Quiz page (%s, %d questions, %d bytes) to %s in %s",
			round.State, len(round.Questions), written, realIP(r), since(startTime))
	}
}

func (s *Server) serveSubmit() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			s.renderError(w, http.StatusBadRequest, "")
			return
		}

		id := clientID(w, r, s.opts.Secure)
		identity := newCookieIdentity(w, r)

		result, err := s.service.Submit(r.Context(), id, identity, r.PostFormValue("username"), r.PostFormValue("round"), parseSelections(r.PostForm))
		if errors.Is(err, domain.ErrStaleRound) {
			s.logf("SUBMIT: rejected stale submission from %s: %v", realIP(r), err)
			s.renderError(w, http.StatusConflict, "These questions are no longer current, so your answers were not scored.")
			return
		}
		if err != nil {
			s.logger.Printf("ERROR: submitting answers for %s: %v", id, err)
			s.renderError(w, http.StatusInternalServerError, "")
			return
		}

		s.logf("SUBMIT: %s scored %d/%d from %s", displayName(result.Username), result.Score, result.Total, realIP(r))

		http.Redirect(w, r, s.opts.Prefix+"/", http.StatusSeeOther)
	}
}

func (s *Server) serveNewPlayer() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.service.NewPlayer(newCookieIdentity(w, r))

		s.logf("SERVE: New player from %s", realIP(r))

		http.Redirect(w, r, s.opts.Prefix+"/", http.StatusSeeOther)
	}
}
