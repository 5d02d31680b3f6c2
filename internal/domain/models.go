package domain

import "time"

// Question is a multiple-choice question as delivered by the trivia API.
type Question struct {
	Category         string   `json:"category,omitempty" yaml:"category,omitempty"`
	Type             string   `json:"type,omitempty" yaml:"type,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Question         string   `json:"question" yaml:"question"`
	CorrectAnswer    string   `json:"correct_answer" yaml:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers" yaml:"incorrect_answers"`
}

// AnswerOption is one rendered answer control.
type AnswerOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// RenderedQuestion is a question with its options in display order.
type RenderedQuestion struct {
	Index   int            `json:"index"`
	Text    string         `json:"text"`
	Options []AnswerOption `json:"options"`
}

// RoundState tracks whether the question area is waiting on a fetch.
type RoundState string

const (
	RoundLoading RoundState = "loading"
	RoundShowing RoundState = "showing"
)

// Round is the question set currently rendered for one client.
type Round struct {
	ID        string             `json:"id"`
	ClientID  string             `json:"clientId"`
	State     RoundState         `json:"state"`
	Questions []RenderedQuestion `json:"questions"`
	StartedAt time.Time          `json:"startedAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Loading reports whether the round is still waiting for questions.
func (r Round) Loading() bool {
	return r.State == RoundLoading
}

// ScoreRecord is one ledger entry. An empty Username means none was known
// at submission time.
type ScoreRecord struct {
	Username   string    `json:"username,omitempty"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"-"`
}

// IdentityState drives which identity controls the page shows.
type IdentityState int

const (
	Anonymous IdentityState = iota
	Identified
)

func (s IdentityState) String() string {
	if s == Identified {
		return "identified"
	}
	return "anonymous"
}
