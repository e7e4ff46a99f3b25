package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Difficulty labels how hard a question is. It has no effect on scoring.
type Difficulty string

const (
	DifficultyRecruta      Difficulty = "Recruta"
	DifficultyCombatente   Difficulty = "Combatente"
	DifficultyEspecialista Difficulty = "Especialista"
	DifficultyElite        Difficulty = "Elite"
)

// Question is an immutable multiple-choice record. Options are in their final display order.
type Question struct {
	ID            string     `json:"id" yaml:"id"`
	Text          string     `json:"text" yaml:"text"`
	Options       []string   `json:"options" yaml:"options"`
	CorrectAnswer int        `json:"correctAnswer" yaml:"correctAnswer"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Category      string     `json:"category" yaml:"category"`
	Reference     string     `json:"reference" yaml:"reference"`
	Bizu          string     `json:"bizu" yaml:"bizu"`
}

// Validate checks the fields every pooled question must carry.
func (q Question) Validate() error {
	switch {
	case strings.TrimSpace(q.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	case strings.TrimSpace(q.Text) == "":
		return fmt.Errorf("%w: %s: missing text", ErrInvalidQuestion, q.ID)
	case len(q.Options) < 2:
		return fmt.Errorf("%w: %s: needs at least 2 options", ErrInvalidQuestion, q.ID)
	case q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options):
		return fmt.Errorf("%w: %s: correct answer %d out of range", ErrInvalidQuestion, q.ID, q.CorrectAnswer)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: %s: option %d is empty", ErrInvalidQuestion, q.ID, i)
		}
	}
	return nil
}

// CorrectOption returns the text of the right answer.
func (q Question) CorrectOption() string {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectAnswer]
}

// View strips the answer key for display.
func (q Question) View() QuestionView {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    opts,
		Difficulty: q.Difficulty,
		Category:   q.Category,
	}
}

// QuestionView is what a player sees while answering.
type QuestionView struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
}

// IDSet is a set of question IDs. It serializes as a sorted JSON array.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Slice returns the IDs in sorted order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// User is a player profile, keyed by its upper-cased nickname.
type User struct {
	Nickname        string    `json:"nickname"`
	Phone           string    `json:"phone"`
	Score           int       `json:"score"` // best-ever session score, never lowered
	Rank            string    `json:"rank"`
	LastPlayed      time.Time `json:"lastPlayed"`
	IsAdmin         bool      `json:"isAdmin"`
	SeenQuestionIDs IDSet     `json:"seenQuestionIds"`
}

// Clone returns a deep copy so callers can mutate without aliasing the seen set.
func (u User) Clone() User {
	out := u
	if u.SeenQuestionIDs != nil {
		out.SeenQuestionIDs = u.SeenQuestionIDs.Clone()
	} else {
		out.SeenQuestionIDs = NewIDSet()
	}
	return out
}

// NormalizeNickname trims and upper-cases a nickname into its storage key.
func NormalizeNickname(nickname string) string {
	return strings.ToUpper(strings.TrimSpace(nickname))
}

// RankingEntry is a row of the remote ranking. It may lag behind local state.
type RankingEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Rank     string `json:"rank"`
	Phone    string `json:"phone,omitempty"`
}

// Subscriber is the admin view of a registered player.
type Subscriber struct {
	Nickname  string    `json:"nickname"`
	Phone     string    `json:"phone"`
	Score     int       `json:"score"`
	Rank      string    `json:"rank"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lifelines holds the remaining uses of each lifeline in a session.
type Lifelines struct {
	Skip     int `json:"skip" yaml:"skip"`
	Sergeant int `json:"sergeant" yaml:"sergeant"`
	Meta     int `json:"metaMeta" yaml:"meta"`
}

// State is the coarse session state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateEnded   State = "correction"
)

// Correction is shown after a wrong answer.
type Correction struct {
	QuestionID    string `json:"questionId"`
	Text          string `json:"text"`
	CorrectOption string `json:"correctOption"`
	Reference     string `json:"reference"`
	Selected      int    `json:"selected"`
}

// Snapshot is a read-only copy of the session for presentation.
type Snapshot struct {
	SessionID          string        `json:"sessionId"`
	State              State         `json:"state"`
	Nickname           string        `json:"nickname,omitempty"`
	Rank               string        `json:"rank,omitempty"`
	BestScore          int           `json:"bestScore"`
	Question           *QuestionView `json:"question,omitempty"`
	Index              int           `json:"index"`
	Score              int           `json:"score"`
	Target             int           `json:"target"`
	ConsecutiveCorrect int           `json:"consecutiveCorrect"`
	Lifelines          Lifelines     `json:"lifelines"`
	HiddenOptions      []int         `json:"hiddenOptions"`
	SelectedAnswer     *int          `json:"selectedAnswer"`
	Locked             bool          `json:"locked"`
	Hint               string        `json:"hint,omitempty"`
	Promotion          string        `json:"promotion,omitempty"`
	SeenCount          int           `json:"seenCount"`
	PoolSize           int           `json:"poolSize"`
	Correction         *Correction   `json:"correction,omitempty"`
}

// AnswerResult summarizes the outcome of one submitted answer.
type AnswerResult struct {
	QuestionID    string `json:"questionId"`
	Selected      int    `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	Prize         int    `json:"prize"`
	Promoted      string `json:"promoted,omitempty"`
	Ended         bool   `json:"ended"`
}

// EventType names a session notification.
type EventType string

const (
	EventStarted    EventType = "started"
	EventAdvanced   EventType = "advanced"
	EventPromoted   EventType = "promoted"
	EventEnded      EventType = "correction"
	EventHint       EventType = "hint"
	EventReset      EventType = "cycleReset"
	EventSuperseded EventType = "superseded" // another connection took over the player
)

// Event is pushed to subscribers after a transition.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}
