package domain

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
)

func TestLadderPromotionClampsAtTop(t *testing.T) {
	ladder := NewLadder(nil)
	if ladder.Len() != 13 {
		t.Fatalf("expected 13 ranks, got %d", ladder.Len())
	}
	if got := ladder.Next("Ferro"); got != "Bronze" {
		t.Fatalf("expected Bronze, got %s", got)
	}
	if got := ladder.Next(ladder.Top()); got != ladder.Top() {
		t.Fatalf("expected clamp at top, got %s", got)
	}
	if got := ladder.Next("COMANDO"); got != "Ferro" {
		t.Fatalf("expected unknown rank to promote to first, got %s", got)
	}
}

func TestPrizeLevelStrictlyIncreasing(t *testing.T) {
	prev := 0
	for i := 0; i < 5000; i++ {
		p := PrizeLevel(i)
		if p <= prev {
			t.Fatalf("prize level %d not increasing: %d <= %d", i, p, prev)
		}
		prev = p
	}
	if PrizeLevel(14) != 1500 {
		t.Fatalf("expected 1500, got %d", PrizeLevel(14))
	}
}

func TestNewQuestionKeepsCorrectOption(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	positions := map[int]int{}
	for i := 0; i < 400; i++ {
		q := NewQuestion(rnd, "q", "text", "right", []string{"a", "b", "c"}, DifficultyRecruta, "cat", "ref", "tip")
		if err := q.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if q.CorrectOption() != "right" {
			t.Fatalf("expected correct option to survive shuffle, got %q", q.CorrectOption())
		}
		positions[q.CorrectAnswer]++
	}
	if len(positions) != 4 {
		t.Fatalf("expected correct answer to land in all 4 slots, got %v", positions)
	}
}

func TestQuestionValidate(t *testing.T) {
	cases := []Question{
		{Text: "x", Options: []string{"a", "b"}},
		{ID: "1", Options: []string{"a", "b"}},
		{ID: "1", Text: "x", Options: []string{"a"}},
		{ID: "1", Text: "x", Options: []string{"a", "b"}, CorrectAnswer: 2},
		{ID: "1", Text: "x", Options: []string{"a", " "}},
	}
	for i, q := range cases {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("case %d: expected invalid question, got %v", i, err)
		}
	}
}

func TestIDSetJSONRoundTrip(t *testing.T) {
	u := User{Nickname: "ALPHA", SeenQuestionIDs: NewIDSet("b", "a")}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out User
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.SeenQuestionIDs.Has("a") || !out.SeenQuestionIDs.Has("b") || len(out.SeenQuestionIDs) != 2 {
		t.Fatalf("unexpected seen set %v", out.SeenQuestionIDs)
	}
}

func TestUserCloneDoesNotAlias(t *testing.T) {
	u := User{SeenQuestionIDs: NewIDSet("a")}
	c := u.Clone()
	c.SeenQuestionIDs.Add("b")
	if u.SeenQuestionIDs.Has("b") {
		t.Fatalf("clone aliased the seen set")
	}
}
