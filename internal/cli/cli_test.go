package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cabao-quiz-service/internal/config"
	"cabao-quiz-service/internal/domain"
	"github.com/fatih/color"
)

func TestPolicyFromConfigDefaults(t *testing.T) {
	p := policyFromConfig(config.Quiz{})
	if p.PromotionStreak != 15 || p.SettleDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if p.Lifelines != (domain.Lifelines{Skip: 3, Sergeant: 2, Meta: 1}) {
		t.Fatalf("unexpected lifelines %+v", p.Lifelines)
	}
	if p.Ladder.Len() != len(domain.DefaultRanks) {
		t.Fatalf("expected default ladder")
	}
}

func TestPolicyFromConfigOverrides(t *testing.T) {
	q := config.Quiz{PromotionStreak: 5, Ranks: []string{"Soldado", "Cabo"}, SettleDelay: "10ms"}
	q.Lifelines.Skip = 1
	p := policyFromConfig(q)
	if p.PromotionStreak != 5 || p.SettleDelay != 10*time.Millisecond {
		t.Fatalf("overrides ignored %+v", p)
	}
	if p.Ladder.Top() != "Cabo" || p.Lifelines.Skip != 1 || p.Lifelines.Meta != 1 {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestPrintRanking(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	printRanking(&buf, []domain.RankingEntry{
		{Nickname: "ALFA", Rank: "Cabo", Score: 1000},
		{Nickname: "BRAVO", Rank: "Soldado", Score: 500},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "1") || !strings.Contains(lines[1], "ALFA") {
		t.Fatalf("unexpected first row %q", lines[1])
	}

	buf.Reset()
	printRanking(&buf, nil)
	if buf.String() != "ranking is empty\n" {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}
