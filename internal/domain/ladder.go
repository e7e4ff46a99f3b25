package domain

// DefaultRanks is the promotion ladder, least to most prestigious.
var DefaultRanks = []string{
	"Ferro", "Bronze", "Prata", "Ouro", "Platina", "Esmeralda", "Diamante",
	"Mestre", "Grão-Mestre", "Lenda", "Imortal", "Elite do CFN", "Marechal do Cabão",
}

// PrizeStep is the score gained per question index.
const PrizeStep = 100

// PrizeLevel returns the session score after answering the question at index i.
// The sequence is unbounded and strictly increasing.
func PrizeLevel(i int) int {
	if i < 0 {
		return 0
	}
	return (i + 1) * PrizeStep
}

// Ladder is an ordered rank sequence. Only position matters.
type Ladder struct {
	ranks []string
}

// NewLadder copies ranks; an empty input falls back to DefaultRanks.
func NewLadder(ranks []string) Ladder {
	if len(ranks) == 0 {
		ranks = DefaultRanks
	}
	cp := make([]string, len(ranks))
	copy(cp, ranks)
	return Ladder{ranks: cp}
}

func (l Ladder) Len() int { return len(l.ranks) }

// First is the rank new players start at.
func (l Ladder) First() string { return l.ranks[0] }

// Top is the most prestigious rank.
func (l Ladder) Top() string { return l.ranks[len(l.ranks)-1] }

// Index returns the position of rank, or -1 when it is not on the ladder.
func (l Ladder) Index(rank string) int {
	for i, r := range l.ranks {
		if r == rank {
			return i
		}
	}
	return -1
}

// Next returns the rank one step above, clamped at the top.
// A rank that is not on the ladder promotes to the first rank.
func (l Ladder) Next(rank string) string {
	idx := l.Index(rank) + 1
	if idx >= len(l.ranks) {
		idx = len(l.ranks) - 1
	}
	return l.ranks[idx]
}

// Ranks returns a copy of the ladder.
func (l Ladder) Ranks() []string {
	out := make([]string, len(l.ranks))
	copy(out, l.ranks)
	return out
}
