package domain

import (
	"math/rand"
	"sort"
	"testing"
)

const shuffleTrials = 60000

// chiSquare measures how far the permutation counts of a 4-element shuffle
// are from uniform.
func chiSquare(counts map[[4]int]int, trials int) float64 {
	expected := float64(trials) / 24
	chi := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi += d * d / expected
	}
	// permutations never produced count as zero observations
	chi += float64(24-len(counts)) * expected
	return chi
}

func TestShuffleIsUniform(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	counts := make(map[[4]int]int)
	for i := 0; i < shuffleTrials; i++ {
		s := []int{0, 1, 2, 3}
		Shuffle(rnd, s)
		counts[[4]int{s[0], s[1], s[2], s[3]}]++
	}
	if len(counts) != 24 {
		t.Fatalf("expected all 24 permutations, got %d", len(counts))
	}
	// 23 degrees of freedom; 49.7 is the 0.999 quantile.
	if chi := chiSquare(counts, shuffleTrials); chi > 49.7 {
		t.Fatalf("shuffle looks biased: chi-square %.1f", chi)
	}
}

func TestComparatorShuffleIsBiased(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	counts := make(map[[4]int]int)
	for i := 0; i < shuffleTrials; i++ {
		s := []int{0, 1, 2, 3}
		sort.SliceStable(s, func(_, _ int) bool { return rnd.Float64() < 0.5 })
		counts[[4]int{s[0], s[1], s[2], s[3]}]++
	}
	if chi := chiSquare(counts, shuffleTrials); chi <= 49.7 {
		t.Fatalf("expected random comparator to be biased, chi-square %.1f", chi)
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	s := []string{"a", "b", "c", "d", "e"}
	Shuffle(rnd, s)
	sorted := append([]string{}, s...)
	sort.Strings(sorted)
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		if sorted[i] != want {
			t.Fatalf("shuffle lost elements: %v", s)
		}
	}
}
