package memory

import (
	"context"
	"testing"
)

func TestRankingStoreKeepsHighWaterMark(t *testing.T) {
	ctx := context.Background()
	store := NewRankingStore()

	_ = store.UpsertScore(ctx, "alpha", 800, "Soldado", "11999998888")
	_ = store.UpsertScore(ctx, "alpha", 300, "Cabo", "")
	_ = store.UpsertScore(ctx, "bravo", 500, "Recruta", "21988887777")

	entries, err := store.FetchRanking(ctx, 10)
	if err != nil {
		t.Fatalf("fetch ranking: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Nickname != "ALPHA" || entries[0].Score != 800 {
		t.Fatalf("expected ALPHA to keep 800, got %+v", entries[0])
	}
	if entries[0].Rank != "Cabo" || entries[0].Phone != "11999998888" {
		t.Fatalf("expected rank updated and phone kept, got %+v", entries[0])
	}

	top, _ := store.FetchRanking(ctx, 1)
	if len(top) != 1 {
		t.Fatalf("expected limit applied, got %d", len(top))
	}
}
