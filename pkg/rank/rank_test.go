package rank

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"forumdb/pkg/models"
)

func ids(threads []models.Thread) []string {
	out := make([]string, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.ID)
	}
	return out
}

func TestRankFiltersLockedAndDeleted(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", CreatedTS: 3},
		{ID: "b", CreatedTS: 2, Locked: true},
		{ID: "c", CreatedTS: 1, Deleted: true},
	}
	got := Rank(threads, models.SortNewest, Filters{})
	if !reflect.DeepEqual(ids(got), []string{"a"}) {
		t.Fatalf("expected only a, got %v", ids(got))
	}
	got = Rank(threads, models.SortNewest, Filters{ShowLocked: true})
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) {
		t.Fatalf("expected a,b, got %v", ids(got))
	}
	got = Rank(threads, models.SortNewest, Filters{ShowLocked: true, ShowDeleted: true})
	if !reflect.DeepEqual(ids(got), []string{"a", "b", "c"}) {
		t.Fatalf("expected a,b,c, got %v", ids(got))
	}
}

func TestRankPinnedFirstEveryMode(t *testing.T) {
	threads := []models.Thread{
		{ID: "old-pinned", CreatedTS: 1, UpdatedTS: 2, MessageCount: 0, Pinned: true},
		{ID: "busy", CreatedTS: 5, UpdatedTS: 50, MessageCount: 99},
		{ID: "fresh", CreatedTS: 100, UpdatedTS: 100, MessageCount: 1},
	}
	for _, mode := range []models.SortMode{"", models.SortPinned, models.SortNewest, models.SortActive, models.SortUpvoted} {
		got := Rank(threads, mode, Filters{})
		if got[0].ID != "old-pinned" {
			t.Fatalf("mode %q: expected pinned thread first, got %v", mode, ids(got))
		}
	}
}

func TestRankNewest(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", CreatedTS: 1},
		{ID: "b", CreatedTS: 3},
		{ID: "c", CreatedTS: 2},
	}
	got := Rank(threads, models.SortNewest, Filters{})
	if !reflect.DeepEqual(ids(got), []string{"b", "c", "a"}) {
		t.Fatalf("unexpected newest order: %v", ids(got))
	}
}

func TestRankActiveFallsBackToCreated(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", CreatedTS: 10}, // no activity recorded
		{ID: "b", CreatedTS: 1, UpdatedTS: 20},
		{ID: "c", CreatedTS: 5, UpdatedTS: 5},
	}
	got := Rank(threads, models.SortActive, Filters{})
	if !reflect.DeepEqual(ids(got), []string{"b", "a", "c"}) {
		t.Fatalf("unexpected active order: %v", ids(got))
	}
}

func TestRankUpvotedTiesBreakByCreated(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", CreatedTS: 1, MessageCount: 5},
		{ID: "b", CreatedTS: 9, MessageCount: 5},
		{ID: "c", CreatedTS: 4, MessageCount: 7},
	}
	got := Rank(threads, models.SortUpvoted, Filters{})
	if !reflect.DeepEqual(ids(got), []string{"c", "b", "a"}) {
		t.Fatalf("unexpected upvoted order: %v", ids(got))
	}
}

func TestRankStableOnEqualRank(t *testing.T) {
	threads := []models.Thread{
		{ID: "first", CreatedTS: 7},
		{ID: "second", CreatedTS: 7},
		{ID: "third", CreatedTS: 7},
	}
	got := Rank(threads, models.SortNewest, Filters{})
	if !reflect.DeepEqual(ids(got), []string{"first", "second", "third"}) {
		t.Fatalf("equal-ranked threads reordered: %v", ids(got))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	threads := []models.Thread{
		{ID: "a", CreatedTS: 1},
		{ID: "b", CreatedTS: 2},
	}
	orig := append([]models.Thread(nil), threads...)
	Rank(threads, models.SortNewest, Filters{})
	if !reflect.DeepEqual(threads, orig) {
		t.Fatalf("input mutated: %v", ids(threads))
	}
}

func genThreads(t *rapid.T) []models.Thread {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	out := make([]models.Thread, n)
	for i := range out {
		out[i] = models.Thread{
			ID:           fmt.Sprintf("t%d", i),
			CreatedTS:    rapid.Int64Range(0, 100).Draw(t, "created"),
			UpdatedTS:    rapid.Int64Range(0, 100).Draw(t, "updated"),
			MessageCount: rapid.IntRange(0, 10).Draw(t, "count"),
			Pinned:       rapid.Bool().Draw(t, "pinned"),
			Locked:       rapid.Bool().Draw(t, "locked"),
			Deleted:      rapid.Bool().Draw(t, "deleted"),
		}
	}
	return out
}

func TestRankIdempotentRapid(t *testing.T) {
	modes := []models.SortMode{models.SortPinned, models.SortNewest, models.SortActive, models.SortUpvoted}
	rapid.Check(t, func(t *rapid.T) {
		threads := genThreads(t)
		mode := modes[rapid.IntRange(0, len(modes)-1).Draw(t, "mode")]
		f := Filters{
			ShowLocked:  rapid.Bool().Draw(t, "showLocked"),
			ShowDeleted: rapid.Bool().Draw(t, "showDeleted"),
		}
		once := Rank(threads, mode, f)
		twice := Rank(once, mode, f)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("rank not idempotent:\n%v\nvs\n%v", ids(once), ids(twice))
		}

		// the sort never drops anything the filter admitted
		admitted := 0
		for _, th := range threads {
			if (th.Locked && !f.ShowLocked) || (th.Deleted && !f.ShowDeleted) {
				continue
			}
			admitted++
		}
		if len(once) != admitted {
			t.Fatalf("expected %d threads after filter, got %d", admitted, len(once))
		}
	})
}
