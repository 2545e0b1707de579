package rank

import (
	"sort"

	"forumdb/pkg/models"
)

// Filters controls which threads survive the visibility pass that runs
// before ordering. Filtering is independent of the sort mode; the sort
// itself never drops a thread.
type Filters struct {
	ShowLocked  bool
	ShowDeleted bool
}

// Rank filters and orders a thread listing. Locked threads are dropped
// unless f.ShowLocked, soft-deleted threads unless f.ShowDeleted. Pinned
// threads always sort ahead of unpinned ones; inside each partition the
// mode comparator applies:
//
//	pinned (default) / newest: created_ts descending
//	active:  updated_ts (created_ts when unset) descending
//	upvoted: message_count descending, ties created_ts descending
//
// The sort is stable, so equal-ranked threads keep their input order and
// applying Rank to its own output is a no-op. The input slice is not
// mutated.
func Rank(threads []models.Thread, mode models.SortMode, f Filters) []models.Thread {
	out := make([]models.Thread, 0, len(threads))
	for _, t := range threads {
		if t.Locked && !f.ShowLocked {
			continue
		}
		if t.Deleted && !f.ShowDeleted {
			continue
		}
		out = append(out, t)
	}

	if mode == "" {
		mode = models.SortPinned
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		switch mode {
		case models.SortActive:
			return a.LastActive() > b.LastActive()
		case models.SortUpvoted:
			if a.MessageCount != b.MessageCount {
				return a.MessageCount > b.MessageCount
			}
			return a.CreatedTS > b.CreatedTS
		default:
			return a.CreatedTS > b.CreatedTS
		}
	})
	return out
}
