package tree

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"forumdb/pkg/models"
)

func msg(id, replyTo string, ts int64) models.Message {
	return models.Message{ID: id, ReplyTo: replyTo, TS: ts}
}

func TestBuildEmpty(t *testing.T) {
	roots := Build(nil, 0)
	if len(roots) != 0 {
		t.Fatalf("expected empty forest, got %d roots", len(roots))
	}
}

func TestBuildSingleRoot(t *testing.T) {
	roots := Build([]models.Message{msg("a", "", 1)}, 0)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	if roots[0].ID != "a" || roots[0].Depth != 0 || len(roots[0].Children) != 0 {
		t.Fatalf("unexpected root: %+v", roots[0])
	}
}

func TestBuildNesting(t *testing.T) {
	msgs := []models.Message{
		msg("a", "", 1),
		msg("b", "a", 2),
		msg("c", "a", 3),
		msg("d", "b", 4),
	}
	roots := Build(msgs, 0)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	a := roots[0]
	if len(a.Children) != 2 || a.Children[0].ID != "b" || a.Children[1].ID != "c" {
		t.Fatalf("unexpected children of a: %+v", a.Children)
	}
	b := a.Children[0]
	if len(b.Children) != 1 || b.Children[0].ID != "d" || b.Children[0].Depth != 2 {
		t.Fatalf("unexpected children of b: %+v", b.Children)
	}
}

func TestBuildOrphanAndSelfParentBecomeRoots(t *testing.T) {
	msgs := []models.Message{
		msg("a", "", 1),
		msg("b", "missing", 2),
		msg("c", "c", 3),
	}
	roots := Build(msgs, 0)
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(roots))
	}
	for _, r := range roots {
		if r.Depth != 0 {
			t.Fatalf("root %s has depth %d", r.ID, r.Depth)
		}
	}
}

func TestBuildMutualCycleKeepsBothNodes(t *testing.T) {
	msgs := []models.Message{
		msg("a", "b", 1),
		msg("b", "a", 2),
	}
	roots := Build(msgs, 0)
	flat := Flatten(roots)
	if len(flat) != 2 {
		t.Fatalf("expected both cycle members in forest, got %d nodes", len(flat))
	}
	// the earlier record attaches under the later one; the later record,
	// whose attach would close the loop, is promoted to a root
	if len(roots) != 1 || roots[0].ID != "b" {
		t.Fatalf("expected b as cycle root, got %+v", roots)
	}
	if len(roots[0].Children) != 1 || roots[0].Children[0].ID != "a" {
		t.Fatalf("expected a under b, got %+v", roots[0].Children)
	}
	if roots[0].Depth != 0 || roots[0].Children[0].Depth != 1 {
		t.Fatalf("cycle members missing depth assignment: %+v", roots[0])
	}
}

func TestBuildLongerCycleWithTail(t *testing.T) {
	msgs := []models.Message{
		msg("a", "c", 1),
		msg("b", "a", 2),
		msg("c", "b", 3),
		msg("d", "a", 4), // ordinary reply hanging off the cycle
	}
	flat := Flatten(Build(msgs, 0))
	if len(flat) != 4 {
		t.Fatalf("expected all 4 messages in forest, got %d nodes", len(flat))
	}
	seen := make(map[string]bool, len(flat))
	for _, n := range flat {
		seen[n.ID] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !seen[id] {
			t.Fatalf("message %s missing from forest", id)
		}
	}
}

func TestBuildDuplicateIDsLastWriteWins(t *testing.T) {
	msgs := []models.Message{
		{ID: "a", TS: 1, Body: "first"},
		{ID: "a", TS: 2, Body: "second"},
	}
	roots := Build(msgs, 0)
	if len(roots) != 1 {
		t.Fatalf("expected duplicate ids to collapse to 1 root, got %d", len(roots))
	}
	if roots[0].Body != "second" {
		t.Fatalf("expected last write to win, got body %v", roots[0].Body)
	}
}

func TestBuildDepthSaturation(t *testing.T) {
	// chain of 12 replies with maxDepth 10: the last two report depth 10
	// but still attach to their true parents
	var msgs []models.Message
	for i := 0; i < 12; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("m%d", i-1)
		}
		msgs = append(msgs, msg(fmt.Sprintf("m%d", i), parent, int64(i+1)))
	}
	roots := Build(msgs, 10)
	if len(roots) != 1 {
		t.Fatalf("expected single chain root, got %d", len(roots))
	}
	n := roots[0]
	for i := 0; i < 12; i++ {
		want := i
		if want > 10 {
			want = 10
		}
		if n.Depth != want {
			t.Fatalf("node %s: depth %d, want %d", n.ID, n.Depth, want)
		}
		if i < 11 {
			if len(n.Children) != 1 {
				t.Fatalf("node %s: expected 1 child, got %d", n.ID, len(n.Children))
			}
			n = n.Children[0]
		}
	}
}

func TestBuildTimestampSkew(t *testing.T) {
	// reply recorded with an earlier timestamp than its parent still
	// attaches under the parent and reports the structural depth
	msgs := []models.Message{
		msg("parent", "", 100),
		msg("child", "parent", 50),
	}
	roots := Build(msgs, 0)
	if len(roots) != 1 || roots[0].ID != "parent" {
		t.Fatalf("expected parent as sole root, got %+v", roots)
	}
	if len(roots[0].Children) != 1 || roots[0].Children[0].Depth != 1 {
		t.Fatalf("expected child at depth 1, got %+v", roots[0].Children)
	}
}

func TestBuildSiblingOrderChronologicalStable(t *testing.T) {
	msgs := []models.Message{
		msg("a", "", 1),
		msg("c", "a", 5),
		msg("b", "a", 2),
		msg("d", "a", 5), // same ts as c, input order breaks the tie
	}
	roots := Build(msgs, 0)
	got := make([]string, 0, 3)
	for _, c := range roots[0].Children {
		got = append(got, c.ID)
	}
	if strings.Join(got, ",") != "b,c,d" {
		t.Fatalf("unexpected sibling order: %v", got)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	msgs := []models.Message{
		msg("b", "a", 2),
		msg("a", "", 1),
	}
	Build(msgs, 0)
	if msgs[0].ID != "b" || msgs[1].ID != "a" {
		t.Fatalf("input slice was reordered: %+v", msgs)
	}
}

func TestFlattenPreOrder(t *testing.T) {
	msgs := []models.Message{
		msg("a", "", 1),
		msg("b", "a", 2),
		msg("d", "b", 3),
		msg("c", "a", 4),
		msg("e", "", 5),
	}
	flat := Flatten(Build(msgs, 0))
	got := make([]string, 0, len(flat))
	for _, n := range flat {
		got = append(got, n.ID)
	}
	if strings.Join(got, ",") != "a,b,d,c,e" {
		t.Fatalf("unexpected pre-order: %v", got)
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Fatalf("expected empty flatten, got %d", len(got))
	}
}

func TestFindByID(t *testing.T) {
	msgs := []models.Message{
		msg("a", "", 1),
		msg("b", "a", 2),
		msg("c", "b", 3),
	}
	roots := Build(msgs, 0)
	if n := FindByID(roots, "c"); n == nil || n.Depth != 2 {
		t.Fatalf("expected to find c at depth 2, got %+v", n)
	}
	if n := FindByID(roots, "zzz"); n != nil {
		t.Fatalf("expected nil for missing id, got %+v", n)
	}
}

// genMessages draws a batch of messages with unique ids and parents
// chosen from the batch itself, a missing id, self, or none.
func genMessages(t *rapid.T) []models.Message {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	msgs := make([]models.Message, n)
	for i := range msgs {
		id := fmt.Sprintf("m%d", i)
		parent := ""
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0: // top-level
		case 1:
			parent = fmt.Sprintf("m%d", rapid.IntRange(0, n-1).Draw(t, "p"))
		case 2:
			parent = "missing-parent"
		case 3:
			parent = id
		}
		msgs[i] = models.Message{
			ID:      id,
			ReplyTo: parent,
			TS:      rapid.Int64Range(0, 1000).Draw(t, "ts"),
		}
	}
	return msgs
}

func TestBuildPropertiesRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msgs := genMessages(t)
		maxDepth := rapid.IntRange(1, 15).Draw(t, "maxDepth")
		flat := Flatten(Build(msgs, maxDepth))

		// completeness and no duplication: every id exactly once
		seen := make(map[string]bool, len(flat))
		for _, n := range flat {
			if seen[n.ID] {
				t.Fatalf("duplicate node %s", n.ID)
			}
			seen[n.ID] = true
			if n.Depth < 0 || n.Depth > maxDepth {
				t.Fatalf("node %s depth %d out of [0,%d]", n.ID, n.Depth, maxDepth)
			}
		}
		ids := make(map[string]bool, len(msgs))
		for _, m := range msgs {
			ids[m.ID] = true
		}
		if len(flat) != len(ids) {
			t.Fatalf("flatten length %d, distinct ids %d", len(flat), len(ids))
		}
		for id := range ids {
			if !seen[id] {
				t.Fatalf("message %s missing from forest", id)
			}
		}
	})
}

func TestBuildChildrenChronologicalRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		roots := Build(genMessages(t), 0)
		for _, n := range Flatten(roots) {
			for i := 1; i < len(n.Children); i++ {
				if n.Children[i-1].TS > n.Children[i].TS {
					t.Fatalf("children of %s not chronological: %d > %d",
						n.ID, n.Children[i-1].TS, n.Children[i].TS)
				}
			}
		}
	})
}

// shape serializes a forest for structural comparison.
func shape(nodes []*models.TreeNode) string {
	var b strings.Builder
	var walk func(n *models.TreeNode)
	walk = func(n *models.TreeNode) {
		fmt.Fprintf(&b, "%s@%d(", n.ID, n.Depth)
		for _, c := range n.Children {
			walk(c)
		}
		b.WriteString(")")
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

func TestBuildOrderIndependenceRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msgs := genMessages(t)
		// distinct timestamps make the structure permutation-invariant;
		// equal timestamps are legitimately tie-broken by input order
		for i := range msgs {
			msgs[i].TS = int64(i * 10)
		}
		base := shape(Build(msgs, 0))

		perm := rapid.Permutation(msgs).Draw(t, "perm")
		if got := shape(Build(perm, 0)); got != base {
			t.Fatalf("forest depends on input order:\n%s\nvs\n%s", base, got)
		}
	})
}
