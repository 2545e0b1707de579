package tree

import (
	"sort"

	"forumdb/pkg/models"
)

// DefaultMaxDepth is the reported-depth cap applied when callers pass a
// non-positive maxDepth. Nodes below the cap still attach to their true
// parent; only the Depth field saturates.
const DefaultMaxDepth = 10

// Build converts a flat, unordered message batch into a forest of reply
// trees. The result is deterministic for any permutation of msgs: records
// are sorted chronologically (stable, missing timestamps first) before
// children are attached, so sibling order is always TS ascending with
// input order breaking ties.
//
// Policy, not errors: a ReplyTo that does not resolve within the batch
// (deleted or excluded parent) makes the record a root; a record naming
// itself as parent is treated the same way; reply chains that loop are
// broken at the record whose attach would close the loop, which becomes
// a root; duplicate IDs collapse into one node, last write wins. Build
// never fails and never mutates msgs.
func Build(msgs []models.Message, maxDepth int) []*models.TreeNode {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	roots := make([]*models.TreeNode, 0, len(msgs))
	if len(msgs) == 0 {
		return roots
	}

	nodes := make(map[string]*models.TreeNode, len(msgs))
	for _, m := range msgs {
		nodes[m.ID] = &models.TreeNode{Message: m}
	}

	order := append([]models.Message(nil), msgs...)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].TS < order[j].TS
	})

	// Attach each node exactly once, in chronological order. An attach
	// that would loop back to the node itself (mutual or longer reply_to
	// cycles) is refused and the node becomes a root instead, so every
	// record stays reachable from the root list.
	attached := make(map[string]bool, len(order))
	parentOf := make(map[string]string, len(order))
	for _, m := range order {
		n := nodes[m.ID]
		if attached[m.ID] {
			continue
		}
		attached[m.ID] = true
		parent, ok := nodes[m.ReplyTo]
		if !ok || m.ReplyTo == "" || m.ReplyTo == m.ID || closesCycle(parentOf, m.ID, m.ReplyTo) {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		parentOf[m.ID] = m.ReplyTo
	}

	// Depth assignment runs after the whole forest is linked so it holds
	// regardless of timestamp skew between parents and replies.
	assignDepths(roots, maxDepth)
	return roots
}

// closesCycle walks the accepted parent chain upward from parent and
// reports whether it reaches child. The chain is acyclic by induction
// (every accepted edge passed this check), so the walk terminates.
func closesCycle(parentOf map[string]string, child, parent string) bool {
	for p := parent; p != ""; p = parentOf[p] {
		if p == child {
			return true
		}
	}
	return false
}

// assignDepths walks the forest and sets Depth = min(parent+1, maxDepth).
func assignDepths(roots []*models.TreeNode, maxDepth int) {
	type frame struct {
		node  *models.TreeNode
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, frame{r, 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f.node.Depth = f.depth
		child := f.depth + 1
		if child > maxDepth {
			child = maxDepth
		}
		for _, c := range f.node.Children {
			stack = append(stack, frame{c, child})
		}
	}
}

// Flatten returns the forest as a flat pre-order sequence: every node
// precedes its descendants and siblings keep the order established by
// Build. The input is not mutated and the result length always equals
// the total node count reachable from nodes.
func Flatten(nodes []*models.TreeNode) []*models.TreeNode {
	out := make([]*models.TreeNode, 0, len(nodes))
	stack := make([]*models.TreeNode, 0, len(nodes))
	// seed in reverse so pops come out in forest order
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// FindByID returns the first pre-order node whose message ID matches id,
// or nil when the forest does not contain it.
func FindByID(nodes []*models.TreeNode, id string) *models.TreeNode {
	stack := make([]*models.TreeNode, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, nodes[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return n
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil
}
