package models

// TreeNode pairs a stored message with its resolved replies. Nodes are
// built per request by pkg/tree and never persisted.
type TreeNode struct {
	Message
	// Children are ordered by TS ascending (ties keep input order).
	Children []*TreeNode `json:"children"`
	// Depth is 0 for roots and min(parent depth+1, maxDepth) otherwise.
	Depth int `json:"depth"`
}
