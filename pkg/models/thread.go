package models

// SortMode selects the ordering applied to a thread listing.
type SortMode string

const (
	SortPinned  SortMode = "pinned"
	SortNewest  SortMode = "newest"
	SortActive  SortMode = "active"
	SortUpvoted SortMode = "upvoted"
)

// ValidSortMode reports whether s is one of the supported listing orders.
// The empty string is accepted and means "use the default" (SortPinned).
func ValidSortMode(s SortMode) bool {
	switch s {
	case "", SortPinned, SortNewest, SortActive, SortUpvoted:
		return true
	}
	return false
}

type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// Author is an opaque identity id; clients manage its meaning.
	Author string `json:"author"`
	// Slug is generated from title and id for human-friendly URLs
	Slug string `json:"slug,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time metadata or thread activity changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// Pinned threads sort ahead of everything else in listings.
	Pinned bool `json:"pinned,omitempty"`
	// Locked threads are hidden from listings unless explicitly requested.
	Locked bool `json:"locked,omitempty"`
	// Deleted marks a thread as soft-deleted; DeletedTS records deletion time (ns)
	Deleted   bool  `json:"deleted,omitempty"`
	DeletedTS int64 `json:"deleted_ts,omitempty"`
	// MessageCount is the number of stored messages, used as the
	// engagement proxy for the "upvoted" sort.
	MessageCount int `json:"message_count,omitempty"`
}

// LastActive returns the activity timestamp used by the "active" sort:
// UpdatedTS when set, CreatedTS otherwise.
func (t Thread) LastActive() int64 {
	if t.UpdatedTS != 0 {
		return t.UpdatedTS
	}
	return t.CreatedTS
}
