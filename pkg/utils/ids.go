package utils

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
)

var idSeq uint64

// GenID returns a new message ID. Nanosecond timestamp plus a process
// counter keeps IDs unique and roughly sortable.
func GenID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenThreadID returns a new thread ID.
func GenThreadID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("thread-%d-%d", n, s)
}

// MakeSlug derives a URL-friendly slug from a thread title and ID. The
// ID suffix keeps slugs unique across identical titles.
func MakeSlug(title, id string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return id
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug + "-" + id
}
