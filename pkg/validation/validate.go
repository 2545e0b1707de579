package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Limits are the configured message constraints. Zero values disable
// the corresponding check.
type Limits struct {
	// MaxBodyBytes bounds the JSON-encoded size of a message body.
	MaxBodyBytes int64
	// MaxTitleLen bounds thread title length in bytes.
	MaxTitleLen int
}

var limits atomic.Pointer[Limits]

// SetLimits installs the process-wide validation limits.
func SetLimits(l Limits) { limits.Store(&l) }

func current() Limits {
	if l := limits.Load(); l != nil {
		return *l
	}
	return Limits{}
}

// ValidateMessage checks a message against the configured limits. The
// body is required; ReplyTo and reactions are free-form and resolved by
// the tree engine, not here.
func ValidateMessage(body interface{}) error {
	if body == nil {
		return errors.New("body is required")
	}
	l := current()
	if l.MaxBodyBytes > 0 {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("body not serializable: %w", err)
		}
		if int64(len(b)) > l.MaxBodyBytes {
			return fmt.Errorf("body too large: %d > %d bytes", len(b), l.MaxBodyBytes)
		}
	}
	return nil
}

// ValidateThreadTitle checks a thread title against the configured limits.
func ValidateThreadTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	if l := current(); l.MaxTitleLen > 0 && len(title) > l.MaxTitleLen {
		return fmt.Errorf("title too long: %d > %d bytes", len(title), l.MaxTitleLen)
	}
	return nil
}
