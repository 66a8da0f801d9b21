package usecase

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// NonRetryableError marks a job failure that no retry can fix.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string { return e.Err.Error() }
func (e *NonRetryableError) Unwrap() error { return e.Err }

// NonRetryable wraps err so the dispatcher exhausts the job immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

func NonRetryablef(format string, args ...any) error {
	return &NonRetryableError{Err: fmt.Errorf(format, args...)}
}

func IsNonRetryable(err error) bool {
	var nr *NonRetryableError
	return errors.As(err, &nr)
}

const maxSummaryRunes = 500

// Summarize reduces err to the first line, capped at 500 runes, for
// storage in user-visible fields.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	s := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if utf8.RuneCountInString(s) > maxSummaryRunes {
		r := []rune(s)
		s = string(r[:maxSummaryRunes])
	}
	if s == "" {
		s = "Unknown error"
	}
	return s
}
