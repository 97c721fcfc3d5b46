package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ParseAsOf reads a backfill date. ISO dates are tried first, then natural
// language relative to now. An empty input yields the zero time.
func ParseAsOf(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, input); err == nil {
		return notFuture(t, now)
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(strings.ToLower(input), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --as-of %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize date: %s", input)
	}
	return notFuture(r.Time, now)
}

func notFuture(t, now time.Time) (time.Time, error) {
	if t.After(now) {
		return time.Time{}, fmt.Errorf("--as-of must not be in the future (parsed %s)", t.Format(time.DateOnly))
	}
	return t.UTC(), nil
}
