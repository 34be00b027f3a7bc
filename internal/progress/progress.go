// Package progress holds the pure workday and countdown math. No clocks, no
// I/O; everything is computed from the caller's notion of now.
package progress

import (
	"errors"
	"strconv"
	"strings"
)

// ErrBadClock is returned by ParseClock for anything that is not "HH:MM".
var ErrBadClock = errors.New("malformed clock value")

// ParseClock converts an "HH:MM" wall-clock string to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, ErrBadClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrBadClock
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, ErrBadClock
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, ErrBadClock
	}
	return h*60 + m, nil
}

// WorkProgress is the rendered state of the workday bar.
type WorkProgress struct {
	Percent          float64
	RemainingMinutes int
}

// Work computes workday progress. All arguments are minutes since midnight.
// An end before start yields a zero-length workday: 0% before start, 100%
// once reached.
func Work(now, start, end int) WorkProgress {
	total := end - start
	if total < 0 {
		total = 0
	}
	switch {
	case now < start:
		return WorkProgress{Percent: 0, RemainingMinutes: total}
	case now > end:
		return WorkProgress{Percent: 100, RemainingMinutes: 0}
	}
	elapsed := now - start
	if total == 0 {
		return WorkProgress{Percent: 0, RemainingMinutes: 0}
	}
	return WorkProgress{
		Percent:          float64(elapsed) / float64(total) * 100,
		RemainingMinutes: total - elapsed,
	}
}

// CountdownProgress is the rendered state of a running countdown.
type CountdownProgress struct {
	RemainingMs int64
	Percent     float64
	Complete    bool
}

// Countdown computes the state of a countdown started at startMs for
// durationMinutes, observed at nowMs. A non-positive duration completes
// immediately.
func Countdown(nowMs, startMs int64, durationMinutes int) CountdownProgress {
	totalMs := int64(durationMinutes) * 60_000
	if totalMs <= 0 {
		return CountdownProgress{RemainingMs: 0, Percent: 100, Complete: true}
	}
	remaining := totalMs - (nowMs - startMs)
	if remaining < 0 {
		remaining = 0
	}
	return CountdownProgress{
		RemainingMs: remaining,
		Percent:     100 - float64(remaining)/float64(totalMs)*100,
		Complete:    remaining == 0,
	}
}
