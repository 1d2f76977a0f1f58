package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/papercomputeco/engram/pkg/fact"
)

// DefaultStepOffset is the fixed bump applied to consecutive messages
// sharing one session marker.
const DefaultStepOffset = 500 * time.Millisecond

// markerPattern matches the conventional session marker:
// date (YYYY[/-]MM[/-]DD), a parenthesized weekday token, then HH:MM[:SS].
var markerPattern = regexp.MustCompile(
	`^\s*(\d{4})[/-](\d{1,2})[/-](\d{1,2})\s+\(([^)]*)\)\s+(\d{1,2}):(\d{2})(?::(\d{2}))?\s*$`)

// isoLayouts are the permissive fallbacks tried when the conventional
// grammar does not match.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// Normalizer assigns strictly increasing instants to messages. The first
// message of a session marker receives the marker's parsed instant; each
// subsequent message with the same marker receives the previous instant plus
// a fixed offset, so upstream messages sharing one stamp still total-order.
type Normalizer struct {
	step time.Duration

	// cursor remembers the last instant handed out per session marker.
	cursor map[string]time.Time

	sequence int
}

// NewNormalizer creates a normalizer with the given step offset.
// A non-positive step falls back to DefaultStepOffset.
func NewNormalizer(step time.Duration) *Normalizer {
	if step <= 0 {
		step = DefaultStepOffset
	}
	return &Normalizer{
		step:   step,
		cursor: make(map[string]time.Time),
	}
}

// Normalize parses and orders a batch of messages. Any missing or
// unparseable session marker rejects the whole batch: no partial results.
func (n *Normalizer) Normalize(messages []Message) ([]Normalized, error) {
	out := make([]Normalized, 0, len(messages))

	for i, msg := range messages {
		if msg.TimeStamp == "" {
			return nil, fmt.Errorf("%w: message %d has no timestamp", ErrInvalidMessage, i)
		}

		parsed, err := ParseSessionMarker(msg.TimeStamp)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrInvalidMessage, i, err)
		}

		instant := parsed
		if last, ok := n.cursor[msg.TimeStamp]; ok {
			instant = last.Add(n.step)
		}
		n.cursor[msg.TimeStamp] = instant

		out = append(out, Normalized{
			Message:     msg,
			SessionTime: msg.TimeStamp,
			Time:        instant,
			ISO:         fact.FormatTimeStamp(instant),
			Float:       float64(instant.UnixMilli()) / 1000.0,
			Weekday:     fact.WeekdayCode(instant),
			Sequence:    n.sequence,
		})
		n.sequence++
	}

	return out, nil
}

// ResetSequence restarts sequence numbering at 0. The engine calls this
// after every flush so rendered source ids stay aligned with record
// synthesis within one extraction segment.
func (n *Normalizer) ResetSequence() {
	n.sequence = 0
}

// ParseSessionMarker parses a session marker into an instant. The weekday
// token inside parentheses is advisory; the weekday stored on records is
// always derived from the parsed date.
func ParseSessionMarker(marker string) (time.Time, error) {
	if m := markerPattern.FindStringSubmatch(marker); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[5])
		minute, _ := strconv.Atoi(m[6])
		second := 0
		if m[7] != "" {
			second, _ = strconv.Atoi(m[7])
		}

		if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
			return time.Time{}, fmt.Errorf("session marker %q out of range", marker)
		}

		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, marker); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable session marker %q", marker)
}
