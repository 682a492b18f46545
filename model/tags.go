package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/AiXpand/tsclient-sub000/errors"
	"github.com/AiXpand/tsclient-sub000/message"
)

// Tags is a key/value map that keeps insertion order
type Tags struct {
	keys   []string
	values map[string]string
}

// NewTags creates tags from ordered entries
func NewTags(entries ...message.Tag) *Tags {
	t := &Tags{values: make(map[string]string)}
	for _, e := range entries {
		t.Set(e.Key, e.Value)
	}
	return t
}

// Set adds or replaces a tag. Replacing keeps the original position.
func (t *Tags) Set(key, value string) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Replace swaps the content for that of other, keeping t itself
func (t *Tags) Replace(other *Tags) {
	t.keys = append(t.keys[:0], other.keys...)
	t.values = make(map[string]string, len(other.values))
	for k, v := range other.values {
		t.values[k] = v
	}
}

// Get returns the value of key
func (t *Tags) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Remove deletes key. It reports whether the key existed.
func (t *Tags) Remove(key string) bool {
	if _, ok := t.values[key]; !ok {
		return false
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of tags
func (t *Tags) Len() int { return len(t.keys) }

// Entries returns the tags in insertion order
func (t *Tags) Entries() []message.Tag {
	out := make([]message.Tag, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, message.Tag{Key: k, Value: t.values[k]})
	}
	return out
}

// Map returns the tags as a plain map
func (t *Tags) Map() map[string]any {
	out := make(map[string]any, len(t.keys))
	for _, k := range t.keys {
		out[k] = t.values[k]
	}
	return out
}

// Interval is a daily working window in minutes after midnight.
// Start after End wraps past midnight.
type Interval struct {
	Start int
	End   int
}

// Schedule is a set of daily working-hour intervals
type Schedule struct {
	Intervals []Interval
}

// ParseSchedule reads "HH:MM" pairs such as [["08:00","12:00"],["22:00","02:00"]]
func ParseSchedule(pairs [][2]string) (*Schedule, error) {
	s := &Schedule{}
	for _, p := range pairs {
		start, err := parseClock(p[0])
		if err != nil {
			return nil, err
		}
		end, err := parseClock(p[1])
		if err != nil {
			return nil, err
		}
		s.Intervals = append(s.Intervals, Interval{Start: start, End: end})
	}
	return s, nil
}

// ScheduleFromWire parses the list form carried in instance configs
func ScheduleFromWire(v any) (*Schedule, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Schedule", "FromWire", "read interval list")
	}
	pairs := make([][2]string, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "Schedule", "FromWire", "read interval")
		}
		start, ok1 := pair[0].(string)
		end, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return nil, errors.WrapInvalid(errors.ErrInvalidData, "Schedule", "FromWire", "read interval bounds")
		}
		pairs = append(pairs, [2]string{start, end})
	}
	return ParseSchedule(pairs)
}

// Contains reports whether the clock time of t falls in any interval
func (s *Schedule) Contains(t time.Time) bool {
	if s == nil {
		return true
	}
	minute := t.Hour()*60 + t.Minute()
	for _, iv := range s.Intervals {
		if iv.Start <= iv.End {
			if minute >= iv.Start && minute < iv.End {
				return true
			}
			continue
		}
		if minute >= iv.Start || minute < iv.End {
			return true
		}
	}
	return false
}

// Wire returns the list form of the schedule
func (s *Schedule) Wire() []any {
	out := make([]any, 0, len(s.Intervals))
	for _, iv := range s.Intervals {
		out = append(out, []any{formatClock(iv.Start), formatClock(iv.End)})
	}
	return out
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil || h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, errors.WrapInvalid(fmt.Errorf("%w: clock %q", errors.ErrInvalidData, s),
			"Schedule", "Parse", "parse clock")
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
