package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Record is one parsed JSON log line.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	EventType string
	Item      string
	Attrs     map[string]string
}

var reservedKeys = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "component": {}, "event_type": {}, "item": {}, "source": {},
}

// ParseRecord decodes a JSON log line. It reports false for lines that are
// not JSON objects.
func ParseRecord(line string) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	rec := Record{
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, "component"),
		EventType: stringField(raw, "event_type"),
		Item:      stringField(raw, "item"),
		Attrs:     make(map[string]string),
	}
	if ts, err := time.Parse(time.RFC3339Nano, stringField(raw, "ts")); err == nil {
		rec.Time = ts
	}
	_ = rec.Level.UnmarshalText([]byte(stringField(raw, "level")))
	for key, value := range raw {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		rec.Attrs[key] = fmt.Sprint(value)
	}
	return rec, true
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

// Filter selects records by minimum level and item name.
type Filter struct {
	MinLevel slog.Level
	Item     string
}

// Match reports whether rec passes the filter. Item matching ignores case.
func (f Filter) Match(rec Record) bool {
	if rec.Level < f.MinLevel {
		return false
	}
	if f.Item != "" && !strings.EqualFold(rec.Item, f.Item) {
		return false
	}
	return true
}

// Format renders rec on one line in local time with attributes sorted by key.
func (r Record) Format() string {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(r.Level.String()))
	if r.Component != "" {
		fmt.Fprintf(&b, " [%s]", r.Component)
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	if r.Item != "" {
		fmt.Fprintf(&b, " item=%q", r.Item)
	}
	keys := make([]string, 0, len(r.Attrs))
	for key := range r.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, r.Attrs[key])
	}
	return b.String()
}
