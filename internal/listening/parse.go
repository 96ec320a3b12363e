package listening

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Layouts tried in order. Exports normally carry the "Z" suffix; offset
// and zone-less forms show up in hand-edited files.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", ts)
}

// Parse validates raw records and returns the surviving events sorted by
// timestamp. Records shorter than MinPlayedMs or missing a track, artist
// or timestamp are dropped. A timestamp that is present but malformed
// fails the whole batch.
func Parse(records []Record, source string) ([]Event, error) {
	events := make([]Event, 0, len(records))
	for i, r := range records {
		if r.Track == nil || r.Artist == nil || r.Timestamp == nil {
			continue
		}
		if r.MsPlayed < MinPlayedMs {
			continue
		}

		ts, err := parseTimestamp(*r.Timestamp)
		if err != nil {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("record %d: %w", i, err)}
		}

		e := Event{
			Timestamp: ts,
			Artist:    *r.Artist,
			Track:     *r.Track,
			MsPlayed:  r.MsPlayed,
		}
		if r.TrackURI != nil {
			e.TrackURI = *r.TrackURI
		}
		events = append(events, e)
	}

	return Merge(events), nil
}

// Merge concatenates event batches, drops repeated (timestamp, track,
// artist) entries keeping the first one seen, and sorts the result by
// timestamp. The sort is stable so equal timestamps keep input order.
func Merge(batches ...[]Event) []Event {
	total := 0
	for _, b := range batches {
		total += len(b)
	}

	seen := make(map[dedupKey]struct{}, total)
	merged := make([]Event, 0, total)
	for _, batch := range batches {
		for _, e := range batch {
			k := keyOf(e)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// ParseJSON decodes a single export file: a JSON array of records. Any
// data after the array makes the whole file invalid.
func ParseJSON(r io.Reader, source string) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("reading: %w", err)}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '[' {
		return nil, &ParseError{Source: source, Err: errors.New("expected a JSON array of listening events")}
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid record: %w", err)}
		}
		return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	return Parse(records, source)
}

// Filter returns the events whose timestamp falls in [start, end). A
// zero bound is open.
func Filter(events []Event, start, end time.Time) []Event {
	if start.IsZero() && end.IsZero() {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !e.Timestamp.Before(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}
