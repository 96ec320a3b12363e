package analysis

import (
	"sort"
	"time"

	"github.com/ademuri/era-tools/internal/listening"
)

// AggregateByWeek groups events into ISO weeks, ordered by week start.
func AggregateByWeek(events []listening.Event) []WeekBucket {
	if len(events) == 0 {
		return nil
	}

	byKey := make(map[WeekKey]*WeekBucket)
	var keys []WeekKey
	for _, e := range events {
		ts := e.Timestamp.UTC()
		year, week := ts.ISOWeek()
		key := WeekKey{Year: year, Week: week}

		b, ok := byKey[key]
		if !ok {
			b = &WeekBucket{
				Key:       key,
				WeekStart: WeekStart(ts),
				Artists:   NewCounter[string](),
				Tracks:    NewCounter[TrackKey](),
			}
			byKey[key] = b
			keys = append(keys, key)
		}

		b.Artists.Add(e.Artist, 1)
		b.Tracks.Add(TrackKey{Track: e.Track, Artist: e.Artist}, 1)
		b.TotalMs += e.MsPlayed
	}

	weeks := make([]WeekBucket, 0, len(keys))
	for _, k := range keys {
		weeks = append(weeks, *byKey[k])
	}
	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].WeekStart.Before(weeks[j].WeekStart)
	})
	return weeks
}

// WeekStart returns the Monday, at midnight UTC, of the ISO week that
// contains t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
