package analysis

import "time"

// WeekKey identifies an ISO week. Year is the ISO year, which differs
// from the calendar year around New Year.
type WeekKey struct {
	Year int
	Week int
}

// TrackKey pairs a track name with its artist so that same-named songs
// by different artists are counted separately.
type TrackKey struct {
	Track  string
	Artist string
}

// WeekBucket aggregates one ISO week of listening.
type WeekBucket struct {
	Key       WeekKey
	WeekStart time.Time // Monday, 00:00 UTC
	Artists   *Counter[string]
	Tracks    *Counter[TrackKey]
	TotalMs   int64
}

// ArtistStat is a ranked artist within an era.
type ArtistStat struct {
	Name  string `json:"name" yaml:"name"`
	Plays int64  `json:"plays" yaml:"plays"`
}

// TrackStat is a ranked track within an era.
type TrackStat struct {
	Track  string `json:"track" yaml:"track"`
	Artist string `json:"artist" yaml:"artist"`
	Plays  int64  `json:"plays" yaml:"plays"`
}

// Era is a contiguous run of weeks with a consistent listening pattern.
// Only Title and Summary change after construction.
type Era struct {
	ID            int
	StartDate     time.Time
	EndDate       time.Time // Sunday of the last week, inclusive
	TopArtists    []ArtistStat
	TopTracks     []TrackStat
	TotalMsPlayed int64
	Title         string
	Summary       string
}

// Weeks returns the span of the era in whole weeks.
func (e Era) Weeks() int {
	return daysBetween(e.StartDate, e.EndDate)/7 + 1
}

// Days returns the inclusive length of the era in days.
func (e Era) Days() int {
	return daysBetween(e.StartDate, e.EndDate) + 1
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
