package listening

import "time"

// Stats summarizes a batch of events before it is aggregated away.
type Stats struct {
	TotalTracks  int       `json:"total_tracks" yaml:"total_tracks"`
	TotalArtists int       `json:"total_artists" yaml:"total_artists"`
	TotalMs      int64     `json:"total_ms" yaml:"total_ms"`
	First        time.Time `json:"first" yaml:"first"`
	Last         time.Time `json:"last" yaml:"last"`
}

// Summarize counts unique tracks and artists. Tracks are keyed by
// (track, artist) so same-named songs by different artists stay apart.
func Summarize(events []Event) Stats {
	var s Stats
	if len(events) == 0 {
		return s
	}

	type trackKey struct{ track, artist string }
	tracks := make(map[trackKey]struct{})
	artists := make(map[string]struct{})

	s.First = events[0].Timestamp
	s.Last = events[0].Timestamp
	for _, e := range events {
		tracks[trackKey{e.Track, e.Artist}] = struct{}{}
		artists[e.Artist] = struct{}{}
		s.TotalMs += e.MsPlayed
		if e.Timestamp.Before(s.First) {
			s.First = e.Timestamp
		}
		if e.Timestamp.After(s.Last) {
			s.Last = e.Timestamp
		}
	}
	s.TotalTracks = len(tracks)
	s.TotalArtists = len(artists)
	return s
}
