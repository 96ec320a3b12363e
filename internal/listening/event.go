package listening

import (
	"fmt"
	"time"
)

// MinPlayedMs is the shortest playback that counts as a listen.
const MinPlayedMs = 30000

// Record is one raw entry from a streaming history export. Nullable
// fields are pointers so that a JSON null can be told apart from "".
type Record struct {
	Timestamp *string `json:"ts"`
	Track     *string `json:"master_metadata_track_name"`
	Artist    *string `json:"master_metadata_album_artist_name"`
	MsPlayed  int64   `json:"ms_played"`
	TrackURI  *string `json:"spotify_track_uri"`
}

// Event is a single validated playback.
type Event struct {
	Timestamp time.Time
	Artist    string
	Track     string
	MsPlayed  int64
	TrackURI  string
}

// ParseError reports an export that is structurally broken. A run that
// hits one produces no result.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parsing listening history: %v", e.Err)
	}
	return fmt.Sprintf("parsing listening history %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type dedupKey struct {
	ts     int64
	track  string
	artist string
}

func keyOf(e Event) dedupKey {
	return dedupKey{ts: e.Timestamp.UnixNano(), track: e.Track, artist: e.Artist}
}
