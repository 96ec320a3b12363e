package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var exportStart = time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC) // a Monday

type exportRecord struct {
	Timestamp string `json:"ts"`
	Track     string `json:"master_metadata_track_name"`
	Artist    string `json:"master_metadata_album_artist_name"`
	MsPlayed  int64  `json:"ms_played"`
	TrackURI  string `json:"spotify_track_uri"`
}

// writeExport writes a history in which each phase has its own three
// artists, so every phase becomes one era.
func writeExport(t *testing.T, phases, weeksPerPhase int) string {
	t.Helper()
	var records []exportRecord
	for p := 0; p < phases; p++ {
		for w := 0; w < weeksPerPhase; w++ {
			monday := exportStart.AddDate(0, 0, (p*weeksPerPhase+w)*7)
			for a := 0; a < 3; a++ {
				artist := fmt.Sprintf("Phase%d Artist%d", p+1, a+1)
				for n := 0; n < 10; n++ {
					records = append(records, exportRecord{
						Timestamp: monday.Add(time.Duration(a*10+n) * time.Hour).Format(time.RFC3339),
						Track:     fmt.Sprintf("%s Track%d", artist, n%4),
						Artist:    artist,
						MsPlayed:  200000,
						TrackURI:  fmt.Sprintf("spotify:track:%d%d%d", p, a, n%4),
					})
				}
			}
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Streaming_History_Audio_2021.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("os.WriteFile(%q) error: %v", path, err)
	}
	return path
}
