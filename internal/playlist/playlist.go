package playlist

import "github.com/ademuri/era-tools/internal/analysis"

// Track is one entry of an era playlist. URI is empty because track
// identifiers do not survive weekly aggregation.
type Track struct {
	Name      string  `json:"track_name" yaml:"track_name"`
	Artist    string  `json:"artist_name" yaml:"artist_name"`
	PlayCount int64   `json:"play_count" yaml:"play_count"`
	URI       *string `json:"uri" yaml:"uri"`
}

// Playlist lists the most played tracks of one era.
type Playlist struct {
	EraID  int     `json:"era_id" yaml:"era_id"`
	Tracks []Track `json:"tracks" yaml:"tracks"`
}

// Build derives the playlist of an era from its top tracks, in rank order.
func Build(era analysis.Era) Playlist {
	p := Playlist{EraID: era.ID, Tracks: make([]Track, 0, len(era.TopTracks))}
	for _, t := range era.TopTracks {
		p.Tracks = append(p.Tracks, Track{
			Name:      t.Track,
			Artist:    t.Artist,
			PlayCount: t.Plays,
		})
	}
	return p
}

// BuildAll returns one playlist per era, in era order.
func BuildAll(eras []analysis.Era) []Playlist {
	playlists := make([]Playlist, 0, len(eras))
	for _, era := range eras {
		playlists = append(playlists, Build(era))
	}
	return playlists
}
