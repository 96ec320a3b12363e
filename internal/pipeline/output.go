package pipeline

import (
	"fmt"
	"time"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/playlist"
)

const DateLayout = "2006-01-02"

// EraOutput is the serialized form of a finished era. Playlist is nil when
// it could not be built.
type EraOutput struct {
	ID            int                   `json:"id" yaml:"id"`
	Title         string                `json:"title" yaml:"title"`
	Summary       string                `json:"summary" yaml:"summary"`
	StartDate     string                `json:"start_date" yaml:"start_date"`
	EndDate       string                `json:"end_date" yaml:"end_date"`
	TotalMsPlayed int64                 `json:"total_ms_played" yaml:"total_ms_played"`
	TopArtists    []analysis.ArtistStat `json:"top_artists" yaml:"top_artists"`
	TopTracks     []analysis.TrackStat  `json:"top_tracks" yaml:"top_tracks"`
	Playlist      *playlist.Playlist    `json:"playlist" yaml:"playlist"`
}

func NewEraOutput(era analysis.Era, pl *playlist.Playlist) EraOutput {
	out := EraOutput{
		ID:            era.ID,
		Title:         era.Title,
		Summary:       era.Summary,
		StartDate:     era.StartDate.Format(DateLayout),
		EndDate:       era.EndDate.Format(DateLayout),
		TotalMsPlayed: era.TotalMsPlayed,
		TopArtists:    era.TopArtists,
		TopTracks:     era.TopTracks,
		Playlist:      pl,
	}
	if out.TopArtists == nil {
		out.TopArtists = []analysis.ArtistStat{}
	}
	if out.TopTracks == nil {
		out.TopTracks = []analysis.TrackStat{}
	}
	return out
}

// Era converts the output back into an analysis.Era. Both dates must be in
// DateLayout.
func (o EraOutput) Era() (analysis.Era, error) {
	start, err := time.Parse(DateLayout, o.StartDate)
	if err != nil {
		return analysis.Era{}, fmt.Errorf("era %d: start date: %w", o.ID, err)
	}
	end, err := time.Parse(DateLayout, o.EndDate)
	if err != nil {
		return analysis.Era{}, fmt.Errorf("era %d: end date: %w", o.ID, err)
	}
	return analysis.Era{
		ID:            o.ID,
		StartDate:     start,
		EndDate:       end,
		TopArtists:    o.TopArtists,
		TopTracks:     o.TopTracks,
		TotalMsPlayed: o.TotalMsPlayed,
		Title:         o.Title,
		Summary:       o.Summary,
	}, nil
}

// Outputs converts eras into their serialized form, building each
// playlist.
func Outputs(eras []analysis.Era) []EraOutput {
	playlists := playlist.BuildAll(eras)
	out := make([]EraOutput, 0, len(eras))
	for i, era := range eras {
		out = append(out, NewEraOutput(era, &playlists[i]))
	}
	return out
}
