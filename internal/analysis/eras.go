package analysis

const (
	TopArtistsPerEra = 10
	TopTracksPerEra  = 20

	DefaultMinWeeks = 2
	DefaultMinMs    = 60 * 60 * 1000
)

// BuildEras merges the weeks between consecutive boundaries into eras
// numbered from 1. Artist and track rankings break ties by the order in
// which the key was first heard within the era.
func BuildEras(weeks []WeekBucket, boundaries []int) []Era {
	if len(weeks) == 0 || len(boundaries) == 0 {
		return nil
	}

	eras := make([]Era, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(weeks)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		if start < 0 || start >= end || end > len(weeks) {
			continue
		}
		eras = append(eras, buildEra(len(eras)+1, weeks[start:end]))
	}
	return eras
}

func buildEra(id int, weeks []WeekBucket) Era {
	artistCounters := make([]*Counter[string], len(weeks))
	trackCounters := make([]*Counter[TrackKey], len(weeks))
	var totalMs int64
	for i, w := range weeks {
		artistCounters[i] = w.Artists
		trackCounters[i] = w.Tracks
		totalMs += w.TotalMs
	}
	artists := MergeCounters(artistCounters...)
	tracks := MergeCounters(trackCounters...)

	era := Era{
		ID:            id,
		StartDate:     weeks[0].WeekStart,
		EndDate:       weeks[len(weeks)-1].WeekStart.AddDate(0, 0, 6),
		TotalMsPlayed: totalMs,
	}
	for _, e := range artists.MostCommon(TopArtistsPerEra) {
		era.TopArtists = append(era.TopArtists, ArtistStat{Name: e.Key, Plays: e.Count})
	}
	for _, e := range tracks.MostCommon(TopTracksPerEra) {
		era.TopTracks = append(era.TopTracks, TrackStat{Track: e.Key.Track, Artist: e.Key.Artist, Plays: e.Count})
	}
	return era
}

// FilterEras drops eras shorter than minWeeks or with less than minMs of
// listening, and renumbers the survivors from 1. The input is not
// modified. An empty result is a valid outcome.
func FilterEras(eras []Era, minWeeks int, minMs int64) []Era {
	var kept []Era
	for _, era := range eras {
		if era.Weeks() < minWeeks {
			continue
		}
		if era.TotalMsPlayed < minMs {
			continue
		}
		era.ID = len(kept) + 1
		kept = append(kept, era)
	}
	return kept
}

// Segment detects boundaries in weeks, builds the eras and filters them.
func Segment(weeks []WeekBucket, threshold float64, minWeeks int, minMs int64) []Era {
	boundaries := DetectBoundaries(weeks, threshold)
	return FilterEras(BuildEras(weeks, boundaries), minWeeks, minMs)
}
