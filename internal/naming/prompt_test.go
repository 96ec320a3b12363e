package naming

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/era-tools/internal/analysis"
)

func testEra(id int, start time.Time, weeks int, artists ...string) analysis.Era {
	era := analysis.Era{
		ID:            id,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, weeks*7-1),
		TotalMsPlayed: 7200000,
	}
	for i, a := range artists {
		era.TopArtists = append(era.TopArtists, analysis.ArtistStat{Name: a, Plays: int64(100 - i)})
		era.TopTracks = append(era.TopTracks, analysis.TrackStat{Track: a + " Song", Artist: a, Plays: int64(50 - i)})
	}
	return era
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{1, "1 days"},
		{13, "13 days"},
		{14, "2 weeks"},
		{20, "2 weeks"},
		{59, "8 weeks"},
		{60, "2 months"},
		{45, "6 weeks"},
		{30 * 13, "13 months"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.days); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.days, got, c.want)
		}
	}
	if got := plural(1, "month"); got != "1 month" {
		t.Errorf("plural(1) = %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	var artists []string
	for i := 1; i <= 7; i++ {
		artists = append(artists, fmt.Sprintf("Artist %d", i))
	}
	era := testEra(1, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC), 8, artists...)
	prompt := BuildPrompt(era, map[string][]string{"Artist 1": {"shoegaze", "dream pop"}})

	for _, want := range []string{
		"March 2021 - April 2021",
		"8 weeks",
		"2 hours",
		"1. Artist 1 (100 plays) [shoegaze, dream pop]",
		"5. Artist 5 (96 plays)\n",
		"Artist 7 Song by Artist 7",
		"Musical Journey",
		`{"title": "...", "summary": "..."}`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "6. Artist 6 (") {
		t.Errorf("prompt should list at most %d artists:\n%s", promptArtists, prompt)
	}
}

func TestBuildPromptSingleMonth(t *testing.T) {
	era := testEra(1, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC), 2, "A")
	prompt := BuildPrompt(era, nil)
	if !strings.Contains(prompt, "Era: March 2021 (2 weeks)") {
		t.Errorf("unexpected era line:\n%s", prompt)
	}
}
