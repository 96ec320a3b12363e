package naming

import (
	"fmt"
	"strings"

	"github.com/ademuri/era-tools/internal/analysis"
)

const (
	promptArtists = 5
	promptTracks  = 10
)

// FormatDuration renders a day count as days, weeks or months.
func FormatDuration(days int) string {
	switch {
	case days < 14:
		return fmt.Sprintf("%d days", days)
	case days < 60:
		return plural(days/7, "week")
	default:
		return plural(days/30, "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func dateRange(era analysis.Era) string {
	start := era.StartDate.Format("January 2006")
	end := era.EndDate.Format("January 2006")
	if start == end {
		return start
	}
	return start + " - " + end
}

// BuildPrompt describes an era for the text generation backend. tags maps
// artist names to genre tags and may be nil.
func BuildPrompt(era analysis.Era, tags map[string][]string) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing someone's music listening history. ")
	sb.WriteString("Based on this era's data, create a creative title and summary.\n\n")

	fmt.Fprintf(&sb, "Era: %s (%s)\n", dateRange(era), FormatDuration(era.Days()))
	fmt.Fprintf(&sb, "Total listening time: %s\n\n", plural(int(era.TotalMsPlayed/3600000), "hour"))

	sb.WriteString("Top Artists:\n")
	for i, a := range era.TopArtists {
		if i >= promptArtists {
			break
		}
		fmt.Fprintf(&sb, "%d. %s (%d plays)", i+1, a.Name, a.Plays)
		if t := tags[a.Name]; len(t) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(t, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nTop Tracks:\n")
	for i, t := range era.TopTracks {
		if i >= promptTracks {
			break
		}
		fmt.Fprintf(&sb, "%d. %s by %s (%d plays)\n", i+1, t.Track, t.Artist, t.Plays)
	}

	sb.WriteString(`
Create a JSON response with:
- "title": A creative, evocative 2-5 word title that captures the mood/vibe. Avoid generic titles like "Musical Journey", "Eclectic Mix", or "Summer Vibes".
- "summary": A 2-3 sentence summary describing the musical mood, themes, or story of this era.

Respond ONLY with valid JSON: {"title": "...", "summary": "..."}`)

	return sb.String()
}
