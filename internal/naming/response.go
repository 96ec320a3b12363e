package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/ademuri/era-tools/internal/analysis"
)

const (
	MaxTitleLen      = 50
	MaxSummaryLen    = 500
	MinSummaryLen    = 20
	fallbackArtist   = "various artists"
	titleTrimChars   = " \t\r\n\"'`"
	fallbackTitleFmt = "Era %d: %s"
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var errNoJSON = errors.New("no JSON object in response")

// Naming is a generated era title and summary.
type Naming struct {
	Title   string `json:"title" jsonschema:"required,description=A creative 2-5 word title"`
	Summary string `json:"summary" jsonschema:"required,description=A 2-3 sentence summary"`
}

type rawNaming struct {
	Title   *string `json:"title"`
	Summary *string `json:"summary"`
}

// ParseResponse extracts the title and summary from backend output. The
// whole text is tried as JSON first, then the outermost {...} span.
// Fields that are missing come back as empty strings.
func ParseResponse(text string) (Naming, error) {
	var raw rawNaming
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		match := jsonObject.FindString(text)
		if match == "" {
			return Naming{}, errNoJSON
		}
		raw = rawNaming{}
		if err := json.Unmarshal([]byte(match), &raw); err != nil {
			return Naming{}, fmt.Errorf("decoding response: %w", err)
		}
	}

	var n Naming
	if raw.Title != nil {
		n.Title = *raw.Title
	}
	if raw.Summary != nil {
		n.Summary = *raw.Summary
	}
	return n, nil
}

// CleanTitle trims quotes and whitespace and caps the length. It returns
// false when nothing usable is left.
func CleanTitle(title string) (string, bool) {
	title = strings.Trim(title, titleTrimChars)
	title = truncate(title, MaxTitleLen)
	title = strings.TrimSpace(title)
	return title, title != ""
}

// CleanSummary collapses whitespace and caps the length. It returns false
// when the summary is too short to be useful.
func CleanSummary(summary string) (string, bool) {
	summary = strings.Join(strings.Fields(summary), " ")
	summary = truncate(summary, MaxSummaryLen)
	return summary, utf8.RuneCountInString(summary) >= MinSummaryLen
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// FallbackTitle names an era after its number and starting month.
func FallbackTitle(era analysis.Era) string {
	return fmt.Sprintf(fallbackTitleFmt, era.ID, era.StartDate.Format("January 2006"))
}

// FallbackSummary describes an era by its length and top artist.
func FallbackSummary(era analysis.Era) string {
	artist := fallbackArtist
	if len(era.TopArtists) > 0 {
		artist = era.TopArtists[0].Name
	}
	return fmt.Sprintf("A %s period featuring %s and more.", FormatDuration(era.Days()), artist)
}
