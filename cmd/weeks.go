package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/listening"
)

var weeksCmd = &cobra.Command{
	Use:   "weeks <export...>",
	Short: "Prints each listening week and whether it starts a new era",
	Long: `Shows the ISO weeks of an export with the similarity of each week to the
one before it. Useful for choosing --threshold.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, end := windowFlags(cmd)
		err := printWeeks(os.Stdout, args, viper.GetFloat64("threshold"), start, end)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(weeksCmd)
	addWindowFlags(weeksCmd)
}

func printWeeks(out io.Writer, filenames []string, threshold float64, startString, endString string) error {
	events, err := loadEvents(filenames, startString, endString)
	if err != nil {
		return err
	}
	result, err := WeeksAnalyzer{Threshold: threshold}.GetResults(events)
	if err != nil {
		return err
	}
	fmt.Fprint(out, result)
	return nil
}

// WeeksAnalyzer lists ISO weeks with their boundary decision.
type WeeksAnalyzer struct {
	Threshold float64
}

func (w WeeksAnalyzer) GetName() string {
	return "Weeks"
}

func (w WeeksAnalyzer) GetResults(events []listening.Event) (result Analysis, err error) {
	weeks := analysis.AggregateByWeek(events)
	transitions := analysis.Transitions(weeks, w.Threshold)

	result.results = [][]string{{"Week", "Monday", "Plays", "Hours", "Top artist", "Similarity", "Boundary"}}
	boundaries := 0
	for i, week := range weeks {
		t := transitions[i]
		var plays int64
		for _, k := range week.Artists.Keys() {
			plays += week.Artists.Count(k)
		}
		topArtist := ""
		if top := week.Artists.MostCommon(1); len(top) > 0 {
			topArtist = top[0].Key
		}
		similarity := ""
		if t.Reason != analysis.ReasonGap && t.Reason != analysis.ReasonFirst {
			similarity = strconv.FormatFloat(t.Similarity, 'f', 2, 64)
		}
		boundary := ""
		if t.Boundary {
			boundaries++
			boundary = string(t.Reason)
			if t.Reason == analysis.ReasonGap {
				boundary = fmt.Sprintf("gap (%d days)", t.GapDays)
			}
		}
		result.results = append(result.results, []string{
			fmt.Sprintf("%d-W%02d", week.Key.Year, week.Key.Week),
			week.WeekStart.Format("2006-01-02"),
			humanize.Comma(plays),
			strconv.FormatFloat(float64(week.TotalMs)/3600000, 'f', 1, 64),
			topArtist,
			similarity,
			boundary,
		})
	}
	result.summary = fmt.Sprintf("%d weeks, %d boundaries at threshold %.2f", len(weeks), boundaries, w.Threshold)
	return
}
