/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/listening"
)

var topNumber int
var topCmd = &cobra.Command{
	Use:   "top <export...>",
	Short: "Prints the most played artists and tracks",
	Long:  `Use --start and --end to restrict the range. Date strings look like 'yyyy', 'yyyy-mm', 'yyyy-mm-dd' or '6m'.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, end := windowFlags(cmd)
		err := printTop(os.Stdout, args, topNumber, start, end)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntVarP(&topNumber, "number", "n", 10, "number of results to return")
	addWindowFlags(topCmd)
}

// addWindowFlags adds --start and --end to a command that reads an export.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "Only use listens from this date on")
	cmd.Flags().String("end", "", "Only use listens before this date")
}

func windowFlags(cmd *cobra.Command) (start, end string) {
	start, _ = cmd.Flags().GetString("start")
	end, _ = cmd.Flags().GetString("end")
	return
}

// loadEvents parses the export files and applies the date window.
func loadEvents(filenames []string, startString, endString string) ([]listening.Event, error) {
	start, end, err := parseWindow(startString, endString)
	if err != nil {
		return nil, err
	}
	events, err := listening.ParseFiles(filenames...)
	if err != nil {
		return nil, err
	}
	return listening.Filter(events, start, end), nil
}

func printTop(out io.Writer, filenames []string, numToReturn int, startString, endString string) error {
	events, err := loadEvents(filenames, startString, endString)
	if err != nil {
		return err
	}

	config := AnalyserConfig{numToReturn, 0}
	for _, a := range []Analyser{TopArtistsAnalyzer{Config: config}, TopTracksAnalyzer{Config: config}} {
		result, err := a.GetResults(events)
		if err != nil {
			return fmt.Errorf("%s: %w", a.GetName(), err)
		}
		fmt.Fprintf(out, "%s:\n%s\n", a.GetName(), result)
	}
	return nil
}

type TopArtistsAnalyzer struct {
	Config AnalyserConfig
}

func (t TopArtistsAnalyzer) GetName() string {
	return "Top artists"
}

func (t TopArtistsAnalyzer) GetResults(events []listening.Event) (result Analysis, err error) {
	counts := analysis.NewCounter[string]()
	var totalMs int64
	for _, e := range events {
		counts.Add(e.Artist, 1)
		totalMs += e.MsPlayed
	}

	result.results = [][]string{{"Artist", "Listens"}}
	for _, entry := range topEntries(counts, t.Config) {
		result.results = append(result.results, []string{entry.Key, strconv.FormatInt(entry.Count, 10)})
	}
	result.summary = fmt.Sprintf("Found %s artists and %s listens (%s hours)",
		humanize.Comma(int64(counts.Len())), humanize.Comma(int64(len(events))), humanize.Comma(totalMs/3600000))
	return
}

type TopTracksAnalyzer struct {
	Config AnalyserConfig
}

func (t TopTracksAnalyzer) GetName() string {
	return "Top tracks"
}

func (t TopTracksAnalyzer) GetResults(events []listening.Event) (result Analysis, err error) {
	counts := analysis.NewCounter[analysis.TrackKey]()
	for _, e := range events {
		counts.Add(analysis.TrackKey{Track: e.Track, Artist: e.Artist}, 1)
	}

	result.results = [][]string{{"Track", "Artist", "Listens"}}
	for _, entry := range topEntries(counts, t.Config) {
		result.results = append(result.results,
			[]string{entry.Key.Track, entry.Key.Artist, strconv.FormatInt(entry.Count, 10)})
	}
	result.summary = fmt.Sprintf("Found %s tracks", humanize.Comma(int64(counts.Len())))
	return
}

func topEntries[K comparable](counts *analysis.Counter[K], config AnalyserConfig) []analysis.Entry[K] {
	n := config.NumToReturn
	if n == 0 {
		n = -1
	}
	var out []analysis.Entry[K]
	for _, entry := range counts.MostCommon(n) {
		if config.FilterThreshold == 0 || entry.Count > config.FilterThreshold {
			out = append(out, entry)
		}
	}
	return out
}
