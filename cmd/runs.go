/*
Copyright 2026 Google LLC

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
	"github.com/spf13/viper"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists runs saved with 'eras --save'",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		err := listRuns(os.Stdout, viper.GetString("database"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func listRuns(out io.Writer, dbPath string) error {
	db, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return err
	}

	var a Analysis
	a.results = [][]string{{"ID", "Created", "Source", "Status", "Eras", "Threshold"}}
	for _, r := range runs {
		a.results = append(a.results, []string{
			r.ID,
			humanize.Time(r.Created),
			r.Source,
			r.Status,
			strconv.Itoa(r.EraCount),
			strconv.FormatFloat(r.Threshold, 'f', 2, 64),
		})
	}
	a.summary = fmt.Sprintf("%d runs", len(runs))
	fmt.Fprint(out, a)
	return nil
}
