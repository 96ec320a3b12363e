package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/era-tools/internal/pipeline"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Prints a run saved with 'eras --save'",
	Long:  `Prints the eras of an archived run in --format. Playlists are rebuilt from the stored top tracks.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := showRun(os.Stdout, viper.GetString("database"), viper.GetString("format"), args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func showRun(out io.Writer, dbPath, format, id string) error {
	res, _, err := loadRun(dbPath, id)
	if err != nil {
		return err
	}
	return writeResult(out, format, res)
}

// loadRun reads an archived run back into the form the pipeline returns.
func loadRun(dbPath, id string) (res *pipeline.Result, source string, err error) {
	db, err := openStore(dbPath)
	if err != nil {
		return nil, "", err
	}
	defer db.Close()

	run, err := db.GetRun(id)
	if err != nil {
		return nil, "", err
	}
	return &pipeline.Result{
		Status: pipeline.Status(run.Status),
		Stats:  run.Stats,
		Eras:   pipeline.Outputs(run.Eras),
	}, run.Source, nil
}
