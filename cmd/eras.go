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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/era-tools/internal/naming"
	"github.com/ademuri/era-tools/internal/pipeline"
	"github.com/ademuri/era-tools/internal/progress"
	"github.com/ademuri/era-tools/internal/store"
	"github.com/ademuri/era-tools/internal/tags"
)

type ErasConfig struct {
	Filenames []string
	Pipeline  pipeline.Config
	Provider  string
	Model     string
	Tags      bool
	Format    string
	DbPath    string
	Save      bool
	Email     string
	From      string
	DryRun    bool
}

var erasCmd = &cobra.Command{
	Use:   "eras <export...>",
	Short: "Splits a streaming history export into named eras",
	Long: `Reads one or more export files, groups listens into ISO weeks, finds the
weeks where listening changed and names each resulting era.
  --provider selects the naming backend: openai, anthropic or none.
  --start and --end restrict the range, e.g. '--start 2021' or '--start 2021-03 --end 2022'.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, err := erasConfigFromFlags(cmd, args)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = runEras(ctx, os.Stdout, config)
		if err != nil {
			stop()
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(erasCmd)
	addWindowFlags(erasCmd)

	defaults := pipeline.DefaultConfig()
	erasCmd.Flags().String("provider", "openai", "Naming backend: openai, anthropic or none")
	erasCmd.Flags().String("model", "", "Model name, defaults to the provider's default")
	erasCmd.Flags().Float64("temperature", defaults.Naming.Temperature, "Sampling temperature for naming")
	erasCmd.Flags().Int("concurrency", defaults.Naming.Concurrency, "Eras named at once")
	erasCmd.Flags().Float64("rate_limit", 0, "Naming calls per second across all workers, 0 for no limit")
	erasCmd.Flags().Duration("call_timeout", defaults.Naming.CallTimeout, "Timeout for one naming call")
	erasCmd.Flags().Duration("timeout", defaults.Timeout, "Timeout for the whole run")
	erasCmd.Flags().Bool("tags", false, "Add last.fm artist tags to naming prompts")
	erasCmd.Flags().Bool("save", false, "Archive the run in the database")
	erasCmd.Flags().String("email", "", "Email the eras to this address")
	erasCmd.Flags().BoolP("dry_run", "n", false, "With --email, print the email instead of sending it")
}

func erasConfigFromFlags(cmd *cobra.Command, args []string) (config ErasConfig, err error) {
	flags := cmd.Flags()
	startString, endString := windowFlags(cmd)

	config = ErasConfig{
		Filenames: args,
		Pipeline:  pipeline.DefaultConfig(),
		Format:    viper.GetString("format"),
		DbPath:    viper.GetString("database"),
		From:      viper.GetString("from"),
	}
	config.Pipeline.Threshold = viper.GetFloat64("threshold")
	config.Pipeline.MinWeeks = viper.GetInt("min_weeks")
	config.Pipeline.MinMs = viper.GetInt64("min_minutes") * int64(time.Minute/time.Millisecond)
	config.Pipeline.From, config.Pipeline.To, err = parseWindow(startString, endString)
	if err != nil {
		return
	}

	config.Provider, _ = flags.GetString("provider")
	config.Model, _ = flags.GetString("model")
	config.Tags, _ = flags.GetBool("tags")
	config.Save, _ = flags.GetBool("save")
	config.Email, _ = flags.GetString("email")
	config.DryRun, _ = flags.GetBool("dry_run")
	config.Pipeline.Timeout, _ = flags.GetDuration("timeout")
	config.Pipeline.Naming.Temperature, _ = flags.GetFloat64("temperature")
	config.Pipeline.Naming.Concurrency, _ = flags.GetInt("concurrency")
	config.Pipeline.Naming.CallTimeout, _ = flags.GetDuration("call_timeout")
	if perSecond, _ := flags.GetFloat64("rate_limit"); perSecond > 0 {
		config.Pipeline.Naming.RateLimit = rate.Limit(perSecond)
	}

	if config.Email != "" && config.From == "" {
		err = fmt.Errorf("required flag(s) \"from\" not set")
	}
	return
}

func runEras(ctx context.Context, out io.Writer, config ErasConfig) error {
	gen, err := newGenerator(config.Provider, config.Model)
	if err != nil {
		return err
	}

	var db *store.Store
	if config.Save || config.Tags {
		db, err = openStore(config.DbPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var tagSource naming.TagSource
	if config.Tags {
		source, err := newTagSource(db)
		if err != nil {
			return err
		}
		tagSource = source
	}

	logger := slog.Default()
	p := pipeline.New(config.Pipeline, gen, tagSource, logger)
	res, err := p.Process(ctx, logProgress(logger), config.Filenames...)
	if err != nil {
		return err
	}

	if err := writeResult(out, config.Format, res); err != nil {
		return err
	}

	source := describeSource(config.Filenames)
	if config.Save {
		run, err := newRun(source, config.Pipeline, res)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		id, err := db.SaveRun(run)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		logger.Info("saved run", "id", id)
	}

	if config.Email != "" {
		err := sendEmail(out, SendEmailConfig{
			From:   config.From,
			To:     config.Email,
			Source: source,
			DryRun: config.DryRun,
			APIKey: viper.GetString("sendgrid_api_key"),
		}, res)
		if err != nil {
			return err
		}
	}
	return nil
}

// newGenerator returns the naming backend for provider, or nil for "none".
func newGenerator(provider, model string) (naming.Generator, error) {
	switch provider {
	case "none":
		return nil, nil

	case "openai":
		key := viper.GetString("openai_api_key")
		if key == "" {
			return nil, fmt.Errorf("openai_api_key must be set to use the openai provider, or pass --provider none")
		}
		if model == "" {
			model = naming.DefaultOpenAIModel
		}
		return naming.NewOpenAI(key, model), nil

	case "anthropic":
		key := viper.GetString("anthropic_api_key")
		if key == "" {
			return nil, fmt.Errorf("anthropic_api_key must be set to use the anthropic provider, or pass --provider none")
		}
		if model == "" {
			model = naming.DefaultAnthropicModel
		}
		return naming.NewAnthropic(key, model), nil

	default:
		return nil, fmt.Errorf("Invalid provider: %q", provider)
	}
}

func newTagSource(db *store.Store) (*tags.Source, error) {
	key := viper.GetString("lastfm_api_key")
	if key == "" {
		return nil, fmt.Errorf("lastfm_api_key must be set to use --tags")
	}
	fetcher := tags.NewLastFM(key, viper.GetString("lastfm_secret"))
	return tags.NewSource(fetcher, tags.WithCache(db), tags.WithLogger(slog.Default())), nil
}

func logProgress(logger *slog.Logger) progress.Reporter {
	return progress.Func(func(stage string, percent int) error {
		logger.Info("progress", "stage", stage, "percent", percent)
		return nil
	})
}

func describeSource(filenames []string) string {
	names := make([]string, 0, len(filenames))
	for _, f := range filenames {
		names = append(names, filepath.Base(f))
	}
	return strings.Join(names, ", ")
}

func newRun(source string, config pipeline.Config, res *pipeline.Result) (*store.Run, error) {
	run := &store.Run{
		Source:    source,
		Status:    string(res.Status),
		Threshold: config.Threshold,
		MinWeeks:  config.MinWeeks,
		MinMs:     config.MinMs,
		Stats:     res.Stats,
	}
	for _, out := range res.Eras {
		era, err := out.Era()
		if err != nil {
			return nil, err
		}
		run.Eras = append(run.Eras, era)
	}
	return run, nil
}

// writeResult renders res as json, yaml or a table.
func writeResult(out io.Writer, format string, res *pipeline.Result) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)

	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		return encoder.Close()

	case "table", "":
		a, err := ErasAnalyzer{}.FromResult(res)
		if err != nil {
			return err
		}
		fmt.Fprint(out, a)

	default:
		return fmt.Errorf("Invalid format: %q", format)
	}
	return nil
}

// ErasAnalyzer tabulates the eras of a finished run.
type ErasAnalyzer struct{}

func (e ErasAnalyzer) GetName() string {
	return "Eras"
}

func (e ErasAnalyzer) FromResult(res *pipeline.Result) (result Analysis, err error) {
	result.results = [][]string{{"Era", "Title", "Start", "End", "Hours", "Top artists"}}
	for _, era := range res.Eras {
		var artists []string
		for i, a := range era.TopArtists {
			if i >= 3 {
				break
			}
			artists = append(artists, a.Name)
		}
		result.results = append(result.results, []string{
			fmt.Sprint(era.ID),
			era.Title,
			era.StartDate,
			era.EndDate,
			humanize.Comma(era.TotalMsPlayed / 3600000),
			strings.Join(artists, ", "),
		})
	}

	stats := res.Stats
	if res.Status == pipeline.StatusNoEras {
		result.summary = fmt.Sprintf("No eras found among %s tracks", humanize.Comma(int64(stats.TotalTracks)))
		return
	}
	result.summary = fmt.Sprintf("%d eras from %s tracks by %s artists, %s to %s (%s hours)",
		len(res.Eras), humanize.Comma(int64(stats.TotalTracks)), humanize.Comma(int64(stats.TotalArtists)),
		stats.First.Format(pipeline.DateLayout), stats.Last.Format(pipeline.DateLayout),
		humanize.Comma(stats.TotalMs/3600000))
	return
}
