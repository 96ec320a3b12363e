package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"

	"github.com/ademuri/era-tools/internal/naming"
	"github.com/ademuri/era-tools/internal/pipeline"
	"github.com/ademuri/era-tools/internal/store"
)

func testErasConfig(t *testing.T, format string, phases int) ErasConfig {
	t.Helper()
	return ErasConfig{
		Filenames: []string{writeExport(t, phases, 3)},
		Pipeline:  pipeline.DefaultConfig(),
		Provider:  "none",
		Format:    format,
		DbPath:    filepath.Join(t.TempDir(), "eras.db"),
	}
}

func TestRunErasJSON(t *testing.T) {
	config := testErasConfig(t, "json", 2)
	var out bytes.Buffer
	if err := runEras(context.Background(), &out, config); err != nil {
		t.Fatalf("runEras() error: %v", err)
	}

	var res pipeline.Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("json.Unmarshal() error: %v\n%s", err, out.String())
	}
	if res.Status != pipeline.StatusComplete {
		t.Errorf("Status = %q, want %q", res.Status, pipeline.StatusComplete)
	}
	if len(res.Eras) != 2 {
		t.Fatalf("got %d eras, want 2", len(res.Eras))
	}
	if got, want := res.Eras[0].Title, "Era 1: January 2021"; got != want {
		t.Errorf("Eras[0].Title = %q, want %q", got, want)
	}
	if res.Eras[1].Playlist == nil || len(res.Eras[1].Playlist.Tracks) == 0 {
		t.Errorf("Eras[1] has no playlist: %+v", res.Eras[1])
	}
	if res.Stats.TotalArtists != 6 {
		t.Errorf("Stats.TotalArtists = %d, want 6", res.Stats.TotalArtists)
	}
}

func TestRunErasFormats(t *testing.T) {
	cases := []struct {
		format string
		want   string
	}{
		{"yaml", "top_artists:"},
		{"table", "2 eras from 24 tracks by 6 artists"},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := runEras(context.Background(), &out, testErasConfig(t, c.format, 2)); err != nil {
				t.Fatalf("runEras() error: %v", err)
			}
			if !strings.Contains(out.String(), c.want) {
				t.Errorf("output missing %q:\n%s", c.want, out.String())
			}
		})
	}

	var out bytes.Buffer
	if err := runEras(context.Background(), &out, testErasConfig(t, "xml", 2)); err == nil {
		t.Errorf("runEras() with an invalid format should have errored")
	}
}

func TestRunErasNoEras(t *testing.T) {
	// Three weeks of listening is shorter than a four week minimum.
	config := testErasConfig(t, "table", 1)
	config.Pipeline.MinWeeks = 4
	var out bytes.Buffer
	if err := runEras(context.Background(), &out, config); err != nil {
		t.Fatalf("runEras() error: %v", err)
	}
	if !strings.Contains(out.String(), "No eras found") {
		t.Errorf("output should report no eras:\n%s", out.String())
	}
}

func TestNewGenerator(t *testing.T) {
	viper.Set("openai_api_key", "")
	viper.Set("anthropic_api_key", "")
	defer viper.Set("openai_api_key", "")
	defer viper.Set("anthropic_api_key", "")

	gen, err := newGenerator("none", "")
	if err != nil || gen != nil {
		t.Errorf("newGenerator(none) = %v, %v, want nil, nil", gen, err)
	}
	for _, provider := range []string{"openai", "anthropic", "bogus"} {
		if _, err := newGenerator(provider, ""); err == nil {
			t.Errorf("newGenerator(%q) without a key should have errored", provider)
		}
	}

	viper.Set("openai_api_key", "test-key")
	viper.Set("anthropic_api_key", "test-key")
	gen, err = newGenerator("openai", "")
	if err != nil {
		t.Fatalf("newGenerator(openai) error: %v", err)
	}
	if _, ok := gen.(*naming.OpenAI); !ok {
		t.Errorf("newGenerator(openai) = %T, want *naming.OpenAI", gen)
	}
	gen, err = newGenerator("anthropic", "claude-test")
	if err != nil {
		t.Fatalf("newGenerator(anthropic) error: %v", err)
	}
	if _, ok := gen.(*naming.Anthropic); !ok {
		t.Errorf("newGenerator(anthropic) = %T, want *naming.Anthropic", gen)
	}
}

func TestNewRunRejectsBadEraDates(t *testing.T) {
	res := &pipeline.Result{
		Status: pipeline.StatusComplete,
		Eras:   []pipeline.EraOutput{{ID: 1, StartDate: "2021-01-04", EndDate: "not a date"}},
	}
	if _, err := newRun("export.json", pipeline.DefaultConfig(), res); err == nil {
		t.Error("newRun() with a bad end date should have errored")
	}

	res.Eras[0].EndDate = "2021-01-17"
	run, err := newRun("export.json", pipeline.DefaultConfig(), res)
	if err != nil {
		t.Fatalf("newRun() error: %v", err)
	}
	if len(run.Eras) != 1 || run.Eras[0].EndDate.Format(pipeline.DateLayout) != "2021-01-17" {
		t.Errorf("newRun() eras = %+v", run.Eras)
	}
}

func TestSavedRunLifecycle(t *testing.T) {
	config := testErasConfig(t, "json", 2)
	config.Save = true
	var out bytes.Buffer
	if err := runEras(context.Background(), &out, config); err != nil {
		t.Fatalf("runEras() error: %v", err)
	}

	db, err := openStore(config.DbPath)
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	runs, err := db.ListRuns()
	db.Close()
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	id := runs[0].ID

	out.Reset()
	if err := listRuns(&out, config.DbPath); err != nil {
		t.Fatalf("listRuns() error: %v", err)
	}
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "Streaming_History_Audio_2021.json") {
		t.Errorf("listRuns() output missing run %s:\n%s", id, out.String())
	}

	out.Reset()
	if err := showRun(&out, config.DbPath, "yaml", id); err != nil {
		t.Fatalf("showRun() error: %v", err)
	}
	if !strings.Contains(out.String(), "Era 2: January 2021") {
		t.Errorf("showRun() output missing the second era:\n%s", out.String())
	}

	out.Reset()
	err = emailRun(&out, config.DbPath, id, SendEmailConfig{From: "me@example.com", To: "you@example.com", DryRun: true})
	if err != nil {
		t.Fatalf("emailRun() error: %v", err)
	}
	if !strings.Contains(out.String(), "Would have sent email") {
		t.Errorf("emailRun() dry run should print the email:\n%s", out.String())
	}

	out.Reset()
	if err := deleteRun(&out, config.DbPath, id); err != nil {
		t.Fatalf("deleteRun() error: %v", err)
	}
	err = showRun(&out, config.DbPath, "yaml", id)
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("showRun() after delete = %v, want ErrRunNotFound", err)
	}
	if err := deleteRun(&out, config.DbPath, id); err == nil {
		t.Errorf("deleteRun() of a deleted run should have errored")
	}
}
