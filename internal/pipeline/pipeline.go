// Package pipeline turns a batch of listening events into named eras with
// playlists.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/listening"
	"github.com/ademuri/era-tools/internal/naming"
	"github.com/ademuri/era-tools/internal/playlist"
	"github.com/ademuri/era-tools/internal/progress"
)

// Progress checkpoints. Naming reports within its own sub-range, set in
// Config.Naming.
const (
	progressParsed     = 20
	progressSegmenting = 30
	progressPlaylists  = 80
	progressComplete   = 100
)

type Config struct {
	Threshold float64
	MinWeeks  int
	MinMs     int64
	// From and To restrict the events considered to [From, To). Zero
	// values leave that side open.
	From time.Time
	To   time.Time
	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration
	Naming  naming.Config
}

func DefaultConfig() Config {
	return Config{
		Threshold: analysis.DefaultThreshold,
		MinWeeks:  analysis.DefaultMinWeeks,
		MinMs:     analysis.DefaultMinMs,
		Timeout:   10 * time.Minute,
		Naming:    naming.DefaultConfig(),
	}
}

type Status string

const (
	StatusComplete Status = "complete"
	StatusNoEras   Status = "no_eras"
)

// Result is the outcome of one run. Eras is empty, never nil, when
// Status is StatusNoEras.
type Result struct {
	Status Status          `json:"status" yaml:"status"`
	Stats  listening.Stats `json:"stats" yaml:"stats"`
	Eras   []EraOutput     `json:"eras" yaml:"eras"`
}

// Pipeline runs segmentation and enrichment. It holds no per-run state
// and may be shared by concurrent runs.
type Pipeline struct {
	cfg      Config
	enricher *naming.Enricher
	logger   *slog.Logger
}

// New returns a Pipeline. gen and tags may be nil, in which case every
// era is given its fallback name.
func New(cfg Config, gen naming.Generator, tags naming.TagSource, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		enricher: naming.NewEnricher(gen, tags, cfg.Naming, logger),
		logger:   logger,
	}
}

// Process parses the given export files and runs the pipeline on them.
func (p *Pipeline) Process(ctx context.Context, reporter progress.Reporter, filenames ...string) (*Result, error) {
	events, err := listening.ParseFiles(filenames...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, events, reporter)
}

// Run segments events into eras, names them and builds their playlists.
// It fails only if ctx is cancelled or the run exceeds its timeout.
func (p *Pipeline) Run(ctx context.Context, events []listening.Event, reporter progress.Reporter) (*Result, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	mon := progress.NewMonotonic(reporter, p.logger)

	events = listening.Filter(events, p.cfg.From, p.cfg.To)
	res := &Result{Stats: listening.Summarize(events), Eras: []EraOutput{}}
	mon.Report(progress.StageParsed, progressParsed)
	p.logger.Info("parsed listening history",
		"tracks", res.Stats.TotalTracks, "artists", res.Stats.TotalArtists, "events", len(events))

	weeks := analysis.AggregateByWeek(events)
	mon.Report(progress.StageSegmenting, progressSegmenting)
	eras := analysis.Segment(weeks, p.cfg.Threshold, p.cfg.MinWeeks, p.cfg.MinMs)
	p.logger.Info("segmented listening history", "weeks", len(weeks), "eras", len(eras))

	if len(eras) == 0 {
		res.Status = StatusNoEras
		mon.Report(progress.StageNoEras, progressComplete)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("before naming: %w", err)
	}

	var (
		named     []analysis.Era
		playlists []*playlist.Playlist
	)
	var g errgroup.Group
	g.Go(func() error {
		named = p.enricher.NameAll(ctx, eras, mon)
		return nil
	})
	g.Go(func() error {
		playlists = p.buildPlaylists(eras)
		return nil
	})
	g.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("run exceeded %s timeout: %w", p.cfg.Timeout, err)
		}
		return nil, err
	}
	mon.Report(progress.StagePlaylists, progressPlaylists)

	for i, era := range named {
		res.Eras = append(res.Eras, NewEraOutput(era, playlists[i]))
	}
	res.Status = StatusComplete
	mon.Report(progress.StageComplete, progressComplete)
	return res, nil
}

// buildPlaylists builds one playlist per era. An era whose playlist cannot
// be built gets nil so that the run can still complete.
func (p *Pipeline) buildPlaylists(eras []analysis.Era) []*playlist.Playlist {
	out := make([]*playlist.Playlist, len(eras))
	for i, era := range eras {
		pl, err := safeBuild(era)
		if err != nil {
			p.logger.Error("building playlist", "era", era.ID, "err", err)
			continue
		}
		out[i] = &pl
	}
	return out
}

var buildPlaylist = playlist.Build

func safeBuild(era analysis.Era) (pl playlist.Playlist, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("playlist build panicked: %v", r)
		}
	}()
	return buildPlaylist(era), nil
}
