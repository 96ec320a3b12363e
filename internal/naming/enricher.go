package naming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ademuri/era-tools/internal/analysis"
	"github.com/ademuri/era-tools/internal/progress"
)

// Config controls how the Enricher calls its backend.
type Config struct {
	Temperature float64
	MaxTokens   int
	// CallTimeout bounds a single backend call, retries excluded.
	CallTimeout time.Duration
	Attempts    uint
	RetryDelay  time.Duration
	Concurrency int
	// RateLimit caps backend calls per second across all workers.
	// rate.Inf disables limiting.
	RateLimit rate.Limit
	// TagArtists is how many top artists get tags looked up.
	TagArtists int

	// Progress for NameAll is reported within [ProgressFrom, ProgressTo].
	ProgressFrom int
	ProgressTo   int
}

func DefaultConfig() Config {
	return Config{
		Temperature:  0.7,
		MaxTokens:    300,
		CallTimeout:  30 * time.Second,
		Attempts:     3,
		RetryDelay:   time.Second,
		Concurrency:  4,
		RateLimit:    rate.Inf,
		TagArtists:   promptArtists,
		ProgressFrom: 40,
		ProgressTo:   70,
	}
}

// Result is the naming outcome for one era.
type Result struct {
	Title   string
	Summary string
	// Generated is true when both fields came from the backend.
	Generated bool
	// Reason is why a fallback was used, if one was.
	Reason error
}

// Enricher names eras. A nil Generator makes every era use the fallback.
type Enricher struct {
	gen     Generator
	tags    TagSource
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewEnricher returns an Enricher. tags and logger may be nil.
func NewEnricher(gen Generator, tags TagSource, cfg Config, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = rate.Inf
	}
	return &Enricher{
		gen:     gen,
		tags:    tags,
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
		logger:  logger,
	}
}

// Name produces a title and summary for era. It never fails: any backend
// problem results in the fallback for the affected field.
func (e *Enricher) Name(ctx context.Context, era analysis.Era) Result {
	fallback := Result{Title: FallbackTitle(era), Summary: FallbackSummary(era)}
	if e.gen == nil {
		return fallback
	}

	text, err := e.generate(ctx, Request{
		Prompt:      BuildPrompt(era, e.lookupTags(ctx, era)),
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		fallback.Reason = err
		return fallback
	}

	n, err := ParseResponse(text)
	if err != nil {
		fallback.Reason = err
		return fallback
	}

	res := fallback
	title, titleOK := CleanTitle(n.Title)
	if titleOK {
		res.Title = title
	}
	summary, summaryOK := CleanSummary(n.Summary)
	if summaryOK {
		res.Summary = summary
	}
	switch {
	case titleOK && summaryOK:
		res.Generated = true
	case !titleOK && !summaryOK:
		res.Reason = errors.New("response had no usable title or summary")
	case !titleOK:
		res.Reason = errors.New("response had no usable title")
	default:
		res.Reason = fmt.Errorf("summary shorter than %d characters", MinSummaryLen)
	}
	return res
}

// NameAll names every era concurrently and returns copies with Title and
// Summary set. Order and every other field are preserved. reporter may be
// nil; its errors and panics are logged, never propagated.
func (e *Enricher) NameAll(ctx context.Context, eras []analysis.Era, reporter progress.Reporter) []analysis.Era {
	mon := progress.NewMonotonic(reporter, e.logger)
	out := make([]analysis.Era, len(eras))
	copy(out, eras)

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range out {
		g.Go(func() error {
			res := e.Name(ctx, out[i])
			out[i].Title = res.Title
			out[i].Summary = res.Summary
			if res.Reason != nil {
				e.logger.Warn("using fallback naming", "era", out[i].ID, "err", res.Reason)
			}

			mu.Lock()
			done++
			mon.Report(progress.StageNaming, progress.Scale(done, len(out), e.cfg.ProgressFrom, e.cfg.ProgressTo))
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

func (e *Enricher) lookupTags(ctx context.Context, era analysis.Era) map[string][]string {
	if e.tags == nil {
		return nil
	}
	tags := make(map[string][]string)
	for i, a := range era.TopArtists {
		if i >= e.cfg.TagArtists || ctx.Err() != nil {
			break
		}
		t, err := e.artistTags(ctx, a.Name)
		if err != nil {
			e.logger.Debug("artist tags unavailable", "artist", a.Name, "err", err)
			continue
		}
		tags[a.Name] = t
	}
	return tags
}

// artistTags bounds one tag lookup by the per-call timeout, returning as
// soon as ctx ends even if the TagSource ignores it.
func (e *Enricher) artistTags(ctx context.Context, artist string) ([]string, error) {
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	return await(ctx, func() ([]string, error) {
		return e.tags.ArtistTags(ctx, artist)
	})
}

// await runs f and waits for it or for ctx to end, whichever is first. f
// keeps running in the background after ctx ends.
func await[T any](ctx context.Context, f func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := f()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (e *Enricher) generate(ctx context.Context, req Request) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			text, err = e.call(ctx, req)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(e.cfg.Attempts),
		retry.Delay(e.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrTransient)
		}),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Debug("generation failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	return text, err
}

// call makes one backend call. Hitting the per-call deadline or a
// network failure counts as transient as long as the caller's context is
// still live.
func (e *Enricher) call(ctx context.Context, req Request) (string, error) {
	callCtx := ctx
	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}
	text, err := await(callCtx, func() (string, error) {
		return e.gen.Generate(callCtx, req)
	})
	if err == nil || ctx.Err() != nil || errors.Is(err, ErrTransient) {
		return text, err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: call timed out after %s", ErrTransient, e.cfg.CallTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return "", err
}
