// Package tags looks up last.fm genre tags for artists, caching them in
// the local store.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxTags = 3
	DefaultMaxAge  = 30 * 24 * time.Hour
	userAgent      = "era-tools/1.0"
	retryAttempts  = 3
	// last.fm weights tags 0-100; zero-weight tags are noise.
	minTagCount = 1
)

// Tag is a last.fm tag with its weight for an artist.
type Tag struct {
	Name  string
	Count int
}

// Fetcher fetches an artist's top tags from a remote service. It must
// return once ctx ends.
type Fetcher interface {
	TopTags(ctx context.Context, artist string) ([]Tag, error)
}

// Cache stores fetched tags between runs.
type Cache interface {
	GetArtistTags(artist string, maxAge time.Duration) ([]string, bool, error)
	SaveArtistTags(artist string, tags []string, counts []int) error
}

// LastFM fetches tags with the last.fm artist.getTopTags method.
type LastFM struct {
	client *lastfm.Api
}

func NewLastFM(apiKey, secret string) *LastFM {
	client := lastfm.New(apiKey, secret)
	client.SetUserAgent(userAgent)
	return &LastFM{client: client}
}

// TopTags calls artist.getTopTags. The last.fm client takes no context,
// so a request still in flight when ctx ends is abandoned.
func (l *LastFM) TopTags(ctx context.Context, artist string) ([]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		topTags lastfm.ArtistGetTopTags
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		topTags, err := l.client.Artist.GetTopTags(lastfm.P{
			"artist":      artist,
			"autocorrect": 1,
		})
		ch <- result{topTags, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	var tags []Tag
	for _, t := range r.topTags.Tags {
		c, _ := strconv.Atoi(t.Count)
		tags = append(tags, Tag{Name: t.Name, Count: c})
	}
	return tags, nil
}

// retryable reports whether a last.fm failure is a server-side error.
func retryable(err error) bool {
	var lerr *lastfm.LastfmError
	if errors.As(err, &lerr) {
		return lerr.Code/100 == 5
	}
	return false
}

// Source implements naming.TagSource on top of a Fetcher, an optional
// Cache and a shared rate limiter.
type Source struct {
	fetcher Fetcher
	cache   Cache
	limiter *rate.Limiter
	logger  *slog.Logger
	maxTags int
	maxAge  time.Duration
	delay   time.Duration

	// Guards the cache, which is not assumed to be safe for concurrent use.
	mu sync.Mutex
}

// Option configures a Source.
type Option func(*Source)

func WithCache(c Cache) Option { return func(s *Source) { s.cache = c } }
func WithLimiter(l *rate.Limiter) Option { return func(s *Source) { s.limiter = l } }
func WithLogger(l *slog.Logger) Option { return func(s *Source) { s.logger = l } }
func WithMaxTags(n int) Option { return func(s *Source) { s.maxTags = n } }
func WithMaxAge(d time.Duration) Option { return func(s *Source) { s.maxAge = d } }
func WithRetryDelay(d time.Duration) Option { return func(s *Source) { s.delay = d } }

// NewSource returns a Source. By default it makes at most one request
// per second, as last.fm asks of API clients.
func NewSource(f Fetcher, opts ...Option) *Source {
	s := &Source{
		fetcher: f,
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
		logger:  slog.Default(),
		maxTags: DefaultMaxTags,
		maxAge:  DefaultMaxAge,
		delay:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ArtistTags returns up to maxTags tag names for artist, most popular
// first.
func (s *Source) ArtistTags(ctx context.Context, artist string) ([]string, error) {
	if cached, ok := s.cached(artist); ok {
		return limit(cached, s.maxTags), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var fetched []Tag
	err := retry.Do(
		func() error {
			var err error
			fetched, err = s.fetcher.TopTags(ctx, artist)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("last.fm errored, retrying", "artist", artist, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching tags for artist %s: %w", artist, err)
	}

	var names []string
	var counts []int
	for _, t := range fetched {
		if t.Count < minTagCount || strings.TrimSpace(t.Name) == "" {
			continue
		}
		names = append(names, strings.ToLower(t.Name))
		counts = append(counts, t.Count)
	}
	s.save(artist, names, counts)
	return limit(names, s.maxTags), nil
}

func (s *Source) cached(artist string) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tags, fresh, err := s.cache.GetArtistTags(artist, s.maxAge)
	if err != nil {
		s.logger.Warn("reading tag cache", "artist", artist, "err", err)
		return nil, false
	}
	return tags, fresh
}

func (s *Source) save(artist string, names []string, counts []int) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.SaveArtistTags(artist, names, counts); err != nil {
		s.logger.Warn("saving tags", "artist", artist, "err", err)
	}
}

func limit(tags []string, n int) []string {
	if n >= 0 && len(tags) > n {
		return tags[:n]
	}
	return tags
}
