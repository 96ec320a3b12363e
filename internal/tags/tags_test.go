package tags

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"golang.org/x/time/rate"

	"github.com/ademuri/era-tools/internal/store"
)

type fakeFetcher struct {
	tags  map[string][]Tag
	errs  []error
	calls int
}

func (f *fakeFetcher) TopTags(_ context.Context, artist string) ([]Tag, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.tags[artist], nil
}

func testSource(f Fetcher, opts ...Option) *Source {
	opts = append([]Option{
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithRetryDelay(time.Millisecond),
	}, opts...)
	return NewSource(f, opts...)
}

func TestArtistTags(t *testing.T) {
	f := &fakeFetcher{tags: map[string][]Tag{
		"Slowdive": {
			{Name: "Shoegaze", Count: 100},
			{Name: "dream pop", Count: 70},
			{Name: "", Count: 50},
			{Name: "british", Count: 40},
			{Name: "90s", Count: 30},
			{Name: "seen live", Count: 0},
		},
	}}
	got, err := testSource(f).ArtistTags(context.Background(), "Slowdive")
	if err != nil {
		t.Fatalf("ArtistTags: %v", err)
	}
	if want := []string{"shoegaze", "dream pop", "british"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArtistTagsRetriesServerErrors(t *testing.T) {
	f := &fakeFetcher{
		tags: map[string][]Tag{"Low": {{Name: "slowcore", Count: 100}}},
		errs: []error{&lastfm.LastfmError{Code: 503, Message: "unavailable"}},
	}
	got, err := testSource(f).ArtistTags(context.Background(), "Low")
	if err != nil {
		t.Fatalf("ArtistTags: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
	if !reflect.DeepEqual(got, []string{"slowcore"}) {
		t.Errorf("got %v", got)
	}
}

func TestArtistTagsDoesNotRetryClientErrors(t *testing.T) {
	f := &fakeFetcher{errs: []error{&lastfm.LastfmError{Code: 6, Message: "artist not found"}}}
	if _, err := testSource(f).ArtistTags(context.Background(), "Nobody"); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}
}

func TestArtistTagsUsesCache(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "tags.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()

	f := &fakeFetcher{tags: map[string][]Tag{"Wilco": {{Name: "alt-country", Count: 100}, {Name: "indie", Count: 80}}}}
	src := testSource(f, WithCache(db))

	for i := 0; i < 3; i++ {
		got, err := src.ArtistTags(context.Background(), "Wilco")
		if err != nil {
			t.Fatalf("ArtistTags: %v", err)
		}
		if want := []string{"alt-country", "indie"}; !reflect.DeepEqual(got, want) {
			t.Errorf("call %d: got %v, want %v", i, got, want)
		}
	}
	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", f.calls)
	}
}

type failingCache struct{}

func (failingCache) GetArtistTags(string, time.Duration) ([]string, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingCache) SaveArtistTags(string, []string, []int) error {
	return errors.New("disk on fire")
}

func TestArtistTagsCacheFailureFallsThrough(t *testing.T) {
	f := &fakeFetcher{tags: map[string][]Tag{"Low": {{Name: "slowcore", Count: 100}}}}
	got, err := testSource(f, WithCache(failingCache{})).ArtistTags(context.Background(), "Low")
	if err != nil {
		t.Fatalf("ArtistTags: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"slowcore"}) {
		t.Errorf("got %v", got)
	}
}

// blockingFetcher answers only when its context ends.
type blockingFetcher struct{}

func (blockingFetcher) TopTags(ctx context.Context, _ string) ([]Tag, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestArtistTagsStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testSource(blockingFetcher{}).ArtistTags(ctx, "Slowdive")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ArtistTags() error = %v, want a deadline error", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("ArtistTags took %s after its context ended", elapsed)
	}
}

func TestLastFMTopTagsHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLastFM("key", "secret").TopTags(ctx, "Slowdive")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("TopTags() with a cancelled context = %v, want context.Canceled", err)
	}
}
