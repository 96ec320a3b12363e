// Package progress defines how long-running work reports how far along
// it is.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
)

// Stage labels used by the era pipeline.
const (
	StageParsed     = "parsed"
	StageSegmenting = "segmenting"
	StageNaming     = "naming"
	StagePlaylists  = "playlists"
	StageComplete   = "complete"
	StageNoEras     = "no_eras"
)

// Reporter receives a stage label and a completion percentage in
// [0, 100].
type Reporter interface {
	Report(stage string, percent int) error
}

// Func adapts a function to Reporter.
type Func func(stage string, percent int) error

func (f Func) Report(stage string, percent int) error {
	return f(stage, percent)
}

// Discard ignores every report.
var Discard Reporter = Func(func(string, int) error { return nil })

// Monotonic wraps a Reporter so that percentages never decrease and so
// that reporter errors and panics are logged rather than propagated. It
// is safe for concurrent use.
type Monotonic struct {
	mu     sync.Mutex
	next   Reporter
	logger *slog.Logger
	last   int
}

// NewMonotonic wraps r. A nil r discards reports.
func NewMonotonic(r Reporter, logger *slog.Logger) *Monotonic {
	if r == nil {
		r = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monotonic{next: r, logger: logger}
}

// Report forwards the report, clamping percent to [last, 100].
func (m *Monotonic) Report(stage string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	percent = max(min(percent, 100), m.last)
	m.last = percent
	if err := m.safeReport(stage, percent); err != nil {
		m.logger.Warn("progress report failed", "stage", stage, "percent", percent, "err", err)
	}
	return nil
}

// Last returns the highest percentage reported so far.
func (m *Monotonic) Last() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monotonic) safeReport(stage string, percent int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reporter panicked: %v", r)
		}
	}()
	return m.next.Report(stage, percent)
}

// Scale maps done/total onto the [from, to] percentage range.
func Scale(done, total, from, to int) int {
	if total <= 0 {
		return to
	}
	return from + (to-from)*done/total
}
