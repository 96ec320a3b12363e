package progress

import (
	"errors"
	"testing"
)

func TestMonotonic(t *testing.T) {
	var got []int
	m := NewMonotonic(Func(func(stage string, percent int) error {
		got = append(got, percent)
		return nil
	}), nil)

	for _, p := range []int{10, 40, 30, 120, 50} {
		m.Report(StageNaming, p)
	}

	want := []int{10, 40, 40, 100, 100}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("report %d = %d, want %d", i, got[i], want[i])
		}
	}
	if m.Last() != 100 {
		t.Errorf("Last() = %d, want 100", m.Last())
	}
}

func TestMonotonicSwallowsFailures(t *testing.T) {
	failing := NewMonotonic(Func(func(string, int) error {
		return errors.New("connection closed")
	}), nil)
	if err := failing.Report(StageNaming, 50); err != nil {
		t.Errorf("expected reporter error to be swallowed, got %v", err)
	}

	panicking := NewMonotonic(Func(func(string, int) error {
		panic("boom")
	}), nil)
	if err := panicking.Report(StageNaming, 50); err != nil {
		t.Errorf("expected reporter panic to be swallowed, got %v", err)
	}

	if err := NewMonotonic(nil, nil).Report(StageComplete, 100); err != nil {
		t.Errorf("nil reporter: %v", err)
	}
}

func TestScale(t *testing.T) {
	cases := []struct{ done, total, want int }{
		{0, 5, 40},
		{1, 5, 46},
		{5, 5, 70},
		{0, 0, 70},
	}
	for _, c := range cases {
		if got := Scale(c.done, c.total, 40, 70); got != c.want {
			t.Errorf("Scale(%d, %d) = %d, want %d", c.done, c.total, got, c.want)
		}
	}
}
