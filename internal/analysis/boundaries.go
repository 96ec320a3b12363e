package analysis

const (
	// DefaultThreshold is the similarity below which a new era starts.
	DefaultThreshold = 0.3

	// MaxGapDays is the longest silence between two listening weeks that
	// can still belong to the same era.
	MaxGapDays = 28

	// similarityTopN caps how many artists per week are compared.
	similarityTopN = 20
)

// BoundaryReason records why a week starts a new era.
type BoundaryReason string

const (
	ReasonFirst      BoundaryReason = "first"
	ReasonGap        BoundaryReason = "gap"
	ReasonSimilarity BoundaryReason = "similarity"
)

// Similarity is the Jaccard index of the two weeks' top artist sets. The
// number of artists taken from each week is bounded by the smaller
// week, so a week with no artists always scores 0.
func Similarity(a, b WeekBucket) float64 {
	n := min(similarityTopN, a.Artists.Len(), b.Artists.Len())
	if n == 0 {
		return 0.0
	}

	topA := make(map[string]struct{}, n)
	for _, e := range a.Artists.MostCommon(n) {
		topA[e.Key] = struct{}{}
	}
	union := len(topA)
	intersection := 0
	for _, e := range b.Artists.MostCommon(n) {
		if _, ok := topA[e.Key]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Transition describes the comparison between week i-1 and week i.
type Transition struct {
	Index      int
	GapDays    int
	Similarity float64 // not computed for gap boundaries
	Boundary   bool
	Reason     BoundaryReason
}

// Transitions evaluates every adjacent week pair. The first week is
// reported as a boundary with ReasonFirst.
func Transitions(weeks []WeekBucket, threshold float64) []Transition {
	if len(weeks) == 0 {
		return nil
	}

	out := make([]Transition, 0, len(weeks))
	out = append(out, Transition{Index: 0, Boundary: true, Reason: ReasonFirst})
	for i := 1; i < len(weeks); i++ {
		t := Transition{
			Index:   i,
			GapDays: daysBetween(weeks[i-1].WeekStart, weeks[i].WeekStart),
		}
		if t.GapDays > MaxGapDays {
			t.Boundary = true
			t.Reason = ReasonGap
		} else {
			t.Similarity = Similarity(weeks[i-1], weeks[i])
			if t.Similarity < threshold {
				t.Boundary = true
				t.Reason = ReasonSimilarity
			}
		}
		out = append(out, t)
	}
	return out
}

// DetectBoundaries returns the ascending indices of weeks that start an
// era. Index 0 is always included for non-empty input. A lower threshold
// yields fewer, longer eras.
func DetectBoundaries(weeks []WeekBucket, threshold float64) []int {
	var boundaries []int
	for _, t := range Transitions(weeks, threshold) {
		if t.Boundary {
			boundaries = append(boundaries, t.Index)
		}
	}
	return boundaries
}
