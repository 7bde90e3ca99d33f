package core

import (
	"fmt"

	"github.com/signalsfoundry/linkprofile/model"
)

// ProfileSegment is a contiguous stretch of the direct path sharing one
// visibility classification. Start and End are inclusive sample indices.
type ProfileSegment struct {
	Segment model.Segment
	Start   int
	End     int
	Points  []model.Point
}

// Len returns the number of samples in the segment.
func (s ProfileSegment) Len() int { return s.End - s.Start + 1 }

// SegmentProfile splits the direct path into Clear, Caution and Blocked
// stretches using the secondary ("C") and primary ("B") obstruction indices.
// Segments come back in that fixed order, empty ones omitted:
//
//	Clear   [0, s)
//	Caution (s, p]   only when p > s
//	Blocked [p, N-1]
//
// The secondary sample itself belongs to no segment and the primary sample
// closes Caution and opens Blocked, so the line stays continuous into the
// blocked stretch.
//
// A primary index outside [0, N-1] is absent and clamps to N-1. An absent
// secondary index leaves the extent of clear visibility unknown, so the
// whole path is reported as Blocked. A primary index before the secondary
// one cannot leave the path clear past it; s is lowered to p. Both
// corrections are returned as warnings.
func SegmentProfile(distance, profile []float64, secondaryIdx, primaryIdx int) ([]ProfileSegment, []string) {
	n := min(len(distance), len(profile))
	if n == 0 {
		return nil, nil
	}

	var warnings []string
	if secondaryIdx < 0 || secondaryIdx >= n {
		warnings = append(warnings, fmt.Sprintf(
			"secondary obstruction index %d outside [0, %d]; whole path reported as blocked",
			secondaryIdx, n-1))
		return []ProfileSegment{newSegment(model.SegmentBlocked, distance, profile, 0, n-1)}, warnings
	}

	s := secondaryIdx
	p := primaryIdx
	if p < 0 || p >= n {
		p = n - 1
	}
	if p < s {
		warnings = append(warnings, fmt.Sprintf(
			"primary obstruction index %d precedes secondary obstruction index %d; clear section ends at %d",
			p, s, p))
		s = p
	}

	segments := make([]ProfileSegment, 0, 3)
	if s > 0 {
		segments = append(segments, newSegment(model.SegmentClear, distance, profile, 0, s-1))
	}
	if p > s {
		segments = append(segments, newSegment(model.SegmentCaution, distance, profile, s+1, p))
	}
	segments = append(segments, newSegment(model.SegmentBlocked, distance, profile, p, n-1))
	return segments, warnings
}

func newSegment(kind model.Segment, distance, profile []float64, start, end int) ProfileSegment {
	return ProfileSegment{
		Segment: kind,
		Start:   start,
		End:     end,
		Points:  linePoints(distance[start:end+1], profile[start:end+1]),
	}
}

// linePoints pairs xs and ys into points without gaps.
func linePoints(xs, ys []float64) []model.Point {
	n := min(len(xs), len(ys))
	pts := make([]model.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = model.Point{X: xs[i], Y: model.Float(ys[i])}
	}
	return pts
}

// maskedPoints pairs xs with a masked series, preserving gaps.
func maskedPoints(xs []float64, ys []*float64) []model.Point {
	n := min(len(xs), len(ys))
	pts := make([]model.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = model.Point{X: xs[i], Y: ys[i]}
	}
	return pts
}
