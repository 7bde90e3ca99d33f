package model

// SeriesKind selects how a renderer should draw a series.
type SeriesKind string

const (
	SeriesKindLine    SeriesKind = "line"
	SeriesKindScatter SeriesKind = "scatter"
)

// SeriesRole identifies what a series depicts, independent of its name.
type SeriesRole string

const (
	RoleClutterBand SeriesRole = "clutter_band"
	RoleElevation   SeriesRole = "elevation"
	RoleClutterLine SeriesRole = "clutter_line"
	RoleProfile     SeriesRole = "profile"
	RoleFresnel     SeriesRole = "fresnel"
	RoleFresnel60   SeriesRole = "fresnel_60"
	RoleTransmitter SeriesRole = "transmitter"
	RoleReceiver    SeriesRole = "receiver"
)

// Segment is the visibility classification of a stretch of the direct path.
type Segment string

const (
	SegmentClear   Segment = "clear"
	SegmentCaution Segment = "caution"
	SegmentBlocked Segment = "blocked"
)

// DashStyle is the stroke pattern requested for a line.
type DashStyle string

const (
	DashSolid  DashStyle = "solid"
	DashDashed DashStyle = "dashed"
)

// StyleHint expresses styling intent. Color is an opaque hex string
// (#RRGGBB or #RRGGBBAA); the renderer owns the final paint.
type StyleHint struct {
	Color       string    `json:"color"`
	Width       float64   `json:"width,omitempty"`
	Dash        DashStyle `json:"dash,omitempty"`
	DashPattern []float64 `json:"dashPattern,omitempty"`
	MarkerSize  float64   `json:"markerSize,omitempty"`
}

// Point is one sample of a series. A nil Y is a gap, not zero.
type Point struct {
	X float64  `json:"x"`
	Y *float64 `json:"y"`
}

// RenderSeries is one independently drawable polyline or point set.
type RenderSeries struct {
	Name    string     `json:"name"`
	Kind    SeriesKind `json:"kind"`
	Role    SeriesRole `json:"role"`
	Segment Segment    `json:"segment,omitempty"`
	// ClassID is set for per-clutter-class series.
	ClassID *int       `json:"classId,omitempty"`
	Points  []Point    `json:"points"`
	Stroke  *StyleHint `json:"stroke,omitempty"`
	Fill    *StyleHint `json:"fill,omitempty"`
}

// Range is a closed numeric interval used for axis limits.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProfileVisualization is the complete output of one pipeline run.
type ProfileVisualization struct {
	Series     []RenderSeries `json:"series"`
	XRange     Range          `json:"xRange"`
	YRange     Range          `json:"yRange"`
	XAxisTitle string         `json:"xAxisTitle,omitempty"`
	YAxisTitle string         `json:"yAxisTitle,omitempty"`
	Summary    *LinkSummary   `json:"summary,omitempty"`

	// Diagnostic explains why the visualization is empty, if it is.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Warnings lists input anomalies that did not prevent a result.
	Warnings []string `json:"warnings,omitempty"`
}

// Empty reports whether the visualization contains no series.
func (v ProfileVisualization) Empty() bool { return len(v.Series) == 0 }

// SeriesByRole returns the series with the given role, in output order.
func (v ProfileVisualization) SeriesByRole(role SeriesRole) []RenderSeries {
	var out []RenderSeries
	for _, s := range v.Series {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// Float returns a pointer to a copy of f, for building Points.
func Float(f float64) *float64 { return &f }
