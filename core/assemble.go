package core

import (
	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/linkprofile/model"
)

// Axis padding around the data, in the units of each axis.
const (
	DistanceMargin       = 5.0
	ElevationLowerMargin = 5.0
	ElevationUpperMargin = 20.0
)

// Series names and axis titles.
const (
	NameElevation   = "Elevation"
	NameProfile     = "Profile"
	NameFresnel     = "Fresnel"
	NameFresnel60   = "Fresnel 60%"
	NameTransmitter = "Transmitter"
	NameReceiver    = "Receiver"

	XAxisTitle = "Distance, m"
	YAxisTitle = "Elevation, m"
)

// DiagnosticNoSamples is reported for a well-formed profile without samples.
const DiagnosticNoSamples = "profile has no samples"

// Assemble classifies a link profile into render-ready series, in a fixed
// order:
//
//  1. clutter height bands, one per resolved class
//  2. ground elevation
//  3. clutter overlay lines on the elevation, one per resolved class
//  4. direct path segments (Clear, Caution, Blocked)
//  5. Fresnel zone boundary
//  6. 60% Fresnel clearance boundary
//  7. transmitter and receiver anchors
//
// Assemble never panics on bad input. A malformed profile yields an empty
// visualization carrying a diagnostic, plus an error wrapping
// ErrMalformedProfile. A profile without samples yields an empty
// visualization with a diagnostic and no error.
func Assemble(p model.LinkProfile, catalog model.ClutterCatalog) (model.ProfileVisualization, error) {
	n, err := validateProfile(p)
	if err != nil {
		return model.ProfileVisualization{Diagnostic: err.Error()}, err
	}
	if n == 0 {
		return model.ProfileVisualization{Diagnostic: DiagnosticNoSamples}, nil
	}

	viz := model.ProfileVisualization{
		XAxisTitle: XAxisTitle,
		YAxisTitle: YAxisTitle,
		Summary:    p.Summary,
		Warnings:   distanceWarnings(p.Distance),
	}

	var classes []model.ClutterClass
	if p.HasClutter() {
		classes = ResolveClutterClasses(p.ClutterClass, catalog)
	}

	viz.Series = append(viz.Series, clutterBandSeries(p, classes)...)
	viz.Series = append(viz.Series, elevationSeries(p))
	viz.Series = append(viz.Series, clutterLineSeries(p, classes)...)

	segments, warnings := SegmentProfile(p.Distance, p.Profile,
		p.FirstSecondaryObstructionIndex, p.FirstPrimaryObstructionIndex)
	viz.Warnings = append(viz.Warnings, warnings...)
	for _, seg := range segments {
		viz.Series = append(viz.Series, model.RenderSeries{
			Name:    NameProfile,
			Kind:    model.SeriesKindLine,
			Role:    model.RoleProfile,
			Segment: seg.Segment,
			Points:  seg.Points,
			Stroke:  segmentStyle(seg.Segment),
		})
	}

	curves := BuildFresnelCurves(p.Distance, p.Profile, p.FresnelRadius)
	viz.Series = append(viz.Series,
		model.RenderSeries{
			Name:   NameFresnel,
			Kind:   model.SeriesKindLine,
			Role:   model.RoleFresnel,
			Points: curves.Fresnel,
			Stroke: &model.StyleHint{Color: ColorFresnel, Width: fresnelLineWidth, Dash: model.DashSolid},
		},
		model.RenderSeries{
			Name:   NameFresnel60,
			Kind:   model.SeriesKindLine,
			Role:   model.RoleFresnel60,
			Points: curves.Fresnel60,
			Stroke: &model.StyleHint{
				Color:       ColorFresnel,
				Width:       fresnelLineWidth,
				Dash:        model.DashDashed,
				DashPattern: append([]float64(nil), fresnel60DashPattern...),
			},
		},
	)

	viz.Series = append(viz.Series,
		anchorSeries(NameTransmitter, model.RoleTransmitter, ColorTransmitter, p.Distance[0], p.Profile[0]),
		anchorSeries(NameReceiver, model.RoleReceiver, ColorReceiver, p.Distance[n-1], p.Profile[n-1]),
	)

	viz.XRange, viz.YRange = axisRanges(p)
	return viz, nil
}

func clutterBandSeries(p model.LinkProfile, classes []model.ClutterClass) []model.RenderSeries {
	var out []model.RenderSeries
	for _, c := range classes {
		masked := MaskByClass(p.ClutterHeight, p.ClutterClass, c.ID)
		if !HasValue(masked) {
			continue
		}
		stroke, fill := clutterBandStyle(c.ColorHex)
		out = append(out, model.RenderSeries{
			Name:    c.Name,
			Kind:    model.SeriesKindLine,
			Role:    model.RoleClutterBand,
			ClassID: classID(c.ID),
			Points:  maskedPoints(p.Distance, masked),
			Stroke:  stroke,
			Fill:    fill,
		})
	}
	return out
}

func clutterLineSeries(p model.LinkProfile, classes []model.ClutterClass) []model.RenderSeries {
	var out []model.RenderSeries
	for _, c := range classes {
		masked := MaskByClass(p.Elevation, p.ClutterClass, c.ID)
		if !HasValue(masked) {
			continue
		}
		out = append(out, model.RenderSeries{
			Name:    c.Name,
			Kind:    model.SeriesKindLine,
			Role:    model.RoleClutterLine,
			ClassID: classID(c.ID),
			Points:  maskedPoints(p.Distance, masked),
			Stroke:  clutterLineStyle(c.ColorHex),
		})
	}
	return out
}

func elevationSeries(p model.LinkProfile) model.RenderSeries {
	return model.RenderSeries{
		Name:   NameElevation,
		Kind:   model.SeriesKindLine,
		Role:   model.RoleElevation,
		Points: linePoints(p.Distance, p.Elevation),
		Stroke: &model.StyleHint{Color: ColorElevation, Dash: model.DashSolid},
		Fill:   &model.StyleHint{Color: ColorElevation},
	}
}

func anchorSeries(name string, role model.SeriesRole, color string, x, y float64) model.RenderSeries {
	return model.RenderSeries{
		Name:   name,
		Kind:   model.SeriesKindScatter,
		Role:   role,
		Points: []model.Point{{X: x, Y: model.Float(y)}},
		Fill:   anchorStyle(color),
	}
}

// axisRanges pads the data extent. Callers guarantee non-empty arrays.
func axisRanges(p model.LinkProfile) (x, y model.Range) {
	x = model.Range{
		Min: floats.Min(p.Distance) - DistanceMargin,
		Max: floats.Max(p.Distance) + DistanceMargin,
	}
	y = model.Range{
		Min: floats.Min(p.Elevation) - ElevationLowerMargin,
		Max: max(floats.Max(p.Elevation), floats.Max(p.Profile)) + ElevationUpperMargin,
	}
	return x, y
}

func classID(id int) *int { return &id }
