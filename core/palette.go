package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/signalsfoundry/linkprofile/model"
)

// Default colours, as #RRGGBB.
const (
	ColorElevation   = "#808080"
	ColorClear       = "#32CD32"
	ColorCaution     = "#FFFF00"
	ColorBlocked     = "#FF0000"
	ColorFresnel     = "#87CEFA"
	ColorTransmitter = "#32CD32"
	ColorReceiver    = "#FF00FF"
	ColorFallback    = "#808080"
)

const (
	profileLineWidth = 2.0
	fresnelLineWidth = 2.0
	clutterLineWidth = 4.0
	anchorMarkerSize = 15.0
	// clutterBandAlpha renders filled clutter bands half transparent.
	clutterBandAlpha = 128
)

var fresnel60DashPattern = []float64{8, 6}

// Accepts RGB, ARGB, RRGGBB and AARRGGBB with an optional leading '#'.
var hexColorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// parseColor parses a catalog colour. Eight-digit values carry alpha first,
// the way the prediction service encodes them.
func parseColor(raw string) (drawing.Color, bool) {
	m := hexColorPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return drawing.Color{}, false
	}
	hex := m[1]
	if len(hex) <= 4 {
		hex = expandShortHex(hex)
	}
	if len(hex) == 8 {
		alpha, err := strconv.ParseUint(hex[:2], 16, 8)
		if err != nil {
			return drawing.Color{}, false
		}
		return drawing.ColorFromHex(hex[2:]).WithAlpha(uint8(alpha)), true
	}
	return drawing.ColorFromHex(hex), true
}

// expandShortHex doubles every digit: "F80" becomes "FF8800".
func expandShortHex(short string) string {
	long := make([]byte, 0, 2*len(short))
	for i := 0; i < len(short); i++ {
		long = append(long, short[i], short[i])
	}
	return string(long)
}

// formatColor renders c as #RRGGBB, or #RRGGBBAA when not fully opaque.
func formatColor(c drawing.Color) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// classColor resolves a clutter class colour, falling back to gray when the
// catalog value cannot be parsed.
func classColor(raw string) drawing.Color {
	if c, ok := parseColor(raw); ok {
		return c
	}
	c, _ := parseColor(ColorFallback)
	return c
}

// NormalizeColor returns raw in canonical #RRGGBB[AA] form, or the fallback
// gray when raw is not a hex colour.
func NormalizeColor(raw string) string {
	return formatColor(classColor(raw))
}

func clutterBandStyle(raw string) (stroke, fill *model.StyleHint) {
	color := formatColor(classColor(raw).WithAlpha(clutterBandAlpha))
	return &model.StyleHint{Color: color, Dash: model.DashSolid},
		&model.StyleHint{Color: color}
}

func clutterLineStyle(raw string) *model.StyleHint {
	return &model.StyleHint{
		Color: formatColor(classColor(raw)),
		Width: clutterLineWidth,
		Dash:  model.DashSolid,
	}
}

func segmentStyle(seg model.Segment) *model.StyleHint {
	color := ColorBlocked
	switch seg {
	case model.SegmentClear:
		color = ColorClear
	case model.SegmentCaution:
		color = ColorCaution
	}
	return &model.StyleHint{Color: color, Width: profileLineWidth, Dash: model.DashSolid}
}

func anchorStyle(color string) *model.StyleHint {
	return &model.StyleHint{Color: color, MarkerSize: anchorMarkerSize}
}
