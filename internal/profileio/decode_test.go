package profileio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/linkprofile/core"
	"github.com/signalsfoundry/linkprofile/model"
)

const sampleResponse = `{
  "data": {
    "arrays": {
      "distance": [0, 10, 20, 30, 40],
      "elevation": [10, 11, 12, 13, 14],
      "clutterHeight": [3, 3, 8, 8, 3],
      "clutterClass": [1, 1, 2, 2, 1],
      "profile": [30, 28, 26, 24, 22],
      "fresnel": [0, 2, 3, 2, 0]
    },
    "pathType": "LOS",
    "clutterClasses": {
      "Open": {"id": 1, "name": "open", "color": "#FFFF00"},
      "Forest": {"id": 2, "color": "#228B22"},
      "Gone": null
    },
    "distance": 40,
    "firstBObstIndex": 3,
    "firstCObstIndex": 1,
    "clearancePercentage": 42.5,
    "transmitterAzimuth": 90,
    "txToRxAzimuth": 91.5,
    "pathLossValues": {"pathLoss": 120.5, "clutterLoss": 7}
  }
}`

func TestDecodeProfileResponse(t *testing.T) {
	dec, err := DecodeProfileResponse(strings.NewReader(sampleResponse))
	require.NoError(t, err)

	p := dec.Profile
	assert.Equal(t, 5, p.N())
	assert.Equal(t, []int{1, 1, 2, 2, 1}, p.ClutterClass)
	assert.Equal(t, []float64{0, 2, 3, 2, 0}, p.FresnelRadius)
	assert.Equal(t, 1, p.FirstSecondaryObstructionIndex)
	assert.Equal(t, 3, p.FirstPrimaryObstructionIndex)

	require.NotNil(t, p.Summary)
	assert.Equal(t, "LOS", p.Summary.PathType)
	assert.Equal(t, 42.5, p.Summary.ClearancePercentage)
	assert.Equal(t, 91.5, p.Summary.Transmitter.TowardAzimuth)
	assert.Equal(t, 120.5, p.Summary.PathLoss.Total)

	assert.Len(t, dec.Catalog, 2, "null catalog entries are skipped")
	assert.Equal(t, model.ClutterClassMeta{ID: 1, Name: "open", Color: "#FFFF00"}, dec.Catalog["Open"])
}

func TestDecodeFallsBackToTraceValues(t *testing.T) {
	body := `{"data": {"arrays": {"distance": [0]}, "traceValues": {"bObstIndex": 4, "cObstIndex": 2}}}`
	dec, err := DecodeProfileResponse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Profile.FirstSecondaryObstructionIndex)
	assert.Equal(t, 4, dec.Profile.FirstPrimaryObstructionIndex)
}

func TestDecodeMissingIndicesAreAbsent(t *testing.T) {
	dec, err := DecodeProfileResponse(strings.NewReader(`{"data": {"arrays": {}}}`))
	require.NoError(t, err)
	assert.Equal(t, AbsentIndex, dec.Profile.FirstSecondaryObstructionIndex)
	assert.Equal(t, AbsentIndex, dec.Profile.FirstPrimaryObstructionIndex)
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, err := DecodeProfileResponse(strings.NewReader(`{}`))
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	_, err = DecodeProfileResponse(strings.NewReader(`{"data": {"pathType": "LOS"}}`))
	assert.True(t, errors.Is(err, ErrMissingArrays))

	_, err = DecodeProfileResponse(strings.NewReader(`{"data": [`))
	assert.Error(t, err)
}

func TestEncodeVisualizationWritesGapsAsNull(t *testing.T) {
	dec, err := DecodeProfileResponse(strings.NewReader(sampleResponse))
	require.NoError(t, err)
	viz, err := core.Assemble(dec.Profile, dec.Catalog)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeVisualization(&buf, viz))

	out := buf.String()
	assert.Contains(t, out, `"y": null`)
	assert.Contains(t, out, `"role": "clutter_band"`)
	assert.Contains(t, out, `"segment": "caution"`)
	assert.Contains(t, out, `"xAxisTitle": "Distance, m"`)
}

func TestDecodeEmptyClutterArraysRenderWithoutClutter(t *testing.T) {
	body := `{"data": {"arrays": {
		"distance": [0, 10, 20],
		"elevation": [5, 6, 7],
		"clutterHeight": [],
		"clutterClass": [],
		"profile": [20, 19, 18],
		"fresnel": [0, 1, 0]
	}, "firstCObstIndex": 1, "firstBObstIndex": 2,
	"clutterClasses": {"Open": {"id": 1, "color": "#FFFF00"}}}}`

	dec, err := DecodeProfileResponse(strings.NewReader(body))
	require.NoError(t, err)
	assert.False(t, dec.Profile.HasClutter())

	viz, err := core.Assemble(dec.Profile, dec.Catalog)
	require.NoError(t, err)
	assert.Empty(t, viz.SeriesByRole(model.RoleClutterBand))
	assert.Empty(t, viz.SeriesByRole(model.RoleClutterLine))
	assert.Len(t, viz.SeriesByRole(model.RoleElevation), 1)
}

func TestDecodeHalfEmptyClutterPairIsRejected(t *testing.T) {
	body := `{"data": {"arrays": {
		"distance": [0, 10],
		"elevation": [5, 6],
		"clutterHeight": [],
		"clutterClass": [1, 1],
		"profile": [20, 19],
		"fresnel": [0, 0]
	}}}`

	dec, err := DecodeProfileResponse(strings.NewReader(body))
	require.NoError(t, err)
	_, err = core.Assemble(dec.Profile, dec.Catalog)
	assert.True(t, errors.Is(err, core.ErrMalformedProfile))
}
