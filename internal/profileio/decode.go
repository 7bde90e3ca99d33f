// Package profileio converts between the prediction service's JSON shapes
// and the model types consumed by the pipeline.
package profileio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/signalsfoundry/linkprofile/model"
)

var (
	ErrEmptyResponse = errors.New("profile response has no data")
	ErrMissingArrays = errors.New("profile response has no arrays")
)

// AbsentIndex is used for obstruction indices the response omits.
const AbsentIndex = -1

// Decoded is a decoded profile response.
type Decoded struct {
	Profile model.LinkProfile
	Catalog model.ClutterCatalog
}

// Wire shapes, unexported so they can track the service without leaking.
type responseJSON struct {
	Data *responseBodyJSON `json:"data"`
}

type responseBodyJSON struct {
	Arrays         *arraysJSON                  `json:"arrays"`
	TraceValues    *traceValuesJSON             `json:"traceValues"`
	PathType       string                       `json:"pathType"`
	ClutterClasses map[string]*clutterClassJSON `json:"clutterClasses"`
	Distance       float64                      `json:"distance"`

	FirstBObstIndex    *int    `json:"firstBObstIndex"`
	FirstCObstIndex    *int    `json:"firstCObstIndex"`
	FirstBObstDistance float64 `json:"firstBObstDistance"`
	FirstCObstDistance float64 `json:"firstCObstDistance"`

	TransmitterAzimuth float64 `json:"transmitterAzimuth"`
	TransmitterTilt    float64 `json:"transmitterTilt"`
	ReceiverAzimuth    float64 `json:"receiverAzimuth"`
	ReceiverTilt       float64 `json:"receiverTilt"`
	TxToRxAzimuth      float64 `json:"txToRxAzimuth"`
	TxToRxTilt         float64 `json:"txToRxTilt"`
	RxToTxAzimuth      float64 `json:"rxToTxAzimuth"`
	RxToTxTilt         float64 `json:"rxToTxTilt"`

	VisibilityClearance float64 `json:"visibilityClearance"`
	Clearance           float64 `json:"clearance"`
	ClearancePercentage float64 `json:"clearancePercentage"`
	ClearanceDistance   float64 `json:"clearanceDistance"`

	PathLossValues *pathLossJSON `json:"pathLossValues"`

	DownlinkFieldStrength float64 `json:"downlinkFieldStrength"`
	UplinkFieldStrength   float64 `json:"uplinkFieldStrength"`
	DownlinkFwaRsl        float64 `json:"downlinkFwaRsl"`
	UplinkFwaRsl          float64 `json:"uplinkFwaRsl"`
}

type arraysJSON struct {
	Distance      []float64 `json:"distance"`
	Elevation     []float64 `json:"elevation"`
	ClutterHeight []float64 `json:"clutterHeight"`
	ClutterClass  []int     `json:"clutterClass"`
	Profile       []float64 `json:"profile"`
	Fresnel       []float64 `json:"fresnel"`
}

// traceValuesJSON repeats the obstruction indices; used when the top-level
// fields are missing.
type traceValuesJSON struct {
	BObstIndex *int `json:"bObstIndex"`
	CObstIndex *int `json:"cObstIndex"`
}

type clutterClassJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type pathLossJSON struct {
	PathLoss            float64 `json:"pathLoss"`
	BasicLoss           float64 `json:"basicLoss"`
	DiffractionLoss     float64 `json:"diffractionLoss"`
	ClutterLoss         float64 `json:"clutterLoss"`
	PenetrationLoss     float64 `json:"penetrationLoss"`
	PenObstDiffLoss     float64 `json:"penObstDiffLoss"`
	ReceiverClutterLoss float64 `json:"receiverClutterLoss"`
}

// DecodeProfileResponse parses a profile response body. It checks only the
// envelope; array consistency is left to the pipeline, which reports it as
// a diagnostic.
func DecodeProfileResponse(r io.Reader) (Decoded, error) {
	var resp responseJSON
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return Decoded{}, fmt.Errorf("decode profile response: %w", err)
	}
	if resp.Data == nil {
		return Decoded{}, ErrEmptyResponse
	}
	body := resp.Data
	if body.Arrays == nil {
		return Decoded{}, ErrMissingArrays
	}

	a := body.Arrays
	profile := model.LinkProfile{
		Distance:                       a.Distance,
		Elevation:                      a.Elevation,
		ClutterHeight:                  nilIfEmpty(a.ClutterHeight),
		ClutterClass:                   nilIfEmpty(a.ClutterClass),
		Profile:                        a.Profile,
		FresnelRadius:                  a.Fresnel,
		FirstSecondaryObstructionIndex: obstructionIndex(body.FirstCObstIndex, body.TraceValues, false),
		FirstPrimaryObstructionIndex:   obstructionIndex(body.FirstBObstIndex, body.TraceValues, true),
		Summary:                        summaryFromBody(body),
	}

	catalog := make(model.ClutterCatalog, len(body.ClutterClasses))
	for name, c := range body.ClutterClasses {
		if c == nil {
			continue
		}
		catalog[name] = model.ClutterClassMeta{ID: c.ID, Name: c.Name, Color: c.Color}
	}

	return Decoded{Profile: profile, Catalog: catalog}, nil
}

// nilIfEmpty treats an empty clutter array like an absent one; the service
// sends [] for paths without land-cover data.
func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func obstructionIndex(top *int, tv *traceValuesJSON, primary bool) int {
	if top != nil {
		return *top
	}
	if tv != nil {
		if primary && tv.BObstIndex != nil {
			return *tv.BObstIndex
		}
		if !primary && tv.CObstIndex != nil {
			return *tv.CObstIndex
		}
	}
	return AbsentIndex
}

func summaryFromBody(b *responseBodyJSON) *model.LinkSummary {
	s := &model.LinkSummary{
		PathType:                          b.PathType,
		DistanceM:                         b.Distance,
		FirstPrimaryObstructionDistance:   b.FirstBObstDistance,
		FirstSecondaryObstructionDistance: b.FirstCObstDistance,
		VisibilityClearance:               b.VisibilityClearance,
		Clearance:                         b.Clearance,
		ClearancePercentage:               b.ClearancePercentage,
		ClearanceDistance:                 b.ClearanceDistance,
		Transmitter: model.AntennaPointing{
			Azimuth:       b.TransmitterAzimuth,
			Tilt:          b.TransmitterTilt,
			TowardAzimuth: b.TxToRxAzimuth,
			TowardTilt:    b.TxToRxTilt,
		},
		Receiver: model.AntennaPointing{
			Azimuth:       b.ReceiverAzimuth,
			Tilt:          b.ReceiverTilt,
			TowardAzimuth: b.RxToTxAzimuth,
			TowardTilt:    b.RxToTxTilt,
		},
		DownlinkFieldStrength: b.DownlinkFieldStrength,
		UplinkFieldStrength:   b.UplinkFieldStrength,
		DownlinkRSL:           b.DownlinkFwaRsl,
		UplinkRSL:             b.UplinkFwaRsl,
	}
	if pl := b.PathLossValues; pl != nil {
		s.PathLoss = model.PathLoss{
			Total:               pl.PathLoss,
			Basic:               pl.BasicLoss,
			Diffraction:         pl.DiffractionLoss,
			Clutter:             pl.ClutterLoss,
			Penetration:         pl.PenetrationLoss,
			PenetrationDiff:     pl.PenObstDiffLoss,
			ReceiverClutterLoss: pl.ReceiverClutterLoss,
		}
	}
	return s
}

// EncodeVisualization writes v as indented JSON. Gaps encode as null.
func EncodeVisualization(w io.Writer, v model.ProfileVisualization) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode visualization: %w", err)
	}
	return nil
}
