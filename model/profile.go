package model

// NoClutterClass marks a sample that carries no land-cover classification.
const NoClutterClass = -1

// LinkProfile is one computed point-to-point link profile as delivered by
// the prediction service. All per-sample slices are indexed by sample and
// must share the same length. A LinkProfile is treated as read-only by every
// consumer in this module.
type LinkProfile struct {
	// Distance is the cumulative distance from the transmitter, non-decreasing.
	Distance []float64 `json:"distance"`
	// Elevation is the ground elevation per sample.
	Elevation []float64 `json:"elevation"`
	// ClutterHeight and ClutterClass are optional as a pair. When both are
	// nil the profile carries no land-cover information.
	ClutterHeight []float64 `json:"clutterHeight,omitempty"`
	ClutterClass  []int     `json:"clutterClass,omitempty"`
	// Profile is the height of the direct transmitter-receiver line.
	Profile []float64 `json:"profile"`
	// FresnelRadius is the first Fresnel zone radius per sample.
	FresnelRadius []float64 `json:"fresnelRadius"`

	// FirstSecondaryObstructionIndex ("C" obstruction) is the first sample
	// where clearance is partially lost. Values outside [0, N-1] mean absent.
	FirstSecondaryObstructionIndex int `json:"firstSecondaryObstructionIndex"`
	// FirstPrimaryObstructionIndex ("B" obstruction) is the first sample
	// where the path is blocked. Values outside [0, N-1] mean absent.
	FirstPrimaryObstructionIndex int `json:"firstPrimaryObstructionIndex"`

	// Summary carries the scalar results of the prediction. Optional.
	Summary *LinkSummary `json:"summary,omitempty"`
}

// N returns the number of samples along the path.
func (p LinkProfile) N() int { return len(p.Distance) }

// HasClutter reports whether the profile carries clutter arrays.
func (p LinkProfile) HasClutter() bool {
	return p.ClutterHeight != nil || p.ClutterClass != nil
}

// LinkSummary holds scalar prediction results that travel alongside the
// sampled arrays. None of it feeds the classification; it is passed through
// so a renderer can caption the chart.
type LinkSummary struct {
	PathType string `json:"pathType,omitempty"`
	// DistanceM is the total path length.
	DistanceM float64 `json:"distance"`

	FirstPrimaryObstructionDistance   float64 `json:"firstPrimaryObstructionDistance"`
	FirstSecondaryObstructionDistance float64 `json:"firstSecondaryObstructionDistance"`

	VisibilityClearance float64 `json:"visibilityClearance"`
	Clearance           float64 `json:"clearance"`
	ClearancePercentage float64 `json:"clearancePercentage"`
	ClearanceDistance   float64 `json:"clearanceDistance"`

	Transmitter AntennaPointing `json:"transmitter"`
	Receiver    AntennaPointing `json:"receiver"`

	PathLoss PathLoss `json:"pathLoss"`

	DownlinkFieldStrength float64 `json:"downlinkFieldStrength"`
	UplinkFieldStrength   float64 `json:"uplinkFieldStrength"`
	DownlinkRSL           float64 `json:"downlinkRsl"`
	UplinkRSL             float64 `json:"uplinkRsl"`
}

// AntennaPointing describes the configured and line-of-sight pointing of
// one end of the link, in degrees.
type AntennaPointing struct {
	Azimuth       float64 `json:"azimuth"`
	Tilt          float64 `json:"tilt"`
	TowardAzimuth float64 `json:"towardAzimuth"`
	TowardTilt    float64 `json:"towardTilt"`
}

// PathLoss is the loss breakdown computed by the prediction service, in dB.
type PathLoss struct {
	Total               float64 `json:"total"`
	Basic               float64 `json:"basic"`
	Diffraction         float64 `json:"diffraction"`
	Clutter             float64 `json:"clutter"`
	Penetration         float64 `json:"penetration"`
	PenetrationDiff     float64 `json:"penetrationDiffraction"`
	ReceiverClutterLoss float64 `json:"receiverClutter"`
}
