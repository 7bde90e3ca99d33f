package core

import "github.com/signalsfoundry/linkprofile/model"

// FresnelClearanceRatio is the fraction of the first Fresnel zone that must
// stay clear for a link to be considered viable.
const FresnelClearanceRatio = 0.6

// FresnelCurves holds the lower boundaries of the first Fresnel zone and of
// its 60% clearance zone, sampled at the profile distances.
type FresnelCurves struct {
	Fresnel   []model.Point
	Fresnel60 []model.Point
}

// BuildFresnelCurves computes profile[i] - r[i] and profile[i] - 0.6*r[i].
// Negative results are valid. The inputs are not modified.
func BuildFresnelCurves(distance, profile, fresnelRadius []float64) FresnelCurves {
	n := min(len(distance), len(profile), len(fresnelRadius))
	curves := FresnelCurves{
		Fresnel:   make([]model.Point, n),
		Fresnel60: make([]model.Point, n),
	}
	for i := 0; i < n; i++ {
		r := fresnelRadius[i]
		curves.Fresnel[i] = model.Point{X: distance[i], Y: model.Float(profile[i] - r)}
		curves.Fresnel60[i] = model.Point{X: distance[i], Y: model.Float(profile[i] - r*FresnelClearanceRatio)}
	}
	return curves
}
