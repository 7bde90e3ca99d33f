package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/linkprofile/model"
)

// ErrMalformedProfile is wrapped by every input validation failure.
var ErrMalformedProfile = errors.New("malformed link profile")

type sampleArray struct {
	name    string
	length  int
	present bool
}

// validateProfile checks that every per-sample array shares one length and
// that the required arrays exist. It returns the sample count on success.
func validateProfile(p model.LinkProfile) (int, error) {
	required := []sampleArray{
		{"distance", len(p.Distance), p.Distance != nil},
		{"elevation", len(p.Elevation), p.Elevation != nil},
		{"profile", len(p.Profile), p.Profile != nil},
		{"fresnelRadius", len(p.FresnelRadius), p.FresnelRadius != nil},
	}
	if p.HasClutter() {
		required = append(required,
			sampleArray{"clutterHeight", len(p.ClutterHeight), p.ClutterHeight != nil},
			sampleArray{"clutterClass", len(p.ClutterClass), p.ClutterClass != nil},
		)
	}

	n := 0
	for _, a := range required {
		n = max(n, a.length)
	}
	if n == 0 {
		return 0, nil
	}

	var problems []string
	for _, a := range required {
		switch {
		case !a.present:
			problems = append(problems, a.name+" is missing")
		case a.length != n:
			problems = append(problems, fmt.Sprintf("%s has %d samples, want %d", a.name, a.length, n))
		}
	}
	if len(problems) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrMalformedProfile, strings.Join(problems, "; "))
	}
	return n, nil
}

// distanceWarnings reports samples where the cumulative distance decreases.
// Such profiles still render; the renderer may draw them folded back.
func distanceWarnings(distance []float64) []string {
	for i := 1; i < len(distance); i++ {
		if distance[i] < distance[i-1] {
			return []string{fmt.Sprintf("distance decreases at sample %d (%g < %g)", i, distance[i], distance[i-1])}
		}
	}
	return nil
}
