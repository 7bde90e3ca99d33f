package core

// MaskByClass keeps values[i] where classIDs[i] == target and leaves a gap
// (nil) everywhere else. The result always has len(values) entries; samples
// without a class id are gaps. Returned pointers never alias values.
func MaskByClass(values []float64, classIDs []int, target int) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if i >= len(classIDs) || classIDs[i] != target {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

// HasValue reports whether a masked series contains at least one sample.
func HasValue(masked []*float64) bool {
	for _, v := range masked {
		if v != nil {
			return true
		}
	}
	return false
}
