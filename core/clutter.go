package core

import (
	"sort"

	"github.com/signalsfoundry/linkprofile/model"
)

// ResolveClutterClasses returns the catalog entries whose class id occurs in
// ids. Output follows the first-seen order of ids along the path so repeated
// runs produce identical output. Catalog keys that share an id are emitted
// together, ordered by name. Each entry's display name comes from its
// catalog key.
//
// Negative ids are unclassified samples and never resolve. An empty catalog
// or a path with no matching ids yields nil.
func ResolveClutterClasses(ids []int, catalog model.ClutterCatalog) []model.ClutterClass {
	if len(ids) == 0 || len(catalog) == 0 {
		return nil
	}

	namesByID := make(map[int][]string, len(catalog))
	for name, meta := range catalog {
		namesByID[meta.ID] = append(namesByID[meta.ID], name)
	}

	seen := make(map[int]struct{})
	var out []model.ClutterClass
	for _, id := range ids {
		if id < 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		names := namesByID[id]
		sort.Strings(names)
		for _, name := range names {
			out = append(out, model.ClutterClass{
				ID:       id,
				Name:     name,
				ColorHex: catalog[name].Color,
			})
		}
	}
	return out
}
