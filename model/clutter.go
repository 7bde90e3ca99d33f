package model

// ClutterClassMeta is one catalog entry as supplied with a profile response.
// Name may be empty; the catalog key is authoritative for display.
type ClutterClassMeta struct {
	ID    int    `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color"`
}

// ClutterCatalog maps display names to class metadata. It is scoped to a
// single profile and never cached across profiles.
type ClutterCatalog map[string]ClutterClassMeta

// ClutterClass is a catalog entry known to occur along a specific path.
type ClutterClass struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ColorHex string `json:"color"`
}
