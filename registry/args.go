package registry

import "maps"

// Args is the bag of construction arguments handed to an Entrypoint.
// Arguments a model does not understand are ignored by convention, so
// callers can pass one bag to every family.
type Args map[string]any

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	c := make(Args, len(a))
	maps.Copy(c, a)
	return c
}

// Has reports whether name is present.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Bool returns the named argument or def when absent or mistyped.
func (a Args) Bool(name string, def bool) bool {
	if v, ok := a[name].(bool); ok {
		return v
	}
	return def
}

// Int returns the named argument or def when absent or mistyped.
// Float values holding integers are accepted, as argument bags commonly
// round-trip through JSON or YAML.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case int:
		return v
	case float64:
		if float64(int(v)) == v {
			return int(v)
		}
	}
	return def
}

// Float returns the named argument or def when absent or mistyped.
func (a Args) Float(name string, def float64) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// String returns the named argument or def when absent or mistyped.
func (a Args) String(name, def string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return def
}
