package runtime

import "strings"

// Conventions drive the name-based behaviour of the evaluator: which
// instance variables start as collections, numbers or floats, and which
// selectors play the derived-value, accessor, display and initializer roles.
type Conventions struct {
	Collections        []string           `toml:"collections"`
	CollectionSuffixes []string           `toml:"collection-suffixes"`
	Numerics           []string           `toml:"numerics"`
	NumericSuffixes    []string           `toml:"numeric-suffixes"`
	Floats             map[string]float64 `toml:"floats"`

	DerivedSelector  string `toml:"derived-selector"`
	DerivedSlot      string `toml:"derived-slot"`
	AccessorSelector string `toml:"accessor-selector"`
	DisplaySelector  string `toml:"display-selector"`
	Initializer      string `toml:"initializer"`
}

// DefaultConventions returns the ride-sharing conventions.
func DefaultConventions() Conventions {
	return Conventions{
		Collections:        []string{"assignedRides", "requestedRides"},
		CollectionSuffixes: []string{"Rides"},
		Numerics:           []string{"rideID", "driverID", "riderID", "distance", "fare"},
		NumericSuffixes:    []string{"ID"},
		Floats:             map[string]float64{"rating": 5.0},
		DerivedSelector:    "calculateFare",
		DerivedSlot:        "fare",
		AccessorSelector:   "fare",
		DisplaySelector:    "rideDetails",
		Initializer:        "initialize",
	}
}

// Merge returns c with every non-empty field of o applied on top.
func (c Conventions) Merge(o Conventions) Conventions {
	if o.Collections != nil {
		c.Collections = o.Collections
	}
	if o.CollectionSuffixes != nil {
		c.CollectionSuffixes = o.CollectionSuffixes
	}
	if o.Numerics != nil {
		c.Numerics = o.Numerics
	}
	if o.NumericSuffixes != nil {
		c.NumericSuffixes = o.NumericSuffixes
	}
	if o.Floats != nil {
		c.Floats = o.Floats
	}
	if o.DerivedSelector != "" {
		c.DerivedSelector = o.DerivedSelector
	}
	if o.DerivedSlot != "" {
		c.DerivedSlot = o.DerivedSlot
	}
	if o.AccessorSelector != "" {
		c.AccessorSelector = o.AccessorSelector
	}
	if o.DisplaySelector != "" {
		c.DisplaySelector = o.DisplaySelector
	}
	if o.Initializer != "" {
		c.Initializer = o.Initializer
	}
	return c
}

// IsCollection reports whether name starts out as an empty sequence.
func (c Conventions) IsCollection(name string) bool {
	return matches(name, c.Collections, c.CollectionSuffixes)
}

// IsNumeric reports whether name starts out as integer zero.
func (c Conventions) IsNumeric(name string) bool {
	return matches(name, c.Numerics, c.NumericSuffixes)
}

// DefaultFor returns a fresh default value for an instance variable.
func (c Conventions) DefaultFor(name string) Value {
	if c.IsCollection(name) {
		return SequenceValue(NewSequence())
	}
	if f, ok := c.Floats[name]; ok {
		return FloatValue(f)
	}
	if c.IsNumeric(name) {
		return IntValue(0)
	}
	return StringValue("")
}

func matches(name string, names, suffixes []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
