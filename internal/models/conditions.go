package models

// Lie represents where the ball rests
type Lie string

const (
	LieTee        Lie = "tee"
	LieFairway    Lie = "fairway"
	LieLightRough Lie = "light_rough"
	LieHeavyRough Lie = "heavy_rough"
	LieSand       Lie = "sand"
	LieRecovery   Lie = "recovery"
)

// DistanceCondition is the shot distance and the target it was given against
type DistanceCondition struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Target string  `json:"target"`
}

// ElevationCondition is the elevation change between ball and target.
// Value is a magnitude; Direction carries the sign ("up" or "down").
type ElevationCondition struct {
	Value     float64 `json:"value"`
	Direction string  `json:"direction"`
	Unit      string  `json:"unit"`
}

// WindCondition describes wind speed and its direction relative to the shot
type WindCondition struct {
	Speed     float64 `json:"speed"`
	Direction string  `json:"direction"` // "headwind", "tailwind", "crosswind", "left", "right", "none"
	Unit      string  `json:"unit"`
}

// TemperatureCondition is the ambient temperature
type TemperatureCondition struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// HumidityCondition is the relative humidity
type HumidityCondition struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Hazard is one mentioned hazard between ball and target
type Hazard struct {
	Type          string  `json:"type"` // "water", "bunker", "trees", "out_of_bounds"
	Location      string  `json:"location,omitempty"`
	ClearDistance float64 `json:"clear_distance,omitempty"`
	StartDistance float64 `json:"start_distance,omitempty"`
}

// GolfConditions is the structured understanding of one shot. Any field
// may be absent (nil / empty) when the user has not provided it yet.
type GolfConditions struct {
	Distance    *DistanceCondition    `json:"distance,omitempty"`
	Elevation   *ElevationCondition   `json:"elevation,omitempty"`
	Wind        *WindCondition        `json:"wind,omitempty"`
	Lie         Lie                   `json:"lie,omitempty"`
	Temperature *TemperatureCondition `json:"temperature,omitempty"`
	Humidity    *HumidityCondition    `json:"humidity,omitempty"`
	Hazards     []Hazard              `json:"hazards,omitempty"`
}

// Merge folds newer conditions over c field by field: a new non-absent
// value wins, otherwise the previous value is kept. Merging the same
// input twice yields the same result as merging it once.
func (c *GolfConditions) Merge(newer *GolfConditions) *GolfConditions {
	if newer == nil {
		return c.Clone()
	}
	merged := c.Clone()
	if newer.Distance != nil {
		d := *newer.Distance
		merged.Distance = &d
	}
	if newer.Elevation != nil {
		e := *newer.Elevation
		merged.Elevation = &e
	}
	if newer.Wind != nil {
		w := *newer.Wind
		merged.Wind = &w
	}
	if newer.Lie != "" {
		merged.Lie = newer.Lie
	}
	if newer.Temperature != nil {
		t := *newer.Temperature
		merged.Temperature = &t
	}
	if newer.Humidity != nil {
		h := *newer.Humidity
		merged.Humidity = &h
	}
	if len(newer.Hazards) > 0 {
		merged.Hazards = append([]Hazard(nil), newer.Hazards...)
	}
	return merged
}

// Clone returns a deep copy
func (c *GolfConditions) Clone() *GolfConditions {
	if c == nil {
		return &GolfConditions{}
	}
	out := &GolfConditions{Lie: c.Lie}
	if c.Distance != nil {
		d := *c.Distance
		out.Distance = &d
	}
	if c.Elevation != nil {
		e := *c.Elevation
		out.Elevation = &e
	}
	if c.Wind != nil {
		w := *c.Wind
		out.Wind = &w
	}
	if c.Temperature != nil {
		t := *c.Temperature
		out.Temperature = &t
	}
	if c.Humidity != nil {
		h := *c.Humidity
		out.Humidity = &h
	}
	if len(c.Hazards) > 0 {
		out.Hazards = append([]Hazard(nil), c.Hazards...)
	}
	return out
}

// PopulatedFields counts how many of the seven condition fields are set
func (c *GolfConditions) PopulatedFields() int {
	if c == nil {
		return 0
	}
	n := 0
	if c.Distance != nil {
		n++
	}
	if c.Elevation != nil {
		n++
	}
	if c.Wind != nil {
		n++
	}
	if c.Lie != "" {
		n++
	}
	if c.Temperature != nil {
		n++
	}
	if c.Humidity != nil {
		n++
	}
	if len(c.Hazards) > 0 {
		n++
	}
	return n
}

// IsEmpty reports whether nothing has been extracted
func (c *GolfConditions) IsEmpty() bool {
	return c.PopulatedFields() == 0
}

// SignedElevationFeet returns the elevation change in feet, positive uphill
func (c *GolfConditions) SignedElevationFeet() float64 {
	if c == nil || c.Elevation == nil {
		return 0
	}
	feet := c.Elevation.Value
	if c.Elevation.Unit == "yards" {
		feet *= 3
	}
	if c.Elevation.Direction == "down" {
		return -feet
	}
	return feet
}

// ValidationResult reports invariant violations, one message per field
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
