// Package regions holds the region/keyframe data model for instrument videos
// and computes interpolated region rectangles at arbitrary timestamps.
package regions

import (
	"fmt"
	"math"
	"sort"
)

// Region is a named rectangle tracking one instrument reading's on-screen
// location. Coordinates are pixels in frame space.
type Region struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Keyframe is a timestamp at which regions were positioned by hand.
// Positions between keyframes are linearly interpolated.
type Keyframe struct {
	Timestamp float64  `json:"timestamp"`
	Regions   []Region `json:"regions"`
}

// Expectation declares optional per-region content constraints used for
// validation scoring. Every field is independently optional; a nil field
// imposes no constraint.
type Expectation struct {
	Numeric       bool     `json:"numeric"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	DecimalPlaces *int     `json:"decimal_places,omitempty"`
	TotalDigits   *int     `json:"total_digits,omitempty"`
	MaxDeviation  *float64 `json:"max_deviation,omitempty"`
}

// Config is a region project document: the video it belongs to, the ordered
// keyframes, and a name-keyed expectation map.
type Config struct {
	VideoPath    string                 `json:"video_path"`
	Keyframes    []Keyframe             `json:"keyframes"`
	Expectations map[string]Expectation `json:"expectations,omitempty"`
}

// Normalize sorts keyframes ascending by timestamp and defaults a missing
// expectation map to empty. Interpolation assumes sorted keyframes, so this
// must run once after construction or load, never per query.
func (c *Config) Normalize() {
	sort.SliceStable(c.Keyframes, func(i, j int) bool {
		return c.Keyframes[i].Timestamp < c.Keyframes[j].Timestamp
	})
	if c.Expectations == nil {
		c.Expectations = make(map[string]Expectation)
	}
}

// Validate checks structural soundness of the document.
func (c *Config) Validate() error {
	if len(c.Keyframes) == 0 {
		return fmt.Errorf("region config has no keyframes")
	}
	for i, kf := range c.Keyframes {
		seen := make(map[string]struct{}, len(kf.Regions))
		for _, r := range kf.Regions {
			if r.Name == "" {
				return fmt.Errorf("keyframe %d (t=%.3f) has a region with an empty name", i, kf.Timestamp)
			}
			if _, dup := seen[r.Name]; dup {
				return fmt.Errorf("keyframe %d (t=%.3f) has duplicate region %q", i, kf.Timestamp, r.Name)
			}
			seen[r.Name] = struct{}{}
			if r.Width < 0 || r.Height < 0 {
				return fmt.Errorf("region %q at keyframe %d has negative dimensions", r.Name, i)
			}
		}
	}
	return nil
}

// ExpectationFor returns the expectation declared for name, or nil.
func (c *Config) ExpectationFor(name string) *Expectation {
	if exp, ok := c.Expectations[name]; ok {
		e := exp
		return &e
	}
	return nil
}

// RegionsAt computes the region set valid at ts.
//
// Timestamps at or before the first keyframe return that keyframe's regions
// verbatim; at or after the last keyframe, the last keyframe's. In between,
// the bracketing keyframe pair is linearly interpolated per integer field.
// Regions present only in the earlier keyframe are kept unchanged; regions
// that first appear in the later keyframe are appended unmodified.
func (c *Config) RegionsAt(ts float64) []Region {
	if len(c.Keyframes) == 0 {
		return nil
	}
	first := c.Keyframes[0]
	last := c.Keyframes[len(c.Keyframes)-1]
	if ts <= first.Timestamp {
		return cloneRegions(first.Regions)
	}
	if ts >= last.Timestamp {
		return cloneRegions(last.Regions)
	}
	for i := 0; i < len(c.Keyframes)-1; i++ {
		a := c.Keyframes[i]
		b := c.Keyframes[i+1]
		if ts >= a.Timestamp && ts <= b.Timestamp {
			return interpolate(a, b, ts)
		}
	}
	// Unreachable with sorted keyframes; keep the clamp-high answer.
	return cloneRegions(last.Regions)
}

func interpolate(a, b Keyframe, ts float64) []Region {
	t := 0.0
	if b.Timestamp > a.Timestamp {
		t = (ts - a.Timestamp) / (b.Timestamp - a.Timestamp)
	}

	byName := make(map[string]Region, len(b.Regions))
	for _, r := range b.Regions {
		byName[r.Name] = r
	}

	out := make([]Region, 0, len(a.Regions))
	for _, ra := range a.Regions {
		rb, ok := byName[ra.Name]
		if !ok {
			out = append(out, ra)
			continue
		}
		out = append(out, Region{
			Name:   ra.Name,
			X:      lerpInt(ra.X, rb.X, t),
			Y:      lerpInt(ra.Y, rb.Y, t),
			Width:  lerpInt(ra.Width, rb.Width, t),
			Height: lerpInt(ra.Height, rb.Height, t),
		})
	}

	// Regions that first appear in b are included as-is.
	inA := make(map[string]struct{}, len(a.Regions))
	for _, r := range a.Regions {
		inA[r.Name] = struct{}{}
	}
	for _, rb := range b.Regions {
		if _, ok := inA[rb.Name]; !ok {
			out = append(out, rb)
		}
	}
	return out
}

func lerpInt(a, b int, t float64) int {
	return int(math.Round(float64(a) + float64(b-a)*t))
}

func cloneRegions(rs []Region) []Region {
	out := make([]Region, len(rs))
	copy(out, rs)
	return out
}
