package landmark

import "strings"

// Default location used when neither a center point nor any bound is given.
const (
	DefaultLat = 59.2753
	DefaultLon = 15.2134
)

// BoxTolerance is the margin, in degrees, added to every edge of a
// bounding box before filtering upstream coordinates.
const BoxTolerance = 0.2

// RequestParams is the inbound parameter set for one landmark lookup.
// Pointer fields distinguish "absent" from zero.
type RequestParams struct {
	Lat *float64
	Lon *float64

	North *float64
	South *float64
	East  *float64
	West  *float64

	Search     string
	Specific   bool
	Categories []Category
}

// BoundingBox is an axis-aligned box in decimal degrees.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Expand returns the box grown by margin degrees on every edge.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		North: b.North + margin,
		South: b.South - margin,
		East:  b.East + margin,
		West:  b.West - margin,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Midpoint returns the center of the box.
func (b BoundingBox) Midpoint() (lat, lon float64) {
	return (b.North + b.South) / 2, (b.East + b.West) / 2
}

// Normalized returns a copy with the search term trimmed and lower-cased
// and categories de-duplicated. The receiver is not modified.
func (p RequestParams) Normalized() RequestParams {
	out := p
	out.Search = strings.ToLower(strings.TrimSpace(p.Search))
	out.Categories = nil
	seen := make(map[Category]bool, len(p.Categories))
	for _, c := range p.Categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		out.Categories = append(out.Categories, c)
	}
	return out
}

// HasPoint reports whether both Lat and Lon were supplied.
func (p RequestParams) HasPoint() bool {
	return p.Lat != nil && p.Lon != nil
}

// HasBounds reports whether at least one bound was supplied.
func (p RequestParams) HasBounds() bool {
	return p.North != nil || p.South != nil || p.East != nil || p.West != nil
}

// BoxMode reports whether results should be filtered by the bounding box:
// no explicit center point and at least one bound present.
func (p RequestParams) BoxMode() bool {
	return !p.HasPoint() && p.HasBounds()
}

// Box returns the bounding box, filling missing bounds from the default
// location.
func (p RequestParams) Box() BoundingBox {
	return BoundingBox{
		North: valueOr(p.North, DefaultLat),
		South: valueOr(p.South, DefaultLat),
		East:  valueOr(p.East, DefaultLon),
		West:  valueOr(p.West, DefaultLon),
	}
}

// Center returns the point the geosearch is issued around.
func (p RequestParams) Center() (lat, lon float64) {
	if p.HasPoint() {
		return *p.Lat, *p.Lon
	}
	return p.Box().Midpoint()
}

// AllowsCategory reports whether c passes the category allow-list.
// An empty allow-list admits everything.
func (p RequestParams) AllowsCategory(c Category) bool {
	if len(p.Categories) == 0 {
		return true
	}
	for _, allowed := range p.Categories {
		if allowed == c {
			return true
		}
	}
	return false
}

// MatchesTitle reports whether title equals the search term exactly,
// ignoring case and surrounding whitespace.
func (p RequestParams) MatchesTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), strings.TrimSpace(p.Search))
}

// Float returns a pointer to v. Handy for building RequestParams literals.
func Float(v float64) *float64 {
	return &v
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
