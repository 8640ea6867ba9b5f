// Package geo loads suburb boundary shapefiles and answers
// point-in-suburb queries for the quality scorer.
package geo

import (
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Index holds suburb boundaries keyed by uppercased suburb name.
type Index struct {
	boundaries map[string]*geom.MultiPolygon
}

// NewIndex creates an empty boundary index.
func NewIndex() *Index {
	return &Index{boundaries: make(map[string]*geom.MultiPolygon)}
}

// Add registers a boundary for a suburb. Boundaries for the same name
// are merged, which happens when a suburb spans multiple shapes.
func (idx *Index) Add(suburb string, mp *geom.MultiPolygon) {
	if mp == nil || mp.NumPolygons() == 0 {
		return
	}
	key := strings.ToUpper(strings.TrimSpace(suburb))
	if key == "" {
		return
	}
	existing, ok := idx.boundaries[key]
	if !ok {
		idx.boundaries[key] = mp
		return
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		_ = existing.Push(mp.Polygon(i))
	}
}

// Len returns the number of suburbs indexed.
func (idx *Index) Len() int {
	return len(idx.boundaries)
}

// Known reports whether a boundary is loaded for the suburb.
func (idx *Index) Known(suburb string) bool {
	_, ok := idx.boundaries[strings.ToUpper(strings.TrimSpace(suburb))]
	return ok
}

// Contains reports whether the point lies inside the named suburb's
// boundary. Unknown suburbs return true so that a partially loaded
// index never penalizes scores.
func (idx *Index) Contains(suburb string, lon, lat float64) bool {
	mp, ok := idx.boundaries[strings.ToUpper(strings.TrimSpace(suburb))]
	if !ok {
		return true
	}
	point := geom.Coord{lon, lat}
	for i := 0; i < mp.NumPolygons(); i++ {
		if polygonContains(mp.Polygon(i), point) {
			return true
		}
	}
	return false
}

// Locate returns the name of the first suburb whose boundary contains
// the point, or "" when none does.
func (idx *Index) Locate(lon, lat float64) string {
	point := geom.Coord{lon, lat}
	for name, mp := range idx.boundaries {
		for i := 0; i < mp.NumPolygons(); i++ {
			if polygonContains(mp.Polygon(i), point) {
				return name
			}
		}
	}
	return ""
}

// polygonContains uses ring parity: inside the outer ring and inside an
// even number of holes.
func polygonContains(p *geom.Polygon, point geom.Coord) bool {
	inside := 0
	for i := 0; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), point, p.LinearRing(i).FlatCoords()) {
			inside++
		}
	}
	return inside%2 == 1
}
