// Package geometry provides the observation window for point pattern analysis:
// a multipolygon study-area boundary with containment tests, area, and bounds.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Window is a study-area boundary paired with the CRS its coordinates are in.
// All analysis distances assume the CRS is planar (meters).
type Window struct {
	crs    string
	mp     *geom.MultiPolygon
	bounds *geom.Bounds
	area   float64
}

// NewWindow wraps a multipolygon boundary. The polygon must be non-empty and
// have positive area.
func NewWindow(mp *geom.MultiPolygon, crs string) (*Window, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.New("geometry: empty window polygon")
	}
	area := math.Abs(mp.Area())
	if area <= 0 {
		return nil, eris.New("geometry: window has zero area")
	}
	return &Window{
		crs:    crs,
		mp:     mp,
		bounds: mp.Bounds(),
		area:   area,
	}, nil
}

// FromPolygons builds a window from individual polygons (e.g. selected
// county boundaries).
func FromPolygons(polys []*geom.Polygon, crs string) (*Window, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}
		if err := mp.Push(p); err != nil {
			return nil, eris.Wrap(err, "geometry: push polygon")
		}
	}
	return NewWindow(mp, crs)
}

// CRS returns the coordinate reference system tag, e.g. "EPSG:3310".
func (w *Window) CRS() string { return w.crs }

// Area returns the window area in squared CRS units.
func (w *Window) Area() float64 { return w.area }

// MultiPolygon returns the underlying boundary geometry.
func (w *Window) MultiPolygon() *geom.MultiPolygon { return w.mp }

// Extent returns the bounding box as (minX, minY, maxX, maxY).
func (w *Window) Extent() (minX, minY, maxX, maxY float64) {
	return w.bounds.Min(0), w.bounds.Min(1), w.bounds.Max(0), w.bounds.Max(1)
}

// Contains reports whether the point (x, y) lies inside the window. A point
// inside any polygon's exterior ring and outside its holes counts as inside.
func (w *Window) Contains(x, y float64) bool {
	// Cheap bbox rejection before ring tests.
	if x < w.bounds.Min(0) || x > w.bounds.Max(0) || y < w.bounds.Min(1) || y > w.bounds.Max(1) {
		return false
	}
	for i := 0; i < w.mp.NumPolygons(); i++ {
		poly := w.mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		stride := poly.Layout().Stride()
		if !ringContains(poly.LinearRing(0).FlatCoords(), stride, x, y) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if ringContains(poly.LinearRing(r).FlatCoords(), stride, x, y) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// DistanceToBoundary returns the shortest distance from (x, y) to any ring
// segment of the window. Used for border-corrected estimators.
func (w *Window) DistanceToBoundary(x, y float64) float64 {
	min := math.Inf(1)
	for i := 0; i < w.mp.NumPolygons(); i++ {
		poly := w.mp.Polygon(i)
		stride := poly.Layout().Stride()
		for r := 0; r < poly.NumLinearRings(); r++ {
			flat := poly.LinearRing(r).FlatCoords()
			for j := 0; j+stride < len(flat); j += stride {
				d := segmentDistance(x, y, flat[j], flat[j+1], flat[j+stride], flat[j+stride+1])
				if d < min {
					min = d
				}
			}
		}
	}
	return min
}

// ringContains implements even-odd ray casting over a flat coordinate ring.
func ringContains(flat []float64, stride int, x, y float64) bool {
	inside := false
	n := len(flat) / stride
	if n < 3 {
		return false
	}
	jx, jy := flat[(n-1)*stride], flat[(n-1)*stride+1]
	for i := 0; i < n; i++ {
		ix, iy := flat[i*stride], flat[i*stride+1]
		if (iy > y) != (jy > y) &&
			x < (jx-ix)*(y-iy)/(jy-iy)+ix {
			inside = !inside
		}
		jx, jy = ix, iy
	}
	return inside
}

// segmentDistance returns the distance from (px, py) to segment (x1,y1)-(x2,y2).
func segmentDistance(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x1, py-y1)
	}
	t := ((px-x1)*dx + (py-y1)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-(x1+t*dx), py-(y1+t*dy))
}
