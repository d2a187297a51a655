// Package pattern builds spatial point patterns: a set of observed points
// paired with the observation window they were recorded in.
package pattern

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spatial-cli/internal/geometry"
)

// Point is a planar coordinate in the pattern's CRS.
type Point struct {
	X float64
	Y float64
}

// Observation is a single incident record: a point plus source attributes.
type Observation struct {
	ID     string
	County string
	Year   int
	Lon    float64 // original WGS84 coordinate, kept for mapping
	Lat    float64
	Point  Point // projected coordinate
}

// Pattern pairs observed points with their observation window. Points outside
// the window are dropped at construction and counted in Rejected.
type Pattern struct {
	Points   []Point
	Window   *geometry.Window
	Rejected int
}

// New constructs a pattern from observations and a window. The observations'
// CRS must match the window's; mismatched projections are an error rather
// than silently producing nonsense distances.
func New(obs []Observation, win *geometry.Window, crs string) (*Pattern, error) {
	if win == nil {
		return nil, eris.New("pattern: nil window")
	}
	if crs != win.CRS() {
		return nil, eris.Errorf("pattern: CRS mismatch: points %s, window %s", crs, win.CRS())
	}
	if len(obs) == 0 {
		return nil, eris.New("pattern: no observations")
	}

	pts := make([]Point, 0, len(obs))
	rejected := 0
	for _, o := range obs {
		if !win.Contains(o.Point.X, o.Point.Y) {
			rejected++
			continue
		}
		pts = append(pts, o.Point)
	}
	if rejected > 0 {
		zap.L().Warn("pattern: dropped points outside window",
			zap.Int("rejected", rejected),
			zap.Int("kept", len(pts)),
		)
	}
	if len(pts) == 0 {
		return nil, eris.New("pattern: all points fall outside the window")
	}

	return &Pattern{Points: pts, Window: win, Rejected: rejected}, nil
}

// N returns the number of points in the pattern.
func (p *Pattern) N() int { return len(p.Points) }

// Intensity returns the estimated intensity lambda = n / |W|.
func (p *Pattern) Intensity() float64 {
	return float64(len(p.Points)) / p.Window.Area()
}

// NNDist returns the nearest-neighbor distance for every point.
func (p *Pattern) NNDist() []float64 {
	n := len(p.Points)
	out := make([]float64, n)
	for i := range p.Points {
		min := math.Inf(1)
		for j := range p.Points {
			if i == j {
				continue
			}
			d := dist(p.Points[i], p.Points[j])
			if d < min {
				min = d
			}
		}
		out[i] = min
	}
	return out
}

// PairDists returns all n*(n-1)/2 inter-point distances.
func (p *Pattern) PairDists() []float64 {
	n := len(p.Points)
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, dist(p.Points[i], p.Points[j]))
		}
	}
	return out
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
