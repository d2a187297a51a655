package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/spatial-cli/internal/geometry"
)

func squareWindow(t *testing.T, size float64) *geometry.Window {
	t.Helper()
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, size, 0, size, size, 0, size, 0, 0}, []int{10})
	w, err := geometry.FromPolygons([]*geom.Polygon{poly}, "EPSG:3310")
	require.NoError(t, err)
	return w
}

func obsAt(pts ...Point) []Observation {
	obs := make([]Observation, len(pts))
	for i, p := range pts {
		obs[i] = Observation{Point: p}
	}
	return obs
}

func TestNew_CRSMismatch(t *testing.T) {
	w := squareWindow(t, 10)
	_, err := New(obsAt(Point{1, 1}), w, "EPSG:3857")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRS mismatch")
}

func TestNew_DropsOutsidePoints(t *testing.T) {
	w := squareWindow(t, 10)
	p, err := New(obsAt(Point{1, 1}, Point{5, 5}, Point{20, 20}), w, "EPSG:3310")
	require.NoError(t, err)

	assert.Equal(t, 2, p.N())
	assert.Equal(t, 1, p.Rejected)
}

func TestNew_Empty(t *testing.T) {
	w := squareWindow(t, 10)

	_, err := New(nil, w, "EPSG:3310")
	require.Error(t, err)

	_, err = New(obsAt(Point{50, 50}), w, "EPSG:3310")
	require.Error(t, err)
}

func TestIntensity(t *testing.T) {
	w := squareWindow(t, 10)
	p, err := New(obsAt(Point{1, 1}, Point{2, 2}, Point{3, 3}, Point{4, 4}), w, "EPSG:3310")
	require.NoError(t, err)

	assert.InDelta(t, 4.0/100.0, p.Intensity(), 1e-12)
}

func TestNNDist(t *testing.T) {
	w := squareWindow(t, 10)
	p, err := New(obsAt(Point{1, 1}, Point{1, 2}, Point{5, 5}), w, "EPSG:3310")
	require.NoError(t, err)

	nn := p.NNDist()
	require.Len(t, nn, 3)
	assert.InDelta(t, 1.0, nn[0], 1e-12)
	assert.InDelta(t, 1.0, nn[1], 1e-12)
	assert.InDelta(t, 5.0, nn[2], 1e-12) // hypot(4, 3)
}

func TestPairDists(t *testing.T) {
	w := squareWindow(t, 10)
	p, err := New(obsAt(Point{0.5, 0.5}, Point{0.5, 1.5}, Point{3.5, 0.5}), w, "EPSG:3310")
	require.NoError(t, err)

	d := p.PairDists()
	require.Len(t, d, 3)
	assert.InDelta(t, 1.0, d[0], 1e-12)
	assert.InDelta(t, 3.0, d[1], 1e-12)
}
