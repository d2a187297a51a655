package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// unitSquare returns a 10x10 square window at the origin.
func unitSquare(t *testing.T) *Window {
	t.Helper()
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	w, err := FromPolygons([]*geom.Polygon{poly}, "EPSG:3310")
	require.NoError(t, err)
	return w
}

func TestNewWindow_Empty(t *testing.T) {
	_, err := NewWindow(geom.NewMultiPolygon(geom.XY), "EPSG:3310")
	require.Error(t, err)

	_, err = NewWindow(nil, "EPSG:3310")
	require.Error(t, err)
}

func TestWindow_Area(t *testing.T) {
	w := unitSquare(t)
	assert.InDelta(t, 100.0, w.Area(), 1e-9)
	assert.Equal(t, "EPSG:3310", w.CRS())
}

func TestWindow_Extent(t *testing.T) {
	w := unitSquare(t)
	minX, minY, maxX, maxY := w.Extent()
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, 0.0, minY)
	assert.Equal(t, 10.0, maxX)
	assert.Equal(t, 10.0, maxY)
}

func TestWindow_Contains(t *testing.T) {
	w := unitSquare(t)

	assert.True(t, w.Contains(5, 5))
	assert.True(t, w.Contains(0.001, 0.001))
	assert.False(t, w.Contains(-1, 5))
	assert.False(t, w.Contains(5, 11))
	assert.False(t, w.Contains(100, 100))
}

func TestWindow_ContainsWithHole(t *testing.T) {
	// 10x10 square with a 2x2 hole in the middle.
	poly := geom.NewPolygonFlat(geom.XY,
		[]float64{
			0, 0, 10, 0, 10, 10, 0, 10, 0, 0,
			4, 4, 6, 4, 6, 6, 4, 6, 4, 4,
		},
		[]int{10, 20},
	)
	w, err := FromPolygons([]*geom.Polygon{poly}, "EPSG:3310")
	require.NoError(t, err)

	assert.True(t, w.Contains(1, 1))
	assert.False(t, w.Contains(5, 5), "point in hole should be outside")
}

func TestWindow_MultiplePolygons(t *testing.T) {
	p1 := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}, []int{10})
	p2 := geom.NewPolygonFlat(geom.XY, []float64{5, 5, 6, 5, 6, 6, 5, 6, 5, 5}, []int{10})
	w, err := FromPolygons([]*geom.Polygon{p1, p2}, "EPSG:3310")
	require.NoError(t, err)

	assert.InDelta(t, 2.0, w.Area(), 1e-9)
	assert.True(t, w.Contains(0.5, 0.5))
	assert.True(t, w.Contains(5.5, 5.5))
	assert.False(t, w.Contains(3, 3))
}

func TestWindow_DistanceToBoundary(t *testing.T) {
	w := unitSquare(t)

	assert.InDelta(t, 5.0, w.DistanceToBoundary(5, 5), 1e-9)
	assert.InDelta(t, 1.0, w.DistanceToBoundary(1, 5), 1e-9)
	assert.InDelta(t, 0.0, w.DistanceToBoundary(0, 5), 1e-9)
}
