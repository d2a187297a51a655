// Package render produces the analysis outputs a reader looks at: static PNG
// plots of the density surface and envelope curves, and an interactive HTML
// map of the observations.
package render

import (
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/spatial-cli/internal/density"
	"github.com/sells-group/spatial-cli/internal/envelope"
)

var (
	obsColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	theoColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}
	bandColor = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 255}
)

// CurvePNG plots an envelope: observed curve, CSR theoretical curve, and the
// simulation bounds, with a legend.
func CurvePNG(env *envelope.Envelope, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "r (m)"
	p.Y.Label.Text = env.Name + "(r)"

	obsLine, err := plotter.NewLine(xys(env.R, env.Obs))
	if err != nil {
		return eris.Wrap(err, "render: observed line")
	}
	obsLine.Color = obsColor
	obsLine.Width = vg.Points(1.5)

	theoLine, err := plotter.NewLine(xys(env.R, env.Theo))
	if err != nil {
		return eris.Wrap(err, "render: theoretical line")
	}
	theoLine.Color = theoColor
	theoLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	loLine, err := plotter.NewLine(xys(env.R, env.Lo))
	if err != nil {
		return eris.Wrap(err, "render: lower bound line")
	}
	hiLine, err := plotter.NewLine(xys(env.R, env.Hi))
	if err != nil {
		return eris.Wrap(err, "render: upper bound line")
	}
	for _, l := range []*plotter.Line{loLine, hiLine} {
		l.Color = bandColor
		l.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	}

	p.Add(obsLine, theoLine, loLine, hiLine)
	p.Legend.Add("observed", obsLine)
	p.Legend.Add("CSR", theoLine)
	p.Legend.Add("envelope", loLine)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}

// DensityPNG renders the density surface as a heatmap. Cells outside the
// window are drawn at the bottom of the scale.
func DensityPNG(s *density.Surface, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	hm := plotter.NewHeatMap(surfaceGrid{s}, palette.Heat(16, 1))
	hm.Min = 0
	hm.Max = s.Max
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}

// surfaceGrid adapts a density.Surface to plotter.GridXYZ.
type surfaceGrid struct {
	s *density.Surface
}

func (g surfaceGrid) Dims() (c, r int) { return g.s.NX, g.s.NY }

func (g surfaceGrid) Z(c, r int) float64 {
	v := g.s.At(c, r)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g surfaceGrid) X(c int) float64 {
	x, _ := g.s.CellCenter(c, 0)
	return x
}

func (g surfaceGrid) Y(r int) float64 {
	_, y := g.s.CellCenter(0, r)
	return y
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}
