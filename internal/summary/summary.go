// Package summary computes distance-based summary statistics for point
// patterns: the nearest-neighbor distribution function G and the
// variance-stabilized Ripley L-function, each with its CSR closed form.
package summary

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/spatial-cli/internal/pattern"
)

// Table is a distance-indexed statistic: observed and CSR-theoretical values
// at each distance in R.
type Table struct {
	Name string
	R    []float64
	Obs  []float64
	Theo []float64
}

// RSeq builds the distance sequence [start, end] with the given step.
func RSeq(start, end, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, eris.Errorf("summary: r step must be positive, got %v", step)
	}
	if end <= start {
		return nil, eris.Errorf("summary: r range [%v, %v] is empty", start, end)
	}
	n := int(math.Floor((end-start)/step)) + 1
	if n < 2 {
		return nil, eris.Errorf("summary: r step %v exceeds range [%v, %v]", step, start, end)
	}
	return floats.Span(make([]float64, n), start, start+float64(n-1)*step), nil
}

// G computes the empirical nearest-neighbor distance CDF at each r, with the
// CSR closed form Gtheo(r) = 1 - exp(-lambda*pi*r^2) for the pattern's
// estimated intensity.
func G(p *pattern.Pattern, r []float64) *Table {
	nn := p.NNDist()
	sort.Float64s(nn)
	n := float64(len(nn))
	lambda := p.Intensity()

	obs := make([]float64, len(r))
	theo := make([]float64, len(r))
	for i, d := range r {
		obs[i] = float64(sort.SearchFloat64s(nn, math.Nextafter(d, math.Inf(1)))) / n
		theo[i] = 1 - math.Exp(-lambda*math.Pi*d*d)
	}
	return &Table{Name: "G", R: r, Obs: obs, Theo: theo}
}

// GBorder computes the border-corrected (reduced-sample) variant of G: at
// each r only points at least r from the window boundary enter the estimate,
// removing the bias from unobserved neighbors outside the window. Distances
// past every point's boundary clearance report NaN.
func GBorder(p *pattern.Pattern, r []float64) *Table {
	nn := p.NNDist()
	lambda := p.Intensity()

	clearance := make([]float64, len(p.Points))
	for i, pt := range p.Points {
		clearance[i] = p.Window.DistanceToBoundary(pt.X, pt.Y)
	}

	obs := make([]float64, len(r))
	theo := make([]float64, len(r))
	for i, d := range r {
		var hits, eligible int
		for j := range nn {
			if clearance[j] < d {
				continue
			}
			eligible++
			if nn[j] <= d {
				hits++
			}
		}
		if eligible == 0 {
			obs[i] = math.NaN()
		} else {
			obs[i] = float64(hits) / float64(eligible)
		}
		theo[i] = 1 - math.Exp(-lambda*math.Pi*d*d)
	}
	return &Table{Name: "G", R: r, Obs: obs, Theo: theo}
}

// L computes the variance-stabilized Ripley L-function
// L(r) = sqrt(K(r)/pi) with K(r) = |W| / (n(n-1)) * #{ordered pairs with
// d_ij <= r}. Under CSR, L(r) = r.
func L(p *pattern.Pattern, r []float64) *Table {
	d := p.PairDists()
	sort.Float64s(d)
	n := float64(p.N())
	area := p.Window.Area()

	obs := make([]float64, len(r))
	theo := make([]float64, len(r))
	for i, rv := range r {
		pairs := float64(sort.SearchFloat64s(d, math.Nextafter(rv, math.Inf(1))))
		k := area / (n * (n - 1)) * 2 * pairs
		obs[i] = math.Sqrt(k / math.Pi)
		theo[i] = rv
	}
	return &Table{Name: "L", R: r, Obs: obs, Theo: theo}
}

// NNStats returns the mean and median nearest-neighbor distance.
func NNStats(p *pattern.Pattern) (mean, median float64) {
	nn := p.NNDist()
	sort.Float64s(nn)
	return stat.Mean(nn, nil), stat.Quantile(0.5, stat.Empirical, nn, nil)
}
