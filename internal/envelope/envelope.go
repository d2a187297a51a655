// Package envelope compares an observed summary statistic against complete
// spatial randomness by simulation: nsim CSR patterns are drawn in the
// observation window and rank-based pointwise bounds are taken over the
// simulated curves.
package envelope

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/spatial-cli/internal/geometry"
	"github.com/sells-group/spatial-cli/internal/pattern"
	"github.com/sells-group/spatial-cli/internal/summary"
)

// Statistic computes a summary table for a pattern at the given distances.
type Statistic func(p *pattern.Pattern, r []float64) *summary.Table

// Options controls envelope computation.
type Options struct {
	NSim    int   // number of CSR simulations
	Rank    int   // envelope rank: 1 takes pointwise min/max
	Seed    int64 // PRNG seed; fixed seed gives identical envelopes
	Workers int   // simulation parallelism; 0 uses GOMAXPROCS
}

// Envelope holds the observed curve, the CSR theoretical curve, and the
// simulation bounds at each distance.
type Envelope struct {
	Name string

	R    []float64
	Obs  []float64
	Theo []float64
	Lo   []float64
	Hi   []float64

	NSim int
	Rank int
}

// Compute runs the envelope for a statistic. Each simulation draws from an
// independently seeded PRNG, so the result does not depend on how the
// simulations are scheduled across workers.
func Compute(ctx context.Context, p *pattern.Pattern, stat Statistic, r []float64, opts Options) (*Envelope, error) {
	if opts.NSim < 1 {
		return nil, eris.Errorf("envelope: nsim must be at least 1, got %d", opts.NSim)
	}
	if opts.Rank < 1 || opts.Rank*2 > opts.NSim+1 {
		return nil, eris.Errorf("envelope: rank %d invalid for %d simulations", opts.Rank, opts.NSim)
	}
	if len(r) == 0 {
		return nil, eris.New("envelope: empty distance sequence")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	obs := stat(p, r)

	zap.L().Debug("envelope: simulating CSR patterns",
		zap.String("stat", obs.Name),
		zap.Int("nsim", opts.NSim),
		zap.Int("n", p.N()),
		zap.Int("workers", workers),
	)

	sims := make([][]float64, opts.NSim)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s := 0; s < opts.NSim; s++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(s)))
			pts, err := SimulateCSR(p.Window, p.N(), rng)
			if err != nil {
				return err
			}
			sim := &pattern.Pattern{Points: pts, Window: p.Window}
			sims[s] = stat(sim, r).Obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lo := make([]float64, len(r))
	hi := make([]float64, len(r))
	col := make([]float64, opts.NSim)
	for i := range r {
		for s := range sims {
			col[s] = sims[s][i]
		}
		sort.Float64s(col)
		lo[i] = col[opts.Rank-1]
		hi[i] = col[opts.NSim-opts.Rank]
	}

	return &Envelope{
		Name: obs.Name,
		R:    r,
		Obs:  obs.Obs,
		Theo: obs.Theo,
		Lo:   lo,
		Hi:   hi,
		NSim: opts.NSim,
		Rank: opts.Rank,
	}, nil
}

// SimulateCSR draws n uniform points in the window by rejection sampling
// against its bounding box.
func SimulateCSR(w *geometry.Window, n int, rng *rand.Rand) ([]pattern.Point, error) {
	minX, minY, maxX, maxY := w.Extent()
	spanX, spanY := maxX-minX, maxY-minY

	pts := make([]pattern.Point, 0, n)
	// The acceptance rate is |W| / bbox area; windows thinner than 1/10000
	// of their bbox indicate degenerate input, not bad luck.
	maxDraws := 10000 * n
	for draws := 0; len(pts) < n; draws++ {
		if draws >= maxDraws {
			return nil, eris.Errorf("envelope: rejection sampling stalled after %d draws", draws)
		}
		x := minX + rng.Float64()*spanX
		y := minY + rng.Float64()*spanY
		if w.Contains(x, y) {
			pts = append(pts, pattern.Point{X: x, Y: y})
		}
	}
	return pts, nil
}
