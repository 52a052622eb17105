// Package hotspot computes the Getis-Ord Gi* statistic over point locations with fixed
// distance-band weights and classifies each location into confidence bins.
package hotspot

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientData is returned when there are too few locations or no variation in values.
var ErrInsufficientData = eris.New("hotspot: insufficient data")

// MinFeatures is the fewest locations Gi* is computed for.
const MinFeatures = 3

const earthRadius = 6378137.0

// Options configures a Gi* run.
type Options struct {
	// DistanceBand in metres; zero picks the smallest band giving every location a neighbour.
	DistanceBand float64
	// FDR applies Benjamini-Hochberg false discovery rate correction to the bins.
	FDR bool
}

// Result is the statistic for one location.
type Result struct {
	ZScore    float64
	PValue    float64
	Neighbors int
	Bin       int
}

// Summary describes a whole run.
type Summary struct {
	Features     int     `json:"features"`
	DistanceBand float64 `json:"distance_band_m"`
	Hot          int     `json:"hot"`
	Cold         int     `json:"cold"`
	NotSig       int     `json:"not_significant"`
}

type located struct {
	pt  orb.Point
	idx int
}

func (l located) Point() orb.Point { return l.pt }

// GiStar computes Gi* for each location (WGS84 lon/lat) and value. Results are index-aligned with
// the inputs.
func GiStar(locations []orb.Point, values []float64, opts Options) ([]Result, Summary, error) {
	n := len(locations)
	if n != len(values) {
		return nil, Summary{}, eris.Errorf("hotspot: %d locations but %d values", n, len(values))
	}
	if n < MinFeatures {
		return nil, Summary{}, eris.Wrapf(ErrInsufficientData, "%d features, need %d", n, MinFeatures)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, Summary{}, eris.Errorf("hotspot: value %d is not finite", i)
		}
	}

	mean, variance := stat.PopMeanVariance(values, nil)
	std := math.Sqrt(variance)
	if std == 0 {
		return nil, Summary{}, eris.Wrap(ErrInsufficientData, "values have zero variance")
	}

	pts := localPlane(locations)
	qt := quadtree.New(orb.MultiPoint(pts).Bound().Pad(1))
	for i, p := range pts {
		if err := qt.Add(located{pt: p, idx: i}); err != nil {
			return nil, Summary{}, eris.Wrapf(err, "hotspot: index location %d", i)
		}
	}

	band := opts.DistanceBand
	if band <= 0 {
		band = nearestNeighborBand(qt, pts) * 1.0001
	}

	fn := float64(n)
	results := make([]Result, n)
	neighbours := make([]float64, 0, 16)
	var buf []orb.Pointer
	for i, p := range pts {
		search := orb.Bound{Min: p, Max: p}.Pad(band)
		buf = qt.InBound(buf[:0], search)

		neighbours = neighbours[:0]
		for _, ptr := range buf {
			l := ptr.(located)
			if planar.Distance(p, l.pt) <= band {
				neighbours = append(neighbours, values[l.idx])
			}
		}

		// Binary weights including the location itself: S1 equals the weight sum.
		w := float64(len(neighbours))
		sumWX := floats.Sum(neighbours)
		denom := std * math.Sqrt((fn*w-w*w)/(fn-1))

		r := Result{Neighbors: len(neighbours) - 1, PValue: 1}
		if denom > 0 {
			r.ZScore = (sumWX - mean*w) / denom
			r.PValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(r.ZScore)))
		}
		results[i] = r
	}

	assignBins(results, opts.FDR)

	sum := Summary{Features: n, DistanceBand: band}
	for _, r := range results {
		switch {
		case r.Bin > 0:
			sum.Hot++
		case r.Bin < 0:
			sum.Cold++
		default:
			sum.NotSig++
		}
	}
	return results, sum, nil
}

// localPlane projects lon/lat to an equirectangular plane in metres centred on the mean latitude.
func localPlane(locations []orb.Point) []orb.Point {
	lats := make([]float64, len(locations))
	for i, p := range locations {
		lats[i] = p[1]
	}
	k := math.Cos(stat.Mean(lats, nil) * math.Pi / 180)

	out := make([]orb.Point, len(locations))
	for i, p := range locations {
		out[i] = orb.Point{
			earthRadius * p[0] * math.Pi / 180 * k,
			earthRadius * p[1] * math.Pi / 180,
		}
	}
	return out
}

// nearestNeighborBand returns the largest nearest-neighbour distance, the smallest band in which
// every location has at least one neighbour.
func nearestNeighborBand(qt *quadtree.Quadtree, pts []orb.Point) float64 {
	var (
		band float64
		buf  []orb.Pointer
	)
	for i, p := range pts {
		buf = qt.KNearest(buf[:0], p, 2)
		for _, ptr := range buf {
			l := ptr.(located)
			if l.idx == i {
				continue
			}
			band = math.Max(band, planar.Distance(p, l.pt))
		}
	}
	return band
}

// confidence levels, most significant first.
var levels = []struct {
	alpha float64
	bin   int
}{
	{0.01, 3},
	{0.05, 2},
	{0.10, 1},
}

// assignBins sets Bin to ±3/±2/±1 for 99/95/90 percent confidence, signed by the z-score.
func assignBins(results []Result, fdr bool) {
	thresholds := make([]float64, len(levels))
	for i, l := range levels {
		thresholds[i] = l.alpha
	}
	if fdr {
		ps := make([]float64, len(results))
		for i, r := range results {
			ps[i] = r.PValue
		}
		sort.Float64s(ps)
		for i, l := range levels {
			thresholds[i] = bhThreshold(ps, l.alpha)
		}
	}

	for i := range results {
		r := &results[i]
		r.Bin = 0
		for li, l := range levels {
			if r.PValue <= thresholds[li] && r.ZScore != 0 {
				r.Bin = l.bin
				if r.ZScore < 0 {
					r.Bin = -l.bin
				}
				break
			}
		}
	}
}

// bhThreshold returns the Benjamini-Hochberg critical p-value for sorted p-values, or -1 when
// nothing is significant at alpha.
func bhThreshold(sorted []float64, alpha float64) float64 {
	m := float64(len(sorted))
	threshold := -1.0
	for k, p := range sorted {
		if p <= float64(k+1)/m*alpha {
			threshold = p
		}
	}
	return threshold
}
