package montecarlo

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/hindsight/returns"
)

// Correlation estimates the correlation matrix of several aligned
// return series, one row per date and one column per series.
func Correlation(series []returns.Series) (*mat.SymDense, error) {
	if len(series) < 2 {
		return nil, errors.New("montecarlo: need at least two series to correlate")
	}
	n := len(series[0])
	if n < 2 {
		return nil, errors.New("montecarlo: series too short to correlate")
	}
	for i, s := range series {
		if len(s) != n {
			return nil, fmt.Errorf("montecarlo: series %d has %d samples, want %d", i, len(s), n)
		}
	}

	data := mat.NewDense(n, len(series), nil)
	for j, s := range series {
		for i, p := range s {
			data.Set(i, j, p.Value)
		}
	}
	corr := mat.NewSymDense(len(series), nil)
	stat.CorrelationMatrix(corr, data, nil)
	return corr, nil
}

// JointPaths draws correlated daily return paths: independent unit
// normals pushed through the Cholesky factor of the correlation matrix,
// then scaled and shifted to each index's own volatility and drift.
type JointPaths struct {
	lower  mat.TriDense
	drifts []float64
	vols   []float64
	dim    int
}

func NewJointPaths(corr *mat.SymDense, drifts, vols []float64) (*JointPaths, error) {
	dim := corr.SymmetricDim()
	if len(drifts) != dim || len(vols) != dim {
		return nil, fmt.Errorf("montecarlo: %d drifts and %d vols for %d indices",
			len(drifts), len(vols), dim)
	}
	for i, v := range vols {
		if v <= 0 {
			return nil, fmt.Errorf("montecarlo: volatility %d must be positive, got %g", i, v)
		}
	}
	jp := &JointPaths{
		drifts: append([]float64(nil), drifts...),
		vols:   append([]float64(nil), vols...),
		dim:    dim,
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(corr); !ok {
		return nil, errors.New("montecarlo: correlation matrix is not positive definite")
	}
	chol.LTo(&jp.lower)
	return jp, nil
}

// Step draws one day of returns across all indices.
func (jp *JointPaths) Step(rng *rand.Rand) []float64 {
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	z := mat.NewVecDense(jp.dim, nil)
	for i := 0; i < jp.dim; i++ {
		z.SetVec(i, std.Rand())
	}

	out := mat.NewVecDense(jp.dim, nil)
	out.MulVec(&jp.lower, z)

	day := make([]float64, jp.dim)
	for i := 0; i < jp.dim; i++ {
		day[i] = jp.drifts[i] + jp.vols[i]*out.AtVec(i)
	}
	return day
}

// Paths draws full return paths for all indices, indexed
// [index][step].
func (jp *JointPaths) Paths(steps int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, jp.dim)
	for i := range out {
		out[i] = make([]float64, steps)
	}
	for s := 0; s < steps; s++ {
		day := jp.Step(rng)
		for i, v := range day {
			out[i][s] = v
		}
	}
	return out
}
