package portfolio

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/crypash/crypash/internal/model"
)

// Weight bounds. The floor prevents dead-weight allocations, the cap
// prevents single-asset concentration. Both relax when the asset count
// makes them infeasible: fewer than 4 assets cannot all stay under 25%,
// more than 33 cannot all stay above 3%.
const (
	minWeight = 0.03
	maxWeight = 0.25
)

// SolverConfig tunes the optimization run.
type SolverConfig struct {
	RiskFreeRate float64
	MaxIters     int
	TradingDays  float64
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{MaxIters: 500, TradingDays: 365}
}

// Optimize solves the constrained mean-variance problem over the given
// price histories: minimize variance for the conservative profile,
// maximize Sharpe otherwise, subject to sum(w)=1 and the weight bounds.
// The solver is seeded from equal weights; non-convergence or a
// degenerate covariance falls back to equal weighting so portfolio
// construction always yields a valid allocation. Inputs are never
// mutated.
func Optimize(history map[string][]float64, profile model.RiskProfile, cfg SolverConfig) model.PortfolioAllocation {
	symbols := make([]string, 0, len(history))
	for sym := range history {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	n := len(symbols)
	switch n {
	case 0:
		return model.PortfolioAllocation{Weights: map[string]float64{}, Method: model.MethodEqualWeight}
	case 1:
		// Bounds are relaxed below 1/maxWeight assets; a single asset
		// carries everything.
		return model.PortfolioAllocation{
			Weights: map[string]float64{symbols[0]: 1.0},
			Method:  model.MethodEqualWeight,
		}
	}

	lo, hi := bounds(n)

	returns, ok := returnsMatrix(symbols, history)
	if !ok {
		return equalWeight(symbols, lo, hi)
	}

	mean, cov, ok := annualizedMoments(returns, cfg.TradingDays)
	if !ok {
		return equalWeight(symbols, lo, hi)
	}

	w := make([]float64, n)
	floats.AddConst(1.0/float64(n), w)
	projectSimplexBox(w, lo, hi)

	objective := varianceObjective(cov)
	if profile != model.RiskConservative {
		objective = sharpeObjective(mean, cov, cfg.RiskFreeRate)
	}

	w, converged := minimize(objective, w, lo, hi, cfg.MaxIters)
	if !converged {
		return equalWeight(symbols, lo, hi)
	}

	weights := roundWeights(symbols, w)
	return model.PortfolioAllocation{Weights: weights, Method: model.MethodMeanVariance}
}

// bounds returns the per-asset box, relaxed when n makes the configured
// box infeasible.
func bounds(n int) (lo, hi float64) {
	lo, hi = minWeight, maxWeight
	if float64(n)*maxWeight < 1 {
		hi = 1.0
	}
	if float64(n)*minWeight > 1 {
		lo = 1.0 / float64(n)
	}
	return lo, hi
}

// returnsMatrix aligns all series to the shortest common length and
// computes daily percentage returns; ok is false when fewer than two
// return observations exist.
func returnsMatrix(symbols []string, history map[string][]float64) ([][]float64, bool) {
	minLen := -1
	for _, sym := range symbols {
		if l := len(history[sym]); minLen < 0 || l < minLen {
			minLen = l
		}
	}
	if minLen < 3 {
		return nil, false
	}

	out := make([][]float64, len(symbols))
	for i, sym := range symbols {
		prices := history[sym]
		prices = prices[len(prices)-minLen:]
		rets := make([]float64, 0, minLen-1)
		for j := 1; j < minLen; j++ {
			if prices[j-1] == 0 {
				return nil, false
			}
			rets = append(rets, (prices[j]-prices[j-1])/prices[j-1])
		}
		out[i] = rets
	}
	return out, true
}

// annualizedMoments computes the annualized mean vector and covariance
// matrix; ok is false when the matrix is degenerate.
func annualizedMoments(returns [][]float64, tradingDays float64) ([]float64, *mat.SymDense, bool) {
	n := len(returns)
	samples := len(returns[0])

	x := mat.NewDense(samples, n, nil)
	for j, series := range returns {
		for i, v := range series {
			x.Set(i, j, v)
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, x, nil)

	mean := make([]float64, n)
	for j, series := range returns {
		mean[j] = stat.Mean(series, nil) * tradingDays
	}

	allZero := true
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := cov.At(i, j) * tradingDays
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, false
			}
			cov.SetSym(i, j, v)
			if v != 0 {
				allZero = false
			}
		}
	}
	if allZero {
		return nil, nil, false
	}
	return mean, cov, true
}

type objectiveFunc func(w []float64) float64

func varianceObjective(cov *mat.SymDense) objectiveFunc {
	return func(w []float64) float64 {
		return quadForm(cov, w)
	}
}

// sharpeObjective is the negated Sharpe ratio, so minimizing it
// maximizes risk-adjusted return.
func sharpeObjective(mean []float64, cov *mat.SymDense, riskFree float64) objectiveFunc {
	return func(w []float64) float64 {
		ret := floats.Dot(mean, w)
		vol := math.Sqrt(quadForm(cov, w))
		if vol < 1e-12 {
			return 0
		}
		return -(ret - riskFree) / vol
	}
}

func quadForm(cov *mat.SymDense, w []float64) float64 {
	n := len(w)
	v := mat.NewVecDense(n, nil)
	for i, x := range w {
		v.SetVec(i, x)
	}
	tmp := mat.NewVecDense(n, nil)
	tmp.MulVec(cov, v)
	return mat.Dot(v, tmp)
}

// minimize runs projected gradient descent over the simplex-with-box
// feasible set, using central-difference gradients. Returns the best
// feasible point found and whether the result is usable.
func minimize(f objectiveFunc, w0 []float64, lo, hi float64, maxIters int) ([]float64, bool) {
	n := len(w0)
	w := append([]float64(nil), w0...)
	best := append([]float64(nil), w...)
	bestVal := f(best)
	if math.IsNaN(bestVal) {
		return nil, false
	}

	grad := make([]float64, n)
	const h = 1e-6
	for iter := 0; iter < maxIters; iter++ {
		for i := 0; i < n; i++ {
			orig := w[i]
			w[i] = orig + h
			fp := f(w)
			w[i] = orig - h
			fm := f(w)
			w[i] = orig
			grad[i] = (fp - fm) / (2 * h)
		}

		step := 0.5 / (1 + float64(iter)/25)
		prev := append([]float64(nil), w...)
		floats.AddScaled(w, -step, grad)
		projectSimplexBox(w, lo, hi)

		val := f(w)
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, false
		}
		if val < bestVal {
			bestVal = val
			copy(best, w)
		}
		if floats.Distance(prev, w, 2) < 1e-10 {
			break
		}
	}
	return best, true
}

// projectSimplexBox projects w in place onto {sum=1, lo<=w_i<=hi} by
// bisecting the Lagrange shift.
func projectSimplexBox(w []float64, lo, hi float64) {
	n := float64(len(w))
	if n == 0 {
		return
	}
	// Feasibility guard; callers relax bounds before this point.
	if lo*n > 1 || hi*n < 1 {
		for i := range w {
			w[i] = 1 / n
		}
		return
	}

	clipSum := func(lambda float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += clip(v-lambda, lo, hi)
		}
		return sum
	}

	low, high := floats.Min(w)-hi-1, floats.Max(w)-lo+1
	for i := 0; i < 100; i++ {
		mid := (low + high) / 2
		if clipSum(mid) > 1 {
			low = mid
		} else {
			high = mid
		}
	}
	lambda := (low + high) / 2
	for i, v := range w {
		w[i] = clip(v-lambda, lo, hi)
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// equalWeight is the universal fallback allocation.
func equalWeight(symbols []string, lo, hi float64) model.PortfolioAllocation {
	w := make([]float64, len(symbols))
	for i := range w {
		w[i] = 1 / float64(len(symbols))
	}
	projectSimplexBox(w, lo, hi)
	return model.PortfolioAllocation{
		Weights: roundWeights(symbols, w),
		Method:  model.MethodEqualWeight,
	}
}

// roundWeights rounds to 4 decimal places and pushes the rounding
// residual into the largest weight so the sum stays exactly 1.
func roundWeights(symbols []string, w []float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	sum := 0.0
	largest := symbols[0]
	for i, sym := range symbols {
		r := math.Round(w[i]*1e4) / 1e4
		out[sym] = r
		sum += r
		if out[sym] > out[largest] {
			largest = sym
		}
	}
	out[largest] = math.Round((out[largest]+1-sum)*1e4) / 1e4
	return out
}
