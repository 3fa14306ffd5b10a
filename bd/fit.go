package bd

import (
	"fmt"
	"math"
	"sort"

	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FitBDRateCurve fits log-rate as a cubic of the metric.
// The domain is [min(metrics), max(metrics)].
func FitBDRateCurve(bitrates, metrics []float64) (*model.CurveModel, error) {
	pairs, err := toPairs(bitrates, metrics)
	if err != nil {
		return nil, err
	}
	return fitCurve(validPairs(pairs), model.QualityAxis, FitDegree, MinSamplePairs)
}

// FitBDMetricCurve fits the metric as a cubic of log-rate.
// The domain is [min(ln(bitrates)), max(ln(bitrates))].
func FitBDMetricCurve(bitrates, metrics []float64) (*model.CurveModel, error) {
	pairs, err := toPairs(bitrates, metrics)
	if err != nil {
		return nil, err
	}
	return fitCurve(validPairs(pairs), model.RateAxis, FitDegree, MinSamplePairs)
}

func toPairs(bitrates, metrics []float64) ([]model.SamplePair, error) {
	if len(bitrates) != len(metrics) {
		return nil, fmt.Errorf("%d bitrates for %d metric values: %w",
			len(bitrates), len(metrics), common.ErrorInvalidValue)
	}
	pairs := make([]model.SamplePair, len(bitrates))
	for i := range bitrates {
		if math.IsInf(bitrates[i], 0) || math.IsInf(metrics[i], 0) {
			return nil, fmt.Errorf("non-finite sample at index %d: %w", i, common.ErrorInvalidValue)
		}
		pairs[i] = model.SamplePair{BitrateKbps: bitrates[i], Metric: metrics[i]}
	}
	return pairs, nil
}

// validPairs drops every pair with a missing component.
func validPairs(pairs []model.SamplePair) []model.SamplePair {
	return lo.Filter(pairs, func(p model.SamplePair, _ int) bool {
		return !p.Missing()
	})
}

// axisValues maps pairs onto the fitting axis (xs) and the fitted value (ys),
// sorted by x then y.
func axisValues(pairs []model.SamplePair, axis model.Axis) ([]float64, []float64) {
	type point struct{ x, y float64 }
	points := make([]point, len(pairs))
	for i, p := range pairs {
		logRate := math.Log(p.BitrateKbps)
		if axis == model.QualityAxis {
			points[i] = point{x: p.Metric, y: logRate}
		} else {
			points[i] = point{x: logRate, y: p.Metric}
		}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].x != points[j].x {
			return points[i].x < points[j].x
		}
		return points[i].y < points[j].y
	})

	xs, ys := make([]float64, len(points)), make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.x, p.y
	}
	return xs, ys
}

func fitCurve(pairs []model.SamplePair, axis model.Axis, degree, minPairs int) (*model.CurveModel, error) {
	n := len(pairs)
	if n < minPairs || n < degree+1 {
		return nil, fmt.Errorf("%d valid pairs, need %d: %w", n, max(minPairs, degree+1), common.ErrorInsufficientData)
	}

	xs, ys := axisValues(pairs, axis)

	if distinct := len(lo.Uniq(xs)); distinct < degree+1 {
		return nil, fmt.Errorf("%d distinct %v values for degree %d: %w",
			distinct, axis, degree, common.ErrorFitFailed)
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	shift, scale := (minX+maxX)/2, (maxX-minX)/2

	// vandermonde system in the normalised variable
	a := mat.NewDense(n, degree+1, nil)
	for i, x := range xs {
		t := (x - shift) / scale
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= t
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		return nil, fmt.Errorf("least squares on %v axis: %v: %w", axis, err, common.ErrorFitFailed)
	}

	coefficients := make([]float64, degree+1)
	for i := range coefficients {
		coefficients[i] = coef.AtVec(i)
	}
	if lo.SomeBy(coefficients, func(c float64) bool { return math.IsNaN(c) || math.IsInf(c, 0) }) {
		return nil, fmt.Errorf("non-finite coefficients %v: %w", coefficients, common.ErrorFitFailed)
	}

	return &model.CurveModel{
		Axis:         axis,
		Coefficients: coefficients,
		Shift:        shift,
		Scale:        scale,
		Min:          minX,
		Max:          maxX,
		Xs:           xs,
		Ys:           ys,
	}, nil
}
