package bd

import (
	"fmt"

	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// overlap returns the common support of two curves fitted on the same axis.
func overlap(anchor, test *model.CurveModel) (float64, float64, error) {
	low := max(anchor.Min, test.Min)
	high := min(anchor.Max, test.Max)
	if high <= low {
		return 0, 0, fmt.Errorf("anchor [%v, %v], test [%v, %v]: %w",
			anchor.Min, anchor.Max, test.Min, test.Max, common.ErrorNoOverlap)
	}
	return low, high, nil
}

// averageDiff is the mean signed gap test - anchor over the overlap domain.
func averageDiff(anchor, test *model.CurveModel, mode Mode, samples int) (float64, error) {
	low, high, err := overlap(anchor, test)
	if err != nil {
		return 0, err
	}

	var anchorArea, testArea float64
	switch mode {
	case PiecewiseMode:
		grid := floats.Span(make([]float64, samples), low, high)
		if anchorArea, err = integratePiecewise(anchor, grid); err != nil {
			return 0, err
		}
		if testArea, err = integratePiecewise(test, grid); err != nil {
			return 0, err
		}
	default:
		anchorArea = anchor.Integral(low, high)
		testArea = test.Integral(low, high)
	}

	return (testArea - anchorArea) / (high - low), nil
}

// integratePiecewise interpolates the raw samples with a monotone cubic
// (PCHIP derivatives) and applies the trapezoidal rule on grid.
func integratePiecewise(curve *model.CurveModel, grid []float64) (float64, error) {
	if !strictlyIncreasing(curve.Xs) {
		return 0, fmt.Errorf("repeated %v values in %v: %w", curve.Axis, curve.Xs, common.ErrorFitFailed)
	}

	var fb interp.FritschButland
	if err := fb.Fit(curve.Xs, curve.Ys); err != nil {
		return 0, fmt.Errorf("monotone interpolation: %v: %w", err, common.ErrorFitFailed)
	}

	values := make([]float64, len(grid))
	for i, x := range grid {
		values[i] = fb.Predict(x)
	}
	return integrate.Trapezoidal(grid, values), nil
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}
