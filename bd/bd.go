package bd

import (
	"context"
	"fmt"
	"math"

	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"github.com/nowhere-man/VMA/utils"
	"go.uber.org/zap"
)

type Options struct {
	Mode             Mode
	Degree           int
	PiecewiseSamples int
	MinPairs         int
}

func DefaultOptions() Options {
	return Options{
		Mode:             ExactMode,
		Degree:           FitDegree,
		PiecewiseSamples: PiecewiseSamples,
		MinPairs:         MinSamplePairs,
	}
}

func (o Options) Validate() error {
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.Degree < 1 {
		return fmt.Errorf("degree %d: %w", o.Degree, common.ErrorInvalidValue)
	}
	if o.PiecewiseSamples < 2 {
		return fmt.Errorf("piecewise samples %d: %w", o.PiecewiseSamples, common.ErrorInvalidValue)
	}
	if o.MinPairs < o.Degree+1 {
		return fmt.Errorf("min pairs %d below degree %d + 1: %w", o.MinPairs, o.Degree, common.ErrorInvalidValue)
	}
	return nil
}

// ParseMode accepts "exact" or "piecewise". The empty string means exact.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ExactMode:
		return ExactMode, nil
	case PiecewiseMode:
		return PiecewiseMode, nil
	}
	return "", fmt.Errorf("unknown mode %q: %w", s, common.ErrorInvalidValue)
}

// Calculator computes Bjøntegaard deltas. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	opts Options
}

func NewCalculator(opts Options) (*Calculator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Mode, _ = ParseMode(string(opts.Mode))
	return &Calculator{opts: opts}, nil
}

func (c *Calculator) Options() Options {
	return c.opts
}

// BDRate returns the average bitrate change of test relative to anchor at
// equal quality, in percent. Negative means test needs less bitrate.
func (c *Calculator) BDRate(ctx context.Context, anchorRates, anchorMetric,
	testRates, testMetric []float64) (model.BDResult, error) {
	return c.compute(ctx, model.QualityAxis, anchorRates, anchorMetric, testRates, testMetric)
}

// BDMetric returns the average metric change of test relative to anchor at
// equal bitrate, in metric units. Positive means test has higher quality.
func (c *Calculator) BDMetric(ctx context.Context, anchorRates, anchorMetric,
	testRates, testMetric []float64) (model.BDResult, error) {
	return c.compute(ctx, model.RateAxis, anchorRates, anchorMetric, testRates, testMetric)
}

// compute only returns an error for a caller contract violation, every data
// quality problem resolves to an undefined result.
func (c *Calculator) compute(ctx context.Context, axis model.Axis, anchorRates, anchorMetric,
	testRates, testMetric []float64) (res model.BDResult, err error) {
	logger := utils.GetLogger(ctx)

	anchorPairs, err := toPairs(anchorRates, anchorMetric)
	if err != nil {
		return model.Undefined(), fmt.Errorf("anchor: %w", err)
	}
	testPairs, err := toPairs(testRates, testMetric)
	if err != nil {
		return model.Undefined(), fmt.Errorf("test: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("bd compute recover panic error!", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()), zap.Stringer("axis", axis))
			res, err = model.Undefined(), nil
		}
	}()

	delta, err := c.delta(axis, validPairs(anchorPairs), validPairs(testPairs))
	if err != nil {
		logger.Debug("bd result undefined", zap.Stringer("axis", axis), zap.Error(err))
		return model.Undefined(), nil
	}

	value := delta
	if axis == model.QualityAxis {
		value = (math.Exp(delta) - 1) * 100
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logger.Debug("bd result not finite", zap.Stringer("axis", axis), zap.Float64("delta", delta))
		return model.Undefined(), nil
	}
	return model.Some(value), nil
}

func (c *Calculator) delta(axis model.Axis, anchorPairs, testPairs []model.SamplePair) (float64, error) {
	anchorCurve, err := fitCurve(anchorPairs, axis, c.opts.Degree, c.opts.MinPairs)
	if err != nil {
		return 0, fmt.Errorf("anchor: %w", err)
	}
	testCurve, err := fitCurve(testPairs, axis, c.opts.Degree, c.opts.MinPairs)
	if err != nil {
		return 0, fmt.Errorf("test: %w", err)
	}
	return averageDiff(anchorCurve, testCurve, c.opts.Mode, c.opts.PiecewiseSamples)
}

var defaultCalculators = map[Mode]*Calculator{}

func init() {
	for _, mode := range AllModes {
		opts := DefaultOptions()
		opts.Mode = mode
		defaultCalculators[mode] = &Calculator{opts: opts}
	}
}

func defaultCalculator(mode Mode) (*Calculator, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	return defaultCalculators[mode], nil
}

// ComputeBDRate is BDRate with the default degree, grid and threshold.
func ComputeBDRate(anchorRates, anchorMetric, testRates, testMetric []float64, mode Mode) (model.BDResult, error) {
	calc, err := defaultCalculator(mode)
	if err != nil {
		return model.Undefined(), err
	}
	return calc.BDRate(context.Background(), anchorRates, anchorMetric, testRates, testMetric)
}

// ComputeBDMetric is BDMetric with the default degree, grid and threshold.
func ComputeBDMetric(anchorRates, anchorMetric, testRates, testMetric []float64, mode Mode) (model.BDResult, error) {
	calc, err := defaultCalculator(mode)
	if err != nil {
		return model.Undefined(), err
	}
	return calc.BDMetric(context.Background(), anchorRates, anchorMetric, testRates, testMetric)
}
