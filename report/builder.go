package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/nowhere-man/VMA/bd"
	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"github.com/nowhere-man/VMA/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	BD                bd.Options
	MinDistinctPoints int
	Workers           int
}

func DefaultOptions() Options {
	return Options{
		BD:                bd.DefaultOptions(),
		MinDistinctPoints: MinDistinctPoints,
		Workers:           DefaultWorkers,
	}
}

type deltaCalculator interface {
	BDRate(ctx context.Context, anchorRates, anchorMetric, testRates, testMetric []float64) (model.BDResult, error)
	BDMetric(ctx context.Context, anchorRates, anchorMetric, testRates, testMetric []float64) (model.BDResult, error)
}

// Builder turns extracted sample tables into per-video BD records.
type Builder struct {
	calc deltaCalculator
	opts Options
}

func NewBuilder(opts Options) (*Builder, error) {
	calc, err := bd.NewCalculator(opts.BD)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MinDistinctPoints < 0 {
		return nil, fmt.Errorf("min distinct points %d: %w", opts.MinDistinctPoints, common.ErrorInvalidValue)
	}
	opts.BD = calc.Options()
	return &Builder{calc: calc, opts: opts}, nil
}

func (b *Builder) Build(ctx context.Context, points []model.RatePoint) (*model.Report, error) {
	logger := utils.GetLogger(ctx)

	points, err := normalizeSides(points)
	if err != nil {
		return nil, err
	}

	byVideo := lo.GroupBy(points, func(p model.RatePoint) string { return p.Video })
	videos := lo.Keys(byVideo)
	sort.Strings(videos)

	records := make([]*model.BDRecord, len(videos))
	for i, video := range videos {
		records[i] = &model.BDRecord{Source: video}
	}

	distinct := DistinctPoints(points)
	computeBD := distinct >= b.opts.MinDistinctPoints
	logger.Info("build bd report", zap.Int("videos", len(videos)), zap.Int("distinctPoints", distinct),
		zap.String("mode", string(b.opts.BD.Mode)), zap.Bool("computeBD", computeBD))

	if computeBD {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.opts.Workers)
		for i, video := range videos {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return b.fillRecord(gctx, records[i], byVideo[video])
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("too few distinct rate points, skip bd calculate",
			zap.Int("distinctPoints", distinct), zap.Int("limitCount", b.opts.MinDistinctPoints))
	}

	return &model.Report{
		Mode:           string(b.opts.BD.Mode),
		DistinctPoints: distinct,
		BDComputed:     computeBD,
		Records:        records,
		Summary:        Summarize(records),
	}, nil
}

// fillRecord computes every BD value of one video. A panic leaves the whole
// record undefined without failing the report.
func (b *Builder) fillRecord(ctx context.Context, record *model.BDRecord, points []model.RatePoint) (err error) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("fillRecord recover panic error!", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()), zap.String("source", record.Source))
			*record = model.BDRecord{Source: record.Source}
			err = nil
		}
	}()

	anchor := lo.Filter(points, func(p model.RatePoint, _ int) bool { return p.Side == model.AnchorSide })
	test := lo.Filter(points, func(p model.RatePoint, _ int) bool { return p.Side == model.TestSide })
	joined := Join(anchor, test)
	if len(joined) < len(anchor) || len(joined) < len(test) {
		logger.Info("unmatched rate points dropped", zap.String("source", record.Source),
			zap.Int("anchor", len(anchor)), zap.Int("test", len(test)), zap.Int("joined", len(joined)))
	}

	for _, metric := range model.AllMetrics {
		series := Collect(joined, metric)

		rate, err := b.calc.BDRate(ctx, series.AnchorRates, series.AnchorMetric, series.TestRates, series.TestMetric)
		if err != nil {
			return fmt.Errorf("%s %s: %w", record.Source, model.FieldName(model.QualityAxis, metric), err)
		}
		record.Set(model.QualityAxis, metric, rate)

		delta, err := b.calc.BDMetric(ctx, series.AnchorRates, series.AnchorMetric, series.TestRates, series.TestMetric)
		if err != nil {
			return fmt.Errorf("%s %s: %w", record.Source, model.FieldName(model.RateAxis, metric), err)
		}
		record.Set(model.RateAxis, metric, delta)
	}
	return nil
}

func normalizeSides(points []model.RatePoint) ([]model.RatePoint, error) {
	res := make([]model.RatePoint, len(points))
	for i, p := range points {
		side, err := model.ParseSide(string(p.Side))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i, p.DebugString(), err)
		}
		p.Side = side
		res[i] = p
	}
	return res, nil
}
