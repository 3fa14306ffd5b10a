package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/nowhere-man/VMA/bd"
	"github.com/nowhere-man/VMA/common"
	"github.com/nowhere-man/VMA/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var crfRates = map[int]float64{22: 4000, 27: 2000, 32: 1000, 37: 500}

// makePoints builds samples whose metrics are linear in log2(bitrate).
func makePoints(video string, side model.Side, rateScale float64, crfs ...int) []model.RatePoint {
	res := []model.RatePoint{}
	for _, crf := range crfs {
		rate := crfRates[crf]
		octave := math.Log2(rate / 500)
		res = append(res, model.RatePoint{
			Video:       video,
			Side:        side,
			Label:       fmt.Sprintf("%s_crf_%d", video, crf),
			BitrateKbps: model.Some(rate * rateScale),
			PSNR:        model.Some(30 + 5*octave),
			SSIM:        model.Some(0.9 + 0.02*octave),
			VMAF:        model.Some(70 + 6*octave),
			VMAFNeg:     model.Some(68 + 6*octave),
		})
	}
	return res
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		label string
		rc    string
		point float64
		ok    bool
	}{
		{"foreman_crf_23", "crf", 23, true},
		{"city_4k_abr_2500.5", "abr", 2500.5, true},
		{"crf_23", "", 0, false},
		{"foreman_crf_high", "crf", 0, false},
		{"", "", 0, false},
	}
	for _, c := range cases {
		rc, point, ok := ParseLabel(c.label)
		assert.Equal(t, c.rc, rc, c.label)
		assert.Equal(t, c.point, point, c.label)
		assert.Equal(t, c.ok, ok, c.label)
	}
}

func TestJoin_DropsUnmatchedPoints(t *testing.T) {
	anchor := makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37)
	test := makePoints("foreman", model.TestSide, 0.8, 27, 32, 37)
	test = append(test, model.RatePoint{Video: "foreman", Side: model.TestSide, Label: "foreman_crf_42",
		BitrateKbps: model.Some(250), PSNR: model.Some(25)})

	joined := Join(anchor, test)
	require.Len(t, joined, 3)
	for _, j := range joined {
		assert.Equal(t, PointKey(j.Anchor), PointKey(j.Test))
		assert.NotEqual(t, "crf@22", j.Key)
	}
}

func TestCollect_FiltersJointly(t *testing.T) {
	anchor := makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37)
	test := makePoints("foreman", model.TestSide, 0.8, 22, 27, 32, 37)
	test[1].PSNR = model.None()
	anchor[2].BitrateKbps = model.None()

	joined := Join(anchor, test)
	psnr := Collect(joined, model.MetricPSNR)
	vmaf := Collect(joined, model.MetricVMAF)
	assert.Equal(t, 2, psnr.Len())
	assert.Equal(t, 3, vmaf.Len())
	assert.Len(t, psnr.TestMetric, psnr.Len())
	assert.Len(t, vmaf.AnchorMetric, vmaf.Len())
}

func TestDistinctPoints(t *testing.T) {
	points := append(makePoints("a", model.AnchorSide, 1, 22, 27), makePoints("b", model.TestSide, 1, 27, 32)...)
	assert.Equal(t, 3, DistinctPoints(points))

	labelled := func(labels ...string) []model.RatePoint {
		return lo.Map(labels, func(label string, _ int) model.RatePoint {
			return model.RatePoint{Video: "v", Side: model.AnchorSide, Label: label}
		})
	}
	assert.Equal(t, 0, DistinctPoints(labelled("a.mp4", "b.mp4", "c.mp4", "d.mp4")))
	assert.Equal(t, 1, DistinctPoints(labelled("v_crf_23", "v_qp_23", "v_abr_23", "v_cbr_23")))
	assert.Equal(t, 2, DistinctPoints(labelled("v_crf_23", "v_crf_23.0", "v_crf_high", "v_qp_27")))
}

func TestBuilder_Build(t *testing.T) {
	points := []model.RatePoint{}
	points = append(points, makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37)...)
	points = append(points, makePoints("foreman", model.TestSide, 0.8, 22, 27, 32, 37)...)
	// the test side of "akiyo" lost two encodes
	points = append(points, makePoints("akiyo", model.AnchorSide, 1, 22, 27, 32, 37)...)
	points = append(points, makePoints("akiyo", "B", 0.8, 22, 32)...)

	builder, err := NewBuilder(DefaultOptions())
	require.NoError(t, err)
	report, err := builder.Build(context.Background(), points)
	require.NoError(t, err)

	assert.True(t, report.BDComputed)
	assert.Equal(t, 4, report.DistinctPoints)
	assert.Equal(t, "exact", report.Mode)
	require.Len(t, report.Records, 2)

	akiyo, foreman := report.Records[0], report.Records[1]
	assert.Equal(t, "akiyo", akiyo.Source)
	assert.Equal(t, "foreman", foreman.Source)

	for _, metric := range model.AllMetrics {
		rate := foreman.Get(model.QualityAxis, metric)
		require.True(t, rate.Valid, metric)
		assert.InDelta(t, -20.0, rate.Value, 1e-6, metric)
		assert.True(t, foreman.Get(model.RateAxis, metric).Valid, metric)

		assert.False(t, akiyo.Get(model.QualityAxis, metric).Valid, metric)
		assert.False(t, akiyo.Get(model.RateAxis, metric).Valid, metric)
	}
	// psnr gains 5 dB per octave, 0.8x bitrate is log2(1.25) octaves
	assert.InDelta(t, 5*math.Log2(1.25), foreman.BDPSNR.Value, 1e-6)

	summary := report.Summary["bd_rate_psnr"]
	assert.Equal(t, 1, summary.Count)
	assert.InDelta(t, -20.0, summary.Mean.Value, 1e-6)
}

func TestBuilder_DistinctPointPolicy(t *testing.T) {
	points := append(makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37),
		makePoints("foreman", model.TestSide, 0.8, 22, 27, 32, 37)...)

	opts := DefaultOptions()
	opts.MinDistinctPoints = 5
	builder, err := NewBuilder(opts)
	require.NoError(t, err)

	report, err := builder.Build(context.Background(), points)
	require.NoError(t, err)
	assert.False(t, report.BDComputed)
	require.Len(t, report.Records, 1)
	assert.False(t, report.Records[0].BDRatePSNR.Valid)
	assert.Equal(t, 0, report.Summary["bd_psnr"].Count)
	assert.False(t, report.Summary["bd_psnr"].Mean.Valid)
}

// metricPanicCalculator fills BD-Rate values and panics on the first BD-Metric.
type metricPanicCalculator struct{}

func (metricPanicCalculator) BDRate(context.Context, []float64, []float64, []float64, []float64) (model.BDResult, error) {
	return model.Some(-20), nil
}

func (metricPanicCalculator) BDMetric(context.Context, []float64, []float64, []float64, []float64) (model.BDResult, error) {
	panic("singular matrix")
}

func TestBuilder_PanicLeavesRecordUndefined(t *testing.T) {
	points := append(makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37),
		makePoints("foreman", model.TestSide, 0.8, 22, 27, 32, 37)...)

	builder := &Builder{calc: metricPanicCalculator{}, opts: DefaultOptions()}
	report, err := builder.Build(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, report.Records, 1)

	record := report.Records[0]
	assert.Equal(t, "foreman", record.Source)
	for _, metric := range model.AllMetrics {
		assert.False(t, record.Get(model.QualityAxis, metric).Valid, metric)
		assert.False(t, record.Get(model.RateAxis, metric).Valid, metric)
	}
	assert.Equal(t, 0, report.Summary["bd_rate_psnr"].Count)
}

func TestBuilder_Errors(t *testing.T) {
	builder, err := NewBuilder(DefaultOptions())
	require.NoError(t, err)

	points := makePoints("foreman", "reference", 1, 22)
	_, err = builder.Build(context.Background(), points)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	points = append(makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37),
		makePoints("foreman", model.TestSide, 0.8, 22, 27, 32, 37)...)
	_, err = builder.Build(ctx, points)
	assert.ErrorIs(t, err, context.Canceled)

	opts := DefaultOptions()
	opts.BD.Mode = "spline"
	_, err = NewBuilder(opts)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)
}

func TestBuilder_ModesAgree(t *testing.T) {
	points := append(makePoints("foreman", model.AnchorSide, 1, 22, 27, 32, 37),
		makePoints("foreman", model.TestSide, 0.9, 22, 27, 32, 37)...)

	results := map[bd.Mode]*model.Report{}
	for _, mode := range bd.AllModes {
		opts := DefaultOptions()
		opts.BD.Mode = mode
		opts.Workers = 1
		builder, err := NewBuilder(opts)
		require.NoError(t, err)
		report, err := builder.Build(context.Background(), points)
		require.NoError(t, err)
		results[mode] = report
	}

	exact, piecewise := results[bd.ExactMode].Records[0], results[bd.PiecewiseMode].Records[0]
	assert.InDelta(t, -10.0, exact.BDRateVMAF.Value, 1e-6)
	assert.InEpsilon(t, exact.BDRateVMAF.Value, piecewise.BDRateVMAF.Value, 0.05)
	assert.InEpsilon(t, exact.BDVMAF.Value, piecewise.BDVMAF.Value, 0.05)
}

func TestSamplesCSV(t *testing.T) {
	input := strings.Join([]string{
		"video,side,label,bitrate_kbps,psnr,ssim,vmaf,vmaf_neg",
		"foreman,anchor,foreman_crf_22,4000,45,0.96,88,86",
		"foreman,test,foreman_crf_22,3200,,0.96,-,86",
	}, "\n")

	points, err := ReadSamplesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, model.AnchorSide, points[0].Side)
	assert.Equal(t, model.Some(4000), points[0].BitrateKbps)
	assert.Equal(t, model.Some(45), points[0].PSNR)
	assert.False(t, points[1].PSNR.Valid)
	assert.False(t, points[1].VMAF.Valid)
	assert.Equal(t, model.Some(86), points[1].VMAFNeg)

	_, err = ReadSamplesCSV(strings.NewReader("video,side,label,bitrate_kbps\nforeman,anchor,x_crf_1,fast\n"))
	assert.Error(t, err)
}

func TestSamplesJSON(t *testing.T) {
	input := `[{"video":"foreman","side":"test","label":"foreman_crf_22","bitrate_kbps":3200,"psnr":null,"vmaf":"91.5"}]`
	points, err := ReadSamplesJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, model.TestSide, points[0].Side)
	assert.False(t, points[0].PSNR.Valid)
	assert.False(t, points[0].SSIM.Valid)
	assert.Equal(t, model.Some(91.5), points[0].VMAF)
}

func TestWrite(t *testing.T) {
	report := &model.Report{
		Mode: "exact",
		Records: []*model.BDRecord{
			{Source: "foreman", BDRatePSNR: model.Some(-12.5), BDPSNR: model.Some(0.61234)},
		},
	}
	report.Summary = Summarize(report.Records)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, FormatCSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "source,bd_rate_psnr,bd_rate_ssim,bd_rate_vmaf,bd_rate_vmaf_neg,bd_psnr,bd_ssim,bd_vmaf,bd_vmaf_neg", lines[0])
	assert.Equal(t, "foreman,-12.5,-,-,-,0.61234,-,-,-", lines[1])

	buf.Reset()
	require.NoError(t, Write(&buf, report, FormatJSON))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	record := decoded["bd_metrics"].([]any)[0].(map[string]any)
	assert.Equal(t, -12.5, record["bd_rate_psnr"])
	assert.Nil(t, record["bd_ssim"])

	buf.Reset()
	require.NoError(t, Write(&buf, report, FormatTable))
	assert.Contains(t, buf.String(), "-12.50%")
	assert.Contains(t, buf.String(), "0.6123")
	assert.Contains(t, buf.String(), "average")

	assert.ErrorIs(t, Write(&buf, report, "xml"), common.ErrorInvalidValue)
}
