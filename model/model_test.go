package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/nowhere-man/VMA/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveModel(t *testing.T) {
	curve := &CurveModel{Coefficients: []float64{1, 2, 3}, Shift: 0, Scale: 1}
	assert.Equal(t, 2, curve.Degree())
	assert.InDelta(t, 6.0, curve.Eval(1), 1e-12)
	assert.InDelta(t, 3.0, curve.Integral(0, 1), 1e-12)

	// p((x-1)/2) over [-1, 3] is twice the integral of p over [-1, 1]
	curve = &CurveModel{Coefficients: []float64{1, 2, 3}, Shift: 1, Scale: 2}
	assert.InDelta(t, 1.0, curve.Eval(1), 1e-12)
	assert.InDelta(t, 8.0, curve.Integral(-1, 3), 1e-12)
	assert.InDelta(t, -8.0, curve.Integral(3, -1), 1e-12)
}

func TestOptionalFloat_CSV(t *testing.T) {
	var f OptionalFloat
	for _, s := range []string{"", " - ", "NaN", "null", "None"} {
		f = Some(1)
		require.NoError(t, f.UnmarshalCSV(s), s)
		assert.False(t, f.Valid, s)
		assert.True(t, math.IsNaN(f.Float()), s)
	}

	require.NoError(t, f.UnmarshalCSV(" 42.5 "))
	assert.Equal(t, Some(42.5), f)

	assert.ErrorIs(t, f.UnmarshalCSV("abc"), common.ErrorInvalidValue)
	assert.ErrorIs(t, f.UnmarshalCSV("+Inf"), common.ErrorInvalidValue)

	s, err := None().MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "-", s)
	s, err = Some(-3.25).MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "-3.25", s)
}

func TestOptionalFloat_JSON(t *testing.T) {
	data, err := json.Marshal([]OptionalFloat{Some(1.5), None(), Some(math.NaN())})
	require.NoError(t, err)
	assert.Equal(t, "[1.5,null,null]", string(data))

	var values []OptionalFloat
	require.NoError(t, json.Unmarshal([]byte(`[2, null, "3.5", "-"]`), &values))
	assert.Equal(t, []OptionalFloat{Some(2), None(), Some(3.5), None()}, values)

	assert.Error(t, json.Unmarshal([]byte(`["fast"]`), &values))
}

func TestSamplePair_Missing(t *testing.T) {
	assert.False(t, SamplePair{BitrateKbps: 1000, Metric: 40}.Missing())
	assert.True(t, SamplePair{BitrateKbps: math.NaN(), Metric: 40}.Missing())
	assert.True(t, SamplePair{BitrateKbps: 1000, Metric: math.NaN()}.Missing())
	assert.True(t, SamplePair{BitrateKbps: 0, Metric: 40}.Missing())
}

func TestParseSide(t *testing.T) {
	for s, want := range map[string]Side{"anchor": AnchorSide, "A": AnchorSide, "base": AnchorSide,
		"test": TestSide, " B ": TestSide, "exp": TestSide} {
		side, err := ParseSide(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, side, s)
	}
	_, err := ParseSide("reference")
	assert.ErrorIs(t, err, common.ErrorInvalidValue)
}

func TestBDRecord(t *testing.T) {
	record := &BDRecord{Source: "foreman"}
	for _, metric := range AllMetrics {
		assert.False(t, record.Get(QualityAxis, metric).Valid)
	}

	record.Set(QualityAxis, MetricVMAFNeg, Some(-3))
	record.Set(RateAxis, MetricSSIM, Some(0.01))
	assert.Equal(t, Some(-3), record.BDRateVMAFNeg)
	assert.Equal(t, Some(0.01), record.BDSSIM)
	assert.Equal(t, Some(0.01), record.Get(RateAxis, MetricSSIM))
	assert.False(t, record.Get(RateAxis, MetricVMAFNeg).Valid)

	record.Set(RateAxis, Metric("psnr_y"), Some(1))
	assert.False(t, record.Get(RateAxis, Metric("psnr_y")).Valid)

	assert.Equal(t, "bd_rate_vmaf_neg", FieldName(QualityAxis, MetricVMAFNeg))
	assert.Equal(t, "bd_psnr", FieldName(RateAxis, MetricPSNR))
}
