package model

// Axis names the fitting domain of a curve.
type Axis int

const (
	// QualityAxis fits log-rate as a function of the metric (BD-Rate).
	QualityAxis Axis = 1
	// RateAxis fits the metric as a function of log-rate (BD-Metric).
	RateAxis Axis = 2
)

func (a Axis) String() string {
	switch a {
	case QualityAxis:
		return "quality"
	case RateAxis:
		return "rate"
	}
	return "unknown"
}

// CurveModel is a least squares polynomial fitted over [Min, Max].
// Coefficients are in ascending powers of t = (x - Shift) / Scale.
type CurveModel struct {
	Axis         Axis
	Coefficients []float64
	Shift        float64
	Scale        float64
	Min          float64
	Max          float64

	// Xs are the sorted samples on the fitting axis, Ys the matching values
	Xs []float64
	Ys []float64
}

func (c *CurveModel) Degree() int {
	return len(c.Coefficients) - 1
}

func (c *CurveModel) Eval(x float64) float64 {
	t := (x - c.Shift) / c.Scale
	res := 0.0
	for i := len(c.Coefficients) - 1; i >= 0; i-- {
		res = res*t + c.Coefficients[i]
	}
	return res
}

// Integral returns the definite integral of the curve over [a, b].
func (c *CurveModel) Integral(a, b float64) float64 {
	ta, tb := (a-c.Shift)/c.Scale, (b-c.Shift)/c.Scale
	return c.Scale * (c.antiderivative(tb) - c.antiderivative(ta))
}

func (c *CurveModel) antiderivative(t float64) float64 {
	res := 0.0
	for i := len(c.Coefficients) - 1; i >= 0; i-- {
		res = (res + c.Coefficients[i]/float64(i+1)) * t
	}
	return res
}

// BDResult is a BD value, or undefined when Valid is false.
type BDResult = OptionalFloat

func Undefined() BDResult {
	return None()
}

// BDRecord holds every BD value of one source video.
type BDRecord struct {
	Source        string   `csv:"source" json:"source"`
	BDRatePSNR    BDResult `csv:"bd_rate_psnr" json:"bd_rate_psnr"`
	BDRateSSIM    BDResult `csv:"bd_rate_ssim" json:"bd_rate_ssim"`
	BDRateVMAF    BDResult `csv:"bd_rate_vmaf" json:"bd_rate_vmaf"`
	BDRateVMAFNeg BDResult `csv:"bd_rate_vmaf_neg" json:"bd_rate_vmaf_neg"`
	BDPSNR        BDResult `csv:"bd_psnr" json:"bd_psnr"`
	BDSSIM        BDResult `csv:"bd_ssim" json:"bd_ssim"`
	BDVMAF        BDResult `csv:"bd_vmaf" json:"bd_vmaf"`
	BDVMAFNeg     BDResult `csv:"bd_vmaf_neg" json:"bd_vmaf_neg"`
}

func (r *BDRecord) field(axis Axis, metric Metric) *BDResult {
	if axis == QualityAxis {
		switch metric {
		case MetricPSNR:
			return &r.BDRatePSNR
		case MetricSSIM:
			return &r.BDRateSSIM
		case MetricVMAF:
			return &r.BDRateVMAF
		case MetricVMAFNeg:
			return &r.BDRateVMAFNeg
		}
		return nil
	}
	switch metric {
	case MetricPSNR:
		return &r.BDPSNR
	case MetricSSIM:
		return &r.BDSSIM
	case MetricVMAF:
		return &r.BDVMAF
	case MetricVMAFNeg:
		return &r.BDVMAFNeg
	}
	return nil
}

func (r *BDRecord) Get(axis Axis, metric Metric) BDResult {
	if f := r.field(axis, metric); f != nil {
		return *f
	}
	return Undefined()
}

func (r *BDRecord) Set(axis Axis, metric Metric, value BDResult) {
	if f := r.field(axis, metric); f != nil {
		*f = value
	}
}

// FieldName is the report key of a BD value, e.g. "bd_rate_vmaf" or "bd_psnr".
func FieldName(axis Axis, metric Metric) string {
	if axis == QualityAxis {
		return "bd_rate_" + string(metric)
	}
	return "bd_" + string(metric)
}

type FieldSummary struct {
	Mean  BDResult `json:"mean"`
	Count int      `json:"count"`
}

// Summary is keyed by FieldName.
type Summary map[string]FieldSummary

type Report struct {
	Mode           string      `json:"mode"`
	DistinctPoints int         `json:"distinct_points"`
	BDComputed     bool        `json:"bd_computed"`
	Records        []*BDRecord `json:"bd_metrics"`
	Summary        Summary     `json:"summary"`
}
