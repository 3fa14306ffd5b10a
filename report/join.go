package report

import (
	"github.com/nowhere-man/VMA/model"
)

// JoinedPoint is an anchor and a test sample encoded at the same
// rate-control point.
type JoinedPoint struct {
	Key    string
	Anchor model.RatePoint
	Test   model.RatePoint
}

// Join pairs anchor and test samples of one video by PointKey.
// Points present on one side only are dropped, and the first sample wins
// when a key repeats.
func Join(anchor, test []model.RatePoint) []JoinedPoint {
	tests := map[string]model.RatePoint{}
	for _, p := range test {
		key := PointKey(p)
		if _, ok := tests[key]; !ok {
			tests[key] = p
		}
	}

	res := []JoinedPoint{}
	seen := map[string]bool{}
	for _, p := range anchor {
		key := PointKey(p)
		if seen[key] {
			continue
		}
		testPoint, ok := tests[key]
		if !ok {
			continue
		}
		seen[key] = true
		res = append(res, JoinedPoint{Key: key, Anchor: p, Test: testPoint})
	}
	return res
}

// Series holds the four parallel sequences fed to the BD calculator.
type Series struct {
	AnchorRates  []float64
	AnchorMetric []float64
	TestRates    []float64
	TestMetric   []float64
}

func (s *Series) Len() int {
	return len(s.AnchorRates)
}

// Collect keeps the joined points where both bitrates and both metric values
// are present.
func Collect(joined []JoinedPoint, metric model.Metric) *Series {
	res := &Series{}
	for _, j := range joined {
		ar, am := j.Anchor.BitrateKbps, j.Anchor.MetricValue(metric)
		tr, tm := j.Test.BitrateKbps, j.Test.MetricValue(metric)
		if !ar.Valid || !am.Valid || !tr.Valid || !tm.Valid {
			continue
		}
		if ar.Value <= 0 || tr.Value <= 0 {
			continue
		}
		res.AnchorRates = append(res.AnchorRates, ar.Value)
		res.AnchorMetric = append(res.AnchorMetric, am.Value)
		res.TestRates = append(res.TestRates, tr.Value)
		res.TestMetric = append(res.TestMetric, tm.Value)
	}
	return res
}
