package report

import (
	"github.com/nowhere-man/VMA/model"
	"gonum.org/v1/gonum/stat"
)

var summaryAxes = []model.Axis{model.QualityAxis, model.RateAxis}

// Summarize averages every BD field over the videos where it is defined.
func Summarize(records []*model.BDRecord) model.Summary {
	res := model.Summary{}
	for _, axis := range summaryAxes {
		for _, metric := range model.AllMetrics {
			values := []float64{}
			for _, record := range records {
				if v := record.Get(axis, metric); v.Valid {
					values = append(values, v.Value)
				}
			}

			summary := model.FieldSummary{Mean: model.Undefined(), Count: len(values)}
			if len(values) > 0 {
				summary.Mean = model.Some(stat.Mean(values, nil))
			}
			res[model.FieldName(axis, metric)] = summary
		}
	}
	return res
}
