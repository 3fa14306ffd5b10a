package report

import (
	"strconv"
	"strings"

	"github.com/nowhere-man/VMA/model"
	"github.com/samber/lo"
)

// ParseLabel splits an encode label such as "foreman_crf_23" from the right
// into the rate-control mode ("crf") and the point value (23).
func ParseLabel(label string) (string, float64, bool) {
	idx := strings.LastIndex(label, "_")
	if idx < 0 {
		return "", 0, false
	}
	head, value := label[:idx], label[idx+1:]

	idx = strings.LastIndex(head, "_")
	if idx < 0 {
		return "", 0, false
	}
	rc := head[idx+1:]

	point, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return rc, 0, false
	}
	return rc, point, true
}

// PointKey identifies the rate-control point of a sample. Labels that do not
// parse fall back to the raw label.
func PointKey(p model.RatePoint) string {
	rc, point, ok := ParseLabel(p.Label)
	if !ok {
		return "label:" + p.Label
	}
	return rc + "@" + strconv.FormatFloat(point, 'g', -1, 64)
}

// DistinctPoints counts the distinct point values of a whole report. Labels
// that do not parse carry no point value, and the rate-control mode does not
// tell points apart.
func DistinctPoints(points []model.RatePoint) int {
	values := lo.FilterMap(points, func(p model.RatePoint, _ int) (float64, bool) {
		_, point, ok := ParseLabel(p.Label)
		return point, ok
	})
	return len(lo.Uniq(values))
}
