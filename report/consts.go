package report

const (
	// BD values are only computed when the report covers this many distinct
	// rate-control points
	MinDistinctPoints = 4

	DefaultWorkers = 4
)
