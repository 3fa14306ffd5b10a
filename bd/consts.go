package bd

const (
	// polynomial degree of the Bjøntegaard curve fit
	FitDegree = 3

	// grid size of the piecewise integration
	PiecewiseSamples = 100

	// fewer valid pairs than this on either side gives an undefined result
	MinSamplePairs = 4
)

type Mode string

const (
	// ExactMode integrates the fitted polynomials analytically.
	ExactMode Mode = "exact"
	// PiecewiseMode integrates a monotone interpolation of the raw samples.
	PiecewiseMode Mode = "piecewise"
)

var AllModes = []Mode{ExactMode, PiecewiseMode}
