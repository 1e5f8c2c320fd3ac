package scorer

// Severity levels for a category shortfall.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
	SeverityNone     = "none"
)

// Threshold maps a minimum share of a category's weight to the severity
// assigned below it.
type Threshold struct {
	Severity string
	Below    float64
}

//nolint:gochecknoglobals // Scoring configuration constants
var SeverityThresholds = []Threshold{
	{Severity: SeverityCritical, Below: 0.50}, // Under half the category's points
	{Severity: SeverityMajor, Below: 0.70},
	{Severity: SeverityMinor, Below: 1.00},
}

// ConsistencyTolerance is how far the overall score may drift from the
// breakdown total before the report flags it.
const ConsistencyTolerance = 10.0

// severityFor grades earned points against a category weight.
func severityFor(earned, weight float64) (severity string) {
	severity = SeverityNone
	if weight <= 0 {
		return severity
	}

	share := earned / weight
	for _, t := range SeverityThresholds {
		if share < t.Below {
			severity = t.Severity
			return severity
		}
	}
	return severity
}
