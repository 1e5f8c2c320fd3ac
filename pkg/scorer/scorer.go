package scorer

import (
	"fmt"
	"math"

	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/nikogura/resume-ai/pkg/schema"
)

// Shortfall is the gap between a category's weight and the points the
// model awarded it.
type Shortfall struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Weight      int      `json:"weight"`
	Earned      *float64 `json:"earned"`
	Lost        float64  `json:"lost"`
	Severity    string   `json:"severity"`
}

// Report summarises an ATS result category by category.
type Report struct {
	Score          *float64    `json:"score"`
	BreakdownTotal float64     `json:"breakdownTotal"`
	Consistent     bool        `json:"consistent"`
	Shortfalls     []Shortfall `json:"shortfalls"`
	Lessons        []string    `json:"lessons"`
}

// Scorer grades ATS results against the category weights.
type Scorer struct {
	categories []schema.Category
}

// NewScorer creates a new scorer over the standard ATS categories.
func NewScorer() (scorer *Scorer) {
	scorer = &Scorer{categories: schema.AtsCategories}
	return scorer
}

// Evaluate builds a report from a decoded ATS result. Categories the model
// left out are reported with no earned points and lose their full weight.
func (s *Scorer) Evaluate(ats llm.ATSScore) (report Report) {
	report = Report{
		Score:      ats.Score,
		Shortfalls: make([]Shortfall, 0, len(s.categories)),
		Lessons:    []string{},
	}

	for _, c := range s.categories {
		sf := Shortfall{
			Category:    c.Name,
			Description: c.Description,
			Weight:      c.Weight,
		}

		earned := 0.0
		if v, ok := ats.Breakdown[c.Name]; ok {
			earned = v
			sf.Earned = &v
		}

		report.BreakdownTotal += earned
		sf.Lost = math.Max(0, float64(c.Weight)-earned)
		sf.Severity = severityFor(earned, float64(c.Weight))
		report.Shortfalls = append(report.Shortfalls, sf)
	}

	report.Consistent = ats.Score != nil && math.Abs(*ats.Score-report.BreakdownTotal) <= ConsistencyTolerance
	report.Lessons = s.ExtractLessons(report)

	return report
}

// ExtractLessons turns the serious shortfalls into one-line notes.
func (s *Scorer) ExtractLessons(report Report) (lessons []string) {
	lessons = []string{}

	for _, sf := range report.Shortfalls {
		if sf.Severity != SeverityCritical && sf.Severity != SeverityMajor {
			continue
		}
		if sf.Earned == nil {
			lessons = append(lessons, fmt.Sprintf("%s not assessed: %s", sf.Category, sf.Description))
			continue
		}
		lessons = append(lessons, fmt.Sprintf("%s scored %g/%d (%s): %s", sf.Category, *sf.Earned, sf.Weight, sf.Severity, sf.Description))
	}

	if report.Score == nil {
		lessons = append(lessons, "No overall score was returned")
	} else if !report.Consistent {
		lessons = append(lessons, fmt.Sprintf("Overall score %g disagrees with breakdown total %g", *report.Score, report.BreakdownTotal))
	}

	return lessons
}
