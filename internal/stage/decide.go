// Package stage holds the acceptance rules for each classification stage and
// an Evaluator that runs SNID for a stage before applying them.
package stage

import (
	"math"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/montanaflynn/stats"
)

const (
	// MinFraction is the type fraction a candidate needs to be accepted.
	MinFraction = 0.5
	// AgeRLAPFraction admits good templates within this share of the best rlap.
	AgeRLAPFraction = 0.75
	// MaxAgeError is the absolute age error (days) always accepted.
	MaxAgeError = 4.0
	// MaxRelAgeError is the age error accepted relative to |age|.
	MaxRelAgeError = 0.2
)

// nonSNTypes are compared verbatim by the type stage; every other label is
// reduced to its two-character base type.
var nonSNTypes = map[string]bool{
	"NotSN":  true,
	"AGN":    true,
	"Gal":    true,
	"LBV":    true,
	"M-star": true,
	"C-Star": true,
	"QSO":    true,
}

// BaseType returns the label the type stage compares against.
func BaseType(label string) string {
	if nonSNTypes[label] || len(label) <= 2 {
		return label
	}
	return label[:2]
}

// TypeResult is an accepted type.
type TypeResult struct {
	Label        string
	BestTemplate report.TemplateRecord
	// GoodMatches is the template count SNID reported for the type.
	GoodMatches int
}

// maxFraction returns the first row with the highest fraction among rows
// accepted by keep.
func maxFraction(rows []report.TypeRecord, keep func(report.TypeRecord) bool) (report.TypeRecord, bool) {
	var best report.TypeRecord
	found := false
	for _, r := range rows {
		if keep != nil && !keep(r) {
			continue
		}
		if !found || r.Fraction > best.Fraction {
			best, found = r, true
		}
	}
	return best, found
}

// DecideType accepts the max-fraction type when it holds at least half the
// matches and agrees with the base type of the best good template.
func DecideType(rep *report.Report) (TypeResult, bool) {
	if rep == nil {
		return TypeResult{}, false
	}
	cand, ok := maxFraction(rep.Types, nil)
	if !ok {
		return TypeResult{}, false
	}
	best, ok := rep.Best()
	if !ok {
		return TypeResult{}, false
	}
	if cand.Fraction < MinFraction || cand.Type != BaseType(best.Type) {
		return TypeResult{}, false
	}
	return TypeResult{Label: cand.Type, BestTemplate: best, GoodMatches: cand.NTemp}, true
}

// DecideSubtype accepts the max-fraction label other than forced when it
// holds at least half the matches and equals the best good template's label.
// Labels are compared as written.
func DecideSubtype(rep *report.Report, forced string) (string, bool) {
	if rep == nil {
		return "", false
	}
	cand, ok := maxFraction(rep.Types, func(r report.TypeRecord) bool { return r.Type != forced })
	if !ok {
		return "", false
	}
	best, ok := rep.Best()
	if !ok {
		return "", false
	}
	if cand.Fraction < MinFraction || cand.Type != best.Type {
		return "", false
	}
	return cand.Type, true
}

// DecideRedshift returns the median and population standard deviation of
// the good templates' redshifts. Both are missing when there are none.
func DecideRedshift(rep *report.Report) (z, zerr classifier.Number) {
	good := rep.Good()
	if len(good) == 0 {
		return classifier.None(), classifier.None()
	}
	zs := make(stats.Float64Data, 0, len(good))
	for _, t := range good {
		zs = append(zs, t.Z)
	}
	return medianStd(zs)
}

// DecideAge returns the median and population standard deviation of the ages
// of good templates whose rlap is within AgeRLAPFraction of the best one.
// Unless relax is set, the result is only accepted when the error is below
// MaxAgeError or MaxRelAgeError of |age|.
func DecideAge(rep *report.Report, relax bool) (age, ageErr classifier.Number) {
	best, ok := rep.Best()
	if !ok {
		return classifier.None(), classifier.None()
	}
	floor := AgeRLAPFraction * best.RLAP
	var ages stats.Float64Data
	for _, t := range rep.Good() {
		if t.RLAP < floor {
			continue
		}
		if a, ok := t.Age.Get(); ok {
			ages = append(ages, a)
		}
	}
	if len(ages) == 0 {
		return classifier.None(), classifier.None()
	}
	age, ageErr = medianStd(ages)
	if relax {
		return age, ageErr
	}
	a, _ := age.Get()
	e, _ := ageErr.Get()
	if e < MaxAgeError || e < MaxRelAgeError*math.Abs(a) {
		return age, ageErr
	}
	return classifier.None(), classifier.None()
}

func medianStd(data stats.Float64Data) (classifier.Number, classifier.Number) {
	med, err := stats.Median(data)
	if err != nil {
		return classifier.None(), classifier.None()
	}
	sd, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return classifier.Some(med), classifier.None()
	}
	return classifier.Some(med), classifier.Some(sd)
}
