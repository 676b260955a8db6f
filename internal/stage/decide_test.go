package stage

import (
	"testing"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tpl(typ string, rlap, z float64, age classifier.Number, grade report.Grade) report.TemplateRecord {
	return report.TemplateRecord{SN: "sn" + typ, Type: typ, RLAP: rlap, Z: z, Age: age, Grade: grade}
}

func TestBaseType(t *testing.T) {
	tcs := map[string]string{
		"Ia-norm": "Ia",
		"Ib-pec":  "Ib",
		"II":      "II",
		"IIP":     "II",
		"I":       "I",
		"NotSN":   "NotSN",
		"M-star":  "M-star",
		"C-Star":  "C-Star",
		"QSO":     "QSO",
		"Gal":     "Gal",
	}
	for in, want := range tcs {
		assert.Equal(t, want, BaseType(in), in)
	}
}

func TestDecideType(t *testing.T) {
	types := []report.TypeRecord{{Type: "Ia", NTemp: 12, Fraction: 0.6}, {Type: "Ib", NTemp: 8, Fraction: 0.4}}

	t.Run("subtype of best template truncates to type", func(t *testing.T) {
		rep := &report.Report{Types: types, Templates: []report.TemplateRecord{
			tpl("Ib", 20, 0.03, classifier.None(), report.GradeBad),
			tpl("Ia-norm", 15, 0.03, classifier.None(), report.GradeGood),
		}}
		res, ok := DecideType(rep)
		require.True(t, ok)
		assert.Equal(t, "Ia", res.Label)
		assert.Equal(t, "Ia-norm", res.BestTemplate.Type)
		assert.Equal(t, 12, res.GoodMatches)
	})

	t.Run("best template of another type", func(t *testing.T) {
		rep := &report.Report{Types: types, Templates: []report.TemplateRecord{
			tpl("Ib", 15, 0.03, classifier.None(), report.GradeGood),
		}}
		_, ok := DecideType(rep)
		assert.False(t, ok)
	})

	t.Run("fraction below half", func(t *testing.T) {
		rep := &report.Report{
			Types:     []report.TypeRecord{{Type: "Ia", Fraction: 0.49}, {Type: "Ib", Fraction: 0.3}},
			Templates: []report.TemplateRecord{tpl("Ia-norm", 15, 0.03, classifier.None(), report.GradeGood)},
		}
		_, ok := DecideType(rep)
		assert.False(t, ok)
	})

	t.Run("max fraction is found anywhere in the table", func(t *testing.T) {
		rep := &report.Report{
			Types:     []report.TypeRecord{{Type: "Ib", Fraction: 0.1}, {Type: "II", Fraction: 0.7}, {Type: "Ia", Fraction: 0.2}},
			Templates: []report.TemplateRecord{tpl("IIP", 9, 0.01, classifier.None(), report.GradeGood)},
		}
		res, ok := DecideType(rep)
		require.True(t, ok)
		assert.Equal(t, "II", res.Label)
	})

	t.Run("non-supernova labels are compared verbatim", func(t *testing.T) {
		rep := &report.Report{
			Types:     []report.TypeRecord{{Type: "AGN", Fraction: 0.8}},
			Templates: []report.TemplateRecord{tpl("AGN", 9, 0.2, classifier.None(), report.GradeGood)},
		}
		res, ok := DecideType(rep)
		require.True(t, ok)
		assert.Equal(t, "AGN", res.Label)
	})

	t.Run("no good templates", func(t *testing.T) {
		rep := &report.Report{Types: types, Templates: []report.TemplateRecord{
			tpl("Ia-norm", 15, 0.03, classifier.None(), report.GradeMarginal),
		}}
		_, ok := DecideType(rep)
		assert.False(t, ok)
	})

	t.Run("empty report", func(t *testing.T) {
		_, ok := DecideType(&report.Report{})
		assert.False(t, ok)
		_, ok = DecideType(nil)
		assert.False(t, ok)
	})
}

func TestDecideSubtype(t *testing.T) {
	types := []report.TypeRecord{
		{Type: "Ia", Fraction: 1.0},
		{Type: "Ia-norm", Fraction: 0.7},
		{Type: "Ia-91T", Fraction: 0.2},
	}

	t.Run("forced type is masked", func(t *testing.T) {
		rep := &report.Report{Types: types, Templates: []report.TemplateRecord{
			tpl("Ia-norm", 12, 0.03, classifier.None(), report.GradeGood),
		}}
		sub, ok := DecideSubtype(rep, "Ia")
		require.True(t, ok)
		assert.Equal(t, "Ia-norm", sub)
	})

	t.Run("best template disagrees", func(t *testing.T) {
		rep := &report.Report{Types: types, Templates: []report.TemplateRecord{
			tpl("Ia-91T", 12, 0.03, classifier.None(), report.GradeGood),
		}}
		_, ok := DecideSubtype(rep, "Ia")
		assert.False(t, ok)
	})

	t.Run("labels are not truncated", func(t *testing.T) {
		rep := &report.Report{
			Types:     []report.TypeRecord{{Type: "Ia", Fraction: 1}, {Type: "Ia-norm", Fraction: 0.9}},
			Templates: []report.TemplateRecord{tpl("Ia", 12, 0.03, classifier.None(), report.GradeGood)},
		}
		_, ok := DecideSubtype(rep, "Ia")
		assert.False(t, ok)
	})

	t.Run("only the forced type", func(t *testing.T) {
		rep := &report.Report{
			Types:     []report.TypeRecord{{Type: "Ia", Fraction: 1}},
			Templates: []report.TemplateRecord{tpl("Ia-norm", 12, 0.03, classifier.None(), report.GradeGood)},
		}
		_, ok := DecideSubtype(rep, "Ia")
		assert.False(t, ok)
	})
}

func TestDecideRedshift(t *testing.T) {
	rep := &report.Report{Templates: []report.TemplateRecord{
		tpl("Ia-norm", 15, 0.030, classifier.None(), report.GradeGood),
		tpl("Ia-norm", 14, 0.500, classifier.None(), report.GradeBad),
		tpl("Ia-norm", 13, 0.034, classifier.None(), report.GradeGood),
		tpl("Ia-norm", 12, 0.032, classifier.None(), report.GradeGood),
	}}
	z, zerr := DecideRedshift(rep)
	zv, ok := z.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.032, zv, 1e-12)
	ev, ok := zerr.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.0016330, ev, 1e-6)

	t.Run("no good templates", func(t *testing.T) {
		rep := &report.Report{Templates: []report.TemplateRecord{tpl("Ia", 1, 0.1, classifier.None(), report.GradeBad)}}
		z, zerr := DecideRedshift(rep)
		assert.False(t, z.Valid())
		assert.False(t, zerr.Valid())
	})
}

func TestDecideAge(t *testing.T) {
	good := func(rlap, age float64) report.TemplateRecord {
		return tpl("Ia-norm", rlap, 0.03, classifier.Some(age), report.GradeGood)
	}

	t.Run("low rlap ages are excluded", func(t *testing.T) {
		rep := &report.Report{Templates: []report.TemplateRecord{good(100, 10), good(95, 12), good(90, 11), good(20, 50)}}
		age, ageErr := DecideAge(rep, false)
		a, ok := age.Get()
		require.True(t, ok)
		assert.InDelta(t, 11.0, a, 1e-12)
		e, ok := ageErr.Get()
		require.True(t, ok)
		assert.InDelta(t, 0.8165, e, 1e-4)
	})

	t.Run("wide spread is rejected unless relaxed", func(t *testing.T) {
		rep := &report.Report{Templates: []report.TemplateRecord{good(10, 2), good(10, 12), good(10, 22)}}
		age, ageErr := DecideAge(rep, false)
		assert.False(t, age.Valid())
		assert.False(t, ageErr.Valid())

		age, ageErr = DecideAge(rep, true)
		assert.Equal(t, classifier.Some(12), age)
		assert.True(t, ageErr.Valid())
	})

	t.Run("relative error uses the magnitude of the age", func(t *testing.T) {
		rep := &report.Report{Templates: []report.TemplateRecord{good(10, -40), good(10, -50), good(10, -60)}}
		age, _ := DecideAge(rep, false)
		assert.Equal(t, classifier.Some(-50), age)
	})

	t.Run("missing ages are skipped", func(t *testing.T) {
		rep := &report.Report{Templates: []report.TemplateRecord{
			tpl("Ia-norm", 10, 0.03, classifier.None(), report.GradeGood),
			good(9, 5),
		}}
		age, _ := DecideAge(rep, false)
		assert.Equal(t, classifier.Some(5), age)
	})

	t.Run("no good templates", func(t *testing.T) {
		age, ageErr := DecideAge(&report.Report{}, false)
		assert.False(t, age.Valid())
		assert.False(t, ageErr.Valid())
	})
}
