package stage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier records every call and answers from a fixed report.
type fakeClassifier struct {
	rep   *report.Report
	err   error
	calls []classifier.Args
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, args classifier.Args) (*report.Report, error) {
	f.calls = append(f.calls, args)
	if _, err := args.Tokens(); err != nil {
		return nil, err
	}
	return f.rep, f.err
}

func tokens(t *testing.T, a classifier.Args) []string {
	t.Helper()
	tok, err := a.Tokens()
	require.NoError(t, err)
	return tok
}

func TestPolicyArgs(t *testing.T) {
	p := DefaultPolicy()
	z := classifier.Some(0.034)

	assert.Equal(t, []string{"rlapmin=10", "forcez=0.034", "zfilter=0.02", "zmin=0", "zmax=0.5"},
		tokens(t, p.TypeArgs(z, 10)))
	assert.Equal(t, []string{"rlapmin=5", "zfilter=0.02", "zmin=0", "zmax=0.5"},
		tokens(t, p.TypeArgs(classifier.None(), 5)))
	assert.Equal(t, []string{"rlapmin=5", "forcez=0.034", "zfilter=0.02", "usetype=Ia", "zmin=0", "zmax=0.5"},
		tokens(t, p.SubtypeArgs(z, "Ia", 5)))
	assert.Equal(t, []string{"zfilter=0.02", "usetype=Ia-norm", "zmin=0", "zmax=0.5"},
		tokens(t, p.RedshiftArgs("Ia-norm")))
	assert.Equal(t, []string{"forcez=0.034", "zfilter=0.02", "usetype=Ia-norm"},
		tokens(t, p.AgeArgs(z, "Ia-norm")))
}

func TestEvaluator_NoReportIsUndetermined(t *testing.T) {
	fc := &fakeClassifier{err: fmt.Errorf("run: %w", classifier.ErrNoReport)}
	e := &Evaluator{Classifier: fc, Policy: DefaultPolicy()}
	ctx := context.Background()

	_, ok, err := e.Type(ctx, "sn.flm", classifier.None(), 10)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = e.Subtype(ctx, "sn.flm", classifier.None(), "Ia", 10)
	require.NoError(t, err)
	assert.False(t, ok)

	z, zerr, err := e.Redshift(ctx, "sn.flm", "Ia")
	require.NoError(t, err)
	assert.False(t, z.Valid() || zerr.Valid())

	age, ageErr, err := e.Age(ctx, "sn.flm", classifier.Some(0.03), "Ia-norm")
	require.NoError(t, err)
	assert.False(t, age.Valid() || ageErr.Valid())
	assert.Len(t, fc.calls, 4)
}

func TestEvaluator_ParseFailureIsReturned(t *testing.T) {
	parseErr := &report.ReadError{Path: "x", Section: report.SectionType, Err: report.ErrMalformedRow}
	e := &Evaluator{Classifier: &fakeClassifier{err: parseErr}, Policy: DefaultPolicy()}

	_, _, err := e.Type(context.Background(), "sn.flm", classifier.None(), 10)
	assert.True(t, errors.Is(err, report.ErrFormat), "got %v", err)
}

func TestEvaluator_InvalidArgumentIsReturned(t *testing.T) {
	p := DefaultPolicy()
	p.ZTol = -1
	e := &Evaluator{Classifier: &fakeClassifier{rep: &report.Report{}}, Policy: p}

	_, _, err := e.Redshift(context.Background(), "sn.flm", "Ia")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestEvaluator_TypeAccepted(t *testing.T) {
	rep := &report.Report{
		Types: []report.TypeRecord{{Type: "Ia", NTemp: 7, Fraction: 0.8}},
		Templates: []report.TemplateRecord{
			{SN: "sn1994D", Type: "Ia-norm", RLAP: 12, Z: 0.03, Grade: report.GradeGood},
		},
	}
	fc := &fakeClassifier{rep: rep}
	e := &Evaluator{Classifier: fc, Policy: DefaultPolicy()}

	res, ok, err := e.Type(context.Background(), "sn.flm", classifier.None(), 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ia", res.Label)
	assert.Equal(t, "sn1994D", res.BestTemplate.SN)
	assert.Equal(t, 7, res.GoodMatches)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, classifier.Some(10), fc.calls[0].RLAPMin)
}
