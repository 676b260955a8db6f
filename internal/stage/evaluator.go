package stage

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/report"
)

// Classifier runs SNID once and returns the parsed report. It returns an
// error wrapping classifier.ErrNoReport when SNID wrote no report.
type Classifier interface {
	Classify(ctx context.Context, spectrum string, args classifier.Args) (*report.Report, error)
}

// SNID is the Classifier backed by a real subprocess.
type SNID struct {
	Runner *classifier.Runner
}

// Classify runs SNID and parses its report.
func (s SNID) Classify(ctx context.Context, spectrum string, args classifier.Args) (*report.Report, error) {
	path, err := s.Runner.Run(ctx, spectrum, args)
	if err != nil {
		return nil, err
	}
	return report.ReadFile(path)
}

// Policy holds the settings shared by every stage.
type Policy struct {
	ZTol       float64
	ZMin, ZMax classifier.Number
	RelaxAge   bool
}

// DefaultPolicy returns SNID's default tolerance and the 0 to 0.5 search range.
func DefaultPolicy() Policy {
	return Policy{
		ZTol: classifier.DefaultZTol,
		ZMin: classifier.Some(0.0),
		ZMax: classifier.Some(0.5),
	}
}

// TypeArgs returns the arguments of the type stage.
func (p Policy) TypeArgs(z classifier.Number, rlap float64) classifier.Args {
	return classifier.Args{ZTol: p.ZTol, Template: classifier.AllTemplates}.
		WithForceZ(z).
		WithRLAP(classifier.Some(rlap)).
		WithBounds(p.ZMin, p.ZMax)
}

// SubtypeArgs returns the arguments of the subtype stage for an accepted type.
func (p Policy) SubtypeArgs(z classifier.Number, typ string, rlap float64) classifier.Args {
	return p.TypeArgs(z, rlap).WithTemplate(typ)
}

// RedshiftArgs returns the arguments of the redshift stage restricted to label.
func (p Policy) RedshiftArgs(label string) classifier.Args {
	return classifier.Args{ZTol: p.ZTol}.
		WithTemplate(label).
		WithBounds(p.ZMin, p.ZMax)
}

// AgeArgs returns the arguments of the age stage at redshift z.
func (p Policy) AgeArgs(z classifier.Number, subtype string) classifier.Args {
	return classifier.Args{ZTol: p.ZTol}.
		WithForceZ(z).
		WithTemplate(subtype)
}

// Evaluator runs one stage at a time: classify, then decide.
//
// A missing report is an undetermined outcome. Parse failures and invalid
// arguments are returned as errors.
type Evaluator struct {
	Classifier Classifier
	Policy     Policy
}

// run classifies and reports ok=false when SNID produced nothing.
func (e *Evaluator) run(ctx context.Context, name, spectrum string, args classifier.Args) (*report.Report, bool, error) {
	rep, err := e.Classifier.Classify(ctx, spectrum, args)
	if errors.Is(err, classifier.ErrNoReport) {
		logf(filepath.Base(spectrum), "%s: no report", name)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rep, true, nil
}

// Type runs the type stage at the given rlap threshold.
func (e *Evaluator) Type(ctx context.Context, spectrum string, z classifier.Number, rlap float64) (TypeResult, bool, error) {
	rep, ok, err := e.run(ctx, "type", spectrum, e.Policy.TypeArgs(z, rlap))
	if err != nil || !ok {
		return TypeResult{}, false, err
	}
	res, ok := DecideType(rep)
	logf(filepath.Base(spectrum), "type rlap=%g: %q accepted=%v", rlap, res.Label, ok)
	return res, ok, nil
}

// Subtype runs the subtype stage restricted to typ.
func (e *Evaluator) Subtype(ctx context.Context, spectrum string, z classifier.Number, typ string, rlap float64) (string, bool, error) {
	rep, ok, err := e.run(ctx, "subtype", spectrum, e.Policy.SubtypeArgs(z, typ, rlap))
	if err != nil || !ok {
		return "", false, err
	}
	sub, ok := DecideSubtype(rep, typ)
	logf(filepath.Base(spectrum), "subtype of %s rlap=%g: %q accepted=%v", typ, rlap, sub, ok)
	return sub, ok, nil
}

// Redshift runs the redshift stage restricted to label.
func (e *Evaluator) Redshift(ctx context.Context, spectrum, label string) (z, zerr classifier.Number, err error) {
	rep, ok, err := e.run(ctx, "redshift", spectrum, e.Policy.RedshiftArgs(label))
	if err != nil || !ok {
		return classifier.None(), classifier.None(), err
	}
	z, zerr = DecideRedshift(rep)
	logf(filepath.Base(spectrum), "redshift with %s: z=%s zerr=%s", label, z, zerr)
	return z, zerr, nil
}

// Age runs the age stage at redshift z restricted to subtype.
func (e *Evaluator) Age(ctx context.Context, spectrum string, z classifier.Number, subtype string) (age, ageErr classifier.Number, err error) {
	rep, ok, err := e.run(ctx, "age", spectrum, e.Policy.AgeArgs(z, subtype))
	if err != nil || !ok {
		return classifier.None(), classifier.None(), err
	}
	age, ageErr = DecideAge(rep, e.Policy.RelaxAge)
	logf(filepath.Base(spectrum), "age with %s at z=%s: %s +/- %s", subtype, z, age, ageErr)
	return age, ageErr, nil
}
