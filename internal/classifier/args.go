package classifier

import (
	"math"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/apperr"
)

// DefaultZTol is SNID's own default redshift tolerance.
const DefaultZTol = 0.02

// AllTemplates disables the template-type restriction.
const AllTemplates = "all"

// Args holds the options for one SNID invocation.
type Args struct {
	// ForceZ pins the redshift (forcez=). Missing or NaN values are not sent.
	ForceZ Number
	// ZTol is the redshift tolerance (zfilter=), always sent.
	ZTol float64
	// RLAPMin is the minimum rlap (rlapmin=). Missing means SNID's default.
	RLAPMin Number
	// Template restricts the templates to one (sub)type (usetype=).
	// Empty or "all" means no restriction.
	Template string
	// ZMin and ZMax bound the redshift search (zmin=, zmax=).
	// They are only sent when both are present.
	ZMin, ZMax Number
}

// NewArgs returns Args with SNID's default tolerance and no restrictions.
func NewArgs() Args {
	return Args{ZTol: DefaultZTol, Template: AllTemplates}
}

// WithForceZ returns a copy with the forced redshift set.
func (a Args) WithForceZ(z Number) Args { a.ForceZ = z; return a }

// WithRLAP returns a copy with the minimum rlap set.
func (a Args) WithRLAP(rlap Number) Args { a.RLAPMin = rlap; return a }

// WithTemplate returns a copy restricted to the given (sub)type.
func (a Args) WithTemplate(label string) Args { a.Template = label; return a }

// WithBounds returns a copy with the redshift search bounds set.
func (a Args) WithBounds(zmin, zmax Number) Args { a.ZMin, a.ZMax = zmin, zmax; return a }

// Tokens formats the arguments into SNID keyword tokens, in the order
// rlapmin, forcez, zfilter, usetype, zmin, zmax. Malformed values yield an
// error wrapping apperr.ErrInvalidArgument; nothing is coerced.
func (a Args) Tokens() ([]string, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	tokens := make([]string, 0, 6)
	if a.RLAPMin.Valid() {
		tokens = append(tokens, "rlapmin="+a.RLAPMin.String())
	}
	if a.ForceZ.Valid() {
		tokens = append(tokens, "forcez="+a.ForceZ.String())
	}
	tokens = append(tokens, "zfilter="+Some(a.ZTol).String())
	if !isAll(a.Template) {
		tokens = append(tokens, "usetype="+strings.TrimSpace(a.Template))
	}
	if a.ZMin.Valid() && a.ZMax.Valid() {
		tokens = append(tokens, "zmin="+a.ZMin.String(), "zmax="+a.ZMax.String())
	}
	return tokens, nil
}

func (a Args) validate() error {
	if math.IsNaN(a.ZTol) || math.IsInf(a.ZTol, 0) || a.ZTol < 0 {
		return apperr.InvalidArgf("redshift tolerance %v must be a finite non-negative number", a.ZTol)
	}
	if v, ok := a.RLAPMin.Get(); ok && (math.IsInf(v, 0) || v < 0) {
		return apperr.InvalidArgf("rlapmin %v must be a finite non-negative number", v)
	}
	if v, ok := a.ForceZ.Get(); ok && math.IsInf(v, 0) {
		return apperr.InvalidArgf("forced redshift %v must be finite", v)
	}
	zmin, okMin := a.ZMin.Get()
	zmax, okMax := a.ZMax.Get()
	if okMin && math.IsInf(zmin, 0) {
		return apperr.InvalidArgf("zmin %v must be finite", zmin)
	}
	if okMax && math.IsInf(zmax, 0) {
		return apperr.InvalidArgf("zmax %v must be finite", zmax)
	}
	if okMin && okMax && zmin > zmax {
		return apperr.InvalidArgf("zmin %v is greater than zmax %v", zmin, zmax)
	}
	if t := strings.TrimSpace(a.Template); !isAll(t) && strings.ContainsAny(t, " \t\n=") {
		return apperr.InvalidArgf("template restriction %q is not a single label", a.Template)
	}
	return nil
}

func isAll(template string) bool {
	t := strings.TrimSpace(template)
	return t == "" || t == AllTemplates
}
