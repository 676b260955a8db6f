// Package report reads the text report SNID writes next to its working
// directory (<basename>_snid.output) into typed tables.
package report

import "github.com/idlab-discover/snidpipe/internal/classifier"

// Grade is SNID's quality label for a template match.
type Grade string

const (
	GradeGood     Grade = "good"
	GradeMarginal Grade = "marginal"
	GradeBad      Grade = "bad"
)

// TypeRecord is one row of the type-fraction summary.
type TypeRecord struct {
	Type          string  `json:"type" yaml:"type"`
	NTemp         int     `json:"ntemp" yaml:"ntemp"`
	Fraction      float64 `json:"fraction" yaml:"fraction"`
	Slope         float64 `json:"slope" yaml:"slope"`
	Redshift      float64 `json:"redshift" yaml:"redshift"`
	RedshiftError float64 `json:"redshift_error" yaml:"redshift_error"`
	Age           float64 `json:"age" yaml:"age"`
	AgeError      float64 `json:"age_error" yaml:"age_error"`
}

// TemplateRecord is one row of the rlap-ordered template listing.
type TemplateRecord struct {
	No      int               `json:"no" yaml:"no"`
	SN      string            `json:"sn" yaml:"sn"`
	Type    string            `json:"type" yaml:"type"`
	Lap     float64           `json:"lap" yaml:"lap"`
	RLAP    float64           `json:"rlap" yaml:"rlap"`
	Z       float64           `json:"z" yaml:"z"`
	ZErr    float64           `json:"zerr" yaml:"zerr"`
	Age     classifier.Number `json:"age" yaml:"age"`
	AgeFlag int               `json:"age_flag" yaml:"age_flag"`
	Grade   Grade             `json:"grade" yaml:"grade"`
}

// Good reports whether SNID graded the match as good.
func (t TemplateRecord) Good() bool { return t.Grade == GradeGood }

// Report is a parsed classifier report.
type Report struct {
	Path string `json:"path" yaml:"path"`
	// StartLine is the 0-based line index the type rows were read from,
	// after any offset correction.
	StartLine int              `json:"start_line" yaml:"start_line"`
	Types     []TypeRecord     `json:"types" yaml:"types"`
	Templates []TemplateRecord `json:"templates" yaml:"templates"`
}

// Good returns the good-graded template rows in report (rlap-descending) order.
func (r *Report) Good() []TemplateRecord {
	if r == nil {
		return nil
	}
	var out []TemplateRecord
	for _, t := range r.Templates {
		if t.Good() {
			out = append(out, t)
		}
	}
	return out
}

// Best returns the first good-graded template, which is the best match.
func (r *Report) Best() (TemplateRecord, bool) {
	if r == nil {
		return TemplateRecord{}, false
	}
	for _, t := range r.Templates {
		if t.Good() {
			return t, true
		}
	}
	return TemplateRecord{}, false
}
