package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/classifier"
)

const (
	// DefaultTypeStart is the 0-based line index of the first type row in a
	// report written by a stock SNID build.
	DefaultTypeStart = 39

	// TypeSectionEnd marks the end of the type summary.
	TypeSectionEnd = "### rlap-ordered template listings ###"
	// TemplateSectionEnd marks the end of the templates above the rlap cutoff.
	TemplateSectionEnd = "#--- rlap cutoff"

	// typeTrailer is the number of lines between the last type row and TypeSectionEnd.
	typeTrailer = 5
	// templateLead is the offset from the end of the type rows to the first template row.
	templateLead = 7
)

// TypeColumns and TemplateColumns are the column names of both tables.
var (
	TypeColumns     = []string{"type", "ntemp", "fraction", "slope", "redshift", "redshift_error", "age", "age_error"}
	TemplateColumns = []string{"no.", "sn", "type", "lap", "rlap", "z", "zerr", "age", "age_flag", "grade"}
)

// ReadFile parses the report at path.
func ReadFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a report from r. name is used in errors and logs.
//
// Type rows are read from DefaultTypeStart. If that span does not parse, the
// type column header is located and parsing is retried once from the line
// after it.
func Parse(r io.Reader, name string) (*Report, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", name, err)
	}
	subject := filepath.Base(name)

	typeEnd := indexOf(lines, TypeSectionEnd, 0)
	if typeEnd < 0 {
		return nil, &ReadError{Path: name, Section: SectionType, Msg: strconv.Quote(TypeSectionEnd), Err: ErrDelimiterNotFound}
	}

	start := DefaultTypeStart
	types, err := parseTypes(lines, name, start, typeEnd)
	if err != nil {
		hdr := indexTypeHeader(lines)
		if hdr < 0 || hdr+1 == start {
			return nil, err
		}
		logf(subject, "type rows not found at line %d (%v); retrying from line %d", start, err, hdr+1)
		start = hdr + 1
		types, err = parseTypes(lines, name, start, typeEnd)
		if err != nil {
			return nil, err
		}
		logf(subject, "type section located at line %d with %d rows", start, typeEnd-start-typeTrailer)
	}

	tplStart := typeEnd - typeTrailer + templateLead
	tplEnd := indexOf(lines, TemplateSectionEnd, tplStart)
	if tplEnd < 0 {
		return nil, &ReadError{Path: name, Section: SectionTemplate, Msg: strconv.Quote(TemplateSectionEnd), Err: ErrDelimiterNotFound}
	}
	templates, err := parseTemplates(lines, name, tplStart, tplEnd)
	if err != nil {
		return nil, err
	}

	return &Report{Path: name, StartLine: start, Types: types, Templates: templates}, nil
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

func indexOf(lines []string, marker string, from int) int {
	for i := max(from, 0); i < len(lines); i++ {
		if strings.Contains(lines[i], marker) {
			return i
		}
	}
	return -1
}

func isTypeHeader(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(t, "#"))
	if len(fields) != len(TypeColumns) {
		return false
	}
	for i, f := range fields {
		if f != TypeColumns[i] {
			return false
		}
	}
	return true
}

func indexTypeHeader(lines []string) int {
	for i, l := range lines {
		if isTypeHeader(l) {
			return i
		}
	}
	return -1
}

// rowFields splits a data line, dropping inline comments. It returns nil for
// blank and comment-only lines.
func rowFields(line string) []string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.Fields(line)
}

func parseTypes(lines []string, name string, start, end int) ([]TypeRecord, error) {
	rows := end - start - typeTrailer
	if start <= 0 || start > len(lines) || rows < 0 {
		return nil, &ReadError{Path: name, Section: SectionType, Line: start + 1,
			Msg: fmt.Sprintf("type span of %d rows", rows), Err: ErrMisaligned}
	}
	if !isTypeHeader(lines[start-1]) {
		return nil, &ReadError{Path: name, Section: SectionType, Line: start + 1,
			Msg: "column header does not precede the first row", Err: ErrMisaligned}
	}

	out := make([]TypeRecord, 0, rows)
	for i := start; i < start+rows; i++ {
		f := rowFields(lines[i])
		if len(f) == 0 {
			continue
		}
		rec, err := parseTypeRow(f)
		if err != nil {
			return nil, &ReadError{Path: name, Section: SectionType, Line: i + 1, Msg: err.Error(), Err: ErrMalformedRow}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseTemplates(lines []string, name string, start, end int) ([]TemplateRecord, error) {
	out := make([]TemplateRecord, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		f := rowFields(lines[i])
		if len(f) == 0 {
			continue
		}
		rec, err := parseTemplateRow(f)
		if err != nil {
			return nil, &ReadError{Path: name, Section: SectionTemplate, Line: i + 1, Msg: err.Error(), Err: ErrMalformedRow}
		}
		out = append(out, rec)
	}
	return out, nil
}

// fieldParser collects the first conversion error so rows read as one block.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.err = fmt.Errorf("column %d (%q) is not a number", i+1, p.fields[i])
	}
	return v
}

func (p *fieldParser) int(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.fields[i])
	if err != nil {
		p.err = fmt.Errorf("column %d (%q) is not an integer", i+1, p.fields[i])
	}
	return v
}

func parseTypeRow(f []string) (TypeRecord, error) {
	if len(f) != len(TypeColumns) {
		return TypeRecord{}, fmt.Errorf("want %d fields, got %d", len(TypeColumns), len(f))
	}
	p := fieldParser{fields: f}
	rec := TypeRecord{
		Type:          f[0],
		NTemp:         p.int(1),
		Fraction:      p.float(2),
		Slope:         p.float(3),
		Redshift:      p.float(4),
		RedshiftError: p.float(5),
		Age:           p.float(6),
		AgeError:      p.float(7),
	}
	if p.err == nil && rec.NTemp < 0 {
		p.err = fmt.Errorf("negative ntemp %d", rec.NTemp)
	}
	return rec, p.err
}

func parseTemplateRow(f []string) (TemplateRecord, error) {
	if len(f) != len(TemplateColumns) {
		return TemplateRecord{}, fmt.Errorf("want %d fields, got %d", len(TemplateColumns), len(f))
	}
	p := fieldParser{fields: f}
	rec := TemplateRecord{
		No:      p.int(0),
		SN:      f[1],
		Type:    f[2],
		Lap:     p.float(3),
		RLAP:    p.float(4),
		Z:       p.float(5),
		ZErr:    p.float(6),
		AgeFlag: p.int(8),
		Grade:   Grade(f[9]),
	}
	if p.err != nil {
		return rec, p.err
	}
	age, err := classifier.ParseNumber(f[7])
	if err != nil {
		return rec, fmt.Errorf("column 8 (%q) is not an age", f[7])
	}
	rec.Age = age
	return rec, nil
}
