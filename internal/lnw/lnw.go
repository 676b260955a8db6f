// Package lnw reads SNID template archives (.lnw files written by logwave):
// one supernova's spectral epochs resampled onto a common log-wavelength grid.
package lnw

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("malformed template archive")

// Template is the content of one archive.
type Template struct {
	Name string
	Type string
	// Ages holds the epoch of each spectrum in days from maximum.
	Ages []float64
	// Columns are "wav" followed by one label per age.
	Columns    []string
	Wavelength []float64
	// Flux[i] is the spectrum at Ages[i], sampled at Wavelength.
	Flux [][]float64
}

// Epochs returns the number of spectra in the archive.
func (t *Template) Epochs() int { return len(t.Ages) }

// Range returns the first and last wavelength.
func (t *Template) Range() (lo, hi float64) {
	if len(t.Wavelength) == 0 {
		return 0, 0
	}
	return t.Wavelength[0], t.Wavelength[len(t.Wavelength)-1]
}

// Nearest returns the index of the epoch closest to age, or -1 when empty.
func (t *Template) Nearest(age float64) int {
	best, dist := -1, math.Inf(1)
	for i, a := range t.Ages {
		if d := math.Abs(a - age); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// ColumnName derives a column label from an age token by dropping signs and
// decimal points ("-5.20" becomes "520").
func ColumnName(age string) string {
	return strings.NewReplacer("-", "", ".", "").Replace(strings.TrimSpace(age))
}

// ReadFile parses the archive at path.
func ReadFile(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template archive: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

func formatErr(name string, line int, format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", ErrFormat, name, line, fmt.Sprintf(format, args...))
}

// Parse reads an archive from r. name is used in errors.
func Parse(r io.Reader, name string) (*Template, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return nil, formatErr(name, 1, "empty file")
	}
	header := strings.Fields(sc.Text())
	if len(header) < 8 {
		return nil, formatErr(name, 1, "header has %d fields, want at least 8", len(header))
	}
	n, err := strconv.Atoi(header[0])
	if err != nil || n <= 0 {
		return nil, formatErr(name, 1, "epoch count %q", header[0])
	}
	t := &Template{Name: header[5], Type: header[7]}

	// Skip spline knots until the age row: a flag followed by one age per epoch.
	line := 1
	var ageRow []string
	for sc.Scan() {
		line++
		if f := strings.Fields(sc.Text()); len(f) == 1+n {
			ageRow = f
			break
		}
	}
	if ageRow == nil {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return nil, formatErr(name, line, "no row with %d ages", n)
	}
	t.Columns = append(t.Columns, "wav")
	for _, tok := range ageRow[1:] {
		age, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, formatErr(name, line, "age %q is not a number", tok)
		}
		t.Ages = append(t.Ages, age)
		t.Columns = append(t.Columns, ColumnName(tok))
	}

	t.Flux = make([][]float64, n)
	for sc.Scan() {
		line++
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		if len(f) != 1+n {
			return nil, formatErr(name, line, "%d columns, want %d", len(f), 1+n)
		}
		row := make([]float64, len(f))
		for i, tok := range f {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, formatErr(name, line, "column %d (%q) is not a number", i+1, tok)
			}
			row[i] = v
		}
		t.Wavelength = append(t.Wavelength, row[0])
		for i := range n {
			t.Flux[i] = append(t.Flux[i], row[1+i])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(t.Wavelength) == 0 {
		return nil, formatErr(name, line, "no flux rows")
	}
	return t, nil
}
