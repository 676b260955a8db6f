package lnw

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sample = `    3  1024  2500.00 10000.00   4      sn1994D    1  Ia   Ia-norm  
     4  0.1 0.2 0.3 0.4 0.5
     5  1.0 2.0 3.0 4.0 5.0 6.0
    0   -5.20    0.00   12.40
 2500.00  0.10  0.20  0.30
 2507.30  0.11  0.21  0.31

 2514.60  0.12  0.22  0.32
`

func TestParse(t *testing.T) {
	tpl, err := Parse(strings.NewReader(sample), "sn1994D.lnw")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tpl.Name != "sn1994D" || tpl.Type != "Ia" {
		t.Fatalf("name/type = %q/%q", tpl.Name, tpl.Type)
	}
	if !reflect.DeepEqual(tpl.Ages, []float64{-5.2, 0, 12.4}) {
		t.Fatalf("ages = %v", tpl.Ages)
	}
	if !reflect.DeepEqual(tpl.Columns, []string{"wav", "520", "000", "1240"}) {
		t.Fatalf("columns = %v", tpl.Columns)
	}
	if tpl.Epochs() != 3 || len(tpl.Wavelength) != 3 {
		t.Fatalf("epochs=%d points=%d", tpl.Epochs(), len(tpl.Wavelength))
	}
	if !reflect.DeepEqual(tpl.Flux[2], []float64{0.30, 0.31, 0.32}) {
		t.Fatalf("flux[2] = %v", tpl.Flux[2])
	}
	if lo, hi := tpl.Range(); lo != 2500 || hi != 2514.6 {
		t.Fatalf("range = %v..%v", lo, hi)
	}
	if i := tpl.Nearest(10); i != 2 {
		t.Fatalf("Nearest(10) = %d", i)
	}
}

func TestParse_Errors(t *testing.T) {
	tcs := map[string]string{
		"empty":           "",
		"short header":    "3 1024 2500\n",
		"bad count":       "x 1 2 3 4 sn 1 Ia\n",
		"no age row":      "2 1 2 3 4 sn 1 Ia\n1 2 3 4\n",
		"bad age":         "2 1 2 3 4 sn 1 Ia\n0 a 1\n",
		"ragged flux row": "2 1 2 3 4 sn 1 Ia\n0 1 2\n2500 1\n",
		"no flux":         "2 1 2 3 4 sn 1 Ia\n0 1 2\n",
		"bad flux":        "2 1 2 3 4 sn 1 Ia\n0 1 2\n2500 x 1\n",
	}
	for name, in := range tcs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in), "x.lnw")
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sn1994D.lnw")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if tpl.Name != "sn1994D" {
		t.Fatalf("name = %q", tpl.Name)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.lnw")); err == nil {
		t.Fatalf("expected error")
	}
}
