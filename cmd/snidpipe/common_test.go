package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/spf13/viper"
)

// setConfig overrides viper keys for one test. Setting nil afterwards lets
// the bound flag defaults show through again.
func setConfig(t *testing.T, kv map[string]any) {
	t.Helper()
	for k, v := range kv {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range kv {
			viper.Set(k, nil)
		}
	})
}

func TestPipelineOptions_Defaults(t *testing.T) {
	opts, err := pipelineOptions("classify")
	if err != nil {
		t.Fatalf("pipelineOptions: %v", err)
	}
	if opts.RLAPs != pipeline.DefaultRLAPs {
		t.Errorf("RLAPs = %v, want %v", opts.RLAPs, pipeline.DefaultRLAPs)
	}
	if opts.ZTol != classifier.DefaultZTol {
		t.Errorf("ZTol = %v, want %v", opts.ZTol, classifier.DefaultZTol)
	}
	if opts.ZMin != classifier.Some(0) || opts.ZMax != classifier.Some(0.5) {
		t.Errorf("bounds = %s..%s, want 0..0.5", opts.ZMin, opts.ZMax)
	}
	if opts.Command != classifier.DefaultCommand {
		t.Errorf("Command = %q", opts.Command)
	}
}

func TestPipelineOptions_NoBounds(t *testing.T) {
	setConfig(t, map[string]any{"classify.zmin": "none", "classify.zmax": "none"})
	opts, err := pipelineOptions("classify")
	if err != nil {
		t.Fatalf("pipelineOptions: %v", err)
	}
	if opts.ZMin.Valid() || opts.ZMax.Valid() {
		t.Fatalf("expected missing bounds, got %s..%s", opts.ZMin, opts.ZMax)
	}
}

func TestPipelineOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		kv   map[string]any
	}{
		{"loose stricter than strict", map[string]any{"classify.rlap-strict": 5.0, "classify.rlap-loose": 10.0}},
		{"negative rlap", map[string]any{"classify.rlap-loose": -1.0}},
		{"zero tolerance", map[string]any{"classify.z-tol": 0.0}},
		{"zmin not a number", map[string]any{"classify.zmin": "low"}},
		{"zmin above zmax", map[string]any{"classify.zmin": "0.6", "classify.zmax": "0.5"}},
		{"negative timeout", map[string]any{"classify.timeout": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setConfig(t, tt.kv)
			_, err := pipelineOptions("classify")
			if !apperr.IsUser(err) {
				t.Fatalf("expected a UserError, got %v", err)
			}
		})
	}
}

func TestBatchRefs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sn1.flm"), []byte("4000 1.0\n4002 1.1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := batchRefs("m.yaml", dir, ""); !apperr.IsUser(err) {
		t.Errorf("manifest and dir together: expected UserError, got %v", err)
	}
	if _, err := batchRefs("", "", ""); !apperr.IsUser(err) {
		t.Errorf("neither source: expected UserError, got %v", err)
	}
	if _, err := batchRefs("", t.TempDir(), ""); !apperr.IsUser(err) {
		t.Errorf("empty dir: expected UserError, got %v", err)
	}

	refs, err := batchRefs("", dir, "")
	if err != nil {
		t.Fatalf("batchRefs: %v", err)
	}
	if len(refs) != 1 || refs[0].File != "sn1.flm" {
		t.Fatalf("unexpected refs %+v", refs)
	}

	manifest := filepath.Join(dir, "spectra.yaml")
	if err := os.WriteFile(manifest, []byte("spectra:\n  - file: sn1.flm\n    redshift: 0.03\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	refs, err = batchRefs(manifest, "", "")
	if err != nil {
		t.Fatalf("batchRefs manifest: %v", err)
	}
	if len(refs) != 1 || refs[0].Redshift != classifier.Some(0.03) {
		t.Fatalf("unexpected manifest refs %+v", refs)
	}
}

func TestEvaluate(t *testing.T) {
	good := func(typ string, rlap, z float64, age classifier.Number) report.TemplateRecord {
		return report.TemplateRecord{SN: "sn", Type: typ, RLAP: rlap, Z: z, Age: age, Grade: report.GradeGood}
	}
	rep := &report.Report{
		Types: []report.TypeRecord{
			{Type: "Ia", NTemp: 3, Fraction: 1},
			{Type: "Ia-norm", NTemp: 3, Fraction: 1},
		},
		Templates: []report.TemplateRecord{
			good("Ia-norm", 10, 0.03, classifier.Some(2)),
			good("Ia-norm", 9, 0.03, classifier.Some(2)),
			good("Ia-91T", 8, 0.03, classifier.None()),
		},
	}

	ev := evaluate(rep, "Ia", false)
	if ev.Type != "Ia" || ev.Subtype != "Ia-norm" {
		t.Fatalf("labels = %q/%q", ev.Type, ev.Subtype)
	}
	if z, _ := ev.Redshift.Get(); z != 0.03 {
		t.Errorf("redshift = %s", ev.Redshift)
	}
	if age, _ := ev.Age.Get(); age != 2 {
		t.Errorf("age = %s", ev.Age)
	}

	lines := strings.Join(verdictLines(ev, "Ia"), "\n")
	for _, w := range []string{"Type", "Ia-norm", "Subtype of Ia", "0.0300"} {
		if !strings.Contains(lines, w) {
			t.Errorf("verdicts missing %q in %q", w, lines)
		}
	}

	if ev := evaluate(rep, "", false); ev.Subtype != "" {
		t.Errorf("subtype should not be decided without a forced type, got %q", ev.Subtype)
	}
}

func TestPlainSummary(t *testing.T) {
	got := plainSummary(pipeline.Result{Spectrum: "sn1.flm", Type: "Ib", Redshift: classifier.Some(0.01), RedshiftError: classifier.Some(0.002)})
	want := "Spectrum: sn1.flm | Type: Ib | Subtype: unknown | z: 0.01 +/- 0.002 | Age: unknown +/- unknown"
	if got != want {
		t.Fatalf("plainSummary() = %q, want %q", got, want)
	}
}
