package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	yaml "go.yaml.in/yaml/v3"
)

func TestResolveFormat_AllCases(t *testing.T) {
	tcs := []struct {
		path, format string
		want         string
		ok           bool
	}{
		{"out.json", "", "json", true},
		{"out.yaml", "auto", "yaml", true},
		{"out.YML", "", "yaml", true},
		{"out.txt", "", "json", true},
		{"out.json", " YAML ", "yaml", true},
		{"out.json", "json", "json", true},
		{"out.json", "xml", "", false},
	}
	for _, tc := range tcs {
		got, err := ResolveFormat(tc.path, tc.format)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ResolveFormat(%q, %q) = %q, %v; want %q ok=%v", tc.path, tc.format, got, err, tc.want, tc.ok)
		}
	}
}

func TestReadManifest_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	content := `base_dir: spectra
spectra:
  - file: sn2011fe.flm
    redshift: 0.0008
  - file: sn1994D.dat
    path: nearby
    redshift: unknown
  - file: /abs/sn3.flm
    path: /abs
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path, "")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	refs := m.Refs("")
	if len(refs) != 3 {
		t.Fatalf("got %d refs", len(refs))
	}
	if refs[0].Dir != filepath.Join(dir, "spectra") || refs[0].Redshift != classifier.Some(0.0008) {
		t.Errorf("ref[0] = %+v", refs[0])
	}
	if refs[1].Dir != filepath.Join(dir, "spectra", "nearby") || refs[1].Redshift.Valid() {
		t.Errorf("ref[1] = %+v", refs[1])
	}
	if refs[2].Dir != "/abs" || refs[2].Redshift.Valid() {
		t.Errorf("ref[2] = %+v", refs[2])
	}

	override := m.Refs("/data")
	if override[0].Dir != "/data" {
		t.Errorf("base override ignored: %+v", override[0])
	}
}

func TestReadManifest_JSONAndErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "batch.json")
	if err := os.WriteFile(good, []byte(`{"spectra":[{"file":"a.flm","redshift":null},{"file":"b.flm","redshift":"0.1"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := ReadManifest(good, "auto")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	refs := m.Refs("")
	if refs[0].Redshift.Valid() || refs[1].Redshift != classifier.Some(0.1) {
		t.Errorf("redshifts = %v, %v", refs[0].Redshift, refs[1].Redshift)
	}
	if refs[0].Dir != dir {
		t.Errorf("dir = %q, want %q", refs[0].Dir, dir)
	}

	cases := map[string]string{
		"nofile.json":  `{"spectra":[{"redshift":0.1}]}`,
		"unknown.json": `{"spectra":[],"extra":1}`,
		"badz.json":    `{"spectra":[{"file":"a","redshift":"far"}]}`,
		"broken.yaml":  "spectra: [",
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadManifest(p, ""); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := ReadManifest(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func sampleResults() []pipeline.Result {
	return []pipeline.Result{
		{Spectrum: "a.flm", RunID: "r1", Type: "Ia", Subtype: "Ia-norm", Redshift: classifier.Some(0.032), RedshiftError: classifier.Some(0.002), Age: classifier.Some(11), AgeError: classifier.Some(0.8)},
		{Spectrum: "b.flm", RunID: "r2", Err: "report b: type section: malformed row"},
	}
}

func TestWriteResults_JSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "results.json")
	if err := WriteResults(sampleResults(), out, ""); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got[0]["redshift"] != 0.032 || got[1]["redshift"] != nil {
		t.Errorf("redshift encoding: %v / %v", got[0]["redshift"], got[1]["redshift"])
	}
	if got[1]["error"] == nil || got[0]["error"] != nil {
		t.Errorf("error field encoding: %v / %v", got[0]["error"], got[1]["error"])
	}
}

func TestWriteResults_YAML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results.yaml")
	if err := WriteResults(sampleResults(), out, "yaml"); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(b, &got); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if got[0]["subtype"] != "Ia-norm" || got[1]["age"] != nil {
		t.Errorf("unexpected yaml: %s", b)
	}
}

func TestWriteResults_ExtensionMismatch(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results.json")
	if err := WriteResults(sampleResults(), out, "yaml"); err == nil {
		t.Fatalf("expected extension mismatch error")
	}
	if err := WriteResults(sampleResults(), out, "toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, map[string]int{"a": 1}, FormatYAML); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "a: 1" {
		t.Fatalf("yaml = %q", buf.String())
	}
	buf.Reset()
	if err := Encode(&buf, map[string]int{"a": 1}, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"a": 1`) {
		t.Fatalf("json = %q", buf.String())
	}
}
