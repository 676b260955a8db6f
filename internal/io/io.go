package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	yaml "go.yaml.in/yaml/v3"
)

// Supported file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ResolveFormat maps a format flag and a path to "json" or "yaml".
// "" and "auto" pick the format from the extension, defaulting to JSON.
func ResolveFormat(path, format string) (string, error) {
	actual := strings.ToLower(strings.TrimSpace(format))
	switch actual {
	case "", "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return FormatYAML, nil
		default:
			return FormatJSON, nil
		}
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", format)
	}
}

// ManifestEntry is one spectrum in a batch manifest.
type ManifestEntry struct {
	File string `json:"file" yaml:"file"`
	// Path is the directory holding File, relative to the base directory
	// unless absolute.
	Path     string            `json:"path,omitempty" yaml:"path,omitempty"`
	Redshift classifier.Number `json:"redshift" yaml:"redshift"`
}

// Manifest lists the spectra of a batch run.
type Manifest struct {
	// BaseDir is resolved against the manifest's own directory when relative.
	BaseDir string          `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	Spectra []ManifestEntry `json:"spectra" yaml:"spectra"`

	dir string
}

// ReadManifest reads a manifest from a JSON or YAML file.
func ReadManifest(path string, format string) (*Manifest, error) {
	actual, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := new(Manifest)
	switch actual {
	case FormatYAML:
		err = yaml.Unmarshal(b, m)
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for i, e := range m.Spectra {
		if strings.TrimSpace(e.File) == "" {
			return nil, fmt.Errorf("manifest %s: spectra[%d] has no file", path, i)
		}
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Refs resolves the entries into spectrum references. A non-empty baseDir
// overrides the manifest's own base_dir.
func (m *Manifest) Refs(baseDir string) []pipeline.SpectrumRef {
	base := baseDir
	if base == "" {
		base = m.BaseDir
		if !filepath.IsAbs(base) {
			base = filepath.Join(m.dir, base)
		}
	}
	refs := make([]pipeline.SpectrumRef, 0, len(m.Spectra))
	for _, e := range m.Spectra {
		dir := e.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		refs = append(refs, pipeline.SpectrumRef{File: strings.TrimSpace(e.File), Dir: dir, Redshift: e.Redshift})
	}
	return refs
}

// Encode writes v to w as indented JSON or YAML.
func Encode(w io.Writer, v any, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format: %q", format)
	}
}

// WriteResults writes pipeline results to outputPath. The extension must
// match an explicit format.
func WriteResults(results []pipeline.Result, outputPath string, format string) error {
	return writeFile(results, outputPath, format)
}

func writeFile(v any, outputPath string, format string) error {
	actual, err := ResolveFormat(outputPath, format)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(outputPath))
	switch actual {
	case FormatYAML:
		if ext != ".yaml" && ext != ".yml" {
			return fmt.Errorf("output path extension %q does not match format %q", ext, actual)
		}
	case FormatJSON:
		if ext != ".json" {
			return fmt.Errorf("output path extension %q does not match format %q", ext, actual)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := Encode(f, v, actual); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteFile writes any value (a parsed report, a template summary) the same
// way WriteResults does.
func WriteFile(v any, outputPath string, format string) error {
	return writeFile(v, outputPath, format)
}
