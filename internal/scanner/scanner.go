// Package scanner discovers spectrum files under a directory so a batch can
// run without a hand-written manifest.
package scanner

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
)

// Extensions SNID reads as plain two-column spectra.
var spectrumExtensions = map[string]struct{}{
	".flm":   {},
	".dat":   {},
	".ascii": {},
	".txt":   {},
	".spec":  {},
}

// Files SNID writes next to its input. They must never be fed back in.
var outputSuffixes = []string{
	classifier.ReportSuffix,
	"_snidflux.dat",
	"_comp0001_snidflux.dat",
	"snid.param",
}

// sniffLines bounds how far into a file we look for a data row.
const sniffLines = 50

// Scan walks root and returns one reference per spectrum file, sorted by
// path. Dir is the file's directory and File its base name, so each
// reference runs SNID next to its input.
func Scan(root string) ([]pipeline.SpectrumRef, error) {
	var refs []pipeline.SpectrumRef

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isCandidate(d.Name()) {
			return nil
		}
		if !looksLikeSpectrum(path) {
			logf(path, "skipped: no two-column numeric data")
			return nil
		}
		refs = append(refs, pipeline.SpectrumRef{File: d.Name(), Dir: filepath.Dir(path)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path() < refs[j].Path() })
	logf(root, "found %d spectra", len(refs))
	return refs, nil
}

func isCandidate(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range outputSuffixes {
		if strings.HasSuffix(lower, s) {
			return false
		}
	}
	_, ok := spectrumExtensions[filepath.Ext(lower)]
	return ok
}

// shouldSkipDir drops hidden directories and per-spectrum work dirs.
func shouldSkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "snid-work" || name == "dist"
}

// looksLikeSpectrum reports whether the first data row of the file has at
// least two numeric columns. Comment lines start with '#'.
func looksLikeSpectrum(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 0; n < sniffLines && sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return false
		}
		for _, f := range fields[:2] {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				return false
			}
		}
		return true
	}
	return false
}
