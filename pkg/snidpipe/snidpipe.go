// Package snidpipe exposes the classification pipeline to other Go programs.
//
// The types are aliases of the internal ones, so values flow between this
// package and the CLI without conversion.
package snidpipe

import (
	"context"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/lnw"
	"github.com/idlab-discover/snidpipe/internal/pipeline"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/idlab-discover/snidpipe/internal/stage"
)

type (
	Number        = classifier.Number
	SpectrumRef   = pipeline.SpectrumRef
	Result        = pipeline.Result
	Options       = pipeline.Options
	BatchOptions  = pipeline.BatchOptions
	ProgressEvent = pipeline.ProgressEvent
	Report        = report.Report
	Template      = lnw.Template
	// Classifier runs SNID (or a stand-in) on one spectrum and parses its report.
	Classifier = stage.Classifier
)

// Some returns a present number.
func Some(v float64) Number { return classifier.Some(v) }

// DefaultOptions returns the options the CLI uses when no flags are given.
func DefaultOptions() Options { return pipeline.DefaultOptions() }

// Classify runs the four stages on one spectrum with the installed SNID.
func Classify(ctx context.Context, ref SpectrumRef, opts Options) (Result, error) {
	if _, err := classifier.CheckInstalled(opts.Command); err != nil {
		return Result{Spectrum: ref.Name()}, err
	}
	return pipeline.New(opts).Classify(ctx, ref)
}

// Batch classifies refs concurrently, each in its own working directory.
// Results keep the order of refs.
func Batch(ctx context.Context, refs []SpectrumRef, opts Options, bo BatchOptions) ([]Result, error) {
	if _, err := classifier.CheckInstalled(opts.Command); err != nil {
		return nil, err
	}
	return pipeline.New(opts).Batch(ctx, refs, bo)
}

// ClassifyWith runs the stages against a caller-supplied classifier.
// newClassifier is called once per working directory.
func ClassifyWith(ctx context.Context, ref SpectrumRef, opts Options, newClassifier func(workDir string) Classifier) (Result, error) {
	return pipeline.NewWithClassifier(opts, newClassifier).Classify(ctx, ref)
}

// ParseReport reads a SNID report file.
func ParseReport(path string) (*Report, error) { return report.ReadFile(path) }

// ReadTemplate reads a .lnw template archive.
func ReadTemplate(path string) (*Template, error) { return lnw.ReadFile(path) }
