// Package pipeline sequences the type, subtype, redshift and age stages for
// one spectrum, and runs many spectra in parallel.
package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/idlab-discover/snidpipe/internal/classifier"
	"github.com/idlab-discover/snidpipe/internal/report"
	"github.com/idlab-discover/snidpipe/internal/stage"
)

// SpectrumRef names a spectrum file and an optional known redshift.
type SpectrumRef struct {
	File     string
	Dir      string
	Redshift classifier.Number
}

// Path joins Dir and File.
func (s SpectrumRef) Path() string { return filepath.Join(s.Dir, s.File) }

// Name is the file's base name, used in logs and progress events.
func (s SpectrumRef) Name() string { return filepath.Base(s.File) }

// Result is the outcome of one pipeline run. Empty labels and missing
// numbers mean undetermined. Subtype is only set with Type; Age only with
// Subtype.
type Result struct {
	Spectrum      string                 `json:"spectrum" yaml:"spectrum"`
	RunID         string                 `json:"run_id" yaml:"run_id"`
	Type          string                 `json:"type" yaml:"type"`
	Subtype       string                 `json:"subtype" yaml:"subtype"`
	Redshift      classifier.Number      `json:"redshift" yaml:"redshift"`
	RedshiftError classifier.Number      `json:"redshift_error" yaml:"redshift_error"`
	Age           classifier.Number      `json:"age" yaml:"age"`
	AgeError      classifier.Number      `json:"age_error" yaml:"age_error"`
	BestTemplate  *report.TemplateRecord `json:"best_template,omitempty" yaml:"best_template,omitempty"`
	GoodMatches   int                    `json:"good_matches" yaml:"good_matches"`
	Err           string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Determined reports whether at least the type was accepted.
func (r Result) Determined() bool { return r.Type != "" }

// Stage names used in progress events.
const (
	StageType     = "type"
	StageSubtype  = "subtype"
	StageRedshift = "redshift"
	StageAge      = "age"
)

// Stages lists the stages in the order they run.
var Stages = []string{StageType, StageSubtype, StageRedshift, StageAge}

// ProgressCallback is called as stages start and finish. In batch mode it is
// called from several goroutines.
type ProgressCallback func(event ProgressEvent)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Type     ProgressEventType
	Spectrum string
	Stage    string
	// Attempt is 1 or 2 for stages with an rlap retry.
	Attempt int
	RLAP    float64
	Message string
	Index   int
	Total   int
	Result  *Result
	Error   error
}

// ProgressEventType identifies the type of progress event
type ProgressEventType int

const (
	EventSpectrumStart ProgressEventType = iota
	EventStageStart
	EventStageRetry
	EventStageDetermined
	EventStageUndetermined
	EventStageSkipped
	EventSpectrumComplete
	EventError
)

// Options configures the pipeline.
type Options struct {
	// RLAPs are the strict and loose rlap thresholds tried by the type and
	// subtype stages.
	RLAPs [2]float64
	ZTol  float64
	// ZMin and ZMax bound the type, subtype and redshift searches. Leaving
	// either missing searches without bounds.
	ZMin, ZMax classifier.Number
	RelaxAge   bool
	// WorkDir is where SNID runs for single-spectrum calls. Empty means the
	// process directory.
	WorkDir string
	// Command and Timeout configure the SNID subprocess.
	Command string
	Timeout time.Duration

	OnProgress ProgressCallback
}

// DefaultRLAPs are the strict and loose thresholds.
var DefaultRLAPs = [2]float64{10, 5}

// DefaultOptions returns thresholds 10 then 5, tolerance 0.02 and the 0 to
// 0.5 redshift range.
func DefaultOptions() Options {
	p := stage.DefaultPolicy()
	return Options{
		RLAPs:   DefaultRLAPs,
		ZTol:    p.ZTol,
		ZMin:    p.ZMin,
		ZMax:    p.ZMax,
		Command: classifier.DefaultCommand,
	}
}

func (o Options) withDefaults() Options {
	if o.RLAPs == ([2]float64{}) {
		o.RLAPs = DefaultRLAPs
	}
	if o.ZTol == 0 {
		o.ZTol = classifier.DefaultZTol
	}
	if strings.TrimSpace(o.Command) == "" {
		o.Command = classifier.DefaultCommand
	}
	if o.OnProgress == nil {
		o.OnProgress = func(ProgressEvent) {} // no-op
	}
	return o
}

func (o Options) policy() stage.Policy {
	return stage.Policy{ZTol: o.ZTol, ZMin: o.ZMin, ZMax: o.ZMax, RelaxAge: o.RelaxAge}
}

// ClassifierFactory returns the classifier that runs SNID in workDir.
type ClassifierFactory func(workDir string) stage.Classifier

// Pipeline runs the staged classification.
type Pipeline struct {
	opts          Options
	newClassifier ClassifierFactory
}

// New returns a Pipeline that runs the SNID executable named in opts.
func New(opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		opts: opts,
		newClassifier: func(workDir string) stage.Classifier {
			return stage.SNID{Runner: &classifier.Runner{Command: opts.Command, Dir: workDir, Timeout: opts.Timeout}}
		},
	}
}

// NewWithClassifier returns a Pipeline that uses factory instead of a
// subprocess, for callers that embed or simulate SNID.
func NewWithClassifier(opts Options, factory ClassifierFactory) *Pipeline {
	return &Pipeline{opts: opts.withDefaults(), newClassifier: factory}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }
