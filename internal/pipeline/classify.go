package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/idlab-discover/snidpipe/internal/stage"
)

// Classify runs the full pipeline for one spectrum in the configured
// working directory.
//
// Stages that cannot be decided leave their fields empty; only parse
// failures, invalid arguments, an unavailable classifier and cancellation
// are returned as errors.
func (p *Pipeline) Classify(ctx context.Context, ref SpectrumRef) (Result, error) {
	return p.classify(ctx, ref, p.opts.WorkDir, 0, 1)
}

type run struct {
	name     string
	eval     *stage.Evaluator
	progress ProgressCallback
	rlaps    [2]float64
	index    int
	total    int
}

func (r *run) emit(ev ProgressEvent) {
	ev.Spectrum = r.name
	ev.Index = r.index
	ev.Total = r.total
	r.progress(ev)
}

func (r *run) skip(stages ...string) {
	for _, s := range stages {
		r.emit(ProgressEvent{Type: EventStageSkipped, Stage: s})
	}
}

// withRetry tries decide at the strict threshold, then once at the loose one.
func (r *run) withRetry(name string, decide func(rlap float64) (bool, error)) (bool, error) {
	for i, rlap := range r.rlaps {
		ev := EventStageStart
		if i > 0 {
			ev = EventStageRetry
		}
		r.emit(ProgressEvent{Type: ev, Stage: name, Attempt: i + 1, RLAP: rlap})

		ok, err := decide(rlap)
		if err != nil {
			r.emit(ProgressEvent{Type: EventError, Stage: name, Attempt: i + 1, RLAP: rlap, Error: err})
			return false, fmt.Errorf("%s stage: %w", name, err)
		}
		if ok {
			return true, nil
		}
		logf(r.name, "%s undetermined at rlap %g", name, rlap)
	}
	r.emit(ProgressEvent{Type: EventStageUndetermined, Stage: name})
	return false, nil
}

func (p *Pipeline) classify(ctx context.Context, ref SpectrumRef, workDir string, index, total int) (Result, error) {
	r := &run{
		name:     ref.Name(),
		eval:     &stage.Evaluator{Classifier: p.newClassifier(workDir), Policy: p.opts.policy()},
		progress: p.opts.OnProgress,
		rlaps:    p.opts.RLAPs,
		index:    index,
		total:    total,
	}
	res := Result{Spectrum: ref.Path(), RunID: uuid.NewString()}
	spectrum := ref.Path()
	z := ref.Redshift

	logf(r.name, "start run=%s redshift=%s", res.RunID, z)

	// Type
	var typ stage.TypeResult
	ok, err := r.withRetry(StageType, func(rlap float64) (bool, error) {
		var ok bool
		var err error
		typ, ok, err = r.eval.Type(ctx, spectrum, z, rlap)
		return ok, err
	})
	if err != nil {
		return res, err
	}
	if !ok {
		r.skip(StageSubtype, StageRedshift, StageAge)
		logf(r.name, "type undetermined")
		return res, nil
	}
	res.Type = typ.Label
	best := typ.BestTemplate
	res.BestTemplate = &best
	res.GoodMatches = typ.GoodMatches
	r.emit(ProgressEvent{Type: EventStageDetermined, Stage: StageType, Message: typ.Label})

	// Subtype
	var sub string
	subOK, err := r.withRetry(StageSubtype, func(rlap float64) (bool, error) {
		var ok bool
		var err error
		sub, ok, err = r.eval.Subtype(ctx, spectrum, z, typ.Label, rlap)
		return ok, err
	})
	if err != nil {
		return res, err
	}
	label := typ.Label
	if subOK {
		res.Subtype = sub
		label = sub
		r.emit(ProgressEvent{Type: EventStageDetermined, Stage: StageSubtype, Message: sub})
	}

	// Redshift
	r.emit(ProgressEvent{Type: EventStageStart, Stage: StageRedshift, Attempt: 1, Message: label})
	zc, zerr, err := r.eval.Redshift(ctx, spectrum, label)
	if err != nil {
		r.emit(ProgressEvent{Type: EventError, Stage: StageRedshift, Error: err})
		return res, fmt.Errorf("%s stage: %w", StageRedshift, err)
	}
	res.Redshift, res.RedshiftError = zc, zerr
	if zc.Valid() {
		r.emit(ProgressEvent{Type: EventStageDetermined, Stage: StageRedshift, Message: fmt.Sprintf("z=%s", zc.Format(4))})
	} else {
		r.emit(ProgressEvent{Type: EventStageUndetermined, Stage: StageRedshift})
	}

	// Age needs a subtype restriction and a redshift.
	if !subOK || !zc.Valid() {
		r.skip(StageAge)
		logf(r.name, "done type=%s subtype=%q z=%s", res.Type, res.Subtype, res.Redshift)
		return res, nil
	}
	ageZ := zc
	if z.Valid() {
		ageZ = z
	}
	r.emit(ProgressEvent{Type: EventStageStart, Stage: StageAge, Attempt: 1, Message: fmt.Sprintf("z=%s", ageZ)})
	age, ageErr, err := r.eval.Age(ctx, spectrum, ageZ, sub)
	if err != nil {
		r.emit(ProgressEvent{Type: EventError, Stage: StageAge, Error: err})
		return res, fmt.Errorf("%s stage: %w", StageAge, err)
	}
	res.Age, res.AgeError = age, ageErr
	if age.Valid() {
		r.emit(ProgressEvent{Type: EventStageDetermined, Stage: StageAge, Message: fmt.Sprintf("%s d", age.Format(1))})
	} else {
		r.emit(ProgressEvent{Type: EventStageUndetermined, Stage: StageAge})
	}

	logf(r.name, "done type=%s subtype=%s z=%s age=%s", res.Type, res.Subtype, res.Redshift, res.Age)
	return res, nil
}
