package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BatchOptions configures Batch.
type BatchOptions struct {
	// Workers bounds concurrent spectra. Zero means GOMAXPROCS.
	Workers int
	// WorkRoot holds one working directory per spectrum. Empty creates a
	// temporary directory, which is kept so the reports can be inspected.
	WorkRoot string
}

// WorkDirName returns the per-spectrum directory name inside the work root.
// The index keeps spectra with the same base name apart.
func WorkDirName(index int, ref SpectrumRef) string {
	stem, _, _ := strings.Cut(ref.Name(), ".")
	return fmt.Sprintf("%03d-%s", index, stem)
}

// Batch classifies refs concurrently. Results are returned in input order.
// A failure for one spectrum is recorded in its Result.Err and does not stop
// the others; only cancellation of ctx aborts the batch, in which case the
// partial results are returned with the context error.
func (p *Pipeline) Batch(ctx context.Context, refs []SpectrumRef, bo BatchOptions) ([]Result, error) {
	workers := bo.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	root := bo.WorkRoot
	if root == "" {
		tmp, err := os.MkdirTemp("", "snidpipe-*")
		if err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
		root = tmp
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	logf("batch", "batch of %d spectra, %d workers, work root %s", len(refs), workers, root)

	results := make([]Result, len(refs))
	progress := p.opts.OnProgress

	var g errgroup.Group
	g.SetLimit(workers)

	for i, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			progress(ProgressEvent{Type: EventSpectrumStart, Spectrum: ref.Name(), Index: i, Total: len(refs)})

			res, err := p.batchOne(ctx, ref, filepath.Join(root, WorkDirName(i, ref)), i, len(refs))
			if err != nil {
				res.Err = err.Error()
				logf(ref.Name(), "failed: %v", err)
			}
			results[i] = res
			progress(ProgressEvent{Type: EventSpectrumComplete, Spectrum: ref.Name(), Index: i, Total: len(refs), Result: &res, Error: err})
			return nil
		})
	}
	_ = g.Wait()

	for i, ref := range refs {
		if results[i].Spectrum == "" {
			results[i] = Result{Spectrum: ref.Path(), Err: "not started"}
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Pipeline) batchOne(ctx context.Context, ref SpectrumRef, dir string, index, total int) (Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Spectrum: ref.Path()}, fmt.Errorf("create work dir: %w", err)
	}
	return p.classify(ctx, ref, dir, index, total)
}
