package detect

import (
	"context"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/errors"
)

// DefaultMaxIterations bounds the compile-install-retry loop.
const DefaultMaxIterations = 10

// Outcome is the terminal state of a detection run.
type Outcome string

const (
	// OutcomeConverged means the document compiled cleanly.
	OutcomeConverged Outcome = "converged"

	// OutcomeStalled means an iteration produced no package name that
	// had not been seen before. Retrying further cannot make progress.
	OutcomeStalled Outcome = "stalled"

	// OutcomeExhausted means the iteration ceiling was reached. The
	// accumulated packages are still returned as the best known result.
	OutcomeExhausted Outcome = "exhausted"
)

// Result is the outcome of a detection run that did not hit a fatal
// error. Missing holds every package discovered, in discovery order.
type Result struct {
	Outcome    Outcome
	Missing    []string
	Iterations int
}

// Converged reports whether the document ended up compiling cleanly.
func (r *Result) Converged() bool {
	return r.Outcome == OutcomeConverged
}

// Detector discovers missing packages by repeatedly compiling a
// project and classifying the failures. Detection and installation are
// split: the Install callback runs between iterations, so each retry
// can surface the next layer of missing packages. Without an Install
// callback only the first iteration can discover anything and the run
// stalls on the second, which is the expected degraded behavior.
type Detector struct {
	Chain   compile.Chain
	Workdir string

	// Probe runs one resolved compile chain. Defaults to a Runner.
	Probe func(ctx context.Context) ([]compile.StepResult, error)

	// Installed filters candidates that are already present locally.
	Installed func(name string) bool

	// Install is called with the newly discovered packages before the
	// next iteration. Optional.
	Install func(ctx context.Context, names []string) error

	// MaxIterations defaults to DefaultMaxIterations when zero.
	MaxIterations int
}

// NewDetector builds a Detector that probes by running the resolved
// chain in workdir with the given runner.
func NewDetector(runner *compile.Runner, chain compile.Chain, workdir string) *Detector {
	d := &Detector{Chain: chain, Workdir: workdir}
	d.Probe = func(ctx context.Context) ([]compile.StepResult, error) {
		resolved := chain.Resolve(compile.DefaultVars(workdir))
		return runner.Run(ctx, resolved, workdir)
	}
	return d
}

// Run executes the detection loop and returns the accumulated missing
// packages. Fatal failures (unlaunchable tools, hard syntax errors,
// package-related but unidentifiable output) abort the run with an
// error; stalling and iteration exhaustion do not.
func (d *Detector) Run(ctx context.Context) (*Result, error) {
	maxIter := d.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	seen := make(map[string]bool)
	var missing []string

	for iter := 1; iter <= maxIter; iter++ {
		results, err := d.Probe(ctx)
		if err != nil {
			return nil, err
		}

		failed := failedStep(results)
		if failed == nil {
			return &Result{Outcome: OutcomeConverged, Missing: missing, Iterations: iter}, nil
		}
		if !failed.Launched {
			return nil, failed.Err
		}

		if !PackageRelated(failed.Output) {
			return nil, errors.Wrap(errors.ErrCodeCompileFailed, failed.Err,
				"step %d failed with a non-package error:\n%s", failed.Index+1, failed.Output)
		}

		names := d.filterInstalled(MissingPackages(failed.Output))
		if len(names) == 0 {
			return nil, errors.Wrap(errors.ErrCodeCompileFailed, failed.Err,
				"step %d failed with a package error but no package could be identified:\n%s",
				failed.Index+1, failed.Output)
		}

		var fresh []string
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			missing = append(missing, name)
			fresh = append(fresh, name)
		}
		if len(fresh) == 0 {
			return &Result{Outcome: OutcomeStalled, Missing: missing, Iterations: iter}, nil
		}

		if d.Install != nil {
			if err := d.Install(ctx, fresh); err != nil {
				return nil, err
			}
		}
	}

	return &Result{Outcome: OutcomeExhausted, Missing: missing, Iterations: maxIter}, nil
}

func (d *Detector) filterInstalled(names []string) []string {
	if d.Installed == nil {
		return names
	}
	filtered := names[:0]
	for _, name := range names {
		if !d.Installed(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

func failedStep(results []compile.StepResult) *compile.StepResult {
	for i := range results {
		if !results[i].Success() {
			return &results[i]
		}
	}
	return nil
}
