package compile

import (
	"context"
	"os"
	"os/exec"

	"github.com/texpm/texpm/pkg/errors"
)

// StepResult captures the outcome of one executed step.
type StepResult struct {
	Step   Step
	Index  int
	Output string // combined stdout and stderr
	Err    error  // nil on success

	// Launched distinguishes a tool that ran and exited nonzero from a
	// tool that could not be started at all (not installed, no permission).
	Launched bool
}

// Success reports whether the step completed with exit code zero.
func (r StepResult) Success() bool {
	return r.Err == nil
}

// Runner executes compile chains.
type Runner struct {
	// Env entries are appended to the child process environment,
	// typically a TEXINPUTS override pointing at the project package dir.
	Env []string
}

// Run executes every step of an already-resolved chain inside workdir,
// stopping at the first failure. Results for executed steps are always
// returned, including the failing one. The process working directory is
// restored before Run returns, on every exit path.
func (r *Runner) Run(ctx context.Context, chain Chain, workdir string) ([]StepResult, error) {
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	restore, err := pushd(workdir)
	if err != nil {
		return nil, err
	}
	defer restore()

	var results []StepResult
	for i, step := range chain.Steps {
		res := r.runStep(ctx, step, i)
		results = append(results, res)
		if !res.Success() {
			break
		}
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, index int) StepResult {
	res := StepResult{Step: step, Index: index}

	cmd := exec.CommandContext(ctx, step.Tool, step.Args...)
	cmd.Env = append(os.Environ(), r.Env...)

	out, err := cmd.CombinedOutput()
	res.Output = string(out)

	if err == nil {
		res.Launched = true
		return res
	}
	if _, ok := err.(*exec.ExitError); ok {
		res.Launched = true
		res.Err = errors.Wrap(errors.ErrCodeCompileFailed, err, "%s exited with an error", step.String())
		return res
	}
	res.Err = errors.Wrap(errors.ErrCodeToolNotFound, err, "failed to launch %s", step.Tool)
	return res
}

// pushd changes the process working directory and returns a restore
// function. The caller must invoke restore on all exit paths.
func pushd(dir string) (func(), error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to read working directory")
	}
	if err := os.Chdir(dir); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "failed to enter %s", dir)
	}
	return func() { _ = os.Chdir(prev) }, nil
}
