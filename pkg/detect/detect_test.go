package detect

import (
	"context"
	"reflect"
	"testing"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/errors"
)

func TestMissingPackages(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "sty not found",
			output: "! LaTeX Error: File `minted.sty' not found.",
			want:   []string{"minted"},
		},
		{
			name:   "cls not found",
			output: "! LaTeX Error: File `beamer.cls' not found.",
			want:   []string{"beamer"},
		},
		{
			name:   "unknown option",
			output: "! LaTeX Error: Unknown option `margins' for package `geometry'.",
			want:   []string{"geometry"},
		},
		{
			name:   "package error line",
			output: "! Package babel Error: Unknown language option.",
			want:   []string{"babel"},
		},
		{
			name:   "usepackage echoed in error",
			output: "l.3 \\usepackage{siunitx}",
			want:   []string{"siunitx"},
		},
		{
			name:   "cant find file",
			output: "I can't find file `tikz.sty'.",
			want:   []string{"tikz"},
		},
		{
			name: "undefined command hints",
			output: "! Undefined control sequence. \\toprule\n" +
				"! Undefined control sequence. \\includegraphics",
			want: []string{"booktabs", "graphicx"},
		},
		{
			name: "union across patterns is deduplicated and sorted",
			output: "! LaTeX Error: File `minted.sty' not found.\n" +
				"l.10 \\usepackage{minted, fvextra}",
			want: []string{"fvextra", "minted"},
		},
		{
			name:   "no candidates",
			output: "! Missing $ inserted.",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingPackages(tt.output)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingPackages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackageRelated(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"sty not found", "! LaTeX Error: File `minted.sty' not found.", true},
		{"package error", "! Package babel Error: something", true},
		{"undefined control sequence", "! Undefined control sequence.", true},
		{"missing math delimiter", "! Missing $ inserted.", false},
		{"hard error wins over package error", "! Missing $ inserted.\n! Package babel Error: x", false},
		{"missing begin document", "! LaTeX Error: Missing \\begin{document}.", false},
		{"unmatched brace", "! Extra }, or forgotten \\endgroup.", false},
		{"unknown output fails closed", "something exploded in an unrecognized way", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PackageRelated(tt.output); got != tt.want {
				t.Errorf("PackageRelated(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

// fakeProbe returns canned step results, one slice per iteration.
func fakeProbe(t *testing.T, runs ...[]compile.StepResult) func(context.Context) ([]compile.StepResult, error) {
	t.Helper()
	call := 0
	return func(ctx context.Context) ([]compile.StepResult, error) {
		if call >= len(runs) {
			t.Fatalf("probe called %d times, only %d runs scripted", call+1, len(runs))
		}
		r := runs[call]
		call++
		return r, nil
	}
}

func success() []compile.StepResult {
	return []compile.StepResult{{Launched: true}}
}

func failure(output string) []compile.StepResult {
	return []compile.StepResult{{
		Launched: true,
		Output:   output,
		Err:      errors.New(errors.ErrCodeCompileFailed, "exit status 1"),
	}}
}

func TestDetectorConvergesImmediately(t *testing.T) {
	d := &Detector{Probe: fakeProbe(t, success())}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Outcome != OutcomeConverged || res.Iterations != 1 {
		t.Errorf("got %+v, want converged after 1 iteration", res)
	}
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v, want empty", res.Missing)
	}
}

func TestDetectorStallsWithoutInstallation(t *testing.T) {
	// Same failure every time, nobody installs anything. The second
	// iteration discovers nothing new and the loop must stop there
	// instead of running to the ceiling.
	out := "! LaTeX Error: File `minted.sty' not found."
	d := &Detector{Probe: fakeProbe(t, failure(out), failure(out))}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Outcome != OutcomeStalled {
		t.Errorf("Outcome = %v, want stalled", res.Outcome)
	}
	if res.Iterations > 2 {
		t.Errorf("Iterations = %d, want at most 2", res.Iterations)
	}
	if !reflect.DeepEqual(res.Missing, []string{"minted"}) {
		t.Errorf("Missing = %v, want [minted]", res.Missing)
	}
}

func TestDetectorInstallsBetweenIterations(t *testing.T) {
	d := &Detector{
		Probe: fakeProbe(t,
			failure("! LaTeX Error: File `minted.sty' not found."),
			failure("! LaTeX Error: File `fvextra.sty' not found."),
			success(),
		),
	}

	var installed [][]string
	d.Install = func(ctx context.Context, names []string) error {
		installed = append(installed, names)
		return nil
	}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Outcome != OutcomeConverged || res.Iterations != 3 {
		t.Errorf("got %+v, want converged after 3 iterations", res)
	}
	if !reflect.DeepEqual(res.Missing, []string{"minted", "fvextra"}) {
		t.Errorf("Missing = %v, want discovery order [minted fvextra]", res.Missing)
	}
	want := [][]string{{"minted"}, {"fvextra"}}
	if !reflect.DeepEqual(installed, want) {
		t.Errorf("Install calls = %v, want %v", installed, want)
	}
}

func TestDetectorFatalOnHardError(t *testing.T) {
	d := &Detector{Probe: fakeProbe(t, failure("! Missing $ inserted."))}

	_, err := d.Run(context.Background())
	if !errors.Is(err, errors.ErrCodeCompileFailed) {
		t.Errorf("err = %v, want compile failed", err)
	}
}

func TestDetectorFatalOnUnidentifiablePackageError(t *testing.T) {
	// Package-related but no name extractable
	d := &Detector{Probe: fakeProbe(t, failure("! Undefined control sequence. \\mysterymacro"))}

	_, err := d.Run(context.Background())
	if !errors.Is(err, errors.ErrCodeCompileFailed) {
		t.Errorf("err = %v, want compile failed", err)
	}
}

func TestDetectorFiltersInstalled(t *testing.T) {
	out := "! LaTeX Error: File `minted.sty' not found.\nl.3 \\usepackage{amsmath}"
	d := &Detector{
		Probe:     fakeProbe(t, failure(out), failure(out)),
		Installed: func(name string) bool { return name == "amsmath" },
	}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !reflect.DeepEqual(res.Missing, []string{"minted"}) {
		t.Errorf("Missing = %v, want installed packages filtered out", res.Missing)
	}
}

func TestDetectorExhaustsCeiling(t *testing.T) {
	// A new package every iteration, never converging
	outputs := []string{
		"! LaTeX Error: File `pkga.sty' not found.",
		"! LaTeX Error: File `pkgb.sty' not found.",
		"! LaTeX Error: File `pkgc.sty' not found.",
	}
	call := 0
	d := &Detector{
		MaxIterations: 3,
		Probe: func(ctx context.Context) ([]compile.StepResult, error) {
			out := outputs[call%len(outputs)]
			call++
			return failure(out), nil
		},
	}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Outcome != OutcomeExhausted || res.Iterations != 3 {
		t.Errorf("got %+v, want exhausted after 3 iterations", res)
	}
	if !reflect.DeepEqual(res.Missing, []string{"pkga", "pkgb", "pkgc"}) {
		t.Errorf("Missing = %v", res.Missing)
	}
}

func TestDetectorFatalOnLaunchFailure(t *testing.T) {
	d := &Detector{Probe: fakeProbe(t, []compile.StepResult{{
		Launched: false,
		Err:      errors.New(errors.ErrCodeToolNotFound, "pdflatex not found"),
	}})}

	_, err := d.Run(context.Background())
	if !errors.Is(err, errors.ErrCodeToolNotFound) {
		t.Errorf("err = %v, want tool not found", err)
	}
}
