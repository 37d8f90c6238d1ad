package compile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/texpm/texpm/pkg/errors"
)

func TestChainResolve(t *testing.T) {
	chain := Chain{
		Steps: []Step{
			{Tool: "pdflatex", Args: []string{"-output-directory=${PROJECT_ROOT}/build", "${PROJECT_ROOT}/main.tex"}},
			{Tool: "bibtex", Args: []string{"${CURRENT_DIR}/main", "${HOME}/texmf"}},
		},
	}
	vars := Vars{ProjectRoot: "/proj", CurrentDir: "/cwd", Home: "/home/u"}

	got := chain.Resolve(vars)

	want := []Step{
		{Tool: "pdflatex", Args: []string{"-output-directory=/proj/build", "/proj/main.tex"}},
		{Tool: "bibtex", Args: []string{"/cwd/main", "/home/u/texmf"}},
	}
	if !reflect.DeepEqual(got.Steps, want) {
		t.Errorf("Resolve() = %+v, want %+v", got.Steps, want)
	}

	// Original must be untouched
	if chain.Steps[0].Args[1] != "${PROJECT_ROOT}/main.tex" {
		t.Error("Resolve() modified the input chain")
	}
}

func TestParseChain(t *testing.T) {
	chain, err := ParseChain("xelatex -interaction=nonstopmode main.tex | bibtex main")
	if err != nil {
		t.Fatalf("ParseChain error: %v", err)
	}
	want := []Step{
		{Tool: "xelatex", Args: []string{"-interaction=nonstopmode", "main.tex"}},
		{Tool: "bibtex", Args: []string{"main"}},
	}
	if !reflect.DeepEqual(chain.Steps, want) {
		t.Errorf("ParseChain steps = %+v, want %+v", chain.Steps, want)
	}

	if _, err := ParseChain("  |  "); !errors.Is(err, errors.ErrCodeInvalidChain) {
		t.Errorf("blank chain: got %v, want invalid chain error", err)
	}
}

func TestChainValidate(t *testing.T) {
	if err := (Chain{}).Validate(); !errors.Is(err, errors.ErrCodeInvalidChain) {
		t.Errorf("empty chain: got %v, want invalid chain error", err)
	}
	if err := (Chain{Steps: []Step{{Tool: "  "}}}).Validate(); !errors.Is(err, errors.ErrCodeInvalidChain) {
		t.Errorf("blank tool: got %v, want invalid chain error", err)
	}
	if err := DefaultChain().Validate(); err != nil {
		t.Errorf("default chain should validate: %v", err)
	}
}

func TestStepString(t *testing.T) {
	s := Step{Tool: "pdflatex", Args: []string{"-interaction=nonstopmode", "main.tex"}}
	if got := s.String(); got != "pdflatex -interaction=nonstopmode main.tex" {
		t.Errorf("String() = %q", got)
	}
	if got := (Step{Tool: "bibtex"}).String(); got != "bibtex" {
		t.Errorf("String() = %q", got)
	}
}

func TestRunnerRestoresWorkdir(t *testing.T) {
	before, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	chain := Chain{Steps: []Step{{Tool: "true"}}}

	var r Runner
	results, err := r.Run(context.Background(), chain, dir)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 1 || !results[0].Success() {
		t.Errorf("results = %+v, want single success", results)
	}

	after, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("working directory not restored: %q != %q", after, before)
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	chain := Chain{Steps: []Step{
		{Tool: "false"},
		{Tool: "true"},
	}}

	var r Runner
	results, err := r.Run(context.Background(), chain, t.TempDir())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ran %d steps, want 1 (abort at first failure)", len(results))
	}
	res := results[0]
	if res.Success() {
		t.Error("step should have failed")
	}
	if !res.Launched {
		t.Error("false(1) launches fine; failure is the exit code")
	}
	if !errors.Is(res.Err, errors.ErrCodeCompileFailed) {
		t.Errorf("err = %v, want compile failed code", res.Err)
	}
}

func TestRunnerLaunchFailure(t *testing.T) {
	chain := Chain{Steps: []Step{{Tool: "texpm-no-such-tool-xyz"}}}

	var r Runner
	results, err := r.Run(context.Background(), chain, t.TempDir())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	res := results[0]
	if res.Launched {
		t.Error("unlaunchable tool must report Launched=false")
	}
	if !errors.Is(res.Err, errors.ErrCodeToolNotFound) {
		t.Errorf("err = %v, want tool not found code", res.Err)
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.aux", "main.log", "main.pdf", "main.tex"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Clean(dir, []string{"*.aux", "*.log"})
	if err != nil {
		t.Fatalf("Clean error: %v", err)
	}
	sort.Strings(removed)
	want := []string{filepath.Join(dir, "main.aux"), filepath.Join(dir, "main.log")}
	if !reflect.DeepEqual(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}

	// pdf and tex must survive
	for _, name := range []string{"main.pdf", "main.tex"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should not have been removed: %v", name, err)
		}
	}
}
