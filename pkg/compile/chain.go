// Package compile runs configured compiler chains against a project.
//
// A chain is an ordered list of tool invocations (pdflatex, bibtex,
// makeindex, ...) executed sequentially in the project directory. The
// chain aborts at the first failing step; callers inspect the step
// results to decide whether the failure is recoverable.
package compile

import (
	"os"
	"strings"

	"github.com/texpm/texpm/pkg/errors"
)

// Step is a single tool invocation within a chain.
type Step struct {
	Tool string   `toml:"command"`
	Args []string `toml:"args"`
}

// String renders the step as a shell-like command line for display.
func (s Step) String() string {
	if len(s.Args) == 0 {
		return s.Tool
	}
	return s.Tool + " " + strings.Join(s.Args, " ")
}

// Chain is an ordered compile pipeline plus its cleanup policy.
type Chain struct {
	Steps         []Step
	AutoClean     bool
	CleanPatterns []string
}

// DefaultChain returns the pipeline used when a project does not
// configure its own.
func DefaultChain() Chain {
	return Chain{
		Steps: []Step{
			{Tool: "pdflatex", Args: []string{"-interaction=nonstopmode", "main.tex"}},
		},
		AutoClean:     false,
		CleanPatterns: DefaultCleanPatterns(),
	}
}

// ParseChain parses a pipeline string into a chain. Steps are
// separated by "|", e.g. "xelatex -interaction=nonstopmode main.tex | bibtex main".
func ParseChain(s string) (Chain, error) {
	var steps []Step
	for _, part := range strings.Split(s, "|") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		steps = append(steps, Step{Tool: fields[0], Args: fields[1:]})
	}
	if len(steps) == 0 {
		return Chain{}, errors.New(errors.ErrCodeInvalidChain, "empty compile chain %q", s)
	}
	return Chain{Steps: steps, CleanPatterns: DefaultCleanPatterns()}, nil
}

// Validate checks the chain invariants before execution.
func (c Chain) Validate() error {
	if len(c.Steps) == 0 {
		return errors.New(errors.ErrCodeInvalidChain, "compile chain has no steps")
	}
	for i, s := range c.Steps {
		if strings.TrimSpace(s.Tool) == "" {
			return errors.New(errors.ErrCodeInvalidChain, "compile chain step %d has empty command", i+1)
		}
	}
	return nil
}

// Vars holds the values substituted into step arguments.
type Vars struct {
	ProjectRoot string
	CurrentDir  string
	Home        string
}

// DefaultVars resolves substitution values from the process environment.
func DefaultVars(projectRoot string) Vars {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return Vars{ProjectRoot: projectRoot, CurrentDir: cwd, Home: home}
}

// Resolve returns a copy of the chain with all placeholder variables
// substituted in every step argument. The input chain is not modified.
func (c Chain) Resolve(vars Vars) Chain {
	replacer := strings.NewReplacer(
		"${PROJECT_ROOT}", vars.ProjectRoot,
		"${CURRENT_DIR}", vars.CurrentDir,
		"${HOME}", vars.Home,
	)

	resolved := Chain{
		Steps:         make([]Step, len(c.Steps)),
		AutoClean:     c.AutoClean,
		CleanPatterns: c.CleanPatterns,
	}
	for i, s := range c.Steps {
		args := make([]string, len(s.Args))
		for j, a := range s.Args {
			args[j] = replacer.Replace(a)
		}
		resolved.Steps[i] = Step{Tool: replacer.Replace(s.Tool), Args: args}
	}
	return resolved
}
