// Package detect turns failed compiler runs into missing package names.
//
// Classification is heuristic. Compiler output is matched against an
// ordered set of textual patterns to pull out candidate package names,
// and separately scored as package-related or as a hard syntax error.
// Hard errors are never retried; see Detector for the retry loop.
package detect

import (
	"regexp"
	"sort"
	"strings"
)

// namePatterns extract candidate package names from compiler output.
// All patterns are tried and their matches unioned.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile("File `([^'`]+)\\.sty' not found"),
	regexp.MustCompile("File `([^'`]+)\\.cls' not found"),
	regexp.MustCompile("Unknown option `[^'`]*' for package `([^'`]+)'"),
	regexp.MustCompile(`Package (\w[\w-]*) Error:`),
	regexp.MustCompile(`\\usepackage\{([^}]+)\}`),
	regexp.MustCompile(`(\w[\w-]*)\.sty not found`),
	regexp.MustCompile("[Cc]an't find file `([^'`]+)\\.sty'"),
}

// commandHints maps undefined commands and environments to the package
// that is known to provide them. Consulted only on lines that mention
// an undefined control sequence.
var commandHints = []struct {
	needle string
	pkg    string
}{
	{`\includegraphics`, "graphicx"},
	{`\url`, "url"},
	{`\href`, "hyperref"},
	{`\textcolor`, "xcolor"},
	{`\colorbox`, "xcolor"},
	{`\fcolorbox`, "xcolor"},
	{`\begin{figure}`, "graphicx"},
	{`\begin{table}`, "array"},
	{`\toprule`, "booktabs"},
	{`\midrule`, "booktabs"},
	{`\bottomrule`, "booktabs"},
	{`\multicolumn`, "array"},
	{`\multirow`, "multirow"},
	{`\footnotesize`, "geometry"},
}

// nonPackagePatterns indicate hard syntax or semantic errors that
// installing a package cannot fix. Checked before packagePatterns.
var nonPackagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Syntax error`),
	regexp.MustCompile(`Missing .*\\begin\{document\}`),
	regexp.MustCompile(`Extra .*\}`),
	regexp.MustCompile(`Missing .*\$`),
	regexp.MustCompile(`Misplaced .*&`),
	regexp.MustCompile(`Missing control sequence inserted`),
	regexp.MustCompile(`Paragraph ended before .* was complete`),
	regexp.MustCompile(`Use of .* doesn't match its definition`),
	regexp.MustCompile(`Illegal .*character`),
	regexp.MustCompile(`Missing number`),
	regexp.MustCompile(`Dimension too large`),
}

// packagePatterns indicate failures that a package installation can
// plausibly resolve.
var packagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`File .*\.(sty|cls).* not found`),
	regexp.MustCompile(`[Cc]an't find file`),
	regexp.MustCompile(`Package \S+ (Error|Warning)`),
	regexp.MustCompile(`Unknown option`),
	regexp.MustCompile(`Undefined control sequence`),
	regexp.MustCompile(`Environment .* undefined`),
}

// MissingPackages extracts the deduplicated, sorted set of candidate
// missing package names from compiler output.
func MissingPackages(output string) []string {
	seen := make(map[string]bool)
	var names []string

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, re := range namePatterns {
		for _, m := range re.FindAllStringSubmatch(output, -1) {
			// usepackage braces may hold a comma separated list
			for _, name := range strings.Split(m[1], ",") {
				add(name)
			}
		}
	}

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Undefined control sequence") {
			continue
		}
		for _, hint := range commandHints {
			if strings.Contains(line, hint.needle) {
				add(hint.pkg)
			}
		}
	}

	sort.Strings(names)
	return names
}

// PackageRelated reports whether a compilation failure looks like a
// missing package rather than a hard error in the document. Hard error
// indicators win over package indicators, and output matching neither
// list is treated as a hard error so the retry loop cannot spin on
// failures that installation will never fix.
func PackageRelated(output string) bool {
	for _, re := range nonPackagePatterns {
		if re.MatchString(output) {
			return false
		}
	}
	for _, re := range packagePatterns {
		if re.MatchString(output) {
			return true
		}
	}
	return false
}
