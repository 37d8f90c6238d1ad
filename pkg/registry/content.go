package registry

import "fmt"

// styTemplates maps well-known package names to placeholder style file
// content. Real archive downloads are not implemented; the generated
// stubs keep local compilation going by satisfying \usepackage lookups.
var styTemplates = map[string]string{
	"amsmath": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{amsmath}[placeholder]
\DeclareMathOperator{\lim}{lim}
`,
	"graphicx": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{graphicx}[placeholder]
\newcommand{\includegraphics}[2][]{[image: #2]}
`,
	"xcolor": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{xcolor}[placeholder]
\newcommand{\textcolor}[2]{#2}
\newcommand{\colorbox}[2]{#2}
`,
	"hyperref": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{hyperref}[placeholder]
\newcommand{\href}[2]{#2}
\newcommand{\url}[1]{\texttt{#1}}
`,
	"geometry": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{geometry}[placeholder]
`,
	"booktabs": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{booktabs}[placeholder]
\newcommand{\toprule}{\hline}
\newcommand{\midrule}{\hline}
\newcommand{\bottomrule}{\hline}
`,
	"url": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{url}[placeholder]
\newcommand{\url}[1]{\texttt{#1}}
`,
	"multirow": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{multirow}[placeholder]
\newcommand{\multirow}[3]{#3}
`,
	"array": `\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{array}[placeholder]
`,
}

// styContent returns the placeholder style file for a package name,
// with a generic fallback for names without a dedicated template.
func styContent(name string) string {
	if content, ok := styTemplates[name]; ok {
		return content
	}
	return fmt.Sprintf("\\NeedsTeXFormat{LaTeX2e}\n\\ProvidesPackage{%s}[placeholder]\n", name)
}
