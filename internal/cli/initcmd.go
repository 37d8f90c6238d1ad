package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/compile"
	"github.com/texpm/texpm/pkg/config"
	"github.com/texpm/texpm/pkg/errors"
)

// mainTemplate is the starter document written by init.
const mainTemplate = `\documentclass{article}

\title{%s}
\author{}
\date{\today}

\begin{document}

\maketitle

\section{Introduction}

\end{document}
`

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new LaTeX project",
		Long: `Create a new LaTeX project in the current directory: a texpm.toml
with a default compile chain and a starter main.tex. With a name
argument the project is created in a new subdirectory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			name := filepath.Base(dir)
			if len(args) == 1 {
				name = args[0]
				dir = filepath.Join(dir, name)
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
			}

			if _, err := os.Stat(filepath.Join(dir, config.ProjectFileName)); err == nil {
				return errors.New(errors.ErrCodeInvalidInput, "%s already exists in %s", config.ProjectFileName, dir)
			}

			global, _ := config.LoadGlobal()
			useGlobalChain := engine == "" && global.CompileCommand != ""
			if engine == "" {
				engine = global.DefaultEngine
			}

			project := config.NewProject(name, engine)
			if useGlobalChain {
				if chain, err := compile.ParseChain(global.CompileCommand); err == nil {
					project.Compilation.Chain = chain.Steps
				}
			}
			if err := project.Save(dir); err != nil {
				return err
			}

			mainPath := filepath.Join(dir, "main.tex")
			if _, err := os.Stat(mainPath); os.IsNotExist(err) {
				content := []byte(fmt.Sprintf(mainTemplate, name))
				if err := os.WriteFile(mainPath, content, 0644); err != nil {
					return err
				}
				printFile(mainPath)
			}

			printSuccess("Initialized project %s", name)
			printFile(filepath.Join(dir, config.ProjectFileName))
			printNewline()
			printNextStep("Analyze dependencies", "texpm analyze")
			printNextStep("Compile the document", "texpm compile")
			return nil
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "TeX engine for the compile chain (default from global config)")
	return cmd
}
