package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/config"
	"github.com/texpm/texpm/pkg/errors"
	"github.com/texpm/texpm/pkg/texlive"
)

// removeCommand creates the remove command.
func (c *CLI) removeCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:     "remove <packages...>",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove installed packages",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			reg, err := openRegistry(root, global)
			if err != nil {
				return err
			}

			project, projErr := config.LoadProject(root)
			for _, name := range args {
				if err := reg.Remove(name); err != nil {
					return err
				}
				if projErr == nil {
					project.RemoveDependency(name)
				}
				printSuccess("Removed %s", name)
			}
			if projErr == nil && !global {
				return project.Save(root)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "remove from the shared per-user package directory")
	return cmd
}

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "update [packages...]",
		Short: "Update installed packages",
		Long:  "Update the named packages, or every installed package when no names are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			reg, err := openRegistry(root, global)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				updated, err := reg.UpdateAll()
				if err != nil {
					return err
				}
				printSuccess("Updated %d packages", len(updated))
				return nil
			}
			for _, name := range args {
				entry, err := reg.Update(name)
				if err != nil {
					return err
				}
				printSuccess("Updated %s %s", entry.Name, StyleDim.Render(entry.Version))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "update the shared per-user package directory")
	return cmd
}

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			reg, err := openRegistry(root, global)
			if err != nil {
				return err
			}

			entries := reg.List()
			if len(entries) == 0 {
				printInfo("No packages installed")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s %s %s\n",
					StyleValue.Render(e.Name),
					StyleHighlight.Render(e.Version),
					StyleDim.Render(e.InstalledAt.Format("2006-01-02")))
			}
			printNewline()
			printDetail("%d packages in %s", len(entries), reg.Dir())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "list the shared per-user package directory")
	return cmd
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for packages",
		Long:  "Search installed packages and, when a TeX Live installation is available, its package database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			if root, err := projectRoot(); err == nil {
				if reg, err := openRegistry(root, false); err == nil {
					for _, e := range reg.Search(query) {
						fmt.Printf("%s %s %s\n",
							StyleValue.Render(e.Name),
							StyleHighlight.Render(e.Version),
							StyleDim.Render("installed"))
					}
				}
			}

			global, _ := config.LoadGlobal()
			inst, err := texlive.Detect(global.TexLiveRoot)
			if err != nil {
				printDetail("TeX Live not found, searched local packages only")
				return nil
			}
			packages, err := inst.ListPackages()
			if err != nil {
				return err
			}

			count := 0
			lower := strings.ToLower(query)
			for _, p := range packages {
				if !strings.Contains(strings.ToLower(p.Name), lower) &&
					!strings.Contains(strings.ToLower(p.ShortDesc), lower) {
					continue
				}
				fmt.Printf("%s %s\n", StyleValue.Render(p.Name), StyleDim.Render(p.ShortDesc))
				count++
				if count >= 25 {
					printDetail("More matches omitted")
					break
				}
			}
			if count == 0 {
				printInfo("No packages matched %q", query)
			}
			return nil
		},
	}
}

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show details about a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if root, err := projectRoot(); err == nil {
				if reg, err := openRegistry(root, false); err == nil {
					if entry, err := reg.Get(name); err == nil {
						printKeyValue("Name", entry.Name)
						printKeyValue("Version", entry.Version)
						printKeyValue("Installed", entry.InstalledAt.Format("2006-01-02 15:04"))
						printKeyValue("Files", strings.Join(entry.Files, ", "))
						return nil
					}
				}
			}

			global, _ := config.LoadGlobal()
			inst, err := texlive.Detect(global.TexLiveRoot)
			if err != nil {
				return errors.New(errors.ErrCodePackageNotFound, "package %s is not installed and no TeX Live installation was found", name)
			}
			packages, err := inst.ListPackages()
			if err != nil {
				return err
			}
			for _, p := range packages {
				if p.Name == name {
					printKeyValue("Name", p.Name)
					printKeyValue("Summary", p.ShortDesc)
					printKeyValue("Source", "TeX Live "+inst.Version)
					printKeyValue("Installed", fmt.Sprintf("%v", inst.IsInstalled(name)))
					return nil
				}
			}
			return errors.New(errors.ErrCodePackageNotFound, "package %s not found", name)
		},
	}
}
