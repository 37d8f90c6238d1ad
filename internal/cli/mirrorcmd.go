package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/config"
)

// mirrorCommand creates the mirror management command.
func (c *CLI) mirrorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect and select CTAN mirrors",
	}

	cmd.AddCommand(c.mirrorListCommand())
	cmd.AddCommand(c.mirrorUpdateCommand())
	cmd.AddCommand(c.mirrorUseCommand())

	return cmd
}

// mirrorListCommand creates the "mirror list" subcommand.
func (c *CLI) mirrorListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known mirrors",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			global, err := config.LoadGlobal()
			if err != nil {
				return err
			}
			mgr := newMirrorManager(ctx, global)
			if _, err := mgr.Fetch(ctx); err != nil {
				return err
			}

			for _, m := range mgr.Mirrors {
				marker := "  "
				if m.Name == global.Mirror {
					marker = StyleSuccess.Render(iconSuccess) + " "
				}
				fmt.Printf("%s%-10s %-14s %s\n", marker, StyleValue.Render(m.Name), m.Country, StyleDim.Render(m.URL))
			}
			if global.Mirror == "" {
				printNewline()
				printDetail("No mirror pinned; the fastest responder is chosen automatically")
			}
			return nil
		},
	}
}

// mirrorUpdateCommand creates the "mirror update" subcommand.
func (c *CLI) mirrorUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh the mirror list from CTAN",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			global, err := config.LoadGlobal()
			if err != nil {
				return err
			}
			mgr := newMirrorManager(ctx, global)

			spin := startSpinner(ctx, "Fetching mirror list...")
			mirrors, err := mgr.Fetch(ctx)
			if err != nil {
				spin.fail("Mirror list fetch failed")
				return err
			}
			spin.success("Loaded %d mirrors", len(mirrors))
			return nil
		},
	}
}

// mirrorUseCommand creates the "mirror use" subcommand.
func (c *CLI) mirrorUseCommand() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "use [name]",
		Short: "Pin a mirror",
		Long: `Pin a mirror in the global config. Without a name an interactive
picker is shown; with --auto every mirror is probed and the fastest
responder is pinned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			global, err := config.LoadGlobal()
			if err != nil {
				return err
			}
			mgr := newMirrorManager(ctx, global)
			if _, err := mgr.Fetch(ctx); err != nil {
				return err
			}

			var chosen string
			switch {
			case auto:
				spin := startSpinner(ctx, "Probing mirrors...")
				best, err := mgr.SelectBest(ctx)
				if err != nil {
					spin.fail("No mirror responded")
					return err
				}
				spin.stop()
				chosen = best.Name
			case len(args) == 1:
				m, err := mgr.ByName(args[0])
				if err != nil {
					return err
				}
				chosen = m.Name
			default:
				selected, err := pickMirror(mgr.Mirrors)
				if err != nil {
					return err
				}
				if selected == nil {
					printInfo("No mirror selected")
					return nil
				}
				chosen = selected.Name
			}

			global.Mirror = chosen
			if err := global.Save(); err != nil {
				return err
			}
			printSuccess("Using mirror %s", chosen)
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "probe all mirrors and pin the fastest")
	return cmd
}
