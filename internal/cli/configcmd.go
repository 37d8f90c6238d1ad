package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/texpm/texpm/pkg/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the global and project configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configGetCommand())
	cmd.AddCommand(c.configSetCommand())
	cmd.AddCommand(c.configResetCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	var projectScope bool

	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"list"},
		Short:   "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectScope {
				root, err := projectRoot()
				if err != nil {
					return err
				}
				project, err := config.LoadProject(root)
				if err != nil {
					return err
				}
				for _, key := range config.ProjectKeys() {
					value, err := project.Get(key)
					if err != nil {
						return err
					}
					if value == "" {
						value = StyleDim.Render("(unset)")
					}
					printKeyValue(key, value)
				}
				return nil
			}

			global, err := config.LoadGlobal()
			if err != nil {
				return err
			}
			for _, key := range config.GlobalKeys() {
				value, err := global.Get(key)
				if err != nil {
					return err
				}
				if value == "" {
					value = StyleDim.Render("(unset)")
				}
				printKeyValue(key, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&projectScope, "project", "p", false, "show the project configuration instead of the global one")
	return cmd
}

// configGetCommand creates the "config get" subcommand.
func (c *CLI) configGetCommand() *cobra.Command {
	var projectScope bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if projectScope {
				root, err := projectRoot()
				if err != nil {
					return err
				}
				project, err := config.LoadProject(root)
				if err != nil {
					return err
				}
				value, err = project.Get(args[0])
				if err != nil {
					return err
				}
			} else {
				global, err := config.LoadGlobal()
				if err != nil {
					return err
				}
				value, err = global.Get(args[0])
				if err != nil {
					return err
				}
			}
			fmt.Println(value)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&projectScope, "project", "p", false, "read from the project configuration")
	return cmd
}

// configSetCommand creates the "config set" subcommand.
func (c *CLI) configSetCommand() *cobra.Command {
	var projectScope bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectScope {
				root, err := projectRoot()
				if err != nil {
					return err
				}
				project, err := config.LoadProject(root)
				if err != nil {
					return err
				}
				if err := project.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := project.Save(root); err != nil {
					return err
				}
			} else {
				global, err := config.LoadGlobal()
				if err != nil {
					return err
				}
				if err := global.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := global.Save(); err != nil {
					return err
				}
			}
			printSuccess("%s = %s", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&projectScope, "project", "p", false, "write to the project configuration")
	return cmd
}

// configResetCommand creates the "config reset" subcommand.
func (c *CLI) configResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the global configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DefaultGlobal().Save(); err != nil {
				return err
			}
			printSuccess("Configuration reset to defaults")
			return nil
		},
	}
}
