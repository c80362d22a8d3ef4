package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/easyd"
)

func main() {
	// must run before anything else: a spawned child becomes the daemon here
	easyd.RunChildIfRequested()

	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "[Error]:", err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	addFlags := &AddFlags{}
	deleteFlags := &DeleteFlags{}
	listFlags := &ListFlags{}

	a := &app{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createAddCommand(a, addFlags),
		createRunCommand(a),
		createStopCommand(a),
		createDeleteCommand(a, deleteFlags),
		createListCommand(a, listFlags),
	)
	return root
}

// createRootCommand creates the root command with persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "easyd",
		Short: "Run programs as detached daemons and stop them safely",
		Long: `easyd keeps a small registry of named programs, starts them as
detached daemons and stops them with SIGTERM, escalating to SIGKILL when
they do not exit in time. A pid is only signalled while it still runs the
registered program.

Examples:
  easyd add --name web --program /usr/bin/python3 --args app.py --output /tmp/web.log
  easyd run web
  easyd list --all
  easyd stop web`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (default ./easyd.toml when present)")
	root.PersistentFlags().StringVar(&flags.Registry, "registry", "", "registry DSN: TOML file, sqlite path or postgres:// URL")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	return root
}

// createAddCommand creates the add subcommand
func createAddCommand(a *app, addFlags *AddFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a daemon",
		Long: `Register a daemon under a unique name. Adding an existing name replaces
its entry and forgets any tracked pid.

Examples:
  easyd add -n web -p /usr/bin/python3 -a app.py -a --port=8080
  easyd add -n worker -p ./worker -o /var/log/worker.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(c *command) error {
				return c.Add(*addFlags)
			})
		},
	}

	cmd.Flags().StringVarP(&addFlags.Name, "name", "n", "", "daemon name (required)")
	cmd.Flags().StringVarP(&addFlags.Program, "program", "p", "", "executable path (required)")
	cmd.Flags().StringArrayVarP(&addFlags.Args, "args", "a", nil, "program argument, repeatable")
	cmd.Flags().StringVarP(&addFlags.Output, "output", "o", "", "file receiving stdout and stderr (default /dev/null)")

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("program"); err != nil {
		panic(err)
	}
	return cmd
}

// createRunCommand creates the run subcommand
func createRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME",
		Short: "Start a registered daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(c *command) error {
				return c.Run(args[0])
			})
		},
	}
}

// createStopCommand creates the stop subcommand
func createStopCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop NAME",
		Short: "Stop a running daemon",
		Long: `Stop a running daemon: SIGTERM, then SIGKILL after the grace period
(stop.grace_period, default 2s). Nothing is signalled when the recorded pid
now belongs to a different program.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(c *command) error {
				return c.Stop(args[0])
			})
		},
	}
}

// createDeleteCommand creates the delete subcommand
func createDeleteCommand(a *app, deleteFlags *DeleteFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a daemon from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(c *command) error {
				return c.Delete(args[0], *deleteFlags)
			})
		},
	}
	cmd.Flags().BoolVar(&deleteFlags.Force, "force", false, "delete even while the daemon is running (it keeps running)")
	return cmd
}

// createListCommand creates the list subcommand
func createListCommand(a *app, listFlags *ListFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show registered daemons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(c *command) error {
				return c.List(*listFlags)
			})
		},
	}
	cmd.Flags().BoolVar(&listFlags.All, "all", false, "include daemons that were never started or were stopped")
	cmd.Flags().BoolVar(&listFlags.JSON, "json", false, "print JSON instead of a table")
	return cmd
}
