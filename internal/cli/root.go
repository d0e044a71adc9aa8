package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/simfleet/internal/launcher"
	"github.com/wesleyorama2/simfleet/internal/logging"
	"github.com/wesleyorama2/simfleet/internal/output"
)

var version = "0.1.0"

const (
	// DefaultStateFile is where the topology is kept between invocations.
	DefaultStateFile = "simfleet-topology.yaml"

	envPrefix = "SIMFLEET"
)

// app carries what the commands share: settings and the launcher.
type app struct {
	v        *viper.Viper
	launcher launcher.Launcher
}

type option func(*app)

func withLauncher(l launcher.Launcher) option {
	return func(a *app) {
		a.launcher = l
	}
}

// NewRootCmd builds the simfleet command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd()
}

func newRootCmd(opts ...option) *cobra.Command {
	a := &app{v: viper.New(), launcher: launcher.NewRecordOnly()}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:     "simfleet",
		Short:   "Plan and track the worker fleet of a distributed benchmark",
		Version: version,
		Long: `simfleet keeps the inventory of agents and workers taking part in a
distributed benchmark and decides where new cluster members and clients go.
The topology is stored in a state file so that consecutive invocations build
on each other.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(logging.Options{
				Level:   a.v.GetString("log-level"),
				NoColor: a.v.GetBool("no-color"),
				Output:  cmd.ErrOrStderr(),
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("state", DefaultStateFile, "topology state file (.yaml, .yml or .json)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "disable colored output")
	for _, name := range []string{"state", "log-level", "no-color"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.agentsCmd(),
		a.dedicateCmd(),
		a.planCmd(),
		a.scaleCmd(),
		a.applyCmd(),
		a.topologyCmd(),
		a.killCmd(),
		a.terminateCmd(),
		a.teardownCmd(),
	)
	return root
}

// Execute runs the command line with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) statePath() string {
	return a.v.GetString("state")
}

func (a *app) formatter(w io.Writer) *output.Formatter {
	return output.NewFormatter(output.UseColor(w, a.v.GetBool("no-color")))
}
