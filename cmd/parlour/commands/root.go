package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parlour/parlour/internal/brewing"
	"github.com/parlour/parlour/internal/config"
	"github.com/parlour/parlour/internal/dining"
	"github.com/parlour/parlour/internal/printer"
	"github.com/parlour/parlour/internal/prodcon"
	"github.com/parlour/parlour/internal/scenario"
)

var (
	version string
	commit  string
	date    string
)

var (
	flagProdCon   bool
	flagDiners    bool
	flagBrewers   bool
	flagProducers int
	flagConsumers int
	flagConfig    string
)

// rawArgs is the argument list as passed on the command line. Scenario
// selection is last-flag-wins, which pflag cannot report, so resolution
// scans the raw list.
var rawArgs []string

// rootCmd is the whole CLI: the tool is flag-driven with no subcommands,
// mirroring its getopt ancestry.
var rootCmd = &cobra.Command{
	Use:   "parlour",
	Short: "Run a classic bounded-resource synchronization problem",
	Long: `Parlour runs one of three classic concurrency problems until interrupted:

  -p: Producer/Consumer solution
      Required arguments:
      -n: number of producers to instantiate
      -c: number of consumers to instantiate
  -d: Dining Philosophers solution (five seats)
  -b: Potion Brewers solution (three of each role)

If multiple modes are specified, the last one on the command line overrides
the others. A running scenario stops cleanly on SIGINT or SIGTERM.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
	Version:       version,
}

// Execute parses os.Args and runs the selected scenario.
// This is called by main.main().
func Execute() error {
	return ExecuteContextArgs(context.Background(), os.Args[1:])
}

// ExecuteContextArgs is Execute with an explicit context and argument list,
// split out so tests can drive the CLI without process-level state.
func ExecuteContextArgs(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{} // nil would make cobra fall back to os.Args
	}
	rawArgs = args
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&flagProdCon, "prodcon", "p", false, "run the Producer/Consumer solution")
	f.BoolVarP(&flagDiners, "diners", "d", false, "run the Dining Philosophers solution")
	f.BoolVarP(&flagBrewers, "brewers", "b", false, "run the Potion Brewers solution")
	f.IntVarP(&flagProducers, "producers", "n", 0, "number of producers (required with -p)")
	f.IntVarP(&flagConsumers, "consumers", "c", 0, "number of consumers (required with -p)")
	f.StringVar(&flagConfig, "config", "", "optional timing profile YAML")

	// Unknown flags invalidate the whole invocation: report and reprint
	// usage, run nothing.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		printer.Heading()
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		_ = cmd.Usage()
		return err
	})
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(rawArgs) == 0 {
		printer.Heading()
		_ = cmd.Usage()
		return fmt.Errorf("no mode chosen")
	}

	params := scenario.Params{
		Scenario:  scenario.Select(rawArgs),
		Producers: flagProducers,
		Consumers: flagConsumers,
	}
	if err := params.Validate(); err != nil {
		defer func() { _ = cmd.Usage() }()
		if params.Scenario == scenario.ProdCon {
			return printer.Error(
				"Invalid Producer/Consumer parameters",
				"For the Producer/Consumer solution, both -n and -c must be present and each followed by an integer value greater than zero.",
				nil,
			)
		}
		return printer.Error(
			"No valid mode chosen or the parameters are incorrect",
			"",
			nil,
		)
	}

	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return printer.Error("Invalid timing profile", err.Error(), nil)
		}
		cfg = loaded
	}

	if params.IgnoresCounts() {
		printer.Warning("Solution set to %s, extra parameters passed will be ignored.\n", params.Scenario)
	}

	var engine interface {
		Run(context.Context) error
	}
	switch params.Scenario {
	case scenario.ProdCon:
		printer.Scenario("Running %s with %d producers and %d consumers.", params.Scenario, params.Producers, params.Consumers)
		engine = prodcon.NewEngine(params.Producers, params.Consumers, cfg.Timing)
	case scenario.Diners:
		printer.Scenario("Running %s.", params.Scenario)
		engine = dining.NewEngine(cfg.Timing)
	case scenario.Brewers:
		printer.Scenario("Running %s.", params.Scenario)
		engine = brewing.NewEngine(cfg.Timing)
	}
	printer.Info("Press Ctrl-C to stop.\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("%s run failed: %w", params.Scenario, err)
	}

	printer.Info("Stopped.\n")
	return nil
}
