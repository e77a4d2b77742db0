package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/capsim/internal/cache"
	"github.com/san-kum/capsim/internal/config"
	"github.com/san-kum/capsim/internal/viz"
)

var (
	configFile string
	preset     string
	cacheDir   string
	outDir     string
	format     string
	noShow     bool
	logLevel   string
	workers    int
	compute    bool
	crates     []float64
)

// main runs the capsim CLI and exits with status 1 if any command fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "capsim",
		Short: "double-layer capacitance study for a lead-acid cell",
		Long: "capsim compares direct, differential and algebraic double-layer\n" +
			"capacitance formulations of a reduced-order lead-acid cell model.\n" +
			"Without a subcommand it runs the convergence study.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE:              runConvergence,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&cacheDir, "cache-dir", ".", "directory holding cached results")
	pf.StringVar(&outDir, "out", "", "write figures to this directory instead of showing them")
	pf.StringVar(&format, "format", "png", "output format (png|svg|eps|pdf|jpg|tif|html|json|csv)")
	pf.BoolVar(&noShow, "no-show", false, "do not open the terminal viewer")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.IntVar(&workers, "workers", 1, "concurrent solves in the C-rate comparison")
	pf.BoolVar(&compute, "compute", false, "recompute and overwrite the cache before plotting")

	voltagesCmd := &cobra.Command{
		Use:   "voltages",
		Short: "compare terminal voltages of the capacitance formulations across C-rates",
		Args:  cobra.NoArgs,
		RunE:  runVoltages,
	}
	voltagesCmd.Flags().Float64SliceVar(&crates, "crates", nil, "C-rates to plot (default: all computed)")

	convergenceCmd := &cobra.Command{
		Use:   "convergence",
		Short: "compare solve times of the formulations across grid resolutions",
		Args:  cobra.NoArgs,
		RunE:  runConvergence,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "inspect cached results",
	}
	cacheListCmd := &cobra.Command{
		Use:   "list",
		Short: "list cache entries",
		Args:  cobra.NoArgs,
		RunE:  listCache,
	}
	cacheCmd.AddCommand(cacheListCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "presets:")
			for _, p := range config.ListPresets() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
			}
		},
	}

	rootCmd.AddCommand(voltagesCmd, convergenceCmd, cacheCmd, presetsCmd)
	return rootCmd
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// loadConfig applies the preset, then the config file, then any flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = cacheDir
	}
	if flags.Changed("out") {
		cfg.OutputDir = outDir
	}
	if flags.Changed("format") {
		cfg.Format = format
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("crates") {
		cfg.PlotCrates = crates
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func listCache(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := cache.New(cfg.Cache.Dir)
	metas, err := store.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), viz.CacheTable(store.Dir(), metas))
	return nil
}
