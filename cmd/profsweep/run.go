package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/profsweep/internal/config"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/prune"
)

var (
	runApply       bool
	runDays        int
	runComputers   string
	runConcurrency int
	runFixture     string
)

// errReported marks an error the runner already printed.
var errReported = errors.New("run failed")

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pruning pass",
	Long: `Probe every target host, inventory its profiles, and report the ones
inactive for at least --days days. With --apply the eligible profiles are
deleted, one host at a time.`,
	Args: cobra.NoArgs,
	RunE: runHandler,
}

func runHandler(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fatal(out, err)
	}
	applyRunFlags(cmd, cfg)
	if err := validate(cfg); err != nil {
		return fatal(out, err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fatal(out, err)
	}

	runner, err := prune.FromConfig(cfg, out, log)
	if err != nil {
		return fatal(out, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	if err := withLock(cfg, log, func() error {
		_, runErr = runner.Run(ctx)
		return nil
	}); err != nil {
		return fatal(out, err)
	}
	if runErr != nil {
		log.Debug("run returned error", logger.Field{Key: "error", Value: runErr.Error()})
		return errReported
	}
	return nil
}

// applyRunFlags overrides configuration with flags given on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("apply") {
		dry := !runApply
		cfg.Run.DryRun = &dry
	}
	if flags.Changed("days") {
		days := runDays
		cfg.Run.InactiveDays = &days
	}
	if flags.Changed("computers") {
		cfg.Run.Computers = runComputers
	}
	if flags.Changed("concurrency") {
		cfg.Run.Concurrency = runConcurrency
		cfg.Reachability.Concurrency = runConcurrency
	}
	if flags.Changed("fixture") {
		cfg.Remote.Transport = config.TransportFixture
		cfg.Remote.FixturePath = runFixture
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runApply, "apply", false, "Delete eligible profiles (default is a dry run)")
	cmd.Flags().IntVarP(&runDays, "days", "d", 90, "Inactivity threshold in days")
	cmd.Flags().StringVar(&runComputers, "computers", "", "Comma separated host list (overrides discovery)")
	cmd.Flags().IntVar(&runConcurrency, "concurrency", 25, "Maximum hosts contacted at once")
	cmd.Flags().StringVar(&runFixture, "fixture", "", "Serve the run from a YAML fleet fixture instead of remote hosts")
}

func init() {
	addRunFlags(runCmd)
}
