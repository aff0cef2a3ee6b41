package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/profsweep/internal/cron"
	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/prune"
)

var (
	scheduleCron string
	scheduleNow  bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run pruning passes on a cron schedule",
	Long: `Run independent pruning passes on a cron schedule until interrupted.
The expression comes from --cron or [schedule] cron and accepts an optional
seconds field and descriptors such as @daily or "@every 6h".`,
	Args: cobra.NoArgs,
	RunE: scheduleHandler,
}

func scheduleHandler(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fatal(out, err)
	}
	applyRunFlags(cmd, cfg)
	if cmd.Flags().Changed("cron") {
		cfg.Schedule.Cron = scheduleCron
	}
	if cfg.Schedule.Cron == "" {
		return fatal(out, errors.New("no cron expression: pass --cron or set [schedule] cron"))
	}
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

	// Each pass is independent; a failed pass is reported and the
	// schedule continues.
	sched, err := cron.NewScheduler(cfg.Schedule.Cron, func(ctx context.Context) error {
		return withLock(cfg, log, func() error {
			_, err := runner.Run(ctx)
			return err
		})
	}, log)
	if err != nil {
		return fatal(out, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scheduleNow {
		runInitialPass(ctx, sched.RunNow, log)
	}
	if err := sched.Start(ctx); err != nil {
		return fatal(out, err)
	}
	log.Info("schedule started",
		logger.Field{Key: "cron", Value: cfg.Schedule.Cron},
		logger.Field{Key: "next", Value: sched.Next().Format("2006-01-02 15:04:05 MST")})

	<-ctx.Done()
	log.Info("shutting down scheduler", logger.Field{Key: "runs", Value: sched.Runs()})
	if err := sched.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// runInitialPass executes one pass before the schedule starts. A failed pass
// has already been reported and does not stop the schedule.
func runInitialPass(ctx context.Context, runNow func(context.Context) error, log *logger.Logger) {
	if err := runNow(ctx); err != nil {
		log.Debug("initial run returned error", logger.Field{Key: "error", Value: err.Error()})
	}
}

func init() {
	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (overrides [schedule] cron)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run one pass immediately before waiting for the schedule")
}
