package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ticksched/internal/job"
	"ticksched/internal/logging"
	"ticksched/internal/sched"
)

type options struct {
	configPath string
	tasks      int
	duration   time.Duration
	csvPath    string
	submitRate float64
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ticksched",
		Short: "Run demo tasks on the budgeted cooperative scheduler",
		Long: "ticksched drives the scheduler from a fixed-interval clock, spreads demo\n" +
			"spinners over every priority tier and reports how often each tier ran.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	root.Flags().StringVar(&opts.configPath, "config", "config.yml", "YAML config file (defaults apply when missing)")
	root.Flags().IntVar(&opts.tasks, "tasks", 125, "Number of spinner tasks")
	root.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "How long to run (0 runs until interrupted)")
	root.Flags().StringVar(&opts.csvPath, "csv", "", "Write scheduler events to this CSV file")
	root.Flags().Float64Var(&opts.submitRate, "submit-rate", 20, "Countdown jobs submitted per second from a producer goroutine (0 disables)")
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.Flags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	return root
}

func run(cmd *cobra.Command, opts *options) error {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(opts.logFormat)
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), level, format)

	cfg := sched.Load(opts.configPath)
	logger.Info("config loaded", "path", opts.configPath, "op_ceiling", cfg.OpCeiling,
		"target_cost_ms", cfg.TargetCostMS, "curve", cfg.Curve, "tick_ms", cfg.TickMS)

	schedOpts := []sched.Option{sched.WithLogger(logger)}
	if opts.csvPath != "" {
		rec, err := sched.CreateRecorder(opts.csvPath, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("closing event log", "path", opts.csvPath, "error", err)
			}
		}()
		schedOpts = append(schedOpts, sched.WithObserver(rec.Observe))
	}

	s := sched.New(cfg, schedOpts...)
	stats := job.NewStats()
	host := sched.NewHost(s, time.Duration(cfg.TickMS)*time.Millisecond, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	if err := host.Submit(ctx, sched.Define("demo", sched.PriorityCritical, job.Demo(stats, opts.tasks, logger))); err != nil {
		return err
	}
	if opts.submitRate > 0 {
		host.LimitSubmissions(opts.submitRate, 1)
		go produce(ctx, host, logger)
	}

	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	est := s.Estimator()
	logger.Info("run finished",
		"ticks", s.CurrentTick(),
		"tasks", s.TaskCount(),
		"budget", est.Budget(),
		"fast_avg_ms", est.FastAverage(),
		"slow_avg_ms", est.SlowAverage())
	return stats.Report(cmd.OutOrStdout())
}

// produce submits countdown jobs from outside the scheduler goroutine until
// ctx ends.
func produce(ctx context.Context, host *sched.Host, logger *slog.Logger) {
	for n := 0; ; n++ {
		def := sched.Define("countdown", sched.PriorityNormal, job.Countdown(5)).WithArg(n)
		if err := host.Submit(ctx, def); err != nil {
			logger.Debug("producer stopped", "submitted", n, "error", err)
			return
		}
	}
}
