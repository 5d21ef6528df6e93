package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/TomTonic/timerjitter"
	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func init() {
	// Keep main on the process's initial thread so the harness measures there.
	runtime.LockOSThread()
}

type options struct {
	iterations      int
	period          time.Duration
	monitorInterval time.Duration
	duration        time.Duration
	configs         []string
	noLoad          bool
	logLevel        string
}

func newRootCommand() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "timerjitter",
		Short: "Measure periodic timer latency under scheduler and CPU load",
		Long: `timerjitter runs a periodic kernel timer for a fixed number of fires per
configuration and reports the mean interval between fires, while an idle
thread and a CPU-saturating thread run in the background and a monitor prints
the CPU accounting of every thread once per interval.

The process keeps monitoring after the last configuration until it is
interrupted or --duration elapses.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	addFlags(cmd.Flags(), &opts)
	return cmd
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.IntVarP(&opts.iterations, "iterations", "n", timerjitter.DefaultIterations, "Timer fires measured per configuration")
	flags.DurationVarP(&opts.period, "period", "p", time.Millisecond, "Timer period (whole milliseconds)")
	flags.DurationVar(&opts.monitorInterval, "monitor-interval", timerjitter.DefaultMonitorInterval, "Interval between thread accounting passes")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	flags.StringSliceVarP(&opts.configs, "config", "c", timerjitter.PresetNames, "Timer configurations to run, in order")
	flags.BoolVar(&opts.noLoad, "no-load", false, "Do not start the idle and CPU-heavy load threads")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func run(ctx context.Context, opts options) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	if opts.iterations < 0 {
		return fmt.Errorf("--iterations must not be negative, got %d", opts.iterations)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.StampMicro})
	log := logrus.StandardLogger()

	cfgs := make([]timerjitter.TimerConfig, 0, len(opts.configs))
	for _, name := range opts.configs {
		cfg, err := timerjitter.ParseTimerConfig(name, opts.period)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	// Release the signal handler once stopping so a second signal kills the process.
	go func() {
		<-ctx.Done()
		stop()
	}()

	reg := timerjitter.NewThreadRegistry()
	timerjitter.RegisterCurrentThread(reg, "main", log)

	clock := timerjitter.NewClock()
	log.Infof("Clock frequency %d Hz, precision %dns", clock.Frequency(), clock.Precision(100_000))

	monitor, err := timerjitter.NewMonitor(reg,
		timerjitter.WithInterval(opts.monitorInterval),
		timerjitter.WithMonitorLogger(log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if !opts.noLoad {
		idle := timerjitter.NewIdleGenerator(timerjitter.WithLoadLogger(log))
		busy := timerjitter.NewCPUHeavyGenerator(timerjitter.WithLoadLogger(log))
		g.Go(func() error { return idle.Run(gctx, reg) })
		g.Go(func() error { return busy.Run(gctx, reg) })
	}
	g.Go(func() error { return monitor.Run(gctx) })

	start := time.Now()
	harness := timerjitter.NewHarness(
		timerjitter.WithIterations(opts.iterations),
		timerjitter.WithLogger(log))
	results := harness.RunAll(ctx, cfgs)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Infof("Finished %d configurations (%d failed) in %s, monitoring until stopped",
		len(results), failed, units.HumanDuration(time.Since(start)))

	return g.Wait()
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
