package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/momentics/hioload-pool/control"
	"github.com/momentics/hioload-pool/core/concurrency"
)

const version = "0.1.0"

var CmdPool = &cobra.Command{
	Use:     "hioload-pool",
	Short:   "Fixed-size worker pool over a two-lock MPMC queue",
	Version: version,
}

var flags struct {
	config  string
	tasks   int
	workers int
	queue   string
	idle    string
	spin    int
}

func init() {
	CmdPool.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to pool.yaml")
	CmdPool.AddCommand(cmdInfo())
	CmdPool.AddCommand(cmdBench())
}

func cmdInfo() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print host concurrency as seen by the pool",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hardware concurrency: %d\n", concurrency.HardwareConcurrency())
			fmt.Fprintf(cmd.OutOrStdout(), "logical cpus:         %d\n", runtime.NumCPU())
			fmt.Fprintf(cmd.OutOrStdout(), "gomaxprocs:           %d\n", runtime.GOMAXPROCS(0))
		},
	}
}

func cmdBench() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic workload through the pool",
		Args:  cobra.NoArgs,
		RunE:  runBenchCmd,
	}
	cmd.Flags().IntVarP(&flags.tasks, "tasks", "n", 100000, "Number of tasks to submit")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", -1, "Worker count (0 = hardware concurrency, -1 = from config)")
	cmd.Flags().StringVar(&flags.queue, "queue", "", "Queue implementation: twolock or ring")
	cmd.Flags().StringVar(&flags.idle, "idle", "", "Idle strategy: block or yield")
	cmd.Flags().IntVar(&flags.spin, "spin", 64, "Busy iterations per task")
	return cmd
}

func runBenchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := control.LoadPoolConfig(flags.config)
	if err != nil {
		return err
	}
	if flags.workers >= 0 {
		cfg.Pool.Workers = flags.workers
	}
	if flags.queue != "" {
		cfg.Pool.Queue = flags.queue
	}
	if flags.idle != "" {
		cfg.Pool.IdleStrategy = flags.idle
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		log.Debug(fmt.Sprintf(format, a...))
	}))
	defer undo()
	if err != nil {
		log.Warn("failed to align GOMAXPROCS with cpu quota", "error", err)
	}

	poolCfg, err := cfg.PoolOptions()
	if err != nil {
		return err
	}
	res, err := runBench(poolCfg, flags.tasks, flags.spin, log)
	if err != nil {
		return err
	}
	res.Print(cmd.OutOrStdout())
	return nil
}
