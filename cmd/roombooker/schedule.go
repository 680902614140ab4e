package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"library-room-booker/internal/scheduler"
)

func newScheduleCmd(flags *rootFlags) *cobra.Command {
	var runOnce, daemon bool
	c := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily booking with retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runOnce == daemon {
				return cmd.Help()
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, flags, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			svc := scheduler.NewService(a.cfg.Schedule, a.orch, a.locker, a.log)
			if daemon {
				svc.Run(ctx)
				return nil
			}
			if !svc.RunOnce(ctx) {
				return exitError{code: 1}
			}
			return nil
		},
	}
	c.Flags().BoolVar(&runOnce, "run-once", false, "run the booking once with retries and exit")
	c.Flags().BoolVar(&daemon, "daemon", false, "keep running and book every day at schedule.run_time")
	c.MarkFlagsMutuallyExclusive("run-once", "daemon")
	return c
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Show how to schedule the daily booking with cron or Task Scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			if resolved, err := filepath.EvalSymlinks(exe); err == nil {
				exe = resolved
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), scheduler.SetupInstructions(runtime.GOOS, exe, wd))
			return nil
		},
	}
}
