package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newBookCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool
	c := &cobra.Command{
		Use:   "book",
		Short: "Book a room now (exit status 1 when no room was booked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, flags, appOptions{})
			if err != nil {
				return err
			}
			res := a.orch.Book(ctx, dryRun)
			a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.Success {
				return exitError{code: 1}
			}
			return nil
		},
	}
	c.Flags().BoolVar(&dryRun, "dry-run", false, "select the room and times but do not submit the booking")
	return c
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List the rooms available on the target date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, flags, appOptions{report: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.orch.CheckAvailability(ctx); err != nil {
				a.log.Errorf("Availability check failed: %v", err)
			}
			return nil
		},
	}
}
