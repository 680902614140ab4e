package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// exitError ends the process with code without printing anything else.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type rootFlags struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "roombooker",
		Short:         "Automatically book University of Guelph library study rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or ./config/config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBookCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newScheduleCmd(flags))
	root.AddCommand(newSetupCmd())
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newKeysCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	var exit exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
