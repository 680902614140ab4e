package main

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"library-room-booker/internal/mw"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate secrets for the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for web push notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			private, public, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vapid_public_key: %s\nvapid_private_key: %s\n", public, private)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "token <token>",
		Short: "Hash a bearer token for server.trigger_token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := mw.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trigger_token_hash: %q\n", hash)
			return nil
		},
	})
	return cmd
}
