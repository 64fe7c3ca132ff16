package main

import (
	"fmt"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"

	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !raw {
				if _, err := core.ParseOwnerID(owner); err != nil {
					return fmt.Errorf("%w (pass --raw to sign it anyway)", err)
				}
			}
			tok, err := auth.Mint(a.cfg.AuthSecret, a.cfg.AuthIssuer, owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&raw, "raw", false, "skip owner id validation")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
