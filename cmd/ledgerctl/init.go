package main

import (
	"github.com/spf13/cobra"

	certmodels "credledger/internal/certificate/models"
	"credledger/internal/ledger"
	skillmodels "credledger/internal/skill/models"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the certificate and skill ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := submit(ctx, a, func(tx ledger.Tx) (*certmodels.MutationResult, error) {
				return a.certs.InitLedger(ctx, tx)
			}); err != nil {
				return err
			}
			return submit(ctx, a, func(tx ledger.Tx) (*skillmodels.MutationResult, error) {
				return a.skills.InitLedger(ctx, tx)
			})
		},
	}
}
