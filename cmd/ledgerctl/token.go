package main

import (
	"time"

	"github.com/spf13/cobra"

	"credledger/internal/identity/token"
	"credledger/internal/platform/config"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Subject   string            `json:"subject"`
	Role      string            `json:"role"`
	Usage     map[string]string `json:"usage"`
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		key string
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long: `Mint an HS256 bearer token for --caller with --role and --org.

Without --signing-key the development key is used, which ledgerd accepts only
when LEDGER_JWT_SIGNING_KEY is unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := token.NewService(key, token.WithTTL(ttl))
			signed, err := svc.Issue(cmd.Context(), a.caller, a.role, a.org)
			if err != nil {
				return err
			}
			return render(a.out, a.output, tokenOutput{
				Token:     signed,
				Type:      "Bearer",
				ExpiresIn: ttl.String(),
				Subject:   a.caller,
				Role:      a.role,
				Usage: map[string]string{
					"curl": "curl -H 'Authorization: Bearer " + signed + "' http://localhost:8080/api/v1/certificates",
				},
			})
		},
	}
	cmd.Flags().StringVar(&key, "signing-key", envOr("LEDGER_JWT_SIGNING_KEY", config.DevSigningKey), "HS256 signing key")
	cmd.Flags().DurationVar(&ttl, "ttl", token.DefaultTTL, "Token time-to-live")
	return cmd
}
