package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/portier/pkg/auth"
)

type verifyOutput struct {
	Subject     string         `json:"subject"`
	Tenant      string         `json:"tenant,omitempty"`
	Application string         `json:"application,omitempty"`
	Authorities []string       `json:"authorities"`
	Claims      map[string]any `json:"claims"`
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verify TOKEN and print the identity it resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := root.codec(cmd.Context())
			if err != nil {
				return err
			}

			raw := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))
			a, err := codec.Decode(raw)
			if err != nil {
				return fmt.Errorf("verifying token: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), verifyOutput{
				Subject:     a.Username,
				Tenant:      a.TenantID,
				Application: a.Application,
				Authorities: auth.DeriveAuthorities(&auth.RequestContext{}, a),
				Claims:      a.Claims,
			})
		},
	}
}
