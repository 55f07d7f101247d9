package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/portier/pkg/tokens"
)

func newIssueCmd(root *rootOptions) *cobra.Command {
	var (
		claims     []string
		tenantID   string
		roles      []string
		ttlMinutes int
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "issue SUBJECT",
		Short: "Mint a token for SUBJECT",
		Example: `  tokenctl issue alice --tenant acme --role admin
  tokenctl issue ci-bot --claim application=deployer --ttl 5 --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := root.codec(cmd.Context())
			if err != nil {
				return err
			}

			payload, err := parseClaims(claims)
			if err != nil {
				return err
			}
			if tenantID != "" {
				payload["tenantId"] = tenantID
			}
			if len(roles) > 0 {
				payload["roles"] = strings.Join(roles, ",")
			}

			tok, err := codec.Create(tokens.JWT, args[0], payload, ttlMinutes)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			if raw {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
				return err
			}
			return printJSON(cmd.OutOrStdout(), tok)
		},
	}

	cmd.Flags().StringArrayVar(&claims, "claim", nil, "extra claim as key=value (repeatable)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant to embed as tenantId")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to embed (repeatable)")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 0, "lifetime in minutes (default from config)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the compact token")
	return cmd
}

// parseClaims turns key=value pairs into claims. Values that parse as
// booleans or integers keep that type.
func parseClaims(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid claim %q, want key=value", p)
		}
		switch {
		case v == "true" || v == "false":
			out[k] = v == "true"
		default:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				out[k] = n
			} else {
				out[k] = v
			}
		}
	}
	return out, nil
}
