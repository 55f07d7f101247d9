package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/portier/pkg/config"
	"github.com/rhuss/portier/pkg/debug"
	"github.com/rhuss/portier/pkg/tokens"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tokenctl",
		Short: "Issue and verify portier tokens",
		Long: `tokenctl uses the same configuration file as the portier server to mint
tokens, verify them and manage principals in the postgres auth store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(debug.Options{Level: opts.logLevel, Output: cmd.ErrOrStderr()})
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the portier config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newIssueCmd(opts),
		newVerifyCmd(opts),
		newPrincipalCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) codec(ctx context.Context) (*tokens.Codec, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return tokens.New(ctx, cfg.Tokens.Codec())
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
