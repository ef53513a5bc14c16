package app

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/config"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/secrets"
	"github.com/spf13/cobra"
)

// Domain: Repository Credentials
// This file contains the commands that manage secrets referenced by job files

func (a *App) createSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage repository passwords referenced as secret:<namespace>/<key>",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <namespace> <key> [value]",
			Short: "Store a secret; the value is read from stdin when omitted",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := ""
				if len(args) == 3 {
					value = args[2]
				} else {
					line, err := bufio.NewReader(a.in).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("failed to read secret from stdin: %w", err)
					}
					value = strings.TrimRight(line, "\r\n")
				}

				return a.withSecrets(func(m secrets.Manager) error {
					if err := m.Set(args[0], args[1], value); err != nil {
						return err
					}
					ref := secrets.Reference{Namespace: args[0], Key: args[1]}
					fmt.Fprintf(a.out, "stored; use %q as repository password\n", ref.String())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <namespace> <key>",
			Short: "Remove a secret",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSecrets(func(m secrets.Manager) error {
					return m.Delete(args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "list <namespace>",
			Short: "List the secret keys of a namespace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSecrets(func(m secrets.Manager) error {
					keys, err := m.List(args[0])
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(a.out, k)
					}
					return nil
				})
			},
		},
	)

	return cmd
}

func (a *App) withSecrets(fn func(secrets.Manager) error) error {
	cfg, _, err := a.settings()
	if err != nil {
		return err
	}
	m, err := newSecretsManager(cfg)
	if err != nil {
		return err
	}
	return fn(m)
}

func newSecretsManager(cfg *config.Config) (secrets.Manager, error) {
	var opts []secrets.Option
	if cfg.SecretsFallback {
		opts = append(opts, secrets.WithFallback(""))
	}
	return secrets.NewManager(opts...)
}
