package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/spf13/cobra"
)

// Domain: Role Grants
// This file contains the commands that manage the persistent grant store

func (a *App) createRolesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage role grants in the local grant store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:       "list [globalRoles|projectRoles]",
			Short:     "List stored grants",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{string(roles.ScopeGlobal), string(roles.ScopeProject)},
			RunE: func(cmd *cobra.Command, args []string) error {
				scopes := roles.Scopes()
				if len(args) == 1 {
					scope, err := parseScopeArg(args[0])
					if err != nil {
						return err
					}
					scopes = []roles.Scope{scope}
				}

				return a.withGrantStore(func(store *roles.GrantStore) error {
					w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "SCOPE\tROLE\tIDENTITY")
					for _, scope := range scopes {
						grants, err := store.List(scope)
						if err != nil {
							return err
						}
						for _, g := range grants {
							fmt.Fprintf(w, "%s\t%s\t%s\n", g.Scope, g.Role, g.Identity)
						}
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "grant <scope> <role> <identity>",
			Short: "Grant a role to an identity",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				scope, err := parseScopeArg(args[0])
				if err != nil {
					return err
				}
				return a.withGrantStore(func(store *roles.GrantStore) error {
					if err := store.Grant(scope, args[1], args[2]); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "granted %s to %s in %s\n", args[1], args[2], scope)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke <scope> <role> <identity>",
			Short: "Revoke a role from an identity",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				scope, err := parseScopeArg(args[0])
				if err != nil {
					return err
				}
				return a.withGrantStore(func(store *roles.GrantStore) error {
					removed, err := store.Revoke(scope, args[1], args[2])
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("%s does not hold %s in %s", args[2], args[1], scope)
					}
					fmt.Fprintf(a.out, "revoked %s from %s in %s\n", args[1], args[2], scope)
					return nil
				})
			},
		},
	)

	return cmd
}

// withGrantStore opens the configured grant store, creating it when missing
func (a *App) withGrantStore(fn func(*roles.GrantStore) error) error {
	cfg, _, err := a.settings()
	if err != nil {
		return err
	}
	path, _, err := grantStorePath(cfg)
	if err != nil {
		return err
	}

	store, err := roles.OpenGrantStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(store)
}

func parseScopeArg(s string) (roles.Scope, error) {
	scope, ok := roles.ParseScope(s)
	if !ok {
		return "", fmt.Errorf("unknown scope %q (want globalRoles or projectRoles)", s)
	}
	return scope, nil
}
