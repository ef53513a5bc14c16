package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/choice"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/submission"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Domain: Parameter Resolution
// This file contains the commands that compute parameter values

// maxParallelResolutions bounds concurrent source reads for values --all
const maxParallelResolutions = 8

func (a *App) createValuesCommand() *cobra.Command {
	var all, asJSON bool

	cmd := &cobra.Command{
		Use:               "values [parameter...]",
		Short:             "Print the effective candidate list of parameters",
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one parameter or use --all")
			}

			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			names := args
			if all {
				names = rt.job.Names()
			}

			values, err := rt.resolveAll(cmd, names, a.user)
			if err != nil {
				return err
			}

			if asJSON {
				return a.printJSON(values)
			}
			for _, v := range values {
				fmt.Fprintf(a.out, "%s=%s\n", v.Name, v.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Resolve every parameter of the job file concurrently")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// resolveAll computes the effective value of each named parameter, keeping the given order
func (rt *runtime) resolveAll(cmd *cobra.Command, names []string, identity string) ([]choice.Value, error) {
	params := make([]*parameter.Parameter, len(names))
	for i, name := range names {
		p, err := rt.parameter(name)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}

	values := make([]choice.Value, len(params))
	caller := rt.caller(identity)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelResolutions)

	for i, p := range params {
		g.Go(func() error {
			v, err := rt.service.EffectiveValue(ctx, p, caller)
			if err != nil {
				return err
			}
			values[i] = choice.Value{Name: p.Name, Value: v}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (a *App) createDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "defaults <parameter>",
		Short:             "Print the effective default list and the value used when nothing is submitted",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			p, err := rt.parameter(args[0])
			if err != nil {
				return err
			}
			caller := rt.caller(a.user)

			effective, err := rt.service.EffectiveDefaultValue(cmd.Context(), p, caller)
			if err != nil {
				return err
			}
			selected, err := rt.service.DefaultValueMap(cmd.Context(), p, caller)
			if err != nil {
				return err
			}
			value, ok, err := rt.service.DefaultParameterValue(cmd.Context(), p, caller)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "effective: %s\n", effective)
			fmt.Fprintf(a.out, "selected:  %s\n", strings.Join(sortedKeys(selected), ","))
			if ok {
				fmt.Fprintf(a.out, "value:     %s\n", value.Value)
			} else {
				fmt.Fprintln(a.out, "value:     (none)")
			}
			return nil
		},
	}
}

func (a *App) createSubmitCommand() *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "submit <parameter> [value...]",
		Short: "Compute the value recorded for a submission",
		Long: `Compute the value recorded for a submission.

Without --json the values are a form submission: they are matched against the
effective candidates. With --json the payload is a structured submission, either
a JSON string or an array of strings.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			p, err := rt.parameter(args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("json") {
				if len(args) > 1 {
					return fmt.Errorf("--json cannot be combined with positional values")
				}
				var structured submission.Payload
				if err := json.Unmarshal([]byte(payload), &structured); err != nil {
					return fmt.Errorf("invalid --json payload: %w", err)
				}
				v, err := rt.service.CreateValueFromPayload(cmd.Context(), p, structured)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, v.Value)
				return nil
			}

			v, ok, err := rt.service.CreateValue(cmd.Context(), p, rt.caller(a.user), args[1:])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "(no value)")
				return nil
			}
			fmt.Fprintln(a.out, v.Value)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "json", "", "Structured submission payload")
	return cmd
}

func (a *App) createHierarchyCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "hierarchy <parameter>",
		Short:             "Print the dependent dropdowns of a multi-level parameter",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			p, err := rt.parameter(args[0])
			if err != nil {
				return err
			}
			h, err := rt.service.Hierarchy(cmd.Context(), p)
			if err != nil {
				return err
			}

			for _, entry := range h.Entries() {
				fmt.Fprintf(a.out, "%s\n  %s\n", entry.ID, strings.Join(entry.Choices, ","))
			}
			return nil
		},
	}
}

func (a *App) createBoundCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "bound <parameter> <src>",
		Short:             "Print the choices of a select bound to another field",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			p, err := rt.parameter(args[0])
			if err != nil {
				return err
			}
			choices, err := rt.service.BoundChoices(cmd.Context(), p, p.PropertyFile, p.PropertyKey, args[1])
			if err != nil {
				return err
			}
			for _, c := range choices {
				fmt.Fprintln(a.out, c)
			}
			return nil
		},
	}
}

func (a *App) createCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "check <parameter>",
		Short:             "Check the property files of a parameter",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: CompleteParameterNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			p, err := rt.parameter(args[0])
			if err != nil {
				return err
			}
			value, defaults := rt.service.CheckParameter(cmd.Context(), p)
			printDiagnostic(a, "value", value)
			printDiagnostic(a, "default", defaults)
			return nil
		},
	}
}

func printDiagnostic(a *App, label string, d choice.Diagnostic) {
	if d.OK() {
		fmt.Fprintf(a.out, "%-8s ok\n", label+":")
		return
	}
	fmt.Fprintf(a.out, "%-8s %s: %s\n", label+":", d.Kind, d.Message)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
