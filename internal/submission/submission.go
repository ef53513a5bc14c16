// Package submission maps submitted selections onto a parameter's effective values
package submission

import (
	"fmt"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
)

// Match is the form submission path. Text boxes return the first submitted
// value verbatim; every other type keeps, in submission order, the values
// present in the comma list effective, joined by the parameter's delimiter.
func Match(p *parameter.Parameter, submitted []string, effective string) string {
	if p.Type.IsTextBox() {
		if len(submitted) == 0 {
			return ""
		}
		return submitted[0]
	}

	allowed := make(map[string]struct{})
	for _, v := range strings.Split(effective, ",") {
		allowed[v] = struct{}{}
	}

	kept := make([]string, 0, len(submitted))
	for _, v := range submitted {
		if _, ok := allowed[v]; ok {
			kept = append(kept, v)
		}
	}

	return quoteIf(p, strings.Join(kept, delimiter(p)))
}

// MatchStructured is the structured (JSON) submission path.
// For multi-level types the payload lists every level of every selection in
// order; the last level of each group of N values is the selected leaf,
// where N is the number of configured level names.
func MatchStructured(p *parameter.Parameter, payload Payload) (string, error) {
	var value string

	switch {
	case payload.Single:
		value = payload.Values[0]

	case p.IsMultiLevel():
		levels := len(p.LevelNames())
		if levels == 0 {
			return "", errors.NewSubmissionError(p.Name, "no levels configured")
		}
		if len(payload.Values)%levels != 0 {
			return "", errors.NewSubmissionError(p.Name,
				fmt.Sprintf("%d values do not form whole selections of %d levels", len(payload.Values), levels))
		}

		leaves := make([]string, 0, len(payload.Values)/levels)
		for i := levels - 1; i < len(payload.Values); i += levels {
			leaves = append(leaves, payload.Values[i])
		}
		value = strings.Join(leaves, delimiter(p))

	default:
		value = strings.Join(payload.Values, delimiter(p))
	}

	return quoteIf(p, value), nil
}

func delimiter(p *parameter.Parameter) string {
	if p.MultiSelectDelimiter == "" {
		return parameter.DefaultMultiSelectDelimiter
	}
	return p.MultiSelectDelimiter
}

func quoteIf(p *parameter.Parameter, v string) string {
	if p.QuoteValue {
		return `"` + v + `"`
	}
	return v
}
