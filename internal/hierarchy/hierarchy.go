// Package hierarchy builds the dependent dropdowns of multi-level parameters
// from tab-delimited data
package hierarchy

import (
	"fmt"
	"strings"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/errors"
)

// Prefix returns the root dropdown id of parameter name
func Prefix(name string) string {
	return name + " dropdown MultiLevelMultiSelect 0"
}

// Placeholder returns the "Select a <level>..." choice for a level column name
func Placeholder(levelName string) string {
	pretty := strings.ReplaceAll(strings.ToLower(levelName), "_", " ")
	return "Select a " + pretty + "..."
}

// Entry is one dropdown and its choices
type Entry struct {
	ID      string   `json:"id"`
	Choices []string `json:"choices"`
}

// Hierarchy maps dropdown ids to their choices, both in insertion order.
// It is read-only once returned by a Builder.
type Hierarchy struct {
	ids     []string
	choices map[string]*orderedSet
}

// DropdownIDs returns every dropdown id in construction order
func (h *Hierarchy) DropdownIDs() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// JoinedDropdownIDs returns the dropdown ids comma-joined
func (h *Hierarchy) JoinedDropdownIDs() string {
	return strings.Join(h.ids, ",")
}

// Choices returns the choices of one dropdown
func (h *Hierarchy) Choices(id string) ([]string, bool) {
	set, ok := h.choices[id]
	if !ok {
		return nil, false
	}
	return set.values(), true
}

// ChoicesByDropdownID returns each dropdown's choices comma-joined
func (h *Hierarchy) ChoicesByDropdownID() map[string]string {
	out := make(map[string]string, len(h.ids))
	for _, id := range h.ids {
		out[id] = strings.Join(h.choices[id].items, ",")
	}
	return out
}

// Entries returns the dropdowns in construction order
func (h *Hierarchy) Entries() []Entry {
	out := make([]Entry, 0, len(h.ids))
	for _, id := range h.ids {
		out = append(out, Entry{ID: id, Choices: h.choices[id].values()})
	}
	return out
}

type level struct {
	name   string
	column int
}

// Builder performs the single build pass over tabular rows
type Builder struct {
	parameter string
	levels    []string

	hierarchy *Hierarchy
	done      bool
}

// NewBuilder creates a builder for parameter with the configured level column names
func NewBuilder(parameter string, levelNames []string) *Builder {
	return &Builder{parameter: parameter, levels: levelNames}
}

// Build partitions rows (header first) into dropdowns.
// Fewer than two rows, or a data row missing a level column, is a configuration error.
// A builder builds once; later calls return the same hierarchy.
func (b *Builder) Build(rows [][]string) (*Hierarchy, error) {
	if b.done {
		return b.hierarchy, nil
	}

	if len(rows) < 2 {
		return nil, errors.NewConfigError(b.parameter,
			"multi level tab delimited file must have at least 2 lines (one for the header, and one or more for the data)")
	}

	levels := b.resolveLevels(rows[0])
	data := rows[1:]

	for n, row := range data {
		for _, l := range levels {
			if l.column >= len(row) {
				return nil, errors.NewConfigError(b.parameter,
					fmt.Sprintf("data line %d has no value for level %q", n+2, l.name))
			}
		}
	}

	prefix := Prefix(b.parameter)
	h := &Hierarchy{choices: make(map[string]*orderedSet)}
	h.register(prefix)

	for i, current := range levels {
		placeholder := Placeholder(current.name)
		last := i == len(levels)-1

		for _, row := range data {
			prior := prefix
			for _, ancestor := range levels[:i] {
				prior += " " + row[ancestor.column]
			}
			cell := row[current.column]

			if !last {
				h.register(prior + " " + cell)
			}

			set := h.choices[prior]
			set.add(placeholder)
			set.add(cell)
		}
	}

	b.hierarchy = h
	b.done = true
	return h, nil
}

// resolveLevels maps each configured name to the first header column equal to it;
// names with no such column are skipped
func (b *Builder) resolveLevels(header []string) []level {
	var levels []level
	for _, name := range b.levels {
		for i, col := range header {
			if col == name {
				levels = append(levels, level{name: name, column: i})
				break
			}
		}
	}
	return levels
}

// Root returns a hierarchy holding only the empty root dropdown of parameter
func Root(parameter string) *Hierarchy {
	h := &Hierarchy{choices: make(map[string]*orderedSet)}
	h.register(Prefix(parameter))
	return h
}

// Build is a convenience for NewBuilder(parameter, levelNames).Build(rows)
func Build(parameter string, levelNames []string, rows [][]string) (*Hierarchy, error) {
	return NewBuilder(parameter, levelNames).Build(rows)
}

func (h *Hierarchy) register(id string) {
	if _, ok := h.choices[id]; ok {
		return
	}
	h.ids = append(h.ids, id)
	h.choices[id] = &orderedSet{index: make(map[string]struct{})}
}

type orderedSet struct {
	items []string
	index map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
