package parameter

import (
	"fmt"
	"strings"
)

// Type identifies how a parameter presents its choices
type Type string

// Parameter types. The string values are the identifiers stored in job definitions.
const (
	TypeSingleSelect           Type = "PT_SINGLE_SELECT"
	TypeMultiSelect            Type = "PT_MULTI_SELECT"
	TypeCheckbox               Type = "PT_CHECKBOX"
	TypeRadio                  Type = "PT_RADIO"
	TypeTextBox                Type = "PT_TEXTBOX"
	TypeMultiLevelSingleSelect Type = "PT_MULTI_LEVEL_SINGLE_SELECT"
	TypeMultiLevelMultiSelect  Type = "PT_MULTI_LEVEL_MULTI_SELECT"
)

var validTypes = map[Type]bool{
	TypeSingleSelect:           true,
	TypeMultiSelect:            true,
	TypeCheckbox:               true,
	TypeRadio:                  true,
	TypeTextBox:                true,
	TypeMultiLevelSingleSelect: true,
	TypeMultiLevelMultiSelect:  true,
}

// AllTypes returns every recognised type in display order
func AllTypes() []Type {
	return []Type{
		TypeSingleSelect,
		TypeMultiSelect,
		TypeCheckbox,
		TypeRadio,
		TypeTextBox,
		TypeMultiLevelSingleSelect,
		TypeMultiLevelMultiSelect,
	}
}

// ParseType converts a stored identifier into a Type
func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown parameter type: %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the recognised types
func (t Type) Valid() bool {
	return validTypes[t]
}

// IsMultiLevel reports whether t renders a hierarchy of dependent dropdowns
func (t Type) IsMultiLevel() bool {
	return t == TypeMultiLevelSingleSelect || t == TypeMultiLevelMultiSelect
}

// IsTextBox reports whether t accepts free text
func (t Type) IsTextBox() bool {
	return t == TypeTextBox
}

func (t Type) String() string {
	return string(t)
}
