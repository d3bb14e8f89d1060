package domain

// Selection is the single source of truth for what a console is looking at.
// At most one of StateID and OperationID is set, and both are scoped to TypeCode.
type Selection struct {
	TypeCode    string `json:"typeCode"`
	StateID     string `json:"stateId"`
	OperationID string `json:"operationId"`
}

// SelectType selects a type and clears the state and operation selection.
func (s *Selection) SelectType(code string) {
	s.TypeCode = code
	s.StateID = ""
	s.OperationID = ""
}

// SelectState selects a state of the current type and clears the operation selection.
// An empty id deselects.
func (s *Selection) SelectState(id string) {
	s.StateID = id
	s.OperationID = ""
}

// SelectOperation selects an operation of the current type and clears the state selection.
// An empty id deselects.
func (s *Selection) SelectOperation(id string) {
	s.OperationID = id
	s.StateID = ""
}

// Clear resets the selection.
func (s *Selection) Clear() {
	*s = Selection{}
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.TypeCode == "" && s.StateID == "" && s.OperationID == ""
}

// Normalize enforces the state/operation exclusivity on a restored snapshot.
// A snapshot that names both keeps the state.
func (s Selection) Normalize() Selection {
	if s.TypeCode == "" {
		return Selection{}
	}
	if s.StateID != "" {
		s.OperationID = ""
	}
	return s
}

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme maps a stored value to a theme, defaulting to light.
func ParseTheme(v string) Theme {
	if Theme(v) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
