package domain

import "testing"

func TestSelection_MutualExclusion(t *testing.T) {
	var s Selection
	s.SelectType("T1")
	s.SelectOperation("op-1")
	s.SelectState("st-1")
	if s.OperationID != "" {
		t.Errorf("selecting a state must clear the operation, got %q", s.OperationID)
	}
	if s.StateID != "st-1" {
		t.Errorf("expected state st-1, got %q", s.StateID)
	}

	s.SelectOperation("op-2")
	if s.StateID != "" {
		t.Errorf("selecting an operation must clear the state, got %q", s.StateID)
	}

	s.SelectType("T2")
	if s.StateID != "" || s.OperationID != "" {
		t.Errorf("selecting a type must clear state and operation, got %+v", s)
	}
	if s.TypeCode != "T2" {
		t.Errorf("expected type T2, got %q", s.TypeCode)
	}

	s.Clear()
	if !s.IsZero() {
		t.Errorf("expected empty selection after Clear, got %+v", s)
	}
}

func TestSelection_Normalize(t *testing.T) {
	got := Selection{TypeCode: "T", StateID: "s", OperationID: "o"}.Normalize()
	if got.OperationID != "" || got.StateID != "s" {
		t.Errorf("unexpected normalized selection %+v", got)
	}
	if !(Selection{StateID: "s"}).Normalize().IsZero() {
		t.Error("a selection without type must normalize to empty")
	}
}

func TestTheme(t *testing.T) {
	if ParseTheme("dark") != ThemeDark || ParseTheme("") != ThemeLight || ParseTheme("neon") != ThemeLight {
		t.Error("ParseTheme mapping is wrong")
	}
	if ThemeLight.Toggle() != ThemeDark || ThemeDark.Toggle() != ThemeLight {
		t.Error("Toggle mapping is wrong")
	}
}
