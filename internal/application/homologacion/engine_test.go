package homologacion

import (
	"path/filepath"
	"testing"

	"3tcapital/goglosas/internal/adapters/excel"
	"3tcapital/goglosas/internal/core/glosas"
)

func seedMutualserTable(t *testing.T, dir string, rows [][]any) *Engine {
	t.Helper()
	writeTable(t, filepath.Join(dir, "homologacion_mutualser.xlsx"), rows)
	store := newTestStore(t, dir)
	return NewEngine(store, store.log)
}

func seedCoosaludTable(t *testing.T, dir string, rows [][]any) *Engine {
	t.Helper()
	writeTable(t, filepath.Join(dir, "homologacion_coosalud.xlsx"), rows)
	store := newTestStore(t, dir)
	return NewEngine(store, store.log)
}

func TestEngine_MutualserFactCodeValidation(t *testing.T) {
	engine := seedMutualserTable(t, t.TempDir(), [][]any{
		{"881141", "881141", "881141"},
		{"902210", "902210", "0"},
	})

	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"mapped and billable", "881141", "881141"},
		{"dgh valid but not billable", "902210", ""},
		{"unknown code", "777777", ""},
		{"empty input", "", ""},
		{"nan artifact", "nan", ""},
		{"whitespace trimmed", " 881141 ", "881141"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Resolve(glosas.EPSMutualser, tt.code)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, expected %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestEngine_DigitsOnlyFallback(t *testing.T) {
	engine := seedMutualserTable(t, t.TempDir(), [][]any{
		{"S-881141", "DGH-881141", "FAC881141"},
	})

	// Input "881141" has no exact row; its digits match S-881141. The dgh
	// candidate DGH-881141 is not an exact fact code, but its digits match
	// FAC881141, which is the value actually emitted.
	got, err := engine.Resolve(glosas.EPSMutualser, "881141")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "FAC881141" {
		t.Errorf("expected FAC881141, got %q", got)
	}
}

func TestEngine_CoosaludSingleStep(t *testing.T) {
	engine := seedCoosaludTable(t, t.TempDir(), [][]any{
		{"1234", "5678", ""},
		{"4321", "0", ""},
	})

	tests := []struct {
		code     string
		expected string
	}{
		{"1234", "5678"},
		{"4321", ""}, // dgh "0" is no mapping
		{"9999", ""},
	}

	for _, tt := range tests {
		got, err := engine.Resolve(glosas.EPSCoosalud, tt.code)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.expected {
			t.Errorf("Resolve(%q) = %q, expected %q", tt.code, got, tt.expected)
		}
	}
}

func TestEngine_ResolveMany(t *testing.T) {
	engine := seedCoosaludTable(t, t.TempDir(), [][]any{
		{"1234", "5678", ""},
	})

	results, err := engine.ResolveMany(glosas.EPSCoosalud, []string{"1234", "9999", "1234", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 distinct entries, got %d", len(results))
	}
	if results["1234"] != "5678" {
		t.Errorf("expected 5678, got %q", results["1234"])
	}
	if results["9999"] != "" || results[""] != "" {
		t.Errorf("expected empty resolutions, got %q / %q", results["9999"], results[""])
	}
}

func TestEngine_MissingTableResolvesEmpty(t *testing.T) {
	// No workbook on disk at all.
	store := newTestStore(t, t.TempDir())
	engine := NewEngine(store, store.log)

	got, err := engine.Resolve(glosas.EPSMutualser, "881141")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty resolution, got %q", got)
	}
}

func TestEngine_MissingColumnsReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "homologacion_mutualser.xlsx")
	cells := [][]any{
		{"columna uno", "columna dos"},
		{"881141", "x"},
	}
	if err := excel.New().WriteWorkbook(path, []glosas.SheetData{{Name: "Homologacion", Cells: cells}}); err != nil {
		t.Fatalf("write fixture table: %v", err)
	}
	store := newTestStore(t, dir)
	engine := NewEngine(store, store.log)

	missing, err := engine.MissingColumns(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want both required columns", missing)
	}

	got, err := engine.Resolve(glosas.EPSMutualser, "881141")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("Resolve = %q, want empty with an unusable table", got)
	}
}

func TestEngine_MissingColumnsEmptyOnHealthyTable(t *testing.T) {
	engine := seedMutualserTable(t, t.TempDir(), [][]any{
		{"881141", "881141", "881141"},
	})

	missing, err := engine.MissingColumns(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestEngine_MutationInvalidatesLookups(t *testing.T) {
	dir := t.TempDir()
	engine := seedCoosaludTable(t, dir, [][]any{
		{"1234", "5678", ""},
	})

	got, err := engine.Resolve(glosas.EPSCoosalud, "1234")
	if err != nil || got != "5678" {
		t.Fatalf("seed resolution failed: %q, %v", got, err)
	}

	if err := engine.store.DeleteRow(glosas.EPSCoosalud, "1234"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err = engine.Resolve(glosas.EPSCoosalud, "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty resolution after delete, got %q", got)
	}
}
