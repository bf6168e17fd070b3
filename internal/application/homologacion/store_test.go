package homologacion

import (
	"os"
	"path/filepath"
	"testing"

	"3tcapital/goglosas/internal/adapters/excel"
	"3tcapital/goglosas/internal/core/glosas"
	corehomologacion "3tcapital/goglosas/internal/core/homologacion"
	"3tcapital/goglosas/internal/testutil"
)

func writeTable(t *testing.T, path string, rows [][]any) {
	t.Helper()
	cells := [][]any{{corehomologacion.ColumnSupplierCode, corehomologacion.ColumnDGHCode, corehomologacion.ColumnFactCode}}
	cells = append(cells, rows...)
	if err := excel.New().WriteWorkbook(path, []glosas.SheetData{{Name: "Homologacion", Cells: cells}}); err != nil {
		t.Fatalf("write fixture table: %v", err)
	}
}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	adapter := excel.New()
	paths := map[glosas.EPS]string{
		glosas.EPSMutualser: filepath.Join(dir, "homologacion_mutualser.xlsx"),
		glosas.EPSCoosalud:  filepath.Join(dir, "homologacion_coosalud.xlsx"),
	}
	return NewStore(paths, adapter, adapter, testutil.NewNullLogger())
}

func TestStore_LoadMissingFileYieldsEmptyTable(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	table, err := store.Load(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected empty table, got %d rows", len(table.Rows))
	}
}

func TestStore_LoadAndCacheByContentHash(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	path := filepath.Join(dir, "homologacion_mutualser.xlsx")

	writeTable(t, path, [][]any{{"881141", "881141", "881141"}})

	table, err := store.Load(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}

	// Same content: the same table pointer must be served.
	again, err := store.Load(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != table {
		t.Error("expected cached table for unchanged content")
	}

	// New content invalidates the cache even though the path is unchanged.
	writeTable(t, path, [][]any{
		{"881141", "881141", "881141"},
		{"902210", "902210", "0"},
	})
	refreshed, err := store.Load(glosas.EPSMutualser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refreshed.Rows) != 2 {
		t.Errorf("expected refreshed table with 2 rows, got %d", len(refreshed.Rows))
	}
}

func TestStore_CachedWithoutLoad(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	if store.Cached(glosas.EPSCoosalud) != nil {
		t.Error("expected nil before any Load")
	}
}

func TestStore_SaveWritesBackup(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	path := filepath.Join(dir, "homologacion_coosalud.xlsx")

	writeTable(t, path, [][]any{{"1234", "5678", ""}})
	table, err := store.Load(glosas.EPSCoosalud)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := cloneTable(table)
	updated.Rows = append(updated.Rows, corehomologacion.Row{CodigoProveedor: "9999", CodigoDGH: "8888"})
	if err := store.Save(glosas.EPSCoosalud, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("backups directory not created: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	name := backups[0].Name()
	if filepath.Ext(name) != ".xlsx" || name[:len("coosalud_backup_")] != "coosalud_backup_" {
		t.Errorf("unexpected backup name %q", name)
	}

	reloaded, err := store.Load(glosas.EPSCoosalud)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reloaded.Rows) != 2 {
		t.Errorf("expected saved table with 2 rows, got %d", len(reloaded.Rows))
	}
}

func TestStore_CRUD(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	eps := glosas.EPSMutualser

	if err := store.AddRow(eps, corehomologacion.Row{CodigoProveedor: "881141", CodigoDGH: "881141", CodigoFact: "881141"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.AddRow(eps, corehomologacion.Row{CodigoProveedor: "881141", CodigoDGH: "x"}); err == nil {
		t.Fatal("expected duplicate add to fail")
	}

	if err := store.UpdateRow(eps, "881141", corehomologacion.Row{CodigoDGH: "999999", CodigoFact: "999999"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	table, err := store.Load(eps)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	row, ok := table.Find("881141")
	if !ok || row.CodigoDGH != "999999" {
		t.Fatalf("expected updated row, got %+v (found=%v)", row, ok)
	}

	if err := store.DeleteRow(eps, "881141"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteRow(eps, "881141"); err == nil {
		t.Fatal("expected delete of absent code to fail")
	}

	table, err = store.Load(eps)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected empty table after delete, got %d rows", len(table.Rows))
	}
}

func TestStore_MissingRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	path := filepath.Join(dir, "homologacion_coosalud.xlsx")

	cells := [][]any{
		{"Columna rara", "Otra"},
		{"x", "y"},
	}
	if err := excel.New().WriteWorkbook(path, []glosas.SheetData{{Name: "Homologacion", Cells: cells}}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := store.Load(glosas.EPSCoosalud)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.MissingColumns) != 2 {
		t.Errorf("expected 2 missing columns, got %v", table.MissingColumns)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected no rows loaded, got %d", len(table.Rows))
	}
}

func TestStore_ColumnMatchingTolerance(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	path := filepath.Join(dir, "homologacion_coosalud.xlsx")

	// Accent-less, case-shuffled headers must still match.
	cells := [][]any{
		{"codigo servicio de la erp", "CODIGO PRODUCTO EN DGH"},
		{"1234", "5678"},
	}
	if err := excel.New().WriteWorkbook(path, []glosas.SheetData{{Name: "Homologacion", Cells: cells}}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := store.Load(glosas.EPSCoosalud)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}
	if table.Rows[0].CodigoDGH != "5678" {
		t.Errorf("unexpected dgh code %q", table.Rows[0].CodigoDGH)
	}
}
