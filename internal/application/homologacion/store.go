package homologacion

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"3tcapital/goglosas/internal/application/ingestion"
	"3tcapital/goglosas/internal/core/glosas"
	corehomologacion "3tcapital/goglosas/internal/core/homologacion"
)

// Store loads, caches and persists the per-EPS homologation workbooks.
// The cache is process-wide and keyed by content hash, so a table edited
// behind the service's back (shared drives reset mtimes) is still picked up.
type Store struct {
	mu      sync.RWMutex
	log     *slog.Logger
	reader  glosas.GridReader
	writer  glosas.WorkbookWriter
	paths   map[glosas.EPS]string
	entries map[glosas.EPS]*tableEntry
	now     func() time.Time
}

// tableEntry is one cached table plus its lazily-built lookup indexes.
// Indexes are rebuilt from scratch on every refresh or mutation; they are
// never patched in place.
type tableEntry struct {
	table      *corehomologacion.Table
	sourcePath string
	hash       string

	once       sync.Once
	lookup     map[string]corehomologacion.Row
	digits     map[string]corehomologacion.Row
	factSet    map[string]struct{}
	factDigits map[string]string
}

// NewStore creates a store over the given table paths.
func NewStore(paths map[glosas.EPS]string, reader glosas.GridReader, writer glosas.WorkbookWriter, log *slog.Logger) *Store {
	return &Store{
		log:     log,
		reader:  reader,
		writer:  writer,
		paths:   paths,
		entries: make(map[glosas.EPS]*tableEntry),
		now:     time.Now,
	}
}

// Load returns the homologation table for an EPS, reusing the cached copy
// when the workbook bytes have not changed. A missing workbook yields an
// empty table: every supplier code will then be reported as unmapped.
func (s *Store) Load(eps glosas.EPS) (*corehomologacion.Table, error) {
	path, ok := s.paths[eps]
	if !ok {
		return nil, fmt.Errorf("no homologation table configured for EPS %q", eps)
	}

	hash, err := fileMD5(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn("homologation workbook not found, all codes will be unmapped", "eps", eps, "path", path)
			entry := &tableEntry{table: &corehomologacion.Table{}, sourcePath: path}
			s.mu.Lock()
			s.entries[eps] = entry
			s.mu.Unlock()
			return entry.table, nil
		}
		return nil, fmt.Errorf("hash homologation workbook %s: %w", path, err)
	}

	s.mu.RLock()
	entry := s.entries[eps]
	s.mu.RUnlock()
	if entry != nil && entry.hash == hash {
		return entry.table, nil
	}

	table, err := s.readTable(eps, path)
	if err != nil {
		return nil, err
	}

	entry = &tableEntry{table: table, sourcePath: path, hash: hash}
	s.mu.Lock()
	s.entries[eps] = entry
	s.mu.Unlock()

	s.log.Info("homologation table loaded",
		"eps", eps,
		"rows", len(table.Rows),
		"fact_column", table.HasFactColumn,
		"missing_columns", table.MissingColumns,
	)
	return table, nil
}

// Cached returns the in-memory table for an EPS without touching the file,
// or nil when nothing has been loaded yet.
func (s *Store) Cached(eps glosas.EPS) *corehomologacion.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry := s.entries[eps]; entry != nil {
		return entry.table
	}
	return nil
}

// Save persists a table for an EPS, writing a timestamped backup of the
// previous workbook first. On any failure the cache is left unchanged.
func (s *Store) Save(eps glosas.EPS, table *corehomologacion.Table) error {
	path, ok := s.paths[eps]
	if !ok {
		return fmt.Errorf("no homologation table configured for EPS %q", eps)
	}

	if err := s.backup(eps, path); err != nil {
		return err
	}

	columns := []string{corehomologacion.ColumnSupplierCode, corehomologacion.ColumnDGHCode}
	if table.HasFactColumn {
		columns = append(columns, corehomologacion.ColumnFactCode)
	}

	cells := [][]any{toAnyRow(columns)}
	for _, row := range table.Rows {
		record := []any{row.CodigoProveedor, row.CodigoDGH}
		if table.HasFactColumn {
			record = append(record, row.CodigoFact)
		}
		cells = append(cells, record)
	}

	if err := s.writer.WriteWorkbook(path, []glosas.SheetData{{Name: "Homologacion", Cells: cells}}); err != nil {
		return fmt.Errorf("write homologation workbook %s: %w", path, err)
	}

	hash, err := fileMD5(path)
	if err != nil {
		return fmt.Errorf("hash saved workbook %s: %w", path, err)
	}

	// Replace the whole entry so every derived lookup is invalidated
	// atomically with respect to future resolutions.
	s.mu.Lock()
	s.entries[eps] = &tableEntry{table: table, sourcePath: path, hash: hash}
	s.mu.Unlock()

	s.log.Info("homologation table saved", "eps", eps, "rows", len(table.Rows))
	return nil
}

// AddRow appends a mapping. The supplier code must not already exist.
func (s *Store) AddRow(eps glosas.EPS, row corehomologacion.Row) error {
	table, err := s.Load(eps)
	if err != nil {
		return err
	}

	code := strings.TrimSpace(row.CodigoProveedor)
	if code == "" {
		return errors.New("supplier code is required")
	}
	if _, exists := table.Find(code); exists {
		return fmt.Errorf("supplier code %q already mapped for EPS %q", code, eps)
	}

	updated := cloneTable(table)
	row.CodigoProveedor = code
	if row.CodigoFact != "" {
		updated.HasFactColumn = true
	}
	updated.Rows = append(updated.Rows, row)
	return s.Save(eps, updated)
}

// UpdateRow replaces the mapping for a supplier code.
func (s *Store) UpdateRow(eps glosas.EPS, code string, row corehomologacion.Row) error {
	table, err := s.Load(eps)
	if err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	updated := cloneTable(table)
	for i, existing := range updated.Rows {
		if existing.CodigoProveedor == code {
			row.CodigoProveedor = code
			updated.Rows[i] = row
			return s.Save(eps, updated)
		}
	}
	return fmt.Errorf("supplier code %q not found for EPS %q", code, eps)
}

// DeleteRow removes the mapping for a supplier code.
func (s *Store) DeleteRow(eps glosas.EPS, code string) error {
	table, err := s.Load(eps)
	if err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	updated := cloneTable(table)
	for i, existing := range updated.Rows {
		if existing.CodigoProveedor == code {
			updated.Rows = append(updated.Rows[:i], updated.Rows[i+1:]...)
			return s.Save(eps, updated)
		}
	}
	return fmt.Errorf("supplier code %q not found for EPS %q", code, eps)
}

// entry ensures the table and its lookup indexes are available for the engine.
func (s *Store) entry(eps glosas.EPS) (*tableEntry, error) {
	if _, err := s.Load(eps); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry := s.entries[eps]
	s.mu.RUnlock()
	entry.buildIndexes()
	return entry, nil
}

// buildIndexes populates the derived lookup maps, once per entry generation.
func (e *tableEntry) buildIndexes() {
	e.once.Do(func() {
		e.lookup = make(map[string]corehomologacion.Row, len(e.table.Rows))
		e.digits = make(map[string]corehomologacion.Row, len(e.table.Rows))
		e.factSet = make(map[string]struct{})
		e.factDigits = make(map[string]string)

		for _, row := range e.table.Rows {
			if _, dup := e.lookup[row.CodigoProveedor]; !dup {
				e.lookup[row.CodigoProveedor] = row
			}
			if d := glosas.DigitsOnly(row.CodigoProveedor); d != "" {
				if _, dup := e.digits[d]; !dup {
					e.digits[d] = row
				}
			}
			fact := strings.TrimSpace(row.CodigoFact)
			if fact == "" {
				continue
			}
			e.factSet[fact] = struct{}{}
			if d := glosas.DigitsOnly(fact); d != "" {
				if _, dup := e.factDigits[d]; !dup {
					e.factDigits[d] = fact
				}
			}
		}
	})
}

// readTable parses the homologation workbook: first row is the header,
// columns matched by trimmed exact name then accent/case-insensitive
// substring.
func (s *Store) readTable(eps glosas.EPS, path string) (*corehomologacion.Table, error) {
	grid, err := s.reader.ReadGrid(path)
	if err != nil {
		return nil, fmt.Errorf("read homologation workbook %s: %w", path, err)
	}
	if len(grid) == 0 {
		return &corehomologacion.Table{MissingColumns: []string{corehomologacion.ColumnSupplierCode, corehomologacion.ColumnDGHCode}}, nil
	}

	header := grid[0]
	supplierIdx := findColumn(header, corehomologacion.ColumnSupplierCode)
	dghIdx := findColumn(header, corehomologacion.ColumnDGHCode)
	factIdx := findColumn(header, corehomologacion.ColumnFactCode)

	table := &corehomologacion.Table{HasFactColumn: factIdx >= 0}
	if supplierIdx < 0 {
		table.MissingColumns = append(table.MissingColumns, corehomologacion.ColumnSupplierCode)
	}
	if dghIdx < 0 {
		table.MissingColumns = append(table.MissingColumns, corehomologacion.ColumnDGHCode)
	}
	if len(table.MissingColumns) > 0 {
		s.log.Warn("homologation workbook is missing required columns",
			"eps", eps,
			"path", path,
			"missing", table.MissingColumns,
		)
		return table, nil
	}

	for _, row := range grid[1:] {
		record := corehomologacion.Row{
			CodigoProveedor: cellAt(row, supplierIdx),
			CodigoDGH:       cellAt(row, dghIdx),
		}
		if factIdx >= 0 {
			record.CodigoFact = cellAt(row, factIdx)
		}
		if record.CodigoProveedor == "" {
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// backup copies the current workbook into a sibling backups/ directory.
func (s *Store) backup(eps glosas.EPS, path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // first save, nothing to back up
	}
	if err != nil {
		return fmt.Errorf("open workbook for backup: %w", err)
	}
	defer src.Close()

	backupDir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s_backup_%s.xlsx", eps, s.now().Format("20060102_150405"))
	dst, err := os.Create(filepath.Join(backupDir, name))
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy backup: %w", err)
	}

	s.log.Info("homologation backup written", "eps", eps, "file", name)
	return nil
}

func findColumn(header []string, want string) int {
	trimmedWant := strings.TrimSpace(want)
	for i, cell := range header {
		if strings.TrimSpace(cell) == trimmedWant {
			return i
		}
	}
	normWant := ingestion.Normalize(want)
	for i, cell := range header {
		got := ingestion.Normalize(cell)
		if got == "" {
			continue
		}
		if strings.Contains(got, normWant) || strings.Contains(normWant, got) {
			return i
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return ingestion.CleanCell(row[idx])
}

func cloneTable(t *corehomologacion.Table) *corehomologacion.Table {
	clone := &corehomologacion.Table{
		Rows:           make([]corehomologacion.Row, len(t.Rows)),
		HasFactColumn:  t.HasFactColumn,
		MissingColumns: append([]string(nil), t.MissingColumns...),
	}
	copy(clone.Rows, t.Rows)
	return clone
}

// fileMD5 hashes the workbook bytes in 4 KB chunks. Content hashing, not
// mtime, because network file systems reset timestamps.
func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, 4096)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func toAnyRow(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
