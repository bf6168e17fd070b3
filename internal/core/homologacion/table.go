package homologacion

// Column names of the per-EPS homologation workbook. Matching against the
// actual workbook headers is trimmed-exact first, then case-insensitive
// substring.
const (
	ColumnSupplierCode = "Código Servicio de la ERP"
	ColumnDGHCode      = "Código producto en DGH"
	ColumnFactCode     = "COD_SERV_FACT"
)

// Row maps one supplier service code to the ERP side.
// CodigoFact is only populated for Mutualser tables.
type Row struct {
	CodigoProveedor string `json:"codigoProveedor"`
	CodigoDGH       string `json:"codigoDGH"`
	CodigoFact      string `json:"codigoFact,omitempty"`
}

// Table is the loaded per-EPS code map. MissingColumns lists required
// columns that were absent from the source workbook; lookups that depend on
// a missing column are disabled.
type Table struct {
	Rows           []Row
	HasFactColumn  bool
	MissingColumns []string
}

// Find returns the first row whose supplier code equals code exactly.
func (t *Table) Find(code string) (Row, bool) {
	for _, r := range t.Rows {
		if r.CodigoProveedor == code {
			return r, true
		}
	}
	return Row{}, false
}
