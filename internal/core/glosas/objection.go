package glosas

import "github.com/shopspring/decimal"

// GenUsuario4 is the fixed ERP user id stamped on every objection row.
const GenUsuario4 int64 = 1103858268

// ObjectionSheetName is the single sheet the ERP loader expects.
const ObjectionSheetName = "OBJECIONES"

// ObjectionColumns is the ERP ingestion contract, in strict order.
var ObjectionColumns = []string{
	"CDCONSEC", "CDFECDOC", "CRNCXC", "CROFECOBJ", "CROREFERE",
	"CROOBSERV", "CROCLAOBJ", "GENUSUARIO4", "CRNCONOBJ", "SLNSERPRO",
	"CTNCENCOS", "IDRIPS", "CROVALOBJ", "CRDOBSERV",
}

// ObjectionRow is one ERP-bound objection record.
type ObjectionRow struct {
	CDConsec    int
	CDFecDoc    string
	CRNCxC      string
	CROFecObj   string
	CRORefere   string
	CROObserv   string
	CROClaObj   int
	GenUsuario4 int64
	CRNConObj   string
	SLNSerPro   string
	CTNCenCos   string
	IDRips      string
	CROValObj   decimal.Decimal
	CRDObserv   string
}

// Cells renders the row following ObjectionColumns order. Integral amounts
// are written as integers so the ERP does not reject whole-peso values.
func (r ObjectionRow) Cells() []any {
	var amount any
	if r.CROValObj.IsInteger() {
		amount = r.CROValObj.IntPart()
	} else {
		amount = r.CROValObj.InexactFloat64()
	}
	return []any{
		r.CDConsec, r.CDFecDoc, r.CRNCxC, r.CROFecObj, r.CRORefere,
		r.CROObserv, r.CROClaObj, r.GenUsuario4, r.CRNConObj, r.SLNSerPro,
		r.CTNCenCos, r.IDRips, amount, r.CRDObserv,
	}
}
