package glosas

import (
	"strings"
	"time"
	"unicode"
)

// DetailRecord is the EPS-agnostic canonical view of one billed service line
// with its objection metadata.
type DetailRecord struct {
	InvoiceID           string
	GlosaID             string
	ServiceCodeSupplier string
	QtyBilled           string
	QtyRejected         string
	AmountBilled        string
	AmountRejected      string
	Concept             string
	ObjectionCode       string
	Observation         string
	InvoiceDate         time.Time
	ServiceCodeERP      string
	ServiceCodeUnmapped string
	RegGlosa            string
	EmailReceivedAt     time.Time
}

// FileMetadata carries the sheet-level values extracted above the header row.
type FileMetadata struct {
	DocumentDate time.Time
	InvoiceID    string
}

// DigitsOnly strips every non-digit rune. Supplier codes and invoice ids
// are compared on this form when exact matching fails.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
