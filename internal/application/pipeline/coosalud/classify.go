package coosalud

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"3tcapital/goglosas/internal/application/ingestion"
	"3tcapital/goglosas/internal/core/glosas"
)

// filePair is one DETALLE/GLOSAS couple sharing an invoice key.
type filePair struct {
	key     string
	detalle glosas.InputFile
	glosas  glosas.InputFile
}

var invoiceKeyPattern = regexp.MustCompile(`(?i)FC\d+`)

// classify groups the input files into DETALLE/GLOSAS pairs keyed by the
// FC<digits> token in the filename (or the full filename when absent).
// Devolución files are excluded up front; files without a counterpart and
// extra files for an already matched key are counted into skipped with a
// warning. Pairs come back in sorted key order.
func classify(files []glosas.InputFile) (pairs []filePair, skipped int, warnings []string) {
	type bucket struct {
		detalle *glosas.InputFile
		glosas  *glosas.InputFile
		count   int
	}

	buckets := make(map[string]*bucket)
	excluded := 0
	for i := range files {
		f := files[i]
		name := filepath.Base(f.Path)
		norm := ingestion.Normalize(name)

		if strings.Contains(norm, "devolucion") {
			excluded++
			continue
		}

		key := strings.ToUpper(invoiceKeyPattern.FindString(name))
		if key == "" {
			key = name
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		switch {
		case strings.Contains(norm, "detalle"):
			if b.detalle == nil {
				b.detalle = &f
			}
		case strings.Contains(norm, "glosa"):
			if b.glosas == nil {
				b.glosas = &f
			}
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	orphans := 0
	surplus := 0
	for _, k := range keys {
		b := buckets[k]
		if b.detalle != nil && b.glosas != nil {
			pairs = append(pairs, filePair{key: k, detalle: *b.detalle, glosas: *b.glosas})
			surplus += b.count - 2
			continue
		}
		orphans += b.count
	}

	skipped = excluded + orphans + surplus
	if excluded > 0 {
		warnings = append(warnings, fmt.Sprintf("%d devolucion files excluded", excluded))
	}
	if orphans > 0 {
		warnings = append(warnings, fmt.Sprintf("%s: %d files without a DETALLE/GLOSAS counterpart", glosas.ErrPairIncomplete, orphans))
	}
	if surplus > 0 {
		warnings = append(warnings, fmt.Sprintf("%d extra files ignored for already paired invoices", surplus))
	}
	return pairs, skipped, warnings
}
