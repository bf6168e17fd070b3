package homologacion

import (
	"log/slog"
	"strings"

	"3tcapital/goglosas/internal/core/glosas"
)

// Engine resolves supplier service codes into ERP codes using the cached
// per-EPS tables of the Store.
type Engine struct {
	store *Store
	log   *slog.Logger
}

// NewEngine creates an engine over the given store.
func NewEngine(store *Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Resolve maps one supplier code to an ERP code, or empty when no valid
// mapping exists.
func (e *Engine) Resolve(eps glosas.EPS, code string) (string, error) {
	results, err := e.ResolveMany(eps, []string{code})
	if err != nil {
		return "", err
	}
	return results[code], nil
}

// MissingColumns reports the required columns absent from the loaded
// homologation table. A non-empty result means every resolution for that
// EPS comes back unmapped.
func (e *Engine) MissingColumns(eps glosas.EPS) ([]string, error) {
	entry, err := e.store.entry(eps)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), entry.table.MissingColumns...), nil
}

// ResolveMany maps a batch of supplier codes. The table is loaded once and
// repeated codes are memoized, so resolving a whole detail table is two hash
// probes per distinct code.
func (e *Engine) ResolveMany(eps glosas.EPS, codes []string) (map[string]string, error) {
	entry, err := e.store.entry(eps)
	if err != nil {
		return nil, err
	}

	results := make(map[string]string, len(codes))
	for _, code := range codes {
		if _, done := results[code]; done {
			continue
		}
		results[code] = resolveOne(eps, entry, code)
	}
	return results, nil
}

func resolveOne(eps glosas.EPS, entry *tableEntry, raw string) string {
	code := normalizeCode(raw)
	if code == "" {
		return ""
	}

	row, ok := entry.lookup[code]
	if !ok {
		if d := glosas.DigitsOnly(code); d != "" {
			row, ok = entry.digits[d]
		}
	}
	if !ok {
		return ""
	}

	candidate := normalizeCode(row.CodigoDGH)
	if candidate == "" || candidate == "0" {
		return ""
	}

	if eps == glosas.EPSCoosalud {
		return candidate
	}

	// Mutualser: the DGH code is only emitted when it is itself billable,
	// i.e. it occurs as some row's COD_SERV_FACT. The emitted value is the
	// fact code string actually present in the table.
	if _, ok := entry.factSet[candidate]; ok {
		return candidate
	}
	if d := glosas.DigitsOnly(candidate); d != "" {
		if fact, ok := entry.factDigits[d]; ok {
			return fact
		}
	}
	return ""
}

// normalizeCode trims and rejects the empty-cell artifacts seen in supplier
// exports ("nan" comes from spreadsheet round-trips).
func normalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	if code == "" || strings.EqualFold(code, "nan") || strings.EqualFold(code, "null") {
		return ""
	}
	return code
}
