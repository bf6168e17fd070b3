package mutualser

import (
	"strings"

	"3tcapital/goglosas/internal/core/glosas"
)

// observSeparator joins collapsed observations: one space, two backslashes,
// one space.
const observSeparator = " \\\\ "

// Collapse deduplicates paired AU/TA objection rows. Rows are grouped by
// (CRNCXC, SLNSERPRO); when a group carries both AU* and TA* codes, the
// first AU* row survives, every TA* observation is appended to it, and the
// TA* rows are removed. Groups without both classes are left untouched, so
// the operation is idempotent.
func Collapse(rows []glosas.ObjectionRow) []glosas.ObjectionRow {
	type key struct {
		cxc     string
		service string
	}
	type group struct {
		au []int
		ta []int
	}

	groups := make(map[key]*group)
	for i, row := range rows {
		k := key{cxc: row.CRNCxC, service: row.SLNSerPro}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		switch codeClass(row.CRNConObj) {
		case "AU":
			g.au = append(g.au, i)
		case "TA":
			g.ta = append(g.ta, i)
		}
	}

	dropped := make(map[int]bool)
	for _, g := range groups {
		if len(g.au) == 0 || len(g.ta) == 0 {
			continue
		}
		survivor := g.au[0]
		for _, i := range g.ta {
			if rows[survivor].CRDObserv == "" {
				rows[survivor].CRDObserv = rows[i].CRDObserv
			} else if rows[i].CRDObserv != "" {
				rows[survivor].CRDObserv += observSeparator + rows[i].CRDObserv
			}
			dropped[i] = true
		}
	}

	if len(dropped) == 0 {
		return rows
	}
	kept := make([]glosas.ObjectionRow, 0, len(rows)-len(dropped))
	for i, row := range rows {
		if !dropped[i] {
			kept = append(kept, row)
		}
	}
	return kept
}

func codeClass(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
