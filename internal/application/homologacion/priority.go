package homologacion

import (
	"strings"
	"unicode"

	"3tcapital/goglosas/internal/core/glosas"
)

// prefixByDigit selects the objection-class prefix from the first digit of a
// numeric Coosalud glosa code.
var prefixByDigit = map[byte]string{
	'1': "FA",
	'2': "TA",
	'3': "SO",
	'4': "AU",
	'5': "CO",
	'6': "CL",
}

// literalGlosaCodes are numeric codes the EPS documents as fixed literals,
// outside the positional rule.
var literalGlosaCodes = map[string]string{
	"430": "AU2103",
}

// rankByPrefix orders objection classes for code selection and observation
// sorting. TA and unknown prefixes sort last.
var rankByPrefix = map[string]int{
	"FA": 0,
	"SO": 1,
	"AU": 2,
	"CO": 3,
	"CL": 4,
}

// UnrankedPriority is the rank assigned to TA and unknown prefixes.
const UnrankedPriority = 999

// NormalizeGlosaCode rewrites a numeric Coosalud glosa code into its
// letter-prefixed ERP form: the first digit selects the prefix, the tail is
// zero-padded to two digits, and "01" is appended. Codes already starting
// with a letter, and numeric codes with an unknown first digit, are returned
// unchanged.
func NormalizeGlosaCode(raw string) string {
	code := strings.TrimSpace(raw)
	if code == "" {
		return ""
	}

	if unicode.IsLetter(rune(code[0])) {
		return code
	}

	if literal, ok := literalGlosaCodes[code]; ok {
		return literal
	}

	if code != glosas.DigitsOnly(code) {
		return code
	}

	prefix, ok := prefixByDigit[code[0]]
	if !ok {
		return code
	}

	tail := code[1:]
	if len(tail) < 2 {
		tail = strings.Repeat("0", 2-len(tail)) + tail
	}
	return prefix + tail + "01"
}

// PriorityRank returns the selection rank of a normalized glosa code.
func PriorityRank(code string) int {
	if len(code) < 2 {
		return UnrankedPriority
	}
	if rank, ok := rankByPrefix[code[:2]]; ok {
		return rank
	}
	return UnrankedPriority
}

// SelectPriorityCode picks the representative code for one id_detalle from
// its normalized, order-preserving deduplicated code set: the first code of
// the best-ranked class, else the first TA code, else the first code.
func SelectPriorityCode(codes []string) string {
	if len(codes) == 0 {
		return ""
	}

	best := ""
	bestRank := UnrankedPriority
	for _, code := range codes {
		if rank := PriorityRank(code); rank < bestRank {
			best = code
			bestRank = rank
		}
	}
	if best != "" {
		return best
	}

	for _, code := range codes {
		if strings.HasPrefix(code, "TA") {
			return code
		}
	}
	return codes[0]
}
