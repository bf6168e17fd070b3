package glosas

import (
	"fmt"
	"strings"
)

// EPS identifies a health insurer whose objection files the pipeline understands.
type EPS string

const (
	EPSMutualser EPS = "mutualser"
	EPSCoosalud  EPS = "coosalud"
)

// ParseEPS normalizes a user-supplied EPS tag.
func ParseEPS(raw string) (EPS, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(EPSMutualser):
		return EPSMutualser, nil
	case string(EPSCoosalud):
		return EPSCoosalud, nil
	default:
		return "", fmt.Errorf("unknown EPS %q", raw)
	}
}

// String returns the canonical lowercase tag.
func (e EPS) String() string {
	return string(e)
}
