package coosalud

import (
	"testing"

	"3tcapital/goglosas/internal/core/glosas"
)

func glosaSheet(rows ...[3]string) *glosas.Sheet {
	sheet := &glosas.Sheet{Columns: []string{"ID DETALLE", "CODIGO GLOSA", "JUSTIFICACION"}}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, map[string]string{
			"ID DETALLE":    r[0],
			"CODIGO GLOSA":  r[1],
			"JUSTIFICACION": r[2],
		})
	}
	return sheet
}

func TestAggregateGlosas_PrioritySelection(t *testing.T) {
	sheet := glosaSheet(
		[3]string{"7", "203", "j-ta"},
		[3]string{"7", "17", "j-fa"},
		[3]string{"7", "430", "j-au-special"},
		[3]string{"7", "XX", "j-xx"},
	)

	aggregates := aggregateGlosas(sheet)
	agg, ok := aggregates["7"]
	if !ok {
		t.Fatal("no aggregate for id_detalle 7")
	}
	if agg.code != "FA0701" {
		t.Errorf("selected code = %q, want FA0701", agg.code)
	}
	if want := "j-fa // j-au-special // j-ta // j-xx"; agg.justification != want {
		t.Errorf("justification = %q, want %q", agg.justification, want)
	}
}

func TestAggregateGlosas_DedupPreservesOrder(t *testing.T) {
	sheet := glosaSheet(
		[3]string{"1", "17", "misma"},
		[3]string{"1", "18", "misma"},
		[3]string{"1", "203", "otra"},
	)

	agg := aggregateGlosas(sheet)["1"]
	if want := "misma // otra"; agg.justification != want {
		t.Errorf("justification = %q, want %q", agg.justification, want)
	}
}

func TestAggregateGlosas_EmptyCodesAndTexts(t *testing.T) {
	sheet := glosaSheet(
		[3]string{"9", "", ""},
		[3]string{"9", "", "solo-texto"},
	)

	agg := aggregateGlosas(sheet)["9"]
	if agg.code != "" {
		t.Errorf("code = %q, want empty", agg.code)
	}
	if agg.justification != "solo-texto" {
		t.Errorf("justification = %q, want solo-texto", agg.justification)
	}
}

func TestAggregateGlosas_MissingIDColumn(t *testing.T) {
	sheet := &glosas.Sheet{Columns: []string{"CODIGO GLOSA"}}
	if got := aggregateGlosas(sheet); got != nil {
		t.Errorf("aggregates = %v, want nil", got)
	}
}
