// Package pdf genera el reporte de merma (variación de auditoría) que el
// encargado imprime al cierre.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tienda + Fecha de generación                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Artículo | Físico | Tasa | Esperado | Real |         │
//	│         Variación | Riesgo                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: total auditado / críticos / advertencias           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary  = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray     = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorSafe     = &props.Color{Red: 0, Green: 128, Blue: 0}
	colorWarning  = &props.Color{Red: 200, Green: 120, Blue: 0}
	colorCritical = &props.Color{Red: 180, Green: 0, Blue: 0}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// VarianceReportGenerator genera el PDF del reporte de merma usando Maroto v2.
type VarianceReportGenerator struct{}

// NewVarianceReportGenerator construye el generador.
func NewVarianceReportGenerator() *VarianceReportGenerator { return &VarianceReportGenerator{} }

// Generate genera el PDF y devuelve sus bytes. reports viene ya calculado por
// el motor de inventario (un elemento por padre a granel auditado).
func (g *VarianceReportGenerator) Generate(
	reports []*entity.AuditVarianceReport,
	storeName string,
	generatedAt time.Time,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de Merma", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(storeName, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(reports) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(reports))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título + tienda (izq) y fecha de generación (der).
func headerRow(storeName string, generatedAt time.Time) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New("REPORTE DE MERMA", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Tienda: "+storeName, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("AUDITORÍA DE CONSISTENCIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de variaciones.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Artículo a granel", 4, align.Left),
		h("Físico", 1, align.Right),
		h("Tasa", 1, align.Right),
		h("Esperado", 2, align.Right),
		h("Real", 1, align.Right),
		h("Variación", 2, align.Right),
		h("Riesgo", 1, align.Center),
	)
}

// tableDetailRows: una fila por padre a granel, con el riesgo coloreado.
func tableDetailRows(reports []*entity.AuditVarianceReport) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{
			Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
		}))
	}
	result := make([]core.Row, 0, len(reports))
	for _, r := range reports {
		result = append(result, row.New(7).Add(
			cell(r.ParentName, 4, align.Left),
			cell(r.PhysicalBulkStock.StringFixed(0), 1, align.Right),
			cell("×"+r.ConversionRate.StringFixed(0), 1, align.Right),
			cell(r.ExpectedUnits.StringFixed(0), 2, align.Right),
			cell(r.ActualUnits.StringFixed(0), 1, align.Right),
			cell(r.Variance.StringFixed(0), 2, align.Right),
			col.New(1).Add(text.New(r.RiskLevel, props.Text{
				Style: fontstyle.Bold, Size: 7, Align: align.Center,
				Color: riskColor(r.RiskLevel), Top: 1,
			})),
		))
	}
	return result
}

// summaryRow: conteo de artículos auditados y niveles de riesgo encontrados.
func summaryRow(reports []*entity.AuditVarianceReport) core.Row {
	var criticals, warnings int
	for _, r := range reports {
		switch r.RiskLevel {
		case entity.RiskCritical:
			criticals++
		case entity.RiskWarning:
			warnings++
		}
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Artículos auditados: %d   |   Críticos: %d   |   Advertencias: %d",
				len(reports), criticals, warnings,
			), props.Text{Style: fontstyle.Bold, Size: 9, Top: 2}),
			text.New(
				"Una variación negativa es merma (faltante físico de unidades derivadas). "+
					"Revise los artículos en nivel CRITICAL antes del siguiente turno.",
				props.Text{Size: 7, Top: 8, Color: colorGray},
			),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func riskColor(level string) *props.Color {
	switch level {
	case entity.RiskCritical:
		return colorCritical
	case entity.RiskWarning:
		return colorWarning
	default:
		return colorSafe
	}
}
