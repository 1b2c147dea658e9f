package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Niveles de riesgo del reporte de auditoría.
const (
	RiskSafe     = "SAFE"
	RiskWarning  = "WARNING"
	RiskCritical = "CRITICAL"
)

// AuditVarianceReport resultado de una pasada de auditoría sobre un padre a granel.
// Es un valor derivado, no se persiste como fila:
//
//	ExpectedUnits = PhysicalBulkStock × ConversionRate
//	ActualUnits   = Σ CurrentStock de las unidades derivadas del padre
//	Variance      = ActualUnits − ExpectedUnits
//
// Una variación negativa es merma (robo / sobre-servido); una positiva indica que
// el sistema registra más de lo que existe físicamente (error de datos o faltante
// físico según el lado que se mire).
type AuditVarianceReport struct {
	ParentItemID      string
	ParentName        string
	PhysicalBulkStock decimal.Decimal
	ConversionRate    decimal.Decimal
	ExpectedUnits     decimal.Decimal
	ActualUnits       decimal.Decimal
	Variance          decimal.Decimal
	RiskLevel         string // SAFE | WARNING | CRITICAL
	GeneratedAt       time.Time
}
