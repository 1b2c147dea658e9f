// Package dto define los contratos de entrada/salida de la capa HTTP.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse respuesta de error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RecordSaleRequest registra una venta en el terminal.
type RecordSaleRequest struct {
	ItemID     string          `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	AgentID    string          `json:"agent_id"`
	CustomerID string          `json:"customer_id"`
	BatchID    string          `json:"batch_id"` // opcional: vacío = plan FEFO
}

// AddItemRequest alta de artículo.
type AddItemRequest struct {
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	BuyingPrice       decimal.Decimal `json:"buying_price"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Barcode           string          `json:"barcode"`
}

// UpdateStockRequest fija el stock tras un conteo manual.
type UpdateStockRequest struct {
	NewStock decimal.Decimal `json:"new_stock"`
}

// ReceiveBatchRequest recepción de mercancía de un artículo.
type ReceiveBatchRequest struct {
	ItemID      string          `json:"item_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExpiryDate  time.Time       `json:"expiry_date"`
}

// CreateBreakoutRequest configura un padre a granel y crea su unidad derivada.
type CreateBreakoutRequest struct {
	ParentItemID     string          `json:"parent_item_id"`
	BulkUnitName     string          `json:"bulk_unit_name"`
	BreakoutUnitName string          `json:"breakout_unit_name"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
}

// DeductUnitsRequest descarga manual de unidades derivadas (merma, rotura, degustación).
type DeductUnitsRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	BatchID  string          `json:"batch_id"` // opcional
}

// AuditVarianceRequest conteo físico de un padre a granel para auditar.
type AuditVarianceRequest struct {
	ParentItemID      string          `json:"parent_item_id"`
	PhysicalBulkStock decimal.Decimal `json:"physical_bulk_stock"`
}

// CreatePartnerRequest alta de cliente, proveedor o vendedor.
type CreatePartnerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CreateInvoiceRequest registra una factura de proveedor.
type CreateInvoiceRequest struct {
	SupplierID string          `json:"supplier_id"`
	Number     string          `json:"number"`
	Total      decimal.Decimal `json:"total"`
	IssuedAt   time.Time       `json:"issued_at"`
}

// ClearDebtRequest abono a la deuda de un cliente.
type ClearDebtRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SyncStatusResponse estado de la cola de sincronización.
type SyncStatusResponse struct {
	Pending int `json:"pending"`
}

// DrainResultResponse resultado de un drenado manual de la cola.
type DrainResultResponse struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}
