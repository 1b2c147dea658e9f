package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// ActionKind identifica cada mutación del conjunto cerrado que el gateway sabe
// aplicar y la cola sabe reproducir.
type ActionKind string

const (
	KindCreateSale     ActionKind = "create-sale"
	KindVoidSale       ActionKind = "void-sale"
	KindUpdateStock    ActionKind = "update-stock"
	KindAddItem        ActionKind = "add-item"
	KindAddBatch       ActionKind = "add-batch"
	KindCreateSupplier ActionKind = "create-supplier"
	KindCreateCustomer ActionKind = "create-customer"
	KindCreateInvoice  ActionKind = "create-invoice"
	KindPayInvoice     ActionKind = "pay-invoice"
	KindAddAgent       ActionKind = "add-agent"
	KindClearDebt      ActionKind = "clear-debt"

	KindDeductUnits         ActionKind = "deduct-units"
	KindDisposeBatch        ActionKind = "dispose-batch"
	KindConfigureBulkParent ActionKind = "configure-bulk-parent"
)

// Action es una mutación tipada que sabe aplicarse contra cualquier Backend.
// La misma rutina sirve para la vía remota inmediata, el espejo local y la
// reproducción desde la cola: la idempotencia vive dentro de cada Apply.
type Action interface {
	Kind() ActionKind
	Apply(ctx context.Context, b Backend) error
}

// BatchDraw descargo contra un lote concreto, parte del plan FEFO de una venta.
type BatchDraw struct {
	BatchID  string          `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateSale inserta la venta y, solo si el registro es nuevo, descarga stock
// (artículo y lotes del plan FEFO de la venta) e incrementa los contadores del
// vendedor. Reproducir una venta ya aplicada es un no-op completo.
type CreateSale struct {
	Sale entity.Sale `json:"sale"`
}

func (a CreateSale) Kind() ActionKind { return KindCreateSale }

func (a CreateSale) Apply(ctx context.Context, b Backend) error {
	created, err := b.Insert(ctx, entity.CollectionSales, a.Sale.ToRecord())
	if err != nil {
		return fmt.Errorf("insertar venta: %w", err)
	}
	if !created {
		// Replay de una venta ya confirmada: el stock y los contadores ya se ajustaron.
		return nil
	}
	// El stock de exhibición del artículo se ajusta con piso en cero; el libro real
	// son los lotes, que sí pueden quedar en negativo y aflorar en la auditoría.
	if err := b.AdjustNumeric(ctx, entity.CollectionItems, a.Sale.ItemID, "current_stock", a.Sale.Quantity.Neg(), true); err != nil {
		return fmt.Errorf("descargar stock del artículo: %w", err)
	}
	for _, d := range a.Sale.Draws {
		if err := b.AdjustNumeric(ctx, entity.CollectionBatches, d.BatchID, "current_stock", d.Quantity.Neg(), false); err != nil {
			return fmt.Errorf("descargar lote %s: %w", d.BatchID, err)
		}
	}
	if a.Sale.AgentID != "" {
		if err := b.AdjustNumeric(ctx, entity.CollectionAgents, a.Sale.AgentID, "sales_count", decimal.NewFromInt(1), false); err != nil {
			return fmt.Errorf("contador de ventas del vendedor: %w", err)
		}
		if err := b.AdjustNumeric(ctx, entity.CollectionAgents, a.Sale.AgentID, "sales_total", a.Sale.Total, false); err != nil {
			return fmt.Errorf("total de ventas del vendedor: %w", err)
		}
	}
	return nil
}

// VoidSale anula una venta y revierte su descargo por la misma cantidad. El
// cambio de estado es condicional (COMPLETED → VOIDED): si otra réplica ya la
// anuló, no se revierte dos veces.
type VoidSale struct {
	SaleID   string          `json:"sale_id"`
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	AgentID  string          `json:"agent_id,omitempty"`
	Draws    []BatchDraw     `json:"draws,omitempty"`
}

func (a VoidSale) Kind() ActionKind { return KindVoidSale }

func (a VoidSale) Apply(ctx context.Context, b Backend) error {
	changed, err := b.UpdateWhere(ctx, entity.CollectionSales, a.SaleID,
		entity.Record{"status": entity.SaleStatusVoided},
		entity.Record{"status": entity.SaleStatusCompleted},
	)
	if err != nil {
		return fmt.Errorf("anular venta: %w", err)
	}
	if !changed {
		return nil
	}
	if err := b.AdjustNumeric(ctx, entity.CollectionItems, a.ItemID, "current_stock", a.Quantity, false); err != nil {
		return fmt.Errorf("reponer stock del artículo: %w", err)
	}
	for _, d := range a.Draws {
		if err := b.AdjustNumeric(ctx, entity.CollectionBatches, d.BatchID, "current_stock", d.Quantity, false); err != nil {
			return fmt.Errorf("reponer lote %s: %w", d.BatchID, err)
		}
	}
	if a.AgentID != "" {
		if err := b.AdjustNumeric(ctx, entity.CollectionAgents, a.AgentID, "sales_count", decimal.NewFromInt(-1), true); err != nil {
			return fmt.Errorf("contador de ventas del vendedor: %w", err)
		}
		if err := b.AdjustNumeric(ctx, entity.CollectionAgents, a.AgentID, "sales_total", a.Total.Neg(), true); err != nil {
			return fmt.Errorf("total de ventas del vendedor: %w", err)
		}
	}
	return nil
}

// UpdateStock fija el stock de un artículo en un valor absoluto (conteo manual).
// Es idempotente por naturaleza.
type UpdateStock struct {
	ItemID   string          `json:"item_id"`
	NewStock decimal.Decimal `json:"new_stock"`
}

func (a UpdateStock) Kind() ActionKind { return KindUpdateStock }

func (a UpdateStock) Apply(ctx context.Context, b Backend) error {
	err := b.Update(ctx, entity.CollectionItems, a.ItemID, entity.Record{
		"current_stock": a.NewStock,
		"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("actualizar stock: %w", err)
	}
	return nil
}

// AddItem registra un artículo nuevo (alta de producto o unidad derivada).
type AddItem struct {
	Item entity.InventoryItem `json:"item"`
}

func (a AddItem) Kind() ActionKind { return KindAddItem }

func (a AddItem) Apply(ctx context.Context, b Backend) error {
	if _, err := b.Insert(ctx, entity.CollectionItems, a.Item.ToRecord()); err != nil {
		return fmt.Errorf("insertar artículo: %w", err)
	}
	return nil
}

// AddBatch registra la recepción de un lote y, solo si el lote es nuevo, suma su
// cantidad al stock del artículo dueño.
type AddBatch struct {
	Batch entity.InventoryBatch `json:"batch"`
}

func (a AddBatch) Kind() ActionKind { return KindAddBatch }

func (a AddBatch) Apply(ctx context.Context, b Backend) error {
	created, err := b.Insert(ctx, entity.CollectionBatches, a.Batch.ToRecord())
	if err != nil {
		return fmt.Errorf("insertar lote: %w", err)
	}
	if !created {
		return nil
	}
	if err := b.AdjustNumeric(ctx, entity.CollectionItems, a.Batch.ItemID, "current_stock", a.Batch.CurrentStock, false); err != nil {
		return fmt.Errorf("sumar stock del lote: %w", err)
	}
	return nil
}

// CreateSupplier alta de proveedor.
type CreateSupplier struct {
	Supplier entity.Supplier `json:"supplier"`
}

func (a CreateSupplier) Kind() ActionKind { return KindCreateSupplier }

func (a CreateSupplier) Apply(ctx context.Context, b Backend) error {
	if _, err := b.Insert(ctx, entity.CollectionSuppliers, a.Supplier.ToRecord()); err != nil {
		return fmt.Errorf("insertar proveedor: %w", err)
	}
	return nil
}

// CreateCustomer alta de cliente.
type CreateCustomer struct {
	Customer entity.Customer `json:"customer"`
}

func (a CreateCustomer) Kind() ActionKind { return KindCreateCustomer }

func (a CreateCustomer) Apply(ctx context.Context, b Backend) error {
	if _, err := b.Insert(ctx, entity.CollectionCustomers, a.Customer.ToRecord()); err != nil {
		return fmt.Errorf("insertar cliente: %w", err)
	}
	return nil
}

// CreateInvoice registra una factura de proveedor.
type CreateInvoice struct {
	Invoice entity.Invoice `json:"invoice"`
}

func (a CreateInvoice) Kind() ActionKind { return KindCreateInvoice }

func (a CreateInvoice) Apply(ctx context.Context, b Backend) error {
	if _, err := b.Insert(ctx, entity.CollectionInvoices, a.Invoice.ToRecord()); err != nil {
		return fmt.Errorf("insertar factura: %w", err)
	}
	return nil
}

// PayInvoice marca una factura como pagada (PENDING → PAID, condicional).
type PayInvoice struct {
	InvoiceID string    `json:"invoice_id"`
	PaidAt    time.Time `json:"paid_at"`
}

func (a PayInvoice) Kind() ActionKind { return KindPayInvoice }

func (a PayInvoice) Apply(ctx context.Context, b Backend) error {
	_, err := b.UpdateWhere(ctx, entity.CollectionInvoices, a.InvoiceID,
		entity.Record{
			"status":  entity.InvoiceStatusPaid,
			"paid_at": a.PaidAt.UTC().Format(time.RFC3339Nano),
		},
		entity.Record{"status": entity.InvoiceStatusPending},
	)
	if err != nil {
		return fmt.Errorf("pagar factura: %w", err)
	}
	return nil
}

// AddAgent alta de vendedor.
type AddAgent struct {
	Agent entity.Agent `json:"agent"`
}

func (a AddAgent) Kind() ActionKind { return KindAddAgent }

func (a AddAgent) Apply(ctx context.Context, b Backend) error {
	if _, err := b.Insert(ctx, entity.CollectionAgents, a.Agent.ToRecord()); err != nil {
		return fmt.Errorf("insertar vendedor: %w", err)
	}
	return nil
}

// ClearDebt registra un abono (con UUID propio) y, solo si el abono es nuevo,
// descuenta la deuda del cliente con piso en cero.
type ClearDebt struct {
	Payment entity.DebtPayment `json:"payment"`
}

func (a ClearDebt) Kind() ActionKind { return KindClearDebt }

func (a ClearDebt) Apply(ctx context.Context, b Backend) error {
	created, err := b.Insert(ctx, entity.CollectionPayments, a.Payment.ToRecord())
	if err != nil {
		return fmt.Errorf("insertar abono: %w", err)
	}
	if !created {
		return nil
	}
	if err := b.AdjustNumeric(ctx, entity.CollectionCustomers, a.Payment.CustomerID, "debt", a.Payment.Amount.Neg(), true); err != nil {
		return fmt.Errorf("descontar deuda: %w", err)
	}
	return nil
}

// DeductUnits descargo relativo de stock fuera de una venta (mermas declaradas,
// correcciones). El AdjustmentID es un UUID de cliente: el registro del ajuste es
// el ancla de idempotencia, igual que la venta lo es para create-sale.
type DeductUnits struct {
	AdjustmentID string          `json:"adjustment_id"`
	ItemID       string          `json:"item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Draws        []BatchDraw     `json:"draws,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	AdjustedAt   time.Time       `json:"adjusted_at"`
}

func (a DeductUnits) Kind() ActionKind { return KindDeductUnits }

func (a DeductUnits) Apply(ctx context.Context, b Backend) error {
	created, err := b.Insert(ctx, entity.CollectionAdjustments, entity.Record{
		"id":          a.AdjustmentID,
		"item_id":     a.ItemID,
		"quantity":    a.Quantity,
		"reason":      a.Reason,
		"adjusted_at": a.AdjustedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("insertar ajuste: %w", err)
	}
	if !created {
		return nil
	}
	if err := b.AdjustNumeric(ctx, entity.CollectionItems, a.ItemID, "current_stock", a.Quantity.Neg(), true); err != nil {
		return fmt.Errorf("descargar stock del artículo: %w", err)
	}
	for _, d := range a.Draws {
		if err := b.AdjustNumeric(ctx, entity.CollectionBatches, d.BatchID, "current_stock", d.Quantity.Neg(), false); err != nil {
			return fmt.Errorf("descargar lote %s: %w", d.BatchID, err)
		}
	}
	return nil
}

// DisposeBatch da de baja un lote (vencido o agotado). El cambio de estado es
// condicional: si otra réplica ya lo dio de baja no se descuenta dos veces.
type DisposeBatch struct {
	BatchID   string          `json:"batch_id"`
	ItemID    string          `json:"item_id"`
	Remaining decimal.Decimal `json:"remaining"`
}

func (a DisposeBatch) Kind() ActionKind { return KindDisposeBatch }

func (a DisposeBatch) Apply(ctx context.Context, b Backend) error {
	changed, err := b.UpdateWhere(ctx, entity.CollectionBatches, a.BatchID,
		entity.Record{"status": entity.BatchStatusDisposed, "current_stock": decimal.Zero},
		entity.Record{"status": entity.BatchStatusActive},
	)
	if err != nil {
		return fmt.Errorf("dar de baja el lote: %w", err)
	}
	if !changed || !a.Remaining.IsPositive() {
		return nil
	}
	if err := b.AdjustNumeric(ctx, entity.CollectionItems, a.ItemID, "current_stock", a.Remaining.Neg(), true); err != nil {
		return fmt.Errorf("descontar remanente del lote: %w", err)
	}
	return nil
}

// ConfigureBulkParent marca un artículo como padre a granel con su conversión.
// Es un update absoluto, idempotente por naturaleza.
type ConfigureBulkParent struct {
	ItemID           string          `json:"item_id"`
	BulkUnitName     string          `json:"bulk_unit_name"`
	BreakoutUnitName string          `json:"breakout_unit_name"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
}

func (a ConfigureBulkParent) Kind() ActionKind { return KindConfigureBulkParent }

func (a ConfigureBulkParent) Apply(ctx context.Context, b Backend) error {
	err := b.Update(ctx, entity.CollectionItems, a.ItemID, entity.Record{
		"is_bulk_parent":     true,
		"bulk_unit_name":     a.BulkUnitName,
		"breakout_unit_name": a.BreakoutUnitName,
		"conversion_rate":    a.ConversionRate,
		"updated_at":         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("configurar padre a granel: %w", err)
	}
	return nil
}

// Envelope entrada serializada de la cola: acción tipada + metadatos de reintento.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       ActionKind      `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
	seq        int64           // orden de inserción, solo en memoria
}

// EncodePayload serializa la acción para encolarla.
func EncodePayload(a Action) (json.RawMessage, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("serializar acción %s: %w", a.Kind(), err)
	}
	return raw, nil
}

// DecodeAction reconstruye la acción tipada de un envelope. El switch es
// exhaustivo sobre el conjunto cerrado: un kind desconocido es un error
// permanente (se descarta y se cuenta, nunca se ignora en silencio).
func DecodeAction(env Envelope) (Action, error) {
	var (
		a   Action
		err error
	)
	switch env.Kind {
	case KindCreateSale:
		var p CreateSale
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindVoidSale:
		var p VoidSale
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindUpdateStock:
		var p UpdateStock
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindAddItem:
		var p AddItem
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindAddBatch:
		var p AddBatch
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindCreateSupplier:
		var p CreateSupplier
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindCreateCustomer:
		var p CreateCustomer
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindCreateInvoice:
		var p CreateInvoice
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindPayInvoice:
		var p PayInvoice
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindAddAgent:
		var p AddAgent
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindClearDebt:
		var p ClearDebt
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindDeductUnits:
		var p DeductUnits
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindDisposeBatch:
		var p DisposeBatch
		err = json.Unmarshal(env.Payload, &p)
		a = p
	case KindConfigureBulkParent:
		var p ConfigureBulkParent
		err = json.Unmarshal(env.Payload, &p)
		a = p
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("deserializar acción %s: %w", env.Kind, err)
	}
	return a, nil
}
