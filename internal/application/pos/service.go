package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	"github.com/jhoicas/caja-offline/pkg/logger"
)

// Service expone las operaciones del terminal (la API que invoca la capa HTTP).
// Todas las mutaciones pasan por el gateway: el terminal nunca se bloquea por
// falta de red, solo degrada a la vía local+cola.
type Service struct {
	gw      *sync.Gateway
	engine  *inventory.Engine
	log     *logger.Logger
	storeID string
}

// NewService construye el servicio del punto de venta.
func NewService(gw *sync.Gateway, engine *inventory.Engine, log *logger.Logger, storeID string) *Service {
	return &Service{
		gw:      gw,
		engine:  engine,
		log:     log.Component("pos"),
		storeID: storeID,
	}
}

// RecordSaleInput entrada para registrar una venta.
type RecordSaleInput struct {
	ItemID     string
	Quantity   decimal.Decimal
	AgentID    string
	CustomerID string
	BatchID    string // opcional: lote elegido a mano; vacío = plan FEFO
}

// RecordSale registra una venta: genera el UUID de idempotencia, planifica el
// descargo por lotes en orden FEFO (vía el motor de consistencia cuando el
// artículo es una unidad derivada o tiene lotes) y despacha por la doble vía.
func (s *Service) RecordSale(ctx context.Context, in RecordSaleInput) (*entity.Sale, error) {
	if !in.Quantity.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	item, err := s.engine.GetItem(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, fmt.Errorf("%w: artículo desactivado", domain.ErrInvalidInput)
	}

	var draws []entity.SaleDraw
	if in.BatchID != "" {
		batch, err := s.getBatch(ctx, in.BatchID)
		if err != nil {
			return nil, err
		}
		if batch.ItemID != item.ID {
			return nil, fmt.Errorf("%w: el lote no pertenece al artículo", domain.ErrInvalidInput)
		}
		if !batch.IsActive() || batch.CurrentStock.LessThan(in.Quantity) {
			return nil, domain.ErrInsufficientStock
		}
		draws = []entity.SaleDraw{{BatchID: batch.ID, Quantity: in.Quantity}}
	} else {
		plan, err := s.engine.PlanDeduction(ctx, item.ID, in.Quantity)
		if err != nil {
			return nil, err
		}
		for _, d := range plan {
			draws = append(draws, entity.SaleDraw{BatchID: d.BatchID, Quantity: d.Quantity})
		}
	}

	sale := &entity.Sale{
		ID:         uuid.New().String(),
		StoreID:    s.storeID,
		ItemID:     item.ID,
		ItemName:   item.Name,
		Quantity:   in.Quantity,
		UnitPrice:  item.UnitPrice,
		Total:      item.UnitPrice.Mul(in.Quantity),
		AgentID:    in.AgentID,
		CustomerID: in.CustomerID,
		Status:     entity.SaleStatusCompleted,
		Draws:      draws,
		CreatedAt:  time.Now(),
	}

	if err := s.gw.Dispatch(ctx, sync.CreateSale{Sale: *sale}); err != nil {
		return nil, err
	}
	s.log.Info().Str("venta", sale.ID).Str("articulo", item.ID).
		Str("cantidad", in.Quantity.String()).Msg("venta registrada")
	return sale, nil
}

// VoidSale anula una venta reponiendo el stock por la misma cantidad y los
// mismos lotes del plan original. El cambio de estado es condicional, de modo
// que una anulación concurrente desde otra réplica no se cuenta dos veces.
func (s *Service) VoidSale(ctx context.Context, saleID string) error {
	rec, err := s.gw.Get(ctx, entity.CollectionSales, saleID)
	if err != nil {
		return err
	}
	sale := entity.SaleFromRecord(rec)
	if sale.Status == entity.SaleStatusVoided {
		return domain.ErrSaleAlreadyVoided
	}

	draws := make([]sync.BatchDraw, 0, len(sale.Draws))
	for _, d := range sale.Draws {
		draws = append(draws, sync.BatchDraw{BatchID: d.BatchID, Quantity: d.Quantity})
	}
	return s.gw.Dispatch(ctx, sync.VoidSale{
		SaleID:   sale.ID,
		ItemID:   sale.ItemID,
		Quantity: sale.Quantity,
		Total:    sale.Total,
		AgentID:  sale.AgentID,
		Draws:    draws,
	})
}

// UpdateStockLevel fija el stock de un artículo tras un conteo manual.
func (s *Service) UpdateStockLevel(ctx context.Context, itemID string, newStock decimal.Decimal) error {
	if newStock.IsNegative() {
		return domain.ErrInvalidQuantity
	}
	if _, err := s.engine.GetItem(ctx, itemID); err != nil {
		return err
	}
	return s.gw.Dispatch(ctx, sync.UpdateStock{ItemID: itemID, NewStock: newStock})
}

// AddItem alta de un artículo nuevo en la tienda.
func (s *Service) AddItem(ctx context.Context, item entity.InventoryItem) (*entity.InventoryItem, error) {
	if item.Name == "" || item.UnitPrice.IsNegative() || item.CurrentStock.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	item.ID = uuid.New().String()
	item.StoreID = s.storeID
	item.Active = true
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.gw.Dispatch(ctx, sync.AddItem{Item: item}); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateCustomer alta de cliente.
func (s *Service) CreateCustomer(ctx context.Context, name, phone string) (*entity.Customer, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	c := &entity.Customer{
		ID:        uuid.New().String(),
		StoreID:   s.storeID,
		Name:      name,
		Phone:     phone,
		Debt:      decimal.Zero,
		CreatedAt: time.Now(),
	}
	if err := s.gw.Dispatch(ctx, sync.CreateCustomer{Customer: *c}); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateSupplier alta de proveedor.
func (s *Service) CreateSupplier(ctx context.Context, name, phone string) (*entity.Supplier, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	sp := &entity.Supplier{
		ID:        uuid.New().String(),
		StoreID:   s.storeID,
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	if err := s.gw.Dispatch(ctx, sync.CreateSupplier{Supplier: *sp}); err != nil {
		return nil, err
	}
	return sp, nil
}

// AddAgent alta de vendedor con contadores en cero.
func (s *Service) AddAgent(ctx context.Context, name, phone string) (*entity.Agent, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	a := &entity.Agent{
		ID:        uuid.New().String(),
		StoreID:   s.storeID,
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
	if err := s.gw.Dispatch(ctx, sync.AddAgent{Agent: *a}); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateInvoice registra una factura de proveedor (cuenta por pagar).
func (s *Service) CreateInvoice(ctx context.Context, supplierID, number string, total decimal.Decimal, issuedAt time.Time) (*entity.Invoice, error) {
	if supplierID == "" || !total.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	inv := &entity.Invoice{
		ID:         uuid.New().String(),
		StoreID:    s.storeID,
		SupplierID: supplierID,
		Number:     number,
		Total:      total,
		Status:     entity.InvoiceStatusPending,
		IssuedAt:   issuedAt,
		CreatedAt:  time.Now(),
	}
	if err := s.gw.Dispatch(ctx, sync.CreateInvoice{Invoice: *inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// PayInvoice marca una factura como pagada.
func (s *Service) PayInvoice(ctx context.Context, invoiceID string) error {
	if _, err := s.gw.Get(ctx, entity.CollectionInvoices, invoiceID); err != nil {
		return err
	}
	return s.gw.Dispatch(ctx, sync.PayInvoice{InvoiceID: invoiceID, PaidAt: time.Now()})
}

// ClearDebt registra un abono a la deuda de un cliente.
func (s *Service) ClearDebt(ctx context.Context, customerID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if _, err := s.gw.Get(ctx, entity.CollectionCustomers, customerID); err != nil {
		return err
	}
	return s.gw.Dispatch(ctx, sync.ClearDebt{Payment: entity.DebtPayment{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Amount:     amount,
		PaidAt:     time.Now(),
	}})
}

// ProcessSyncQueue drena la cola pendiente contra el remoto y devuelve los
// conteos para el tablero del operador.
func (s *Service) ProcessSyncQueue(ctx context.Context) (sync.DrainResult, error) {
	return s.gw.ProcessQueue(ctx)
}

// SyncQueueCount entradas aún pendientes de confirmar contra el remoto.
func (s *Service) SyncQueueCount() int {
	return s.gw.QueueCount()
}

// LowStockItems artículos activos en o por debajo de su umbral de alerta.
func (s *Service) LowStockItems(ctx context.Context) ([]*entity.InventoryItem, error) {
	recs, err := s.gw.Query(ctx, entity.CollectionItems, entity.Record{"store_id": s.storeID}, sync.Order{Field: "name"})
	if err != nil {
		return nil, err
	}
	var out []*entity.InventoryItem
	for _, r := range recs {
		it := entity.ItemFromRecord(r)
		if it.Active && it.CurrentStock.LessThanOrEqual(it.LowStockThreshold) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Service) getBatch(ctx context.Context, batchID string) (*entity.InventoryBatch, error) {
	rec, err := s.gw.Get(ctx, entity.CollectionBatches, batchID)
	if err != nil {
		return nil, err
	}
	return entity.BatchFromRecord(rec), nil
}
