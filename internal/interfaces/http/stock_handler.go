package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/dto"
	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/application/pos"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP de inventario: artículos, lotes,
// desglose a granel y descargas manuales.
type StockHandler struct {
	svc    *pos.Service
	engine *inventory.Engine
}

// NewStockHandler construye el handler.
func NewStockHandler(svc *pos.Service, engine *inventory.Engine) *StockHandler {
	return &StockHandler{svc: svc, engine: engine}
}

// AddItem alta de artículo.
func (h *StockHandler) AddItem(c *fiber.Ctx) error {
	var in dto.AddItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	item, err := h.svc.AddItem(c.Context(), entity.InventoryItem{
		Name:              in.Name,
		UnitPrice:         in.UnitPrice,
		BuyingPrice:       in.BuyingPrice,
		CurrentStock:      in.CurrentStock,
		LowStockThreshold: in.LowStockThreshold,
		Barcode:           in.Barcode,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetItem lee un artículo por id.
func (h *StockHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.engine.GetItem(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// UpdateStock fija el stock de un artículo tras un conteo manual.
func (h *StockHandler) UpdateStock(c *fiber.Ctx) error {
	var in dto.UpdateStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.svc.UpdateStockLevel(c.Context(), c.Params("id"), in.NewStock); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "stock actualizado"})
}

// LowStock artículos en o por debajo de su umbral de alerta.
func (h *StockHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.svc.LowStockItems(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(items), "items": items})
}

// ReceiveBatch recepción de mercancía: crea el lote y, si el artículo es padre a
// granel, materializa su lote de desglose.
func (h *StockHandler) ReceiveBatch(c *fiber.Ctx) error {
	var in dto.ReceiveBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	batch, err := h.engine.ReceiveBatch(c.Context(), in.ItemID, in.BatchNumber, in.Quantity, in.ExpiryDate)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

// CreateBreakout configura la conversión granel → unidad y crea el artículo derivado.
func (h *StockHandler) CreateBreakout(c *fiber.Ctx) error {
	var in dto.CreateBreakoutRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	derived, err := h.engine.CreateBreakoutUnitItem(c.Context(), in.ParentItemID, inventory.ConversionInfo{
		BulkUnitName:     in.BulkUnitName,
		BreakoutUnitName: in.BreakoutUnitName,
		ConversionRate:   in.ConversionRate,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(derived)
}

// DeductUnits descarga manual de unidades derivadas.
func (h *StockHandler) DeductUnits(c *fiber.Ctx) error {
	var in dto.DeductUnitsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.engine.DeductBreakoutUnits(c.Context(), in.ItemID, in.Quantity, in.BatchID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "unidades descargadas"})
}

// DisposeBatch da de baja un lote.
func (h *StockHandler) DisposeBatch(c *fiber.Ctx) error {
	if err := h.engine.DisposeBatch(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lote dado de baja"})
}

// NextBatch siguiente lote a vender de un artículo según FEFO.
func (h *StockHandler) NextBatch(c *fiber.Ctx) error {
	batch, err := h.engine.NextBatchFEFO(c.Context(), c.Params("id"), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batch)
}
