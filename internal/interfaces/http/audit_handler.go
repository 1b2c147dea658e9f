package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/dto"
	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
	"github.com/jhoicas/caja-offline/internal/infrastructure/pdf"
)

// AuditHandler maneja las peticiones HTTP de auditoría de merma.
type AuditHandler struct {
	engine    *inventory.Engine
	pdfGen    *pdf.VarianceReportGenerator
	storeName string
}

// NewAuditHandler construye el handler.
func NewAuditHandler(engine *inventory.Engine, pdfGen *pdf.VarianceReportGenerator, storeName string) *AuditHandler {
	return &AuditHandler{engine: engine, pdfGen: pdfGen, storeName: storeName}
}

// Variance compara el conteo físico de un padre a granel contra las unidades
// derivadas en libros y clasifica el riesgo. No muta stock.
func (h *AuditHandler) Variance(c *fiber.Ctx) error {
	var in dto.AuditVarianceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	report, err := h.engine.CalculateAuditVariance(c.Context(), in.ParentItemID, in.PhysicalBulkStock)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// ReportPDF genera el reporte de merma en PDF para todos los padres a granel,
// usando el stock en libros del padre como conteo físico de referencia (el
// conteo real llega por POST /audit/variance, artículo por artículo).
func (h *AuditHandler) ReportPDF(c *fiber.Ctx) error {
	parents, err := h.engine.BulkParents(c.Context(), "")
	if err != nil {
		return respondError(c, err)
	}

	reports := make([]*entity.AuditVarianceReport, 0, len(parents))
	for _, p := range parents {
		r, err := h.engine.CalculateAuditVariance(c.Context(), p.ID, p.CurrentStock)
		if err != nil {
			return respondError(c, err)
		}
		reports = append(reports, r)
	}

	bytes, err := h.pdfGen.Generate(reports, h.storeName, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="reporte-merma.pdf"`)
	return c.Send(bytes)
}
