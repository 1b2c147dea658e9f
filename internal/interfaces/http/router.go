package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/caja-offline/internal/application/inventory"
	"github.com/jhoicas/caja-offline/internal/application/pos"
	"github.com/jhoicas/caja-offline/internal/infrastructure/pdf"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	POS       *pos.Service
	Engine    *inventory.Engine
	PDF       *pdf.VarianceReportGenerator
	StoreName string
}

// Router registra las rutas del terminal.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Ventas
	sales := api.Group("/sales")
	salesHandler := NewSalesHandler(deps.POS)
	sales.Post("/", salesHandler.RecordSale)
	sales.Post("/:id/void", salesHandler.VoidSale)

	// Inventario: artículos, lotes y desglose a granel
	items := api.Group("/items")
	stockHandler := NewStockHandler(deps.POS, deps.Engine)
	items.Post("/", stockHandler.AddItem)
	items.Get("/low-stock", stockHandler.LowStock)
	items.Get("/:id", stockHandler.GetItem)
	items.Put("/:id/stock", stockHandler.UpdateStock)
	items.Get("/:id/next-batch", stockHandler.NextBatch)

	batches := api.Group("/batches")
	batches.Post("/", stockHandler.ReceiveBatch)
	batches.Post("/:id/dispose", stockHandler.DisposeBatch)

	breakout := api.Group("/breakout")
	breakout.Post("/", stockHandler.CreateBreakout)
	breakout.Post("/deduct", stockHandler.DeductUnits)

	// Auditoría de merma
	audit := api.Group("/audit")
	auditHandler := NewAuditHandler(deps.Engine, deps.PDF, deps.StoreName)
	audit.Post("/variance", auditHandler.Variance)
	audit.Get("/report.pdf", auditHandler.ReportPDF)

	// Cola de sincronización
	syncGroup := api.Group("/sync")
	syncHandler := NewSyncHandler(deps.POS)
	syncGroup.Post("/process", syncHandler.Process)
	syncGroup.Get("/status", syncHandler.Status)

	// Terceros y cuentas por pagar
	partnerHandler := NewPartnerHandler(deps.POS)
	customers := api.Group("/customers")
	customers.Post("/", partnerHandler.CreateCustomer)
	customers.Post("/:id/payments", partnerHandler.ClearDebt)

	suppliers := api.Group("/suppliers")
	suppliers.Post("/", partnerHandler.CreateSupplier)

	agents := api.Group("/agents")
	agents.Post("/", partnerHandler.AddAgent)

	invoices := api.Group("/invoices")
	invoices.Post("/", partnerHandler.CreateInvoice)
	invoices.Post("/:id/pay", partnerHandler.PayInvoice)
}
