package handler

import (
	"net/http"

	"shopdesk/internal/service"
	"shopdesk/pkg/pagination"
	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	guard          Guard
}

func NewInvoiceHandler(invoiceService service.InvoiceService, guard Guard) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, guard: guard}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", h.guard.Authenticated())
	{
		invoices.GET("", h.ListInvoices)
		invoices.GET("/customers", h.ListCustomers)
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PATCH("/:id/pay", h.SettleDebt)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.GET("/:id/receipt", h.GetReceipt)
	}
}

// CreateInvoice records a sale, live or replayed from an offline queue
// @Summary      Create invoice
// @Description  Persists a sale and decrements stock. The status is derived from total and paid amounts.
// @Description  A body whose correlation_id was already recorded returns the existing invoice with 200.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	invoice, created, err := h.invoiceService.CreateInvoice(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, invoice))
}

// ListInvoices returns a paginated list of invoices
// @Summary      List invoices
// @Description  Retrieves invoices newest first, optionally filtered by payment status and customer
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status    query     string  false  "Filter by payment status (PAID, DEBT)"
// @Param        customer  query     string  false  "Filter by customer name"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=response.Page{items=[]service.InvoiceResponse}}
// @Failure      500       {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:   c.Query("status"),
		Customer: c.Query("customer"),
		Page:     p.Page,
		Limit:    p.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), actor, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, invoices, total, p.Page, p.Limit))
}

// ListCustomers returns the customer directory built from past invoices
// @Summary      List customers
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Customer}
// @Router       /api/invoices/customers [get]
func (h *InvoiceHandler) ListCustomers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	customers, err := h.invoiceService.ListCustomers(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, customers))
}

// GetInvoice returns one invoice with its items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// SettleDebt records a payment against an invoice
// @Summary      Settle debt
// @Description  Adds amount to amount_paid. Payments above the remaining debt are rejected.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Invoice ID"
// @Param        payload  body      service.SettleDebtRequest  true  "Payment"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id}/pay [patch]
func (h *InvoiceHandler) SettleDebt(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req service.SettleDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	invoice, err := h.invoiceService.SettleDebt(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice cancels a sale and puts its items back in stock
// @Summary      Delete invoice
// @Description  Admin only. The caller's password is verified again before deletion.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.DeleteInvoiceRequest  true  "Password confirmation"
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req service.DeleteInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Invoice deleted"}))
}

// GetReceipt renders the invoice as a printable PDF
// @Summary      Download receipt
// @Tags         invoices
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/receipt [get]
func (h *InvoiceHandler) GetReceipt(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	pdf, filename, err := h.invoiceService.RenderReceipt(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
