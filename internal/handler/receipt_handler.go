package handler

import (
	"net/http"

	"shopdesk/internal/service"
	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	receiptService service.ReceiptService
	guard          Guard
}

func NewReceiptHandler(receiptService service.ReceiptService, guard Guard) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, guard: guard}
}

func (h *ReceiptHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/invoices/:id/receipt/email", h.guard.Authenticated(), h.EmailReceipt)
}

// EmailReceipt sends the invoice receipt PDF to a customer address
// @Summary      Email receipt
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.EmailReceiptRequest   true  "Recipient"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      503      {object}  response.Response  "SMTP not configured or unreachable"
// @Router       /api/invoices/{id}/receipt/email [post]
func (h *ReceiptHandler) EmailReceipt(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req service.EmailReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.receiptService.EmailReceipt(c.Request.Context(), actor, c.Param("id"), req.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Receipt sent to " + req.Email}))
}
