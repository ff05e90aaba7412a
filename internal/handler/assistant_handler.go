package handler

import (
	"net/http"

	"shopdesk/internal/service"
	"shopdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	assistantService service.AssistantService
	guard            Guard
}

func NewAssistantHandler(assistantService service.AssistantService, guard Guard) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService, guard: guard}
}

func (h *AssistantHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/chat", h.guard.Authenticated(), h.Ask)
}

// Ask answers a free-form question about the shop's own data
// @Summary      Ask the shop assistant
// @Description  The question's keywords select which data (invoices, products, expenses, totals) is handed to the language model.
// @Tags         assistant
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AssistantRequest  true  "Question"
// @Success      200      {object}  response.Response{data=service.AssistantReply}
// @Failure      400      {object}  response.Response
// @Failure      503      {object}  response.Response  "Assistant not configured or unreachable"
// @Router       /api/chat [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req service.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := h.assistantService.Ask(c.Request.Context(), actor, req.Message)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, reply))
}
