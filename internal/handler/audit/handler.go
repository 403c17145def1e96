package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meddoc/clinic-api/internal/handler"
	"github.com/meddoc/clinic-api/internal/service/audit"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit", h.List)
}

func (h *Handler) List(c *gin.Context) {
	filters := make(map[string]interface{})
	if v := c.Query("entity_type"); v != "" {
		filters["entity_type"] = v
	}
	if v := c.Query("entity_id"); v != "" {
		filters["entity_id"] = v
	}
	if v := c.Query("action"); v != "" {
		filters["action"] = v
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		filters["limit"] = limit
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}
