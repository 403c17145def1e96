package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meddoc/clinic-api/internal/handler"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/service/practitioner"
)

type Handler struct {
	service *practitioner.Service
}

func NewHandler(service *practitioner.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes carries the routes that must stay reachable while the
// clinic is locked: unlocking and reading the profile.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/unlock", h.Unlock)
	rg.GET("/practitioner", h.Get)
}

// RegisterProtectedRoutes goes behind the session gate. The profile
// mutation can change the PIN or switch the lock off, so it needs an
// unlocked session like every other write.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.PUT("/practitioner", h.Update)
}

func (h *Handler) Unlock(c *gin.Context) {
	var req model.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.service.Unlock(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdatePractitionerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}
