package report

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meddoc/clinic-api/internal/handler"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/service/report"
)

type Handler struct {
	service *report.Service
}

func NewHandler(service *report.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("", h.List)
		reports.GET("/stats", h.Stats)
		reports.POST("/archive", h.Archive)
		reports.GET("/backup", h.ExportBackup)
		reports.POST("/backup", h.ImportBackup)
	}
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

type archiveRequest struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// Archive rolls a day into a report. With no date it archives today.
func (h *Handler) Archive(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	day := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date"))
			return
		}
		day = parsed
	}

	archived, err := h.service.ArchiveDay(c.Request.Context(), day)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(archived))
}

func (h *Handler) List(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(reports))
}

func (h *Handler) ExportBackup(c *gin.Context) {
	backup, err := h.service.ExportBackup(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(backup))
}

func (h *Handler) ImportBackup(c *gin.Context) {
	var backup model.Backup
	if err := c.ShouldBindJSON(&backup); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.ImportBackup(c.Request.Context(), &backup); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
