package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

// AWBHandler handles waybill generation requests
type AWBHandler struct {
	service  *application.AWBService
	tracking *application.TrackingService
	logger   *logging.Logger
}

// NewAWBHandler creates a new AWBHandler
func NewAWBHandler(service *application.AWBService, tracking *application.TrackingService, logger *logging.Logger) *AWBHandler {
	return &AWBHandler{
		service:  service,
		tracking: tracking,
		logger:   logger,
	}
}

// Generate handles POST /api/v1/orders/:id/awb
func (h *AWBHandler) Generate(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	result := h.service.GenerateForOrder(c.Request.Context(), c.Param("id"), application.TriggerManual)
	respondResult(c, responder, result)
}

// Regenerate handles POST /api/v1/orders/:id/awb/regenerate
func (h *AWBHandler) Regenerate(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID := c.Param("id")
	result := h.service.Regenerate(c.Request.Context(), orderID)
	audit(c, h.logger, "awb.regenerate", "order", orderID, map[string]any{"outcome": string(result.Outcome)})
	respondResult(c, responder, result)
}

// GenerateManual handles POST /api/v1/orders/:id/awb/manual
func (h *AWBHandler) GenerateManual(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ManualAWBCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.OrderID = c.Param("id")

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"awb.parcels": cmd.Parcels,
		"awb.weight":  cmd.Weight,
	})

	result := h.service.GenerateManual(c.Request.Context(), cmd)
	respondResult(c, responder, result)
}

// Delete handles DELETE /api/v1/orders/:id/awb
func (h *AWBHandler) Delete(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID := c.Param("id")
	if err := h.service.DeleteWaybill(c.Request.Context(), orderID); err != nil {
		respondError(responder, err)
		return
	}
	audit(c, h.logger, "awb.delete", "order", orderID, nil)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BulkGenerate handles POST /api/v1/awb/bulk
func (h *AWBHandler) BulkGenerate(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.BulkGenerateCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"orders.count": len(cmd.OrderIDs),
	})

	result := h.service.BulkGenerate(c.Request.Context(), cmd.OrderIDs)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// TrackingLinks handles GET /api/v1/orders/:id/tracking-links
func (h *AWBHandler) TrackingLinks(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	links, err := h.tracking.LinksForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": links})
}

// Status handles GET /api/v1/awb/:awb/status
func (h *AWBHandler) Status(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	status, err := h.tracking.Status(c.Request.Context(), c.Param("awb"))
	if err != nil {
		respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}
