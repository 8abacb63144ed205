package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

// LabelHandler serves label PDF downloads
type LabelHandler struct {
	service *application.LabelService
	logger  *logging.Logger
}

// NewLabelHandler creates a new LabelHandler
func NewLabelHandler(service *application.LabelService, logger *logging.Logger) *LabelHandler {
	return &LabelHandler{service: service, logger: logger}
}

// Merged handles POST /api/v1/labels/merged
func (h *LabelHandler) Merged(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.LabelsCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	file, err := h.service.MergeLabelsForOrders(c.Request.Context(), cmd.OrderIDs)
	if err != nil {
		respondError(responder, err)
		return
	}

	respondFile(c, file)
}

// Zip handles POST /api/v1/labels/zip
func (h *LabelHandler) Zip(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.LabelsCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	file, err := h.service.ZipLabelsForOrders(c.Request.Context(), cmd.OrderIDs)
	if err != nil {
		respondError(responder, err)
		return
	}

	respondFile(c, file)
}

// Single handles GET /api/v1/labels/:awb
func (h *LabelHandler) Single(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	file, err := h.service.DownloadSingleLabel(c.Request.Context(), c.Param("awb"))
	if err != nil {
		respondError(responder, err)
		return
	}

	respondFile(c, file)
}
