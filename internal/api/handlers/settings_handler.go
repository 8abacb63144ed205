package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

// SettingsHandler manages the business settings and the courier connection check
type SettingsHandler struct {
	store    *config.Store
	tracking *application.TrackingService
	logger   *logging.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(store *config.Store, tracking *application.TrackingService, logger *logging.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, tracking: tracking, logger: logger}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.store.Current().Masked()})
}

// Update handles PUT /api/v1/settings. A blank or masked API key keeps the stored one.
// Connection fields are owned by the credential check and cannot be set.
func (h *SettingsHandler) Update(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	current := h.store.Current()
	var settings config.Settings
	if appErr := middleware.BindAndValidate(c, &settings); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	if settings.APIKey == "" || settings.APIKey == current.Masked().APIKey {
		settings.APIKey = current.APIKey
	}
	settings.IsConnected = current.IsConnected
	settings.ConnectionMessage = current.ConnectionMessage

	if err := h.store.Update(settings); err != nil {
		respondError(responder, err)
		return
	}

	credentialsChanged := settings.Username != current.Username || settings.APIKey != current.APIKey
	if credentialsChanged {
		h.tracking.ValidateCredentials(c.Request.Context())
	}

	audit(c, h.logger, "settings.update", "settings", "courier", map[string]any{"credentialsChanged": credentialsChanged})
	c.JSON(http.StatusOK, gin.H{"data": h.store.Current().Masked()})
}

// ValidateCredentials handles POST /api/v1/settings/validate-credentials
func (h *SettingsHandler) ValidateCredentials(c *gin.Context) {
	status := h.tracking.ValidateCredentials(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": status})
}
