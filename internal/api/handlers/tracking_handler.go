package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

var trackingPage = template.Must(template.New("tracking").Parse(`<!DOCTYPE html>
<html lang="ro">
<head><meta charset="utf-8"><title>Urmărire AWB</title></head>
<body>
<form class="optimus-tracking-form" method="get">
<input type="text" name="awb" value="{{.AWBNumber}}" placeholder="Număr AWB">
<button type="submit">Caută</button>
</form>
{{- if .Searched}}
{{- if .Found}}
<table class="optimus-tracking-table">
<thead><tr><th>Data</th><th>Status</th></tr></thead>
<tbody>
{{- range .Events}}
<tr><td>{{.Date}}</td><td>{{.Title}}</td></tr>
{{- else}}
<tr><td colspan="2">Nu există evenimente pentru acest AWB</td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p class="optimus-tracking-error">{{.Message}}</p>
{{- end}}
{{- end}}
</body>
</html>
`))

type trackingPageData struct {
	*application.TrackingView
	Searched bool
}

// TrackingHandler serves the public tracking page
type TrackingHandler struct {
	service *application.TrackingService
	logger  *logging.Logger
}

// NewTrackingHandler creates a new TrackingHandler
func NewTrackingHandler(service *application.TrackingService, logger *logging.Logger) *TrackingHandler {
	return &TrackingHandler{service: service, logger: logger}
}

// Track handles GET /track?awb=. It renders HTML unless the caller asks for JSON.
func (h *TrackingHandler) Track(c *gin.Context) {
	awbNumber := strings.TrimSpace(c.Query("awb"))
	wantsJSON := c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON

	if awbNumber == "" && !wantsJSON {
		h.render(c, trackingPageData{TrackingView: &application.TrackingView{}})
		return
	}

	view, err := h.service.Track(c.Request.Context(), awbNumber)
	if err != nil {
		respondError(middleware.NewErrorResponder(c, h.logger.Logger), err)
		return
	}

	if wantsJSON {
		c.JSON(http.StatusOK, gin.H{"data": view})
		return
	}
	h.render(c, trackingPageData{TrackingView: view, Searched: true})
}

func (h *TrackingHandler) render(c *gin.Context, data trackingPageData) {
	var sb strings.Builder
	if err := trackingPage.Execute(&sb, data); err != nil {
		middleware.NewErrorResponder(c, h.logger.Logger).RespondInternalError(err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}
