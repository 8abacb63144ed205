package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/errors"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
	"github.com/Upcasted/optimus-courier/pkg/resilience"
)

const headerSessionID = "X-Session-ID"

// GenerationResponse is the body of a generation request that did not fail
type GenerationResponse struct {
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	AWBNumber string `json:"awbNumber,omitempty"`
	Message   string `json:"message,omitempty"`
}

// toAppError maps courier and orchestration errors to the HTTP error envelope
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, application.ErrNoLabels) {
		return errors.ErrUnprocessable(err.Error()).Wrap(err)
	}
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.ErrServiceUnavailable("Optimus Courier API").Wrap(err)
	}

	awbErr, ok := domain.AsAWBError(err)
	if !ok {
		return errors.MapDomainError(err)
	}

	switch awbErr.Kind {
	case domain.KindValidation:
		return errors.ErrValidationWithFields(awbErr.Message, awbErr.Fields).Wrap(err)
	case domain.KindNotFound:
		return errors.ErrNotFoundWithMessage(awbErr.Message).Wrap(err)
	case domain.KindConflict:
		return errors.ErrConflict(awbErr.Message).Wrap(err)
	case domain.KindTransport, domain.KindMalformed:
		return errors.ErrBadGateway(awbErr.Message).Wrap(err)
	case domain.KindDomain:
		return errors.ErrUnprocessable(awbErr.Message).
			WithDetail("code", strconv.Itoa(awbErr.Code)).
			Wrap(err)
	default:
		return errors.ErrInternal(awbErr.Message).Wrap(err)
	}
}

// resultError rebuilds the error carried by a failed or conflicting result
func resultError(result *application.GenerationResult) *errors.AppError {
	if result.Outcome == application.OutcomeConflict {
		return errors.ErrConflict(result.Reason())
	}
	return toAppError(&domain.AWBError{
		Kind:    result.ErrorKind,
		Code:    result.ErrorCode,
		Message: result.ErrorMessage,
		Fields:  result.Fields,
	})
}

// respondResult writes a GenerationResult with the status its outcome maps to
func respondResult(c *gin.Context, responder *middleware.ErrorResponder, result *application.GenerationResult) {
	switch result.Outcome {
	case application.OutcomeGenerated:
		c.JSON(http.StatusOK, GenerationResponse{Success: true, AWBNumber: result.AWBNumber})
	case application.OutcomeSkipped:
		c.JSON(http.StatusOK, GenerationResponse{Skipped: true, Message: result.Reason()})
	default:
		responder.RespondWithAppError(resultError(result))
	}
}

// respondError writes err through the shared error envelope
func respondError(responder *middleware.ErrorResponder, err error) {
	responder.RespondWithAppError(toAppError(err))
}

// respondFile streams a label document
func respondFile(c *gin.Context, file *application.LabelFile) {
	disposition := "attachment"
	if file.Inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+`; filename="`+file.Filename+`"`)
	c.Header("X-Label-Pages", strconv.Itoa(file.Pages))
	if len(file.Missing) > 0 {
		c.Header("X-Labels-Missing", strconv.Itoa(len(file.Missing)))
	}
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// audit records an operator action with the caller session
func audit(c *gin.Context, logger *logging.Logger, action, resource, resourceID string, details map[string]any) {
	logger.Audit(c.Request.Context(), action, resource, resourceID, c.GetHeader(headerSessionID), details)
}
