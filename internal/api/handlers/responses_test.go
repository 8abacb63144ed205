package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/errors"
	"github.com/Upcasted/optimus-courier/pkg/resilience"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.NewValidationError("Date invalide", map[string]string{"phone": "obligatoriu"}), http.StatusBadRequest, errors.CodeValidationError},
		{"not found", domain.NewNotFoundError(), http.StatusNotFound, errors.CodeNotFound},
		{"conflict", domain.NewConflictError(), http.StatusConflict, errors.CodeConflict},
		{"transport", domain.NewTransportError("timeout", assert.AnError), http.StatusBadGateway, errors.CodeBadGateway},
		{"malformed", domain.NewMalformedError("no awb"), http.StatusBadGateway, errors.CodeBadGateway},
		{"remote rejection", domain.NewDomainError(3, "Localitate invalida"), http.StatusUnprocessableEntity, errors.CodeUnprocessable},
		{"persistence", domain.NewInternalError("db down", assert.AnError), http.StatusInternalServerError, errors.CodeInternalError},
		{"no labels", fmt.Errorf("merge: %w", application.ErrNoLabels), http.StatusUnprocessableEntity, errors.CodeUnprocessable},
		{"breaker open", domain.NewTransportError("unavailable", fmt.Errorf("optimus: %w", resilience.ErrCircuitOpen)), http.StatusServiceUnavailable, errors.CodeServiceUnavailable},
		{"app error passes through", errors.ErrForbidden("nu"), http.StatusForbidden, errors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := toAppError(tt.err)

			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestToAppError_DomainCarriesRemoteCode(t *testing.T) {
	appErr := toAppError(domain.NewDomainError(7, "AWB inexistent"))

	assert.Equal(t, "AWB inexistent", appErr.Message)
	assert.Equal(t, "7", appErr.Details["code"])
}

func TestResultError(t *testing.T) {
	conflict := resultError(&application.GenerationResult{
		Outcome:      application.OutcomeConflict,
		ErrorMessage: domain.MsgOperationInFlight,
	})
	assert.Equal(t, http.StatusConflict, conflict.HTTPStatus)
	assert.Equal(t, domain.MsgOperationInFlight, conflict.Message)

	validation := resultError(&application.GenerationResult{
		Outcome:      application.OutcomeFailed,
		ErrorKind:    domain.KindValidation,
		ErrorMessage: "Date invalide",
		Fields:       map[string]string{"weight": "trebuie să fie pozitiv"},
	})
	assert.Equal(t, http.StatusBadRequest, validation.HTTPStatus)
	assert.Equal(t, "trebuie să fie pozitiv", validation.Details["weight"])
}
