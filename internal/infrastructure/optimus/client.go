package optimus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
	"github.com/Upcasted/optimus-courier/pkg/resilience"
	"github.com/Upcasted/optimus-courier/pkg/tracing"
)

const (
	DefaultBaseURL = "https://awb.optimuscourier.ro"
	DefaultTimeout = 30 * time.Second

	pathAPI      = "/api"
	pathCounties = "/api-judete"
	pathStatus   = "/api-status"

	maxResponseBytes = 32 << 20
)

// Credential check messages
const (
	MsgConnected          = "Conectat"
	MsgInvalidResponse    = "Răspuns invalid de la API"
	MsgIncompleteResponse = "Răspuns incomplet de la API"
	MsgInvalidCredentials = "Credențiale invalide"
)

// CredentialsFunc returns the credentials to use for the next call
type CredentialsFunc func() domain.Credentials

// Config holds the courier client configuration
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials CredentialsFunc
	HTTPClient  *http.Client
	Breaker     *resilience.CircuitBreakerConfig
}

// Client talks to the Optimus Courier API. Calls are never retried.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialsFunc
	breaker     *resilience.CircuitBreaker
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a courier client
func NewClient(config Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Credentials == nil {
		config.Credentials = func() domain.Credentials { return domain.Credentials{} }
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	breakerConfig := config.Breaker
	if breakerConfig == nil {
		breakerConfig = resilience.DefaultCircuitBreakerConfig("optimus-courier-api")
	}
	breakerConfig.OnStateChange = func(name string, from, to gobreaker.State) {
		m.SetCircuitBreakerState(name, int(to))
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  httpClient,
		credentials: config.Credentials,
		breaker:     resilience.NewCircuitBreaker(breakerConfig, logger.Logger),
		logger:      logger.WithComponent("optimus-client"),
		metrics:     m,
	}
}

// CreateWaybill issues action=new_awb
func (c *Client) CreateWaybill(ctx context.Context, req domain.AWBRequest) (*domain.Waybill, error) {
	if !c.credentials().Complete() {
		return nil, domain.NewValidationError(domain.MsgMissingCredential, nil)
	}

	form := req.ToForm()
	form.Set("action", "new_awb")

	env, err := c.call(ctx, "new_awb", pathAPI, form)
	if err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	if len(env.PCL) == 0 {
		return nil, domain.NewMalformedError("courier response has no pcl")
	}

	return &domain.Waybill{Numbers: []string(env.PCL)}, nil
}

// GetWaybillPDF issues action=get_pdf and returns the decoded label
func (c *Client) GetWaybillPDF(ctx context.Context, awbID string) ([]byte, error) {
	form := url.Values{}
	form.Set("action", "get_pdf")
	form.Set("id", awbID)

	env, err := c.call(ctx, "get_pdf", pathAPI, form)
	if err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	return env.pdf()
}

// TrackWaybill issues action=track. extra fields are sent as given.
func (c *Client) TrackWaybill(ctx context.Context, awbNumber string, extra map[string]string) ([]domain.TrackingEvent, error) {
	if !c.credentials().Complete() {
		return nil, domain.NewValidationError(domain.MsgMissingCredential, nil)
	}

	form := url.Values{}
	for k, v := range extra {
		form.Set(k, v)
	}
	form.Set("awb", awbNumber)
	form.Set("action", "track")

	env, err := c.call(ctx, "track", pathAPI, form)
	if err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	return env.trackingEvents(), nil
}

// GetStatus proxies /api-status
func (c *Client) GetStatus(ctx context.Context, awbNumber string) (*domain.WaybillStatus, error) {
	form := url.Values{}
	form.Set("awb", awbNumber)

	env, err := c.call(ctx, "status", pathStatus, form)
	if err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	return &domain.WaybillStatus{AWBNumber: awbNumber, Raw: env.rawMap()}, nil
}

// GetCounties lists /api-judete entries
func (c *Client) GetCounties(ctx context.Context) ([]domain.County, error) {
	env, err := c.call(ctx, "counties", pathCounties, url.Values{})
	if err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}

	if len(env.Data) == 0 {
		return nil, nil
	}
	var counties []domain.County
	if err := json.Unmarshal(env.Data, &counties); err != nil {
		return nil, domain.NewMalformedError("courier returned an unexpected county list")
	}
	return counties, nil
}

// CheckCredentials calls /api-judete and reports whether the credentials are accepted
func (c *Client) CheckCredentials(ctx context.Context) domain.CredentialStatus {
	body, err := c.exchange(ctx, "check_credentials", pathCounties, url.Values{})
	if err != nil {
		return domain.CredentialStatus{Message: err.Error()}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return domain.CredentialStatus{Message: MsgInvalidResponse}
	}
	if _, ok := raw["error"]; !ok {
		return domain.CredentialStatus{Message: MsgIncompleteResponse}
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		return domain.CredentialStatus{Message: MsgInvalidResponse}
	}
	if env.Error != 0 {
		message := strings.TrimSpace(env.ErrorMessage)
		if message == "" {
			message = MsgInvalidCredentials
		}
		return domain.CredentialStatus{Message: message}
	}

	return domain.CredentialStatus{Connected: true, Message: MsgConnected}
}

func (c *Client) call(ctx context.Context, action, path string, form url.Values) (*envelope, error) {
	body, err := c.exchange(ctx, action, path, form)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(body)
}

// exchange posts the form with credentials appended and returns the raw 2xx body
func (c *Client) exchange(ctx context.Context, action, path string, form url.Values) ([]byte, error) {
	start := time.Now()

	body, err := tracing.TracedOperation(ctx, "optimus."+action, func(ctx context.Context) ([]byte, error) {
		result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
			return c.post(ctx, path, form)
		})
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, domain.NewTransportError("courier API temporarily unavailable", err)
			}
			if _, ok := domain.AsAWBError(err); ok {
				return nil, err
			}
			return nil, domain.NewTransportError("courier API request failed", err)
		}
		return result.([]byte), nil
	}, attribute.String("optimus.action", action), attribute.String("optimus.path", path))

	outcome := "success"
	if err != nil {
		outcome = "transport_error"
		c.logger.WithContext(ctx).WithError(err).Warn("Courier request failed",
			"action", action,
			"path", path,
			"durationMs", time.Since(start).Milliseconds(),
		)
	}
	c.metrics.RecordCourierRequest(action, outcome, time.Since(start))

	return body, err
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	creds := c.credentials()
	payload := url.Values{}
	for k, v := range form {
		payload[k] = v
	}
	payload.Set("username", creds.Username)
	payload.Set("api_key", creds.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError("courier API unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewTransportError("failed to read courier response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewTransportError(fmt.Sprintf("courier API returned status %d", resp.StatusCode), nil)
	}

	return body, nil
}
