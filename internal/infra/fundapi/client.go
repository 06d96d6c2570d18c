// Package fundapi is the typed HTTP gateway to the remote FundConnect
// campaign service. It is a pure request/response boundary: no caching
// and no derived state. Mutating calls attach the current bearer
// credential; with no credential present they fail fast before the
// network.
package fundapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/resilience"
	"github.com/Clive-Nyaga/Fund-Connect/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("fundapi")

// Client wraps HTTP calls to the FundConnect backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	credentials port.CredentialSource
	cb          *gobreaker.CircuitBreaker
	cfg         resilience.Config
	logger      *zap.Logger
}

// NewClient creates a gateway client. credentials supplies the bearer
// token for authenticated calls; a change in the source is reflected on
// the very next request.
func NewClient(httpClient *http.Client, baseURL string, credentials port.CredentialSource, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		credentials: credentials,
		cb:          cb,
		cfg:         cfg,
		logger:      logger,
	}
}

// remoteError is the backend's error body shape.
type remoteError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusCodeError marks a completed non-2xx response that has no 4xx
// domain mapping, as opposed to a transport failure where no response
// arrived at all. Retryable.
type statusCodeError struct {
	status int
	msg    string
}

func (e *statusCodeError) Error() string {
	return fmt.Sprintf("fundconnect API returned status %d: %s", e.status, e.msg)
}

// requireCredential returns the current token or fails fast when the
// caller already knows no session exists.
func (c *Client) requireCredential(operation string) (string, error) {
	token := c.credentials.Token()
	if token == "" {
		return "", &domain.ErrUnauthenticated{Operation: operation}
	}
	return token, nil
}

// do executes a request against the backend, retrying transient
// failures inside the circuit breaker. 4xx responses are permanent and
// mapped to domain errors carrying the remote message when present.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var body []byte

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			body, err = c.doOnce(ctx, method, path, token, payload)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: "fundconnect-api"}
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("fundapi: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("fundapi: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("fundapi: request OK",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return body, nil
	}

	c.logger.Warn("fundapi: non-2xx response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(body)),
	)

	if resp.StatusCode >= 500 {
		// Server side, worth retrying.
		return nil, &statusCodeError{status: resp.StatusCode, msg: remoteMessage(body, resp.StatusCode)}
	}
	return nil, resilience.Permanent(statusError(resp.StatusCode, body))
}

// statusError maps 4xx responses to domain errors, preferring the
// remote-provided message over a generic one.
func statusError(status int, body []byte) error {
	msg := remoteMessage(body, status)
	switch status {
	case http.StatusUnauthorized:
		return &domain.ErrAuthentication{Message: msg}
	case http.StatusForbidden:
		return &domain.ErrAuthentication{Message: msg}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: "resource", ID: msg}
	case http.StatusConflict:
		return &domain.ErrConflict{Message: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.ErrValidation{Field: "request", Message: msg}
	default:
		return fmt.Errorf("fundconnect API returned status %d: %s", status, msg)
	}
}

// remoteMessage extracts the backend's error text, falling back to a
// status-based message.
func remoteMessage(body []byte, status int) string {
	var re remoteError
	if err := json.Unmarshal(body, &re); err == nil {
		if re.Error != "" {
			return re.Error
		}
		if re.Message != "" {
			return re.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// idValue renders a campaign/user id the way the backend expects:
// numeric when it parses as a number, string otherwise.
func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
