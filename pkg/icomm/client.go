// Package icomm is a client for the iCOMM water heater cloud API: a single
// GraphQL endpoint with a passcode login, a device-list query and the
// updateMode/updateSetpoint mutations. The client is stateless with respect
// to authentication: callers pass the bearer token on each call and react to
// ErrUnauthorized by re-logging in.
package icomm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://r2.wh8.co/graphql"
	DefaultBrand   = "aosmith"

	clientVersion = "13.0.2"
	userAgent     = "okhttp/4.9.2"

	unauthorizedErrorCode = "UNAUTHORIZED_ERROR"
)

var (
	// ErrUnauthorized marks a stale or missing token, either an HTTP 401 or
	// an UNAUTHORIZED_ERROR entry in a 200 body's error list.
	ErrUnauthorized = errors.New("icomm: unauthorized")
	// ErrTimeout marks a transport-level timeout.
	ErrTimeout = errors.New("icomm: request timed out")
	// ErrLoginFailed marks a login that succeeded at transport level but
	// returned no access token.
	ErrLoginFailed = errors.New("icomm: login response did not contain an access token")
)

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Service is the API surface consumed by the cloud actor. Implemented by
// Client and by TestService.
type Service interface {
	Login(ctx context.Context, email, password string) (*Tokens, error)
	GetDevices(ctx context.Context, token string, forceUpdate bool, junctionIDs []string) ([]Device, error)
	UpdateMode(ctx context.Context, token, junctionID string, mode ModeInput) (bool, error)
	UpdateSetpoint(ctx context.Context, token, junctionID string, value int) (bool, error)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	brand      string
	logger     *zap.Logger
}

func NewClient(baseURL, brand string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if brand == "" {
		brand = DefaultBrand
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		brand:      brand,
		logger:     logger.With(zap.String("component", "icomm")),
	}
}

// Passcode builds the login credential payload: URL-encoded JSON wrapped in
// base64, sent in lieu of separate username/password fields.
func Passcode(email, password string) (string, error) {
	creds, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(url.QueryEscape(string(creds)))), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	passcode, err := Passcode(email, password)
	if err != nil {
		return nil, err
	}
	raw, err := c.execute(ctx, "", loginQuery, map[string]any{
		"passcode": passcode,
	})
	if err != nil {
		return nil, err
	}
	var data loginData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("icomm: decode login response: %w", err)
	}
	tokens := data.Login.User.Tokens
	if tokens.AccessToken == "" {
		return nil, ErrLoginFailed
	}
	return &tokens, nil
}

func (c *Client) GetDevices(ctx context.Context, token string, forceUpdate bool, junctionIDs []string) ([]Device, error) {
	vars := map[string]any{
		"forceUpdate": forceUpdate,
	}
	if len(junctionIDs) > 0 {
		vars["junctionIds"] = junctionIDs
	}
	raw, err := c.execute(ctx, token, devicesQuery, vars)
	if err != nil {
		return nil, err
	}
	var data devicesData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("icomm: decode devices response: %w", err)
	}
	return data.Devices, nil
}

func (c *Client) UpdateMode(ctx context.Context, token, junctionID string, mode ModeInput) (bool, error) {
	raw, err := c.execute(ctx, token, updateModeMutation, map[string]any{
		"junctionId": junctionID,
		"mode":       mode,
	})
	if err != nil {
		return false, err
	}
	return mutationConfirmed(raw, "updateMode"), nil
}

func (c *Client) UpdateSetpoint(ctx context.Context, token, junctionID string, value int) (bool, error) {
	raw, err := c.execute(ctx, token, updateSetpointMutation, map[string]any{
		"junctionId": junctionID,
		"value":      value,
	})
	if err != nil {
		return false, err
	}
	return mutationConfirmed(raw, "updateSetpoint"), nil
}

// mutationConfirmed extracts the boolean success flag keyed by the mutation
// field name. Absence counts as unconfirmed, not as an error: the caller
// re-polls for ground truth either way.
func mutationConfirmed(raw json.RawMessage, field string) bool {
	var data map[string]bool
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	return data[field]
}

func (c *Client) execute(ctx context.Context, token, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     query,
		Variables: variables,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("brand", c.brand)
	req.Header.Set("version", clientVersion)
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("icomm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("non-200 response", zap.Int("status", resp.StatusCode), zap.ByteString("body", payload))
		return nil, fmt.Errorf("icomm: unexpected status %d", resp.StatusCode)
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("icomm: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		for _, gqlErr := range envelope.Errors {
			if gqlErr.ErrorCode() == unauthorizedErrorCode {
				return nil, fmt.Errorf("%w: %s", ErrUnauthorized, gqlErr.Message)
			}
		}
		return nil, envelope.Errors[0]
	}
	return envelope.Data, nil
}
