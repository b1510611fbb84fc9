package gbpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/velohr/settlement/pkg/config"
	"github.com/velohr/settlement/pkg/provider"
)

// cachedToken is one entry of the per-connection bearer token cache.
type cachedToken struct {
	token     string
	expiresAt time.Time
}

// authenticate returns a valid bearer token for the connection,
// refreshing it when the cached one is within the safety margin of
// expiry.
func (a *Adapter) authenticate(ctx context.Context, creds *provider.Credentials) (string, error) {
	a.mu.Lock()
	if t, ok := a.tokens[creds.ConnectionID]; ok && time.Now().Before(t.expiresAt.Add(-a.cfg.TokenMargin)) {
		a.mu.Unlock()
		return t.token, nil
	}
	a.mu.Unlock()

	var resp authResponse
	err := a.do(ctx, "", http.MethodPost, "/v1/auth/token", authRequest{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		Scope:     creds.Scope,
	}, &resp)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	a.mu.Lock()
	a.tokens[creds.ConnectionID] = cachedToken{token: resp.AccessToken, expiresAt: expiresAt}
	a.mu.Unlock()

	a.logger.Debug("token refreshed",
		"connection_id", creds.ConnectionID,
		"expires_at", expiresAt,
	)
	return resp.AccessToken, nil
}

// call authenticates and performs one API request.
func (a *Adapter) call(
	ctx context.Context,
	creds *provider.Credentials,
	method, path string,
	body, out any,
) error {
	token, err := a.authenticate(ctx, creds)
	if err != nil {
		return err
	}
	return a.do(ctx, token, method, path, body, out)
}

// do performs one HTTP exchange and normalizes every failure into a
// *provider.Error so upstream code branches on one shape only.
func (a *Adapter) do(
	ctx context.Context,
	token, method, path string,
	body, out any,
) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &provider.Error{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &provider.Error{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er errorResponse
		_ = json.Unmarshal(payload, &er)
		return &provider.Error{
			StatusCode: resp.StatusCode,
			Code:       er.Code,
			Message:    er.Message,
			Payload:    provider.Redact(payload),
		}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &provider.Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("malformed response: %v", err),
				Payload:    provider.Redact(payload),
			}
		}
	}
	return nil
}

// newClient builds the retrying HTTP client the adapter rides on. Retries
// only cover transport-level failures and 5xx responses; the adapter's
// idempotent reference field keeps them safe on the provider side.
func newClient(cfg config.GBPay) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.MaxRetries
	c.HTTPClient.Timeout = cfg.HTTPTimeout
	c.Logger = nil
	return c
}

// newTokenCache builds the token cache map.
func newTokenCache() map[uuid.UUID]cachedToken {
	return make(map[uuid.UUID]cachedToken)
}
