// Package catalog implements the authenticated client for the streaming
// catalog's two API surfaces: the public REST API and the internal RPC
// gateway, plus signed media URL resolution.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nvalden/discsync/internal/constants"
	"github.com/nvalden/discsync/internal/httpclient"
	"github.com/nvalden/discsync/internal/logger"
)

// Client talks to the catalog as one logged-in user. The long-lived
// session credential rides as a cookie on every gateway request; the
// rotating api token it buys is refreshed transparently when the
// server invalidates it.
type Client struct {
	gateway *http.Client
	rest    *httpclient.Client
	log     *logger.Logger
	arl     string

	gatewayURL     string
	mediaURL       string
	apiURL         string
	transientDelay time.Duration

	mu           sync.Mutex
	token        string
	licenseToken string
	userID       int64
	country      string
}

// New builds an unauthenticated client. Login must succeed before any
// other call is useful.
func New(arl string, log *logger.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		gateway:        &http.Client{Timeout: constants.DefaultHTTPTimeout, Jar: jar},
		rest:           httpclient.NewClient(nil, constants.RESTMinInterval),
		log:            log.WithComponent("catalog"),
		arl:            arl,
		gatewayURL:     constants.GatewayURL,
		mediaURL:       constants.MediaURL,
		apiURL:         constants.APIBaseURL,
		transientDelay: constants.TransientRetryDelay,
	}
}

// Login exchanges the session credential for the rotating gateway
// token plus the account's license token. A zero user id means the
// credential is dead, which nothing else will recover from.
func (c *Client) Login(ctx context.Context) error {
	res, err := c.Call(ctx, constants.MethodUserData, nil)
	if err != nil {
		return fmt.Errorf("user data call: %w", err)
	}

	var data struct {
		CheckForm string `json:"checkForm"`
		User      struct {
			ID      FlexInt64 `json:"USER_ID"`
			Options struct {
				LicenseToken string `json:"license_token"`
			} `json:"OPTIONS"`
		} `json:"USER"`
		Country string `json:"COUNTRY"`
	}
	if err := json.Unmarshal(res, &data); err != nil {
		return fmt.Errorf("decode user data: %w", err)
	}

	if data.User.ID == 0 {
		return ErrInvalidCredential
	}

	c.mu.Lock()
	c.token = data.CheckForm
	c.licenseToken = data.User.Options.LicenseToken
	c.userID = int64(data.User.ID)
	c.country = data.Country
	c.mu.Unlock()

	c.log.Info("Logged in to catalog", "user_id", int64(data.User.ID), "country", data.Country)
	return nil
}

// Call invokes one gateway RPC method and returns its raw results.
// Token rotation, fallback-merge payloads and connection-level
// transients are absorbed here, so callers see either results or a
// terminal error. Gateway methods are idempotent, which is what makes
// the indefinite transient retry safe.
func (c *Client) Call(ctx context.Context, method string, body map[string]any) (json.RawMessage, error) {
	payload := make(map[string]any, len(body))
	for k, v := range body {
		payload[k] = v
	}

	refreshed := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, gwErr, err := c.post(ctx, method, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTransient(err) {
				c.log.Warn("Gateway connection fault, retrying", "method", method, "error", err)
				if werr := sleepCtx(ctx, c.transientDelay); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		if gwErr != nil {
			if gwErr.tokenExpired() && !refreshed && method != constants.MethodUserData {
				c.log.Debug("Gateway token rejected, refreshing", "method", method)
				if rerr := c.Login(ctx); rerr != nil {
					return nil, fmt.Errorf("token refresh: %w", rerr)
				}
				refreshed = true
				continue
			}
			return nil, gwErr
		}

		// A FALLBACK object in the results asks us to repeat the call
		// with its fields merged into the request body.
		if fb := fallbackPayload(results); fb != nil {
			c.log.Debug("Gateway returned fallback, merging", "method", method)
			for k, v := range fb {
				payload[k] = v
			}
			continue
		}

		return results, nil
	}
}

// post sends a single gateway request and splits the envelope into
// results and protocol error.
func (c *Client) post(ctx context.Context, method string, payload map[string]any) (json.RawMessage, *ProtocolError, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if method == constants.MethodUserData {
		// the user-data method is the one call allowed a blank token
		token = ""
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	q := url.Values{}
	q.Set("method", method)
	q.Set("input", "3")
	q.Set("api_version", "1.0")
	q.Set("api_token", token)
	q.Set("cid", strconv.Itoa(rand.Intn(1_000_000_000)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", constants.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "arl", Value: c.arl})

	resp, err := c.gateway.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, nil, fmt.Errorf("decode gateway response: %w", err)
	}

	if gwErr := parseGatewayError(method, envelope.Error); gwErr != nil {
		return nil, gwErr, nil
	}
	return envelope.Results, nil, nil
}

// parseGatewayError interprets the error field of a gateway envelope:
// an empty array on success, an object keyed by error name otherwise.
// A few legacy methods answer with a bare array of messages.
func parseGatewayError(method string, raw json.RawMessage) *ProtocolError {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" || trimmed == "{}" {
		return nil
	}

	if trimmed[0] == '{' {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil && len(m) > 0 {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return &ProtocolError{Method: method, Code: keys[0], Message: fmt.Sprintf("%v", m[keys[0]])}
		}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return &ProtocolError{Method: method, Code: fmt.Sprintf("%v", list[0])}
	}

	return &ProtocolError{Method: method, Code: trimmed}
}

// fallbackPayload extracts the FALLBACK object from results, nil when
// there is none.
func fallbackPayload(results json.RawMessage) map[string]any {
	var probe struct {
		Fallback map[string]any `json:"FALLBACK"`
	}
	if err := json.Unmarshal(results, &probe); err != nil {
		return nil
	}
	if len(probe.Fallback) == 0 {
		return nil
	}
	return probe.Fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Country reports the account country seen at login.
func (c *Client) Country() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.country
}
