package dingtalk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// accessTokenHeader carries the token on v1.0 style endpoints.
const accessTokenHeader = "x-acs-dingtalk-access-token"

// maxResponseBody bounds how much of a platform response is read.
const maxResponseBody = 1 << 20

// oapiEnvelope is the response wrapper used by the platform's legacy
// (oapi) endpoints.
type oapiEnvelope struct {
	ErrCode   int             `json:"errcode"`
	ErrMsg    string          `json:"errmsg"`
	Result    json.RawMessage `json:"result"`
	RequestID string          `json:"request_id"`
}

// v1ErrorBody is the error shape v1.0 endpoints return on non-2xx
// statuses.
type v1ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// transport issues requests to the platform's endpoints.  It treats every
// non-2xx status and every non-zero envelope code uniformly as an
// *ApiError, and surfaces connection-level failures as ErrTransport; the
// rest of the package never inspects transport details beyond that.
type transport struct {
	client *http.Client
	api    string
	oapi   string
	logger hclog.Logger
}

// postOAPI posts a JSON body to a legacy endpoint.  The token travels as
// the access_token query parameter.  The {errcode, errmsg, result}
// envelope is decoded, a non-zero errcode becomes an *ApiError, and the
// result member (or, when absent, the whole body) is unmarshaled into out.
func (t *transport) postOAPI(ctx context.Context, path string, token AccessToken, body, out interface{}) error {
	const op = "dingtalk.(transport).postOAPI"
	u := t.oapi + path
	if token != "" {
		u += "?access_token=" + url.QueryEscape(string(token))
	}
	raw, status, err := t.roundTrip(ctx, http.MethodPost, u, "", body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var env oapiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: malformed response envelope: %v: %w", op, err, ErrTransport)
	}
	if env.ErrCode != 0 {
		return fmt.Errorf("%s: %w", op, &ApiError{Code: env.ErrCode, HTTPStatus: status, Message: env.ErrMsg})
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %w", op, &ApiError{HTTPStatus: status, Message: http.StatusText(status)})
	}
	if out == nil {
		return nil
	}
	payload := raw
	if len(env.Result) > 0 {
		payload = env.Result
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: malformed response payload: %v: %w", op, err, ErrTransport)
	}
	return nil
}

// postAPI posts a JSON body to a v1.0 endpoint.  The token, when present,
// travels in the x-acs-dingtalk-access-token header.  Non-2xx statuses
// become an *ApiError carrying the endpoint's {code, message} body.
func (t *transport) postAPI(ctx context.Context, path string, token AccessToken, body, out interface{}) error {
	const op = "dingtalk.(transport).postAPI"
	if err := t.doAPI(ctx, http.MethodPost, path, token, body, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// getAPI issues a GET against a v1.0 endpoint, with the same conventions
// as postAPI.
func (t *transport) getAPI(ctx context.Context, path string, token AccessToken, out interface{}) error {
	const op = "dingtalk.(transport).getAPI"
	if err := t.doAPI(ctx, http.MethodGet, path, token, nil, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *transport) doAPI(ctx context.Context, method, path string, token AccessToken, body, out interface{}) error {
	raw, status, err := t.roundTrip(ctx, method, t.api+path, token, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		apiErr := &ApiError{HTTPStatus: status, Message: http.StatusText(status)}
		var v1Err v1ErrorBody
		if err := json.Unmarshal(raw, &v1Err); err == nil && v1Err.Message != "" {
			apiErr.Message = v1Err.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed response payload: %v: %w", err, ErrTransport)
	}
	return nil
}

// roundTrip performs one HTTP exchange and returns the response body and
// status.  Connection-level failures are wrapped with ErrTransport.
func (t *transport) roundTrip(ctx context.Context, method, rawURL string, token AccessToken, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("unable to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(accessTokenHeader, string(token))
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%v: %w", err, ErrTransport)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, 0, fmt.Errorf("unable to read response: %v: %w", err, ErrTransport)
	}
	t.logger.Debug("platform call", "method", method, "path", req.URL.Path, "status", resp.StatusCode)
	return raw, resp.StatusCode, nil
}
