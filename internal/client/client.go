// Package client calls a running churn prediction API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/inference"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base, apiKey string
	rest         *resty.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(baseURL, "/"), apiKey: apiKey, rest: r}
}

// Prediction is a successful API answer.
type Prediction struct {
	inference.Result
	ServedBy string `json:"served_by,omitempty"`
}

// FieldDetail is one rejected attribute of a 422 response.
type FieldDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// APIError is any non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []FieldDetail
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("churn api: %d %s", e.StatusCode, e.Detail)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return fmt.Sprintf("churn api: %d %s", e.StatusCode, strings.Join(parts, "; "))
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Predict submits in to /predict/{model}.
func (c *Client) Predict(ctx context.Context, model string, in customer.Input) (Prediction, error) {
	var out Prediction
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader(common.APIKeyHeader, c.apiKey).
		SetBody(in).
		SetResult(&out.Result).
		SetError(&errorBody{}).
		Post(c.base + "/predict/" + model)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict request: %w", err)
	}
	if resp.IsError() {
		return Prediction{}, apiError(resp)
	}
	out.ServedBy = resp.Header().Get(common.ModelServedHeader)
	return out, nil
}

// Health returns the decoded /health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/health", false)
}

// ModelInfo returns the decoded /model/info document.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/model/info", true)
}

func (c *Client) getJSON(ctx context.Context, path string, auth bool) (map[string]any, error) {
	out := map[string]any{}
	req := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{})
	if auth {
		req.SetHeader(common.APIKeyHeader, c.apiKey)
	}

	resp, err := req.Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return out, nil
}

func apiError(resp *resty.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode(), Detail: http.StatusText(resp.StatusCode())}

	body, ok := resp.Error().(*errorBody)
	if !ok || len(body.Detail) == 0 {
		return e
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		e.Detail = detail
		return e
	}
	var fields []FieldDetail
	if err := json.Unmarshal(body.Detail, &fields); err == nil {
		e.Fields = fields
	}
	return e
}
