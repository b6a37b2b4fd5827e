package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"leaf-backend/pkg/api"

	"github.com/go-resty/resty/v2"
)

const uploadField = "file"

type Client struct {
	client *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout),
	}
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func get[T any](ctx context.Context, c *Client, endpoint string) (T, error) {
	var out T
	res, err := c.client.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		return out, fmt.Errorf("error calling %s: %w", endpoint, err)
	}
	return decode[T](res, endpoint)
}

func decode[T any](res *resty.Response, endpoint string) (T, error) {
	var out T
	if !res.IsSuccess() {
		return out, &HTTPError{StatusCode: res.StatusCode(), Body: res.String()}
	}
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return out, fmt.Errorf("error parsing response from %s: %w", endpoint, err)
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context) (api.PingResponse, error) {
	return get[api.PingResponse](ctx, c, "/ping")
}

func (c *Client) Models(ctx context.Context) ([]api.ModelInfo, error) {
	return get[[]api.ModelInfo](ctx, c, "/models")
}

// Predict uploads image to the given route. filename is only used for the
// multipart header.
func (c *Client) Predict(ctx context.Context, route, filename string, image []byte, scores bool) (api.PredictionResponse, error) {
	endpoint := "/" + strings.TrimPrefix(route, "/")

	req := c.client.R().
		SetContext(ctx).
		SetFileReader(uploadField, filepath.Base(filename), bytes.NewReader(image))
	if scores {
		req.SetQueryParam("scores", "true")
	}

	res, err := req.Post(endpoint)
	if err != nil {
		return api.PredictionResponse{}, fmt.Errorf("error calling %s: %w", endpoint, err)
	}

	return decode[api.PredictionResponse](res, endpoint)
}
