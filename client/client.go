// Package client 预测服务的HTTP客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardioserve/ml"
)

// APIError 非200响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Body)
}

// Client 预测服务客户端
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New 创建客户端，baseURL 形如 http://localhost:8000
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Root 返回服务的存活消息
func (c *Client) Root(ctx context.Context) (string, error) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, &payload); err != nil {
		return "", err
	}
	return payload.Message, nil
}

// Predict 提交一条患者记录
func (c *Client) Predict(ctx context.Context, record ml.PatientRecord) (ml.Prediction, error) {
	var prediction ml.Prediction
	if err := c.do(ctx, http.MethodPost, "/predict", record, &prediction); err != nil {
		return ml.Prediction{}, err
	}
	return prediction, nil
}

// ModelInfo 返回已加载模型的状态
func (c *Client) ModelInfo(ctx context.Context) (ml.ModelStatus, error) {
	var status ml.ModelStatus
	if err := c.do(ctx, http.MethodGet, "/model/info", nil, &status); err != nil {
		return ml.ModelStatus{}, err
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
