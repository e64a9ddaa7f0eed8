// Package gateway implements the HTTP adapter for the external payment processor.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/config"
)

type HTTPGatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig) application.GatewayClient {
	return &HTTPGatewayClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (c *HTTPGatewayClient) Charge(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
	url := fmt.Sprintf("%s/api/v1/charges", c.baseURL)
	return sendRequest[application.ChargeRequest, application.ChargeResponse](c, ctx, url, &req, idempotencyKey)
}

func (c *HTTPGatewayClient) Refund(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
	url := fmt.Sprintf("%s/api/v1/refunds", c.baseURL)
	return sendRequest[application.RefundRequest, application.RefundResponse](c, ctx, url, &req, idempotencyKey)
}

type gatewayErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, url string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Timeouts and connection failures are transient, never a decline.
		return nil, &application.GatewayError{
			Code:       "gateway_unreachable",
			Message:    err.Error(),
			StatusCode: 0,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var gwErrResp gatewayErrorResponse
		if err := json.Unmarshal(body, &gwErrResp); err != nil || gwErrResp.Err == "" {
			return nil, &application.GatewayError{
				Code:       "unexpected_response",
				Message:    fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(body)),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &application.GatewayError{
			Code:       gwErrResp.Err,
			Message:    gwErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gwResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gwResp, nil
}
