package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/config"
	"github.com/retailstore/payment-service/internal/infrastructure/gateway"
)

func newTestClient(baseURL string) application.GatewayClient {
	return gateway.NewGatewayClient(config.GatewayConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		ConnTimeout: 2 * time.Second,
	})
}

func TestHTTPGatewayClient_Charge(t *testing.T) {
	ctx := context.Background()

	t.Run("successful charge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/charges", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, "txn-123", r.Header.Get("Idempotency-Key"))

			var req application.ChargeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "stripe", req.Method)

			json.NewEncoder(w).Encode(application.ChargeResponse{
				Authorized:       true,
				GatewayReference: "ch-789",
				CreatedAt:        time.Now(),
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		resp, err := client.Charge(ctx, application.ChargeRequest{
			Amount: decimal.NewFromFloat(49.99),
			Method: "stripe",
		}, "txn-123")

		require.NoError(t, err)
		assert.True(t, resp.Authorized)
		assert.Equal(t, "ch-789", resp.GatewayReference)
	})

	t.Run("decline returns gateway error with status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":"card_declined","message":"insufficient funds"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Charge(ctx, application.ChargeRequest{Method: "card"}, "txn-123")

		require.Error(t, err)
		gwErr, ok := application.IsGatewayError(err)
		require.True(t, ok)
		assert.Equal(t, "card_declined", gwErr.Code)
		assert.Equal(t, http.StatusPaymentRequired, gwErr.StatusCode)
		assert.False(t, gwErr.Unavailable())
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Charge(ctx, application.ChargeRequest{Method: "card"}, "txn-123")

		require.Error(t, err)
		gwErr, ok := application.IsGatewayError(err)
		require.True(t, ok)
		assert.Equal(t, "unexpected_response", gwErr.Code)
		assert.True(t, gwErr.Unavailable())
	})

	t.Run("connection failure is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := newTestClient(server.URL)
		_, err := client.Charge(ctx, application.ChargeRequest{Method: "card"}, "txn-123")

		require.Error(t, err)
		assert.True(t, application.IsGatewayUnavailable(err))
	})

	t.Run("timeout is unavailable, not a decline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := gateway.NewGatewayClient(config.GatewayConfig{
			BaseURL:     server.URL,
			APIKey:      "test-key",
			ConnTimeout: 20 * time.Millisecond,
		})

		_, err := client.Charge(ctx, application.ChargeRequest{Method: "card"}, "txn-123")

		require.Error(t, err)
		assert.True(t, application.IsGatewayUnavailable(err))
		assert.False(t, application.IsGatewayDeclined(err))
	})
}

func TestHTTPGatewayClient_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("successful refund", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/refunds", r.URL.Path)
			assert.Equal(t, "txn-123:refund", r.Header.Get("Idempotency-Key"))

			var req application.RefundRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ch-789", req.GatewayReference)

			json.NewEncoder(w).Encode(application.RefundResponse{
				Refunded:   true,
				RefundID:   "ref-001",
				RefundedAt: time.Now(),
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		resp, err := client.Refund(ctx, application.RefundRequest{
			GatewayReference: "ch-789",
		}, "txn-123:refund")

		require.NoError(t, err)
		assert.True(t, resp.Refunded)
		assert.Equal(t, "ref-001", resp.RefundID)
	})

	t.Run("malformed error body falls back to unexpected_response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Refund(ctx, application.RefundRequest{GatewayReference: "ch-789"}, "key")

		require.Error(t, err)
		gwErr, ok := application.IsGatewayError(err)
		require.True(t, ok)
		assert.Equal(t, "unexpected_response", gwErr.Code)
	})
}
