package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheck_ParsesAuthorization(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/authorizations/0xuser", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isValid":    true,
			"maxAmount":  "250.5",
			"expiryDate": time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		})
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "secret-token", 5*time.Second)
	auth, err := client.Check(context.Background(), "0xuser")

	assert.NoError(t, err)
	assert.True(t, auth.IsValid)
	assert.True(t, auth.MaxAmount.Equal(decimal.RequireFromString("250.5")))
	assert.Equal(t, 2026, auth.ExpiryDate.Year())
	assert.Equal(t, "secret-token", gotAuth)
}

func TestCheck_MissingAuthorizationIsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"isValid": false})
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "", 5*time.Second)
	auth, err := client.Check(context.Background(), "0xuser")

	assert.NoError(t, err)
	assert.False(t, auth.IsValid)
}

func TestSend_SubmitsTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xfrom", req["fromAddress"])
		assert.Equal(t, "0xto", req["toAddress"])
		assert.Equal(t, "12.5", req["amount"])
		assert.Equal(t, float64(3), req["retryLimit"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       true,
			"transactionId": "tx-42",
		})
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "", 5*time.Second)
	result, err := client.Send(context.Background(), "0xfrom", "0xto", decimal.RequireFromString("12.5"), 3)

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "tx-42", result.TransactionID)
}

func TestSend_GatewayFailureResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "insufficient balance",
		})
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "", 5*time.Second)
	result, err := client.Send(context.Background(), "0xfrom", "0xto", decimal.NewFromInt(1), 0)

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient balance", result.Error)
}

func TestDo_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "", 5*time.Second)
	_, err := client.Check(context.Background(), "0xuser")

	assert.ErrorContains(t, err, "status 500")
}

func TestSend_ContextDeadlineIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Send(ctx, "0xfrom", "0xto", decimal.NewFromInt(1), 0)

	assert.Error(t, err)
}
