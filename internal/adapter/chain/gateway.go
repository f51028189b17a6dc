// Package chain implements the authorization-checker and chain-executor
// collaborator contracts against a wallet gateway service over HTTP JSON.
// The gateway owns key custody, transaction submission and on-chain retry;
// this client only relays requests and reports outcomes.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// GatewayClient is an HTTP client for the wallet gateway.
// It implements both domain.AuthorizationChecker and domain.ChainExecutor.
type GatewayClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewGatewayClient creates a new gateway client.
// timeout bounds every request; callers may additionally pass a context with
// a tighter deadline.
func NewGatewayClient(baseURL, apiToken string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
	}
}

type authorizationResponse struct {
	IsValid    bool      `json:"isValid"`
	MaxAmount  string    `json:"maxAmount"`
	ExpiryDate time.Time `json:"expiryDate"`
}

type sendRequest struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Amount      string `json:"amount"`
	RetryLimit  int    `json:"retryLimit"`
}

type sendResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Error         string `json:"error,omitempty"`
}

// Check retrieves the user's current authorization from the gateway
func (c *GatewayClient) Check(ctx context.Context, userAddress string) (*domain.Authorization, error) {
	url := fmt.Sprintf("%s/v1/authorizations/%s", c.baseURL, userAddress)

	var payload authorizationResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &payload); err != nil {
		return nil, fmt.Errorf("authorization lookup failed: %w", err)
	}

	// Missing or empty max amount means no live authorization
	if payload.MaxAmount == "" {
		return &domain.Authorization{IsValid: false}, nil
	}

	maxAmount, err := decimal.NewFromString(payload.MaxAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization max amount: %w", err)
	}

	return &domain.Authorization{
		IsValid:    payload.IsValid,
		MaxAmount:  maxAmount,
		ExpiryDate: payload.ExpiryDate,
	}, nil
}

// Send submits one transfer leg to the gateway. retryLimit is relayed
// verbatim; retry mechanics are the gateway's concern.
func (c *GatewayClient) Send(ctx context.Context, fromAddress, toAddress string, amount decimal.Decimal, retryLimit int) (*domain.SendResult, error) {
	url := fmt.Sprintf("%s/v1/transfers", c.baseURL)

	req := sendRequest{
		FromAddress: fromAddress,
		ToAddress:   toAddress,
		Amount:      amount.String(),
		RetryLimit:  retryLimit,
	}

	var payload sendResponse
	if err := c.do(ctx, http.MethodPost, url, req, &payload); err != nil {
		return nil, fmt.Errorf("transfer submission failed: %w", err)
	}

	return &domain.SendResult{
		Success:       payload.Success,
		TransactionID: payload.TransactionID,
		Error:         payload.Error,
	}, nil
}

func (c *GatewayClient) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
