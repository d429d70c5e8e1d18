package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProcessorAPI is the outbound surface of the payment processor this service
// calls. Both calls are synchronous network requests with their own timeout;
// a transfer timeout is never conflated with a store write failure.
type ProcessorAPI interface {
	GetSubscription(ctx context.Context, processorSubscriptionID string) (*ProcessorSubscription, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// ProcessorSubscription is the subset of the processor's subscription object
// this service reads when resolving state it missed locally.
type ProcessorSubscription struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

// TransferRequest moves already-settled funds to a creator's connected payout
// account. TransferGroup carries the processor subscription id and the
// description references the invoice id so individual transfers can be matched
// back to ledger entries during manual reconciliation.
type TransferRequest struct {
	AmountCents          int64             `json:"amount_cents"`
	Currency             string            `json:"currency"`
	DestinationAccountID string            `json:"destination_account_id"`
	TransferGroup        string            `json:"transfer_group"`
	Description          string            `json:"description"`
	Metadata             map[string]string `json:"metadata"`
}

type TransferResult struct {
	TransferID string `json:"id"`
	Status     string `json:"status"`
}

// ProcessorClient talks to the processor's REST API.
type ProcessorClient struct {
	APIBaseURL string
	APIKey     string

	HTTPClient *http.Client
}

// NewProcessorClient builds a client from the payments configuration.
func NewProcessorClient(cfg *Config) *ProcessorClient {
	return &ProcessorClient{
		APIBaseURL: strings.TrimRight(cfg.ProcessorAPIBaseURL, "/"),
		APIKey:     cfg.ProcessorAPIKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *ProcessorClient) GetSubscription(ctx context.Context, processorSubscriptionID string) (*ProcessorSubscription, error) {
	id := strings.TrimSpace(processorSubscriptionID)
	if id == "" {
		return nil, errors.New("processor subscription id is required")
	}

	endpoint := c.APIBaseURL + "/subscriptions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("processor subscription request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out ProcessorSubscription
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("processor subscription response missing id")
	}
	return &out, nil
}

func (c *ProcessorClient) CreateTransfer(ctx context.Context, transfer TransferRequest) (*TransferResult, error) {
	if transfer.AmountCents <= 0 {
		return nil, errors.New("transfer amount must be positive")
	}
	if strings.TrimSpace(transfer.DestinationAccountID) == "" {
		return nil, errors.New("transfer destination account is required")
	}

	payload, err := json.Marshal(transfer)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("processor transfer request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out TransferResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.TransferID) == "" {
		return nil, errors.New("processor transfer response missing id")
	}
	return &out, nil
}

func (c *ProcessorClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
}
