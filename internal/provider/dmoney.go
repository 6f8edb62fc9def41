package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"khidmapay/internal/config"
)

const NameDMoney = "dmoney"

// DMoney is the Djibouti Telecom mobile-money rail. Synchronous: the payer
// confirms on their handset before the API call returns.
type DMoney struct {
	apiURL   string
	merchant string
	apiToken string
	client   *http.Client
}

func NewDMoney(cfg *config.Config) *DMoney {
	return &DMoney{
		apiURL:   cfg.DMoneyAPIURL,
		merchant: cfg.DMoneyMerchant,
		apiToken: cfg.DMoneyAPIToken,
		client:   newHTTPClient(cfg.ProviderTimeout),
	}
}

func (d *DMoney) Name() string { return NameDMoney }

func (d *DMoney) SupportsRefund() bool { return true }

type dmoneyRequest struct {
	Merchant    string `json:"merchant"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PayerPhone  string `json:"payer_phone"`
	Description string `json:"description"`
}

type dmoneyResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (d *DMoney) Submit(ctx context.Context, req Request) (*Result, error) {
	payload := dmoneyRequest{
		Merchant:    d.merchant,
		Reference:   req.Reference,
		Amount:      req.AmountFr,
		Currency:    req.Currency,
		PayerPhone:  req.PayerRef,
		Description: req.Description,
	}
	return d.call(ctx, d.apiURL, payload)
}

func (d *DMoney) Refund(ctx context.Context, providerTxnID string, amountFr int64) (*Result, error) {
	payload := map[string]any{
		"merchant":       d.merchant,
		"transaction_id": providerTxnID,
		"amount":         amountFr,
	}
	return d.call(ctx, d.apiURL+"/refund", payload)
}

func (d *DMoney) call(ctx context.Context, url string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiToken)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, transportError(NameDMoney, err)
	}
	defer resp.Body.Close()

	raw := readBody(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, statusError(NameDMoney, resp.StatusCode, raw)
	}

	var parsed dmoneyResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &Error{Provider: NameDMoney, Message: "malformed response: " + err.Error(), Retryable: true}
	}

	if parsed.Status != "success" {
		return &Result{
			RawResponse:  raw,
			ErrorMessage: parsed.Message,
		}, &Error{Provider: NameDMoney, Message: parsed.Message, Retryable: false}
	}

	return &Result{
		Success:       true,
		ProviderTxnID: parsed.TransactionID,
		RawResponse:   raw,
	}, nil
}
