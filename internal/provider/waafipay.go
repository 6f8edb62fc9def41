package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"khidmapay/internal/config"
	"khidmapay/internal/logger"
)

const NameWaafiPay = "waafipay"

// Sandbox credentials WaafiPay hands out for merchant integration testing.
// In test mode the adapter never leaves the process and answers as if this
// payer approved the charge.
const (
	waafiSandboxPayer = "252770000000"
	waafiSandboxPIN   = "1212"
)

const waafiApprovedCode = "2001"

// WaafiPay is the mobile-wallet rail used by most payers. In test mode it
// returns a pending result; confirmation runs later through the scheduled
// job path so a restart between the two steps loses nothing.
type WaafiPay struct {
	apiURL      string
	merchantUID string
	apiUserID   string
	apiKey      string
	testMode    bool
	client      *http.Client
}

func NewWaafiPay(cfg *config.Config) *WaafiPay {
	return &WaafiPay{
		apiURL:      cfg.WaafiAPIURL,
		merchantUID: cfg.WaafiMerchantUID,
		apiUserID:   cfg.WaafiAPIUserID,
		apiKey:      cfg.WaafiAPIKey,
		testMode:    cfg.WaafiTestMode,
		client:      newHTTPClient(cfg.ProviderTimeout),
	}
}

func (w *WaafiPay) Name() string { return NameWaafiPay }

func (w *WaafiPay) SupportsRefund() bool { return true }

func (w *WaafiPay) TestMode() bool { return w.testMode }

type waafiEnvelope struct {
	SchemaVersion string         `json:"schemaVersion"`
	RequestID     string         `json:"requestId"`
	Timestamp     string         `json:"timestamp"`
	ChannelName   string         `json:"channelName"`
	ServiceName   string         `json:"serviceName"`
	ServiceParams map[string]any `json:"serviceParams"`
}

type waafiResponse struct {
	ResponseCode string `json:"responseCode"`
	ResponseMsg  string `json:"responseMsg"`
	Params       struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
	} `json:"params"`
}

func (w *WaafiPay) Submit(ctx context.Context, req Request) (*Result, error) {
	if w.testMode {
		return w.submitSandbox(req), nil
	}

	envelope := w.envelope("API_PURCHASE", map[string]any{
		"merchantUid":   w.merchantUID,
		"apiUserId":     w.apiUserID,
		"apiKey":        w.apiKey,
		"paymentMethod": "MWALLET_ACCOUNT",
		"payerInfo": map[string]any{
			"accountNo": req.PayerRef,
		},
		"transactionInfo": map[string]any{
			"referenceId": req.Reference,
			"invoiceId":   req.Reference,
			"amount":      fmt.Sprintf("%d", req.AmountFr),
			"currency":    req.Currency,
			"description": req.Description,
		},
	})

	return w.call(ctx, envelope)
}

func (w *WaafiPay) Refund(ctx context.Context, providerTxnID string, amountFr int64) (*Result, error) {
	if w.testMode {
		logger.Info("sandbox refund", "provider", NameWaafiPay, "provider_txn_id", providerTxnID, "amount_fr", amountFr)
		return &Result{
			Success:       true,
			ProviderTxnID: providerTxnID,
			RawResponse:   `{"responseCode":"2001","responseMsg":"RCS_SUCCESS","params":{"state":"REFUNDED"}}`,
		}, nil
	}

	envelope := w.envelope("API_REFUND", map[string]any{
		"merchantUid":   w.merchantUID,
		"apiUserId":     w.apiUserID,
		"apiKey":        w.apiKey,
		"transactionId": providerTxnID,
		"refundReason":  "booking cancellation",
		"amount":        fmt.Sprintf("%d", amountFr),
	})

	return w.call(ctx, envelope)
}

// submitSandbox answers deterministically without any network traffic. The
// result is pending; the caller schedules the delayed confirmation.
func (w *WaafiPay) submitSandbox(req Request) *Result {
	raw, _ := json.Marshal(map[string]any{
		"responseCode": waafiApprovedCode,
		"responseMsg":  "RCS_SUCCESS",
		"params": map[string]any{
			"transactionId": "WFP-TEST-" + req.Reference,
			"state":         "PENDING",
			"accountNo":     waafiSandboxPayer,
			"pin":           waafiSandboxPIN,
		},
	})

	logger.Info("sandbox purchase accepted",
		"provider", NameWaafiPay,
		"reference", req.Reference,
		"amount_fr", req.AmountFr,
	)

	return &Result{
		Pending:       true,
		ProviderTxnID: "WFP-TEST-" + req.Reference,
		RawResponse:   string(raw),
	}
}

func (w *WaafiPay) envelope(serviceName string, params map[string]any) waafiEnvelope {
	return waafiEnvelope{
		SchemaVersion: "1.0",
		RequestID:     uuid.NewString(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ChannelName:   "WEB",
		ServiceName:   serviceName,
		ServiceParams: params,
	}
}

func (w *WaafiPay) call(ctx context.Context, envelope waafiEnvelope) (*Result, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, transportError(NameWaafiPay, err)
	}
	defer resp.Body.Close()

	raw := readBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(NameWaafiPay, resp.StatusCode, raw)
	}

	var parsed waafiResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &Error{Provider: NameWaafiPay, Message: "malformed response: " + err.Error(), Retryable: true}
	}

	// WaafiPay reports business rejections with HTTP 200 and a non-2001
	// response code. Those are terminal.
	if parsed.ResponseCode != waafiApprovedCode {
		return &Result{
			RawResponse:  raw,
			ErrorMessage: parsed.ResponseMsg,
		}, &Error{Provider: NameWaafiPay, Message: parsed.ResponseMsg, Retryable: false}
	}

	return &Result{
		Success:       true,
		ProviderTxnID: parsed.Params.TransactionID,
		RawResponse:   raw,
	}, nil
}
