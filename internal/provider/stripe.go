package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"khidmapay/internal/config"
)

const NameStripe = "stripe"

// Stripe drives the card and bank rail through Connect. The platform fee
// rides along as application_fee_amount so the split settles on Stripe's
// side in the same charge.
type Stripe struct {
	apiURL  string
	secret  string
	account string
	client  *http.Client
}

func NewStripe(cfg *config.Config) *Stripe {
	return &Stripe{
		apiURL:  cfg.StripeAPIURL,
		secret:  cfg.StripeSecret,
		account: cfg.StripeAccount,
		client:  newHTTPClient(cfg.ProviderTimeout),
	}
}

func (s *Stripe) Name() string { return NameStripe }

func (s *Stripe) SupportsRefund() bool { return true }

type stripeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Stripe) Submit(ctx context.Context, req Request) (*Result, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountFr, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("payment_method", req.PayerRef)
	form.Set("confirm", "true")
	form.Set("description", req.Description)
	form.Set("metadata[reference]", req.Reference)
	if req.CommissionFr > 0 {
		form.Set("application_fee_amount", strconv.FormatInt(req.CommissionFr, 10))
	}
	if s.account != "" {
		form.Set("transfer_data[destination]", s.account)
	}

	return s.call(ctx, s.apiURL+"/payment_intents", form, req.Reference)
}

func (s *Stripe) Refund(ctx context.Context, providerTxnID string, amountFr int64) (*Result, error) {
	form := url.Values{}
	form.Set("payment_intent", providerTxnID)
	form.Set("amount", strconv.FormatInt(amountFr, 10))
	form.Set("refund_application_fee", "true")

	return s.call(ctx, s.apiURL+"/refunds", form, "")
}

func (s *Stripe) call(ctx context.Context, endpoint string, form url.Values, idempotencyKey string) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(s.secret, "")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, transportError(NameStripe, err)
	}
	defer resp.Body.Close()

	raw := readBody(resp.Body)

	var parsed stripeResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &Error{Provider: NameStripe, Message: "malformed response: " + err.Error(), Retryable: resp.StatusCode >= 500}
	}

	if resp.StatusCode >= 400 || parsed.Error != nil {
		message := raw
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		return &Result{
			RawResponse:  raw,
			ErrorMessage: message,
		}, &Error{Provider: NameStripe, Message: message, Retryable: resp.StatusCode >= 500}
	}

	switch parsed.Status {
	case "succeeded", "": // refunds report no intent status
		return &Result{Success: true, ProviderTxnID: parsed.ID, RawResponse: raw}, nil
	case "processing":
		return &Result{Pending: true, ProviderTxnID: parsed.ID, RawResponse: raw}, nil
	default:
		return &Result{
			ProviderTxnID: parsed.ID,
			RawResponse:   raw,
			ErrorMessage:  "unexpected intent status: " + parsed.Status,
		}, &Error{Provider: NameStripe, Message: "unexpected intent status: " + parsed.Status, Retryable: false}
	}
}
