package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khidmapay/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ProviderTimeout:  5 * time.Second,
		WaafiMerchantUID: "M0910291",
		WaafiAPIUserID:   "1000416",
		WaafiAPIKey:      "API-675418888AHX",
		DMoneyMerchant:   "khidma",
		DMoneyAPIToken:   "dm-token",
		StripeSecret:     "sk_test_123",
		StripeAccount:    "acct_1ABC",
	}
}

func TestRegistry_Get(t *testing.T) {
	cfg := testConfig()
	registry := NewRegistry(NewWaafiPay(cfg), NewDMoney(cfg), NewStripe(cfg))

	adapter, err := registry.Get("dmoney")
	require.NoError(t, err)
	assert.Equal(t, "dmoney", adapter.Name())

	_, err = registry.Get("paypal")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestWaafiPay_TestModeMakesNoNetworkCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.WaafiAPIURL = server.URL
	cfg.WaafiTestMode = true

	adapter := NewWaafiPay(cfg)
	result, err := adapter.Submit(context.Background(), Request{
		Reference: "KP-1700000000-42",
		AmountFr:  9000,
		Currency:  "DJF",
		PayerRef:  "77101010",
	})

	require.NoError(t, err)
	assert.False(t, called, "sandbox submit must not reach the network")
	assert.True(t, result.Pending)
	assert.False(t, result.Success)
	assert.Equal(t, "WFP-TEST-KP-1700000000-42", result.ProviderTxnID)
}

func TestWaafiPay_TestModeIsDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.WaafiTestMode = true
	adapter := NewWaafiPay(cfg)

	first, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})
	require.NoError(t, err)
	second, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})
	require.NoError(t, err)

	assert.Equal(t, first.ProviderTxnID, second.ProviderTxnID)
	assert.Equal(t, first.RawResponse, second.RawResponse)
}

func TestWaafiPay_Submit_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope waafiEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		assert.Equal(t, "API_PURCHASE", envelope.ServiceName)
		assert.NotEmpty(t, envelope.RequestID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responseCode":"2001","responseMsg":"RCS_SUCCESS","params":{"transactionId":"WFP-889912","state":"APPROVED"}}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.WaafiAPIURL = server.URL
	cfg.WaafiTestMode = false

	adapter := NewWaafiPay(cfg)
	result, err := adapter.Submit(context.Background(), Request{
		Reference: "KP-1700000000-42",
		AmountFr:  9000,
		Currency:  "DJF",
		PayerRef:  "77101010",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "WFP-889912", result.ProviderTxnID)
	assert.Contains(t, result.RawResponse, "RCS_SUCCESS")
}

func TestWaafiPay_Submit_BusinessRejectionIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseCode":"5310","responseMsg":"Payer account has insufficient funds"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.WaafiAPIURL = server.URL
	cfg.WaafiTestMode = false

	adapter := NewWaafiPay(cfg)
	result, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})

	require.Error(t, err)
	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.False(t, provErr.Retryable)
	assert.Contains(t, provErr.Message, "insufficient funds")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "Payer account has insufficient funds", result.ErrorMessage)
}

func TestWaafiPay_Submit_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.WaafiAPIURL = server.URL
	cfg.WaafiTestMode = false

	adapter := NewWaafiPay(cfg)
	_, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.True(t, provErr.Retryable)
}

func TestWaafiPay_TransportErrorIsRetryable(t *testing.T) {
	cfg := testConfig()
	cfg.WaafiAPIURL = "http://127.0.0.1:1" // nothing listens here
	cfg.WaafiTestMode = false

	adapter := NewWaafiPay(cfg)
	_, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.True(t, provErr.Retryable)
}

func TestDMoney_Submit_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dm-token", r.Header.Get("Authorization"))

		var payload dmoneyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "khidma", payload.Merchant)
		assert.Equal(t, int64(9000), payload.Amount)
		assert.Equal(t, "DJF", payload.Currency)

		w.Write([]byte(`{"status":"success","transaction_id":"DM-20771"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.DMoneyAPIURL = server.URL

	adapter := NewDMoney(cfg)
	result, err := adapter.Submit(context.Background(), Request{
		Reference: "KP-1700000000-42",
		AmountFr:  9000,
		Currency:  "DJF",
		PayerRef:  "77202020",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "DM-20771", result.ProviderTxnID)
}

func TestDMoney_Refund_HitsRefundEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refund", r.URL.Path)
		w.Write([]byte(`{"status":"success","transaction_id":"DM-20771-R"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.DMoneyAPIURL = server.URL

	adapter := NewDMoney(cfg)
	result, err := adapter.Refund(context.Background(), "DM-20771", 4500)

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestDMoney_Submit_DeclinedIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failed","message":"payer declined"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.DMoneyAPIURL = server.URL

	adapter := NewDMoney(cfg)
	result, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF"})

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.False(t, provErr.Retryable)
	assert.Equal(t, "payer declined", result.ErrorMessage)
}

func TestStripe_Submit_FormEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "KP-1700000000-42", r.Header.Get("Idempotency-Key"))

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sk_test_123", user)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "9000", r.PostForm.Get("amount"))
		assert.Equal(t, "djf", r.PostForm.Get("currency"))
		assert.Equal(t, "900", r.PostForm.Get("application_fee_amount"))
		assert.Equal(t, "acct_1ABC", r.PostForm.Get("transfer_data[destination]"))

		w.Write([]byte(`{"id":"pi_3Nx","status":"succeeded"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.StripeAPIURL = server.URL

	adapter := NewStripe(cfg)
	result, err := adapter.Submit(context.Background(), Request{
		Reference:    "KP-1700000000-42",
		AmountFr:     9000,
		CommissionFr: 900,
		Currency:     "DJF",
		PayerRef:     "pm_card_visa",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "pi_3Nx", result.ProviderTxnID)
}

func TestStripe_Submit_CardDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","message":"Your card was declined."}}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.StripeAPIURL = server.URL

	adapter := NewStripe(cfg)
	result, err := adapter.Submit(context.Background(), Request{Reference: "KP-1-1", AmountFr: 100, Currency: "DJF", PayerRef: "pm_card_declined"})

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.False(t, provErr.Retryable)
	assert.Equal(t, "Your card was declined.", result.ErrorMessage)
}

func TestStripe_Refund_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_3Nx", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "4500", r.PostForm.Get("amount"))

		w.Write([]byte(`{"id":"re_5Qz"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.StripeAPIURL = server.URL

	adapter := NewStripe(cfg)
	result, err := adapter.Refund(context.Background(), "pi_3Nx", 4500)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "re_5Qz", result.ProviderTxnID)
}
