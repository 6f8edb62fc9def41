package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/payments/initiate", "201", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/payments/initiate", "201"))
	assert.Equal(t, float64(1), count)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/withdrawals", "201", 0.1)
	RecordHTTPRequest("POST", "/withdrawals", "201", 0.2)
	RecordHTTPRequest("POST", "/withdrawals", "400", 0.05)

	okCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/withdrawals", "201"))
	badCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/withdrawals", "400"))

	assert.Equal(t, float64(2), okCount)
	assert.Equal(t, float64(1), badCount)
}

func TestRecordPayment(t *testing.T) {
	PaymentsTotal.Reset()

	RecordPayment("waafipay", "completed")
	RecordPayment("waafipay", "failed")
	RecordPayment("dmoney", "completed")

	waafiOK := testutil.ToFloat64(PaymentsTotal.WithLabelValues("waafipay", "completed"))
	waafiFail := testutil.ToFloat64(PaymentsTotal.WithLabelValues("waafipay", "failed"))
	dmoneyOK := testutil.ToFloat64(PaymentsTotal.WithLabelValues("dmoney", "completed"))

	assert.Equal(t, float64(1), waafiOK)
	assert.Equal(t, float64(1), waafiFail)
	assert.Equal(t, float64(1), dmoneyOK)
}

func TestRecordPaymentAmount(t *testing.T) {
	PaymentAmountFr.Reset()

	RecordPaymentAmount("waafipay", 10000)
	RecordPaymentAmount("waafipay", 5000)

	total := testutil.ToFloat64(PaymentAmountFr.WithLabelValues("waafipay"))
	assert.Equal(t, float64(15000), total)
}

func TestRecordRefund(t *testing.T) {
	RefundsTotal.Reset()

	RecordRefund("FULL_REFUND_24H")
	RecordRefund("PARTIAL_REFUND_12H")
	RecordRefund("FULL_REFUND_24H")

	full := testutil.ToFloat64(RefundsTotal.WithLabelValues("FULL_REFUND_24H"))
	partial := testutil.ToFloat64(RefundsTotal.WithLabelValues("PARTIAL_REFUND_12H"))

	assert.Equal(t, float64(2), full)
	assert.Equal(t, float64(1), partial)
}

func TestRecordWithdrawal(t *testing.T) {
	WithdrawalsTotal.Reset()

	RecordWithdrawal("pending")
	RecordWithdrawal("completed")

	pending := testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("pending"))
	completed := testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("completed"))

	assert.Equal(t, float64(1), pending)
	assert.Equal(t, float64(1), completed)
}

func TestRecordIntegrityFailure(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "khidmapay_ledger_integrity_failures_total_test",
			Help: "Wallet balances that did not reconcile against the transaction log",
		},
	)

	oldCounter := LedgerIntegrityFailures
	LedgerIntegrityFailures = testCounter
	defer func() { LedgerIntegrityFailures = oldCounter }()

	RecordIntegrityFailure()
	RecordIntegrityFailure()

	count := testutil.ToFloat64(testCounter)
	assert.Equal(t, float64(2), count)
}

func TestRecordJob(t *testing.T) {
	JobsTotal.Reset()

	RecordJob("confirm_payment", "completed")
	RecordJob("release_funds", "failed")

	confirmed := testutil.ToFloat64(JobsTotal.WithLabelValues("confirm_payment", "completed"))
	failed := testutil.ToFloat64(JobsTotal.WithLabelValues("release_funds", "failed"))

	assert.Equal(t, float64(1), confirmed)
	assert.Equal(t, float64(1), failed)
}

func TestNotificationQueueLength(t *testing.T) {
	NotificationQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(NotificationQueueLength))

	NotificationQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(NotificationQueueLength))
}
