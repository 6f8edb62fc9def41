package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"khidmapay/internal/logger"
	"khidmapay/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

const (
	TypePaymentReceived  = "payment_received"
	TypePaymentConfirmed = "payment_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypeRefundIssued     = "refund_issued"
	TypeWithdrawalUpdate = "withdrawal_update"
)

// Event is handed to the external notification collaborator. Delivery
// beyond the webhook handoff is its concern, not ours.
type Event struct {
	UserID    int       `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	BookingID int       `json:"booking_id,omitempty"`
	Tries     int       `json:"tries"`
	Created   time.Time `json:"created"`
}

type Service struct {
	redis         *redis.Client
	webhookURL    string
	webhookSecret string
	client        *http.Client
}

func New(redisAddr, webhookURL, webhookSecret string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		webhookURL:    webhookURL,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify queues an event. Best-effort by contract: callers log a failure
// here but never roll back financial state because of it.
func (s *Service) Notify(ctx context.Context, event Event) error {
	event.Created = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal notification: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue notification for user %d: %v", event.UserID, err)
		metrics.RecordNotification(event.Type, "queue_error")
		return err
	}

	logger.Infof("Notification queued: %s for user %d", event.Type, event.UserID)
	return nil
}

func (s *Service) NotifyPaymentReceived(ctx context.Context, professionalID, bookingID int, amountFr int64) error {
	return s.Notify(ctx, Event{
		UserID:    professionalID,
		Type:      TypePaymentReceived,
		Title:     "Payment received",
		Message:   fmt.Sprintf("You earned %d DJF for booking #%d. Funds are pending release.", amountFr, bookingID),
		BookingID: bookingID,
	})
}

func (s *Service) NotifyPaymentConfirmed(ctx context.Context, clientID, bookingID int, amountFr int64) error {
	return s.Notify(ctx, Event{
		UserID:    clientID,
		Type:      TypePaymentConfirmed,
		Title:     "Payment confirmed",
		Message:   fmt.Sprintf("Your payment of %d DJF for booking #%d is confirmed.", amountFr, bookingID),
		BookingID: bookingID,
	})
}

func (s *Service) NotifyRefund(ctx context.Context, clientID, bookingID int, refundFr int64, percentage int64) error {
	return s.Notify(ctx, Event{
		UserID:    clientID,
		Type:      TypeRefundIssued,
		Title:     "Refund issued",
		Message:   fmt.Sprintf("Booking #%d cancelled. Refund: %d DJF (%d%%).", bookingID, refundFr, percentage),
		BookingID: bookingID,
	})
}

func (s *Service) NotifyCancellation(ctx context.Context, professionalID, bookingID int, percentage int64) error {
	return s.Notify(ctx, Event{
		UserID:    professionalID,
		Type:      TypeBookingCancelled,
		Title:     "Booking cancelled",
		Message:   fmt.Sprintf("Booking #%d was cancelled by the client (%d%% refunded).", bookingID, percentage),
		BookingID: bookingID,
	})
}

func (s *Service) NotifyWithdrawal(ctx context.Context, professionalID int, status string, amountFr int64) error {
	return s.Notify(ctx, Event{
		UserID:  professionalID,
		Type:    TypeWithdrawalUpdate,
		Title:   "Withdrawal " + status,
		Message: fmt.Sprintf("Your withdrawal of %d DJF is now %s.", amountFr, status),
	})
}

// Start drains the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	gauge := time.NewTicker(30 * time.Second)
	defer gauge.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		case <-gauge.C:
			s.QueueLength(ctx)
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var event Event
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	event.Tries++
	if err := s.deliver(ctx, event); err != nil {
		logger.Errorf("Failed to deliver notification to user %d: %v", event.UserID, err)

		if event.Tries < maxTries {
			data, _ := json.Marshal(event)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(event, err)
			metrics.RecordNotification(event.Type, "failed")
		}
		return
	}

	metrics.RecordNotification(event.Type, "delivered")
}

// deliver POSTs the event to the collaborator webhook, signed so the
// receiver can verify origin.
func (s *Service) deliver(ctx context.Context, event Event) error {
	if s.webhookURL == "" {
		logger.Warn("No webhook URL configured, dropping notification", "type", event.Type, "user_id", event.UserID)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "KhidmaPay-Notify/1.0")
	req.Header.Set("X-Khidma-Signature", Sign(data, s.webhookSecret))

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
}

// Sign computes the hex HMAC-SHA256 the receiver checks against.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) saveFailed(event Event, err error) {
	failed := map[string]interface{}{
		"event": event,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: user %d type %s", event.UserID, event.Type)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
