package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LocDang637/CosplayDate-sub001/internal/logger"
	"github.com/LocDang637/CosplayDate-sub001/internal/metrics"
	"github.com/LocDang637/CosplayDate-sub001/internal/user"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues payment-event emails in redis and drains the queue from a
// background worker. Enqueue failures never surface to the money path.
type Service struct {
	redis    *redis.Client
	users    user.Repository
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(users user.Repository, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		users:    users,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// NotifyPaymentEvent queues a message for the given user about a wallet or
// booking money event. Best effort: failures are logged and dropped so a
// redis outage cannot fail a committed transaction.
func (s *Service) NotifyPaymentEvent(ctx context.Context, userID int, kind string, amount int64, bookingCode string, success bool) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("notification skipped, user lookup failed", "user_id", userID, "error", err)
		metrics.RecordNotification(kind, "skipped")
		return
	}

	subject, body := composeMessage(u.Name, kind, amount, bookingCode, success)
	if err := s.enqueue(ctx, Job{
		To:      u.Email,
		Name:    u.Name,
		Kind:    kind,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}); err != nil {
		logger.Error("failed to queue notification", "user_id", userID, "kind", kind, "error", err)
		metrics.RecordNotification(kind, "queue_failed")
		return
	}

	metrics.RecordNotification(kind, "queued")
}

func composeMessage(name, kind string, amount int64, bookingCode string, success bool) (string, string) {
	switch kind {
	case "topup":
		if success {
			return "Wallet Top-Up Successful",
				fmt.Sprintf("Hi %s,\n\nYour wallet top-up of %d has been credited.\n\n- CosplayDate Team", name, amount)
		}
		return "Wallet Top-Up Failed",
			fmt.Sprintf("Hi %s,\n\nYour wallet top-up of %d could not be completed. No money was taken from your wallet.\n\n- CosplayDate Team", name, amount)

	case "booking_payment":
		return "Booking Payment Held",
			fmt.Sprintf("Hi %s,\n\nPayment of %d for booking %s is held in escrow until the booking completes.\n\n- CosplayDate Team", name, amount, bookingCode)

	case "booking_release":
		return "Booking Payout Released",
			fmt.Sprintf("Hi %s,\n\nYour payout of %d for booking %s has been released to your wallet.\n\n- CosplayDate Team", name, amount, bookingCode)

	case "booking_refund":
		return "Booking Refund Issued",
			fmt.Sprintf("Hi %s,\n\nA refund of %d for booking %s has been credited to your wallet.\n\n- CosplayDate Team", name, amount, bookingCode)

	default:
		return "Account Update",
			fmt.Sprintf("Hi %s,\n\nThere was a payment event of %d on your account.\n\n- CosplayDate Team", name, amount)
	}
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.LPush(ctx, queueKey, data).Err()
}

// Start drains the queue until ctx is cancelled. Run it from its own
// goroutine.
func (s *Service) Start(ctx context.Context) {
	logger.Info("notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification worker stopped")
			return
		default:
			s.processNext(ctx)
			metrics.NotificationQueueLength.Set(float64(s.QueueLength(ctx)))
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad notification payload", "error", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Error("failed to send notification", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(job, err)
			metrics.RecordNotification(job.Kind, "failed")
		}
		return
	}

	metrics.RecordNotification(job.Kind, "sent")
	logger.Info("notification sent", "to", job.To, "kind", job.Kind)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Error("notification moved to failed queue", "to", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
