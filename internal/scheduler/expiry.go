package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/jobs"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/service"
)

// SQS rejects delays above 15 minutes.
const maxSQSDelay = 15 * time.Minute

// SQSSender is the subset of the SQS client used to publish expiry messages.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSExpiryScheduler publishes delayed reservation expiry messages.
type SQSExpiryScheduler struct {
	client   SQSSender
	queueURL string
	clock    clock.Clock
}

func NewSQSExpiryScheduler(client SQSSender, queueURL string, clk clock.Clock) *SQSExpiryScheduler {
	return &SQSExpiryScheduler{client: client, queueURL: queueURL, clock: clk}
}

var _ service.ExpiryScheduler = (*SQSExpiryScheduler)(nil)

// ScheduleReservationExpiry sends the message with the requested delay, capped
// at the SQS maximum. The consumer holds back messages that arrive early.
func (s *SQSExpiryScheduler) ScheduleReservationExpiry(ctx context.Context, reservationID int32, delay time.Duration) error {
	body, err := json.Marshal(jobs.ReservationExpiryMessage{
		Type:          jobs.MessageTypeReservationExpiry,
		ReservationID: reservationID,
		NotBefore:     s.clock.Now().Add(delay),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal expiry message: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(s.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: delaySeconds(delay),
	})
	if err != nil {
		return fmt.Errorf("failed to send expiry message to SQS: %w", err)
	}
	return nil
}

func delaySeconds(delay time.Duration) int32 {
	if delay <= 0 {
		return 0
	}
	if delay > maxSQSDelay {
		delay = maxSQSDelay
	}
	return int32((delay + time.Second - 1) / time.Second)
}

// ExpireFunc expires one reservation if it is still unpaid.
type ExpireFunc func(ctx context.Context, reservationID int32) (bool, error)

// LocalExpiryScheduler runs expiries in-process with timers. Pending timers
// are lost on restart; the ExpireUnpaidReservations sweep covers those.
type LocalExpiryScheduler struct {
	mu      sync.Mutex
	expire  ExpireFunc
	timers  map[int32]*time.Timer
	stopped bool
}

func NewLocalExpiryScheduler() *LocalExpiryScheduler {
	return &LocalExpiryScheduler{timers: make(map[int32]*time.Timer)}
}

var _ service.ExpiryScheduler = (*LocalExpiryScheduler)(nil)

// Bind sets the expiry callback. It is separate from construction because the
// reservation service itself depends on the scheduler.
func (s *LocalExpiryScheduler) Bind(expire ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire = expire
}

func (s *LocalExpiryScheduler) ScheduleReservationExpiry(ctx context.Context, reservationID int32, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("expiry scheduler stopped")
	}
	if existing, ok := s.timers[reservationID]; ok {
		existing.Stop()
	}
	s.timers[reservationID] = time.AfterFunc(delay, func() { s.fire(reservationID) })
	return nil
}

func (s *LocalExpiryScheduler) fire(reservationID int32) {
	s.mu.Lock()
	delete(s.timers, reservationID)
	expire := s.expire
	s.mu.Unlock()

	if expire == nil {
		logger.Warn("Reservation expiry fired with no handler bound", "reservationID", reservationID)
		return
	}
	expired, err := expire(context.Background(), reservationID)
	if err != nil {
		logger.Error("Scheduled reservation expiry failed", "reservationID", reservationID, "error", err)
		return
	}
	logger.Debug("Scheduled reservation expiry ran", "reservationID", reservationID, "expired", expired)
}

// Pending reports how many expiries are waiting to fire.
func (s *LocalExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending timer.
func (s *LocalExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
