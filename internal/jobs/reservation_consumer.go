package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"smartpark-backend/internal/clock"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
)

const MessageTypeReservationExpiry = "reservation_expiry"

// ReservationExpiryMessage asks the worker to expire a reservation that is
// still unpaid at NotBefore.
type ReservationExpiryMessage struct {
	Type          string    `json:"type"`
	ReservationID int32     `json:"reservation_id"`
	NotBefore     time.Time `json:"not_before"`
}

// SQSAPI is the subset of the SQS client used by the consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

var errNotDue = errors.New("message not yet due")

// ReservationExpiryConsumer long-polls the expiry queue. Messages are deleted
// once handled; failures are left for redelivery after the visibility timeout.
type ReservationExpiryConsumer struct {
	client       SQSAPI
	queueURL     string
	reservations ReservationSweeper
	clock        clock.Clock
	retryDelay   time.Duration
}

func NewReservationExpiryConsumer(client SQSAPI, queueURL string, reservations ReservationSweeper, clk clock.Clock) *ReservationExpiryConsumer {
	return &ReservationExpiryConsumer{
		client:       client,
		queueURL:     queueURL,
		reservations: reservations,
		clock:        clk,
		retryDelay:   5 * time.Second,
	}
}

func (c *ReservationExpiryConsumer) Start(ctx context.Context) {
	logger.Info("Reservation expiry consumer started", "queue", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reservation expiry consumer stopped")
			return
		default:
		}

		result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to receive expiry messages", "error", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		c.ProcessMessages(ctx, result.Messages)
	}
}

// ProcessMessages handles one received batch and returns how many messages
// were deleted from the queue.
func (c *ReservationExpiryConsumer) ProcessMessages(ctx context.Context, messages []types.Message) int {
	deleted := 0
	for _, message := range messages {
		err := c.handle(ctx, message)
		switch {
		case err == nil:
			if c.deleteMessage(ctx, message.ReceiptHandle) {
				deleted++
			}
		case errors.Is(err, errNotDue):
			logger.Debug("Expiry message not yet due", "messageID", aws.ToString(message.MessageId))
		default:
			logger.Error("Failed to process expiry message", "messageID", aws.ToString(message.MessageId), "error", err)
		}
	}
	return deleted
}

func (c *ReservationExpiryConsumer) handle(ctx context.Context, message types.Message) error {
	if message.Body == nil {
		logger.Warn("Dropping expiry message with empty body", "messageID", aws.ToString(message.MessageId))
		return nil
	}

	var msg ReservationExpiryMessage
	if err := json.Unmarshal([]byte(*message.Body), &msg); err != nil {
		logger.Warn("Dropping malformed expiry message", "messageID", aws.ToString(message.MessageId), "error", err)
		return nil
	}
	if msg.Type != MessageTypeReservationExpiry {
		logger.Warn("Dropping expiry message of unknown type", "type", msg.Type)
		return nil
	}
	if !msg.NotBefore.IsZero() && c.clock.Now().Before(msg.NotBefore) {
		return errNotDue
	}

	expired, err := c.reservations.ExpireUnpaid(ctx, msg.ReservationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("expire reservation %d: %w", msg.ReservationID, err)
	}
	logger.Debug("Handled reservation expiry", "reservationID", msg.ReservationID, "expired", expired)
	return nil
}

func (c *ReservationExpiryConsumer) deleteMessage(ctx context.Context, receiptHandle *string) bool {
	if receiptHandle == nil {
		logger.Warn("Cannot delete expiry message without receipt handle")
		return false
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		logger.Error("Failed to delete expiry message", "error", err)
		return false
	}
	return true
}
