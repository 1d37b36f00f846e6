package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"smartpark-backend/internal/domain"
)

type MockExpiryScheduler struct {
	mock.Mock
}

func (m *MockExpiryScheduler) ScheduleReservationExpiry(ctx context.Context, reservationID int32, delay time.Duration) error {
	args := m.Called(ctx, reservationID, delay)
	return args.Error(0)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	args := m.Called(ctx, token, title, body, data)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) Get(ctx context.Context, zoneID int32) (*domain.ZoneAvailability, bool, error) {
	args := m.Called(ctx, zoneID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.ZoneAvailability), args.Bool(1), args.Error(2)
}

func (m *MockAvailabilityCache) Set(ctx context.Context, availability *domain.ZoneAvailability) error {
	args := m.Called(ctx, availability)
	return args.Error(0)
}
