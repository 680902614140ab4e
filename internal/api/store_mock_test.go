package api

import (
	"context"

	"gorm.io/gorm"

	"library-room-booker/internal/model"
)

// StoreMock is a mock implementation of store.Store.
type StoreMock struct {
	RecordAttemptFunc      func(ctx context.Context, a *model.BookingAttempt) error
	ListAttemptsFunc       func(ctx context.Context, limit int) ([]model.BookingAttempt, error)
	GetAttemptFunc         func(ctx context.Context, runID string) (*model.BookingAttempt, error)
	SaveAvailabilityFunc   func(ctx context.Context, snap *model.AvailabilitySnapshot) error
	LatestAvailabilityFunc func(ctx context.Context) (*model.AvailabilitySnapshot, error)
	UpsertSubscriptionFunc func(ctx context.Context, sub *model.PushSubscription) error
	GetSubscriptionFunc    func(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListSubscriptionsFunc  func(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscriptionFunc func(ctx context.Context, endpoint string) error
}

func (m *StoreMock) RecordAttempt(ctx context.Context, a *model.BookingAttempt) error {
	return m.RecordAttemptFunc(ctx, a)
}

func (m *StoreMock) ListAttempts(ctx context.Context, limit int) ([]model.BookingAttempt, error) {
	return m.ListAttemptsFunc(ctx, limit)
}

func (m *StoreMock) GetAttempt(ctx context.Context, runID string) (*model.BookingAttempt, error) {
	return m.GetAttemptFunc(ctx, runID)
}

func (m *StoreMock) SaveAvailability(ctx context.Context, snap *model.AvailabilitySnapshot) error {
	return m.SaveAvailabilityFunc(ctx, snap)
}

func (m *StoreMock) LatestAvailability(ctx context.Context) (*model.AvailabilitySnapshot, error) {
	return m.LatestAvailabilityFunc(ctx)
}

func (m *StoreMock) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return m.UpsertSubscriptionFunc(ctx, sub)
}

func (m *StoreMock) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	return m.GetSubscriptionFunc(ctx, endpoint)
}

func (m *StoreMock) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	return m.ListSubscriptionsFunc(ctx)
}

func (m *StoreMock) DeleteSubscription(ctx context.Context, endpoint string) error {
	return m.DeleteSubscriptionFunc(ctx, endpoint)
}

func (m *StoreMock) DB() *gorm.DB { return nil }
