package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library-room-booker/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Store defines the interface for all database operations.
type Store interface {
	RecordAttempt(ctx context.Context, a *model.BookingAttempt) error
	ListAttempts(ctx context.Context, limit int) ([]model.BookingAttempt, error)
	GetAttempt(ctx context.Context, runID string) (*model.BookingAttempt, error)

	SaveAvailability(ctx context.Context, snap *model.AvailabilitySnapshot) error
	LatestAvailability(ctx context.Context) (*model.AvailabilitySnapshot, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB returns the underlying gorm handle.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// RecordAttempt inserts the attempt, replacing an earlier record with the same run id.
func (s *gormStore) RecordAttempt(ctx context.Context, a *model.BookingAttempt) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("failed to record attempt %s: %w", a.RunID, err)
	}
	return nil
}

// ListAttempts returns the most recent attempts first.
func (s *gormStore) ListAttempts(ctx context.Context, limit int) ([]model.BookingAttempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var attempts []model.BookingAttempt
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *gormStore) GetAttempt(ctx context.Context, runID string) (*model.BookingAttempt, error) {
	var a model.BookingAttempt
	if err := s.db.WithContext(ctx).First(&a, "run_id = ?", runID).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// SaveAvailability stores a snapshot and its slots in one transaction.
func (s *gormStore) SaveAvailability(ctx context.Context, snap *model.AvailabilitySnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(snap).Error; err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		if len(snap.Slots) == 0 {
			return nil
		}
		for i := range snap.Slots {
			snap.Slots[i].SnapshotID = snap.ID
		}
		if err := tx.Create(&snap.Slots).Error; err != nil {
			return fmt.Errorf("failed to save %d slots: %w", len(snap.Slots), err)
		}
		return nil
	})
}

// LatestAvailability returns the newest snapshot with its slots in time order.
func (s *gormStore) LatestAvailability(ctx context.Context) (*model.AvailabilitySnapshot, error) {
	var snap model.AvailabilitySnapshot
	err := s.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("minutes ASC, room ASC")
		}).
		Order("observed_at DESC").
		First(&snap).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &snap, nil
}

// UpsertSubscription creates a subscription or refreshes its keys.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
