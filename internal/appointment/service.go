package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/config"
	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventSlotBlocked              = "SLOT_BLOCKED"
	EventSlotUnblocked            = "SLOT_UNBLOCKED"
)

// EventPublisher fans appointment events out to other modules.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, appointmentID uuid.UUID, payload []byte) error
}

type Service struct {
	repo      Repository
	locker    redisclient.Locker
	cfg       config.Config
	now       func() time.Time
	publisher EventPublisher
}

type Option func(*Service)

// WithClock replaces time.Now for every past/upcoming decision.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService wires the service. A nil locker leaves slot exclusivity to the
// store's occupied-slot constraint alone.
func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) location() *time.Location {
	return s.cfg.Location()
}

func (s *Service) loadDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return doctor, nil
}

// parseSlot validates an ISO date and a time label offered by one of the catalogs,
// returning the civil date and the canonical label.
func (s *Service) parseSlot(date, label string) (time.Time, string, error) {
	day, err := slot.ParseDate(date)
	if err != nil {
		return time.Time{}, "", err
	}

	canonical, err := slot.NormalizeLabel(label)
	if err != nil {
		return time.Time{}, "", err
	}
	if !slot.Offered(canonical, slot.Daily, slot.Listing) {
		return time.Time{}, "", ErrInvalidSlot
	}

	return day, canonical, nil
}

// started reports whether the slot instant is at or before now.
func (s *Service) started(day time.Time, label string) bool {
	at, err := slot.Instant(day, label, s.location())
	if err != nil {
		return true
	}
	return !at.After(s.now())
}

// withSlotLock runs fn under the per-slot lock. If the lock backend cannot be
// reached fn still runs unlocked and the occupied-slot constraint decides.
func (s *Service) withSlotLock(ctx context.Context, key SlotKey, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	err := s.locker.WithSlotLock(ctx, key.String(), fn)
	if errors.Is(err, redisclient.ErrLockUnavailable) {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("slot", key.String()).
			Msg("slot lock unavailable, falling back to store constraint")
		return fn(ctx)
	}
	return err
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	logger := zerolog.Ctx(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		logger.Error().Err(err).
			Str("event", eventType).
			Stringer("appointment_id", appointmentID).
			Msg("failed to insert event log")
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, appointmentID, data); err != nil {
		logger.Warn().Err(err).
			Str("event", eventType).
			Stringer("appointment_id", appointmentID).
			Msg("failed to publish event")
	}
}
