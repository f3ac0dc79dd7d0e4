package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
)

// BookAppointment creates a pending appointment for the patient. The conflict check
// runs inside the slot lock and the store's unique index rejects any insert that
// slips past it, so two racing patients cannot both hold the slot.
func (s *Service) BookAppointment(ctx context.Context, patientID uuid.UUID, req BookingRequest) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, ErrPatientSessionRequired
	}
	if req.DoctorID == uuid.Nil || blank(req.Date) || blank(req.Time) || blank(req.Type) {
		return nil, ErrMissingFields
	}

	// The requested type is advisory; it must still be well formed.
	if _, err := ParseConsultationType(strings.TrimSpace(req.Type)); err != nil {
		return nil, err
	}

	day, label, err := s.parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, ErrPatientSessionRequired
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.loadDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	if s.started(day, label) {
		return nil, ErrSlotInPast
	}

	key := SlotKey{DoctorID: doctor.ID, Date: day, Time: label}

	var notes *string
	if n := strings.TrimSpace(req.Notes); n != "" {
		notes = &n
	}

	var created *Appointment

	err = s.withSlotLock(ctx, key, func(lockCtx context.Context) error {
		// Inside the critical section re-check for anything occupying this slot
		existing, err := s.repo.FindOccupying(lockCtx, key)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check occupied slot: %w", err)
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		pid := patientID
		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			ID:              uuid.New(),
			DoctorID:        doctor.ID,
			PatientID:       &pid,
			Date:            day,
			Time:            label,
			Type:            doctor.OnlineStatus,
			ConsultationFee: doctor.ConsultationFee,
			Status:          StatusPending,
			Notes:           notes,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotAlreadyBooked
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctor.ID.String(),
			"patient_id": patientID.String(),
			"date":       key.Date.Format("2006-01-02"),
			"time":       label,
			"type":       string(appt.Type),
			"fee":        appt.ConsultationFee.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Stringer("appointment_id", created.ID).
		Stringer("doctor_id", created.DoctorID).
		Str("slot", key.String()).
		Msg("appointment booked")

	return created, nil
}

// BlockSlot marks a slot unavailable for patients without creating a booking.
func (s *Service) BlockSlot(ctx context.Context, doctorID uuid.UUID, date, timeLabel string) (uuid.UUID, error) {
	if doctorID == uuid.Nil {
		return uuid.Nil, ErrDoctorSessionRequired
	}
	if blank(date) || blank(timeLabel) {
		return uuid.Nil, ErrMissingSlotFields
	}

	day, label, err := s.parseSlot(date, timeLabel)
	if err != nil {
		return uuid.Nil, err
	}

	doctor, err := s.loadDoctor(ctx, doctorID)
	if err != nil {
		return uuid.Nil, err
	}

	if s.started(day, label) {
		return uuid.Nil, ErrSlotInPast
	}

	key := SlotKey{DoctorID: doctor.ID, Date: day, Time: label}
	var blockedID uuid.UUID

	err = s.withSlotLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := s.repo.FindOccupying(lockCtx, key)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check occupied slot: %w", err)
		}
		if existing != nil {
			return conflictFor(existing)
		}

		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			ID:              uuid.New(),
			DoctorID:        doctor.ID,
			Date:            day,
			Time:            label,
			Type:            doctor.OnlineStatus,
			ConsultationFee: decimal.Zero,
			Status:          StatusBlocked,
			IsBlockedSlot:   true,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				winner, findErr := s.repo.FindOccupying(lockCtx, key)
				if findErr != nil {
					winner = nil
				}
				return conflictFor(winner)
			}
			return fmt.Errorf("create blocked slot: %w", err)
		}

		blockedID = appt.ID

		s.logEvent(lockCtx, appt.ID, EventSlotBlocked, map[string]any{
			"doctor_id": doctor.ID.String(),
			"date":      key.Date.Format("2006-01-02"),
			"time":      label,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return uuid.Nil, ErrSlotBeingBooked
		}
		return uuid.Nil, err
	}

	return blockedID, nil
}

// UnblockSlot deletes a block owned by the doctor. Real bookings are never deleted.
func (s *Service) UnblockSlot(ctx context.Context, doctorID, blockedID uuid.UUID) error {
	if doctorID == uuid.Nil {
		return ErrDoctorSessionRequired
	}

	if err := s.repo.DeleteBlockedSlot(ctx, blockedID, doctorID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrBlockedSlotNotFound
		}
		return fmt.Errorf("delete blocked slot: %w", err)
	}

	s.logEvent(ctx, blockedID, EventSlotUnblocked, map[string]any{
		"doctor_id": doctorID.String(),
	})

	return nil
}
