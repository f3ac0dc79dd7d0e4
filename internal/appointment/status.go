package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

// UpdateStatus applies a doctor-initiated transition. Appointments owned by another
// doctor are reported exactly like missing ones.
func (s *Service) UpdateStatus(ctx context.Context, doctorID, id uuid.UUID, status string) (*AppointmentDetail, error) {
	if doctorID == uuid.Nil {
		return nil, ErrDoctorSessionRequired
	}

	target, err := ParseStatus(status)
	if err != nil || !doctorTargets[target] {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.DoctorID != doctorID {
		return nil, ErrNotFoundOrForbidden
	}

	if err := checkTransition(ActorDoctor, appt.Status, target); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, target); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Status moved underneath us.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentStatusChanged, map[string]any{
		"from":      string(appt.Status),
		"to":        string(target),
		"doctor_id": doctorID.String(),
	})

	detail, err := s.repo.GetAppointmentDetail(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// CancelByPatient cancels a pending or confirmed appointment the patient owns.
func (s *Service) CancelByPatient(ctx context.Context, patientID, id uuid.UUID) (*AppointmentDetail, error) {
	if patientID == uuid.Nil {
		return nil, ErrPatientSessionRequired
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.PatientID == nil || *appt.PatientID != patientID {
		return nil, ErrNotCancellable
	}
	if !CanTransition(ActorPatient, appt.Status, StatusCancelled) {
		return nil, ErrNotCancellable
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"from":       string(appt.Status),
		"patient_id": patientID.String(),
	})

	detail, err := s.repo.GetAppointmentDetail(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListCategorizedForDoctor splits a doctor's appointments into upcoming and previous.
// An empty status lists every status.
func (s *Service) ListCategorizedForDoctor(ctx context.Context, doctorID uuid.UUID, status string) (*Categorized, error) {
	if doctorID == uuid.Nil {
		return nil, ErrDoctorSessionRequired
	}

	var filter ListFilter
	if !blank(status) {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}

	list, err := s.repo.ListForDoctor(ctx, doctorID, filter)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return s.categorize(ctx, list), nil
}

func (s *Service) ListCategorizedForPatient(ctx context.Context, patientID uuid.UUID) (*Categorized, error) {
	if patientID == uuid.Nil {
		return nil, ErrPatientSessionRequired
	}

	list, err := s.repo.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return s.categorize(ctx, list), nil
}

// PurgeStaleBlocks deletes blocked slots dated before today minus the retention
// window and emits SLOT_UNBLOCKED for each one.
func (s *Service) PurgeStaleBlocks(ctx context.Context) (int64, error) {
	today := slot.Today(s.now(), s.location())
	cutoff := today.Add(-s.cfg.BlockRetention)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	purged, err := s.repo.DeleteBlockedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale blocked slots: %w", err)
	}

	for _, a := range purged {
		s.logEvent(ctx, a.ID, EventSlotUnblocked, map[string]any{
			"doctor_id": a.DoctorID.String(),
			"date":      slot.FormatDate(a.Date),
			"time":      a.Time,
			"reason":    "expired",
		})
	}

	return int64(len(purged)), nil
}
