package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrPatientSessionRequired  = errors.New("patient session required")
	ErrDoctorSessionRequired   = errors.New("doctor session required")
	ErrMissingFields           = errors.New("doctor_id, date, time and type are required")
	ErrMissingSlotFields       = errors.New("date and time are required")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidType             = errors.New("type must be online or offline")
	ErrInvalidSlot             = errors.New("time is not an offered slot")
	ErrSlotInPast              = errors.New("slot has already started")
	ErrSlotAlreadyBooked       = errors.New("time slot already booked")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrSlotNotAvailable        = errors.New("slot not available")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNotFoundOrForbidden     = errors.New("appointment not found")
	ErrNotCancellable          = errors.New("appointment not found or cannot be cancelled")
	ErrBlockedSlotNotFound     = errors.New("blocked slot not found")
)

const (
	ReasonAlreadyBooked  = "already_booked"
	ReasonAlreadyBlocked = "already_blocked"
)

// SlotConflictError explains why a block was refused.
type SlotConflictError struct {
	Reason string
}

func (e *SlotConflictError) Error() string {
	switch e.Reason {
	case ReasonAlreadyBlocked:
		return fmt.Sprintf("%s: slot is already blocked", ErrSlotNotAvailable)
	default:
		return fmt.Sprintf("%s: slot already has an appointment", ErrSlotNotAvailable)
	}
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotNotAvailable
}

func conflictFor(existing *Appointment) error {
	if existing != nil && existing.IsBlockedSlot {
		return &SlotConflictError{Reason: ReasonAlreadyBlocked}
	}
	return &SlotConflictError{Reason: ReasonAlreadyBooked}
}
