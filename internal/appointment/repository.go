package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned by CreateAppointment when the store's exclusivity
	// constraint on (doctor, date, time) rejects the row.
	ErrSlotTaken = errors.New("slot is occupied")
)

// ListFilter narrows a doctor's appointment list. A nil Status means all statuses.
type ListFilter struct {
	Status *AppointmentStatus
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// For conflict checks and availability. Both only return occupying rows:
	// pending, confirmed or blocked.
	FindOccupying(ctx context.Context, key SlotKey) (*Appointment, error)
	ListOccupying(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Blocked slots
	ListBlockedSlots(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]Appointment, error)
	DeleteBlockedSlot(ctx context.Context, id, doctorID uuid.UUID) error
	// DeleteBlockedBefore returns the rows it removed.
	DeleteBlockedBefore(ctx context.Context, before time.Time) ([]Appointment, error)

	// Listings exclude blocked slots.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter ListFilter) ([]AppointmentDetail, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
