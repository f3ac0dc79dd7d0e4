package appointment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusBlocked   AppointmentStatus = "blocked"
)

// ParseStatus accepts only the five known states.
func ParseStatus(s string) (AppointmentStatus, error) {
	switch st := AppointmentStatus(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusBlocked:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Active statuses occupy a slot.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Occupying statuses are active bookings plus blocks.
func (s AppointmentStatus) Occupying() bool {
	return s.Active() || s == StatusBlocked
}

func (s AppointmentStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type ConsultationType string

const (
	TypeOnline  ConsultationType = "online"
	TypeOffline ConsultationType = "offline"
)

func ParseConsultationType(s string) (ConsultationType, error) {
	switch t := ConsultationType(s); t {
	case TypeOnline, TypeOffline:
		return t, nil
	}
	return "", ErrInvalidType
}

type Doctor struct {
	ID              uuid.UUID
	Name            string
	Specialization  *string
	OnlineStatus    ConsultationType
	ConsultationFee decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Mobile    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is either a real booking or, when IsBlockedSlot is set, a doctor's block
// with no patient and a zero fee. Date is a civil date at UTC midnight; Time is a
// canonical slot label.
type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       *uuid.UUID
	Date            time.Time
	Time            string
	Type            ConsultationType
	ConsultationFee decimal.Decimal
	Status          AppointmentStatus
	IsBlockedSlot   bool
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Occupies reports whether a counts against slot exclusivity.
func (a Appointment) Occupies() bool {
	return a.IsBlockedSlot || a.Status.Active()
}

type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}

// SlotKey is the exclusivity key of an appointment.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     time.Time
	Time     string
}

func (k SlotKey) String() string {
	return k.DoctorID.String() + ":" + k.Date.Format("2006-01-02") + ":" + k.Time
}

type SlotState struct {
	Time     string `json:"time"`
	Booked   bool   `json:"booked"`
	Past     bool   `json:"past"`
	Disabled bool   `json:"disabled"`
}

type Availability struct {
	DoctorID  uuid.UUID   `json:"doctor_id"`
	Date      string      `json:"date"`
	Morning   []SlotState `json:"morning"`
	Afternoon []SlotState `json:"afternoon"`
	Evening   []SlotState `json:"evening"`
}

type OpenSlot struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	DateTime string `json:"datetime"`
}

type BlockedSlot struct {
	ID   uuid.UUID `json:"id"`
	Date string    `json:"date"`
	Time string    `json:"time"`
}

type Categorized struct {
	Upcoming []AppointmentDetail
	Previous []AppointmentDetail
}

type BookingRequest struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
	Type     string
	Notes    string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
