package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Notes    string `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type BlockSlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type BlockSlotResponse struct {
	ID uuid.UUID `json:"id"`
}

type BookedSlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Times    []string  `json:"times"`
}

type PatientSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  *string   `json:"email,omitempty"`
	Mobile *string   `json:"mobile,omitempty"`
}

type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization *string   `json:"specialization,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID       `json:"id"`
	DoctorID        uuid.UUID       `json:"doctor_id"`
	PatientID       *uuid.UUID      `json:"patient_id,omitempty"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Type            string          `json:"type"`
	ConsultationFee string          `json:"consultation_fee"`
	Status          string          `json:"status"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Patient         *PatientSummary `json:"patient,omitempty"`
	Doctor          *DoctorSummary  `json:"doctor,omitempty"`
}

type CategorizedResponse struct {
	Upcoming []AppointmentResponse `json:"upcoming"`
	Previous []AppointmentResponse `json:"previous"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		Date:            slot.FormatDate(a.Date),
		Time:            a.Time,
		Type:            string(a.Type),
		ConsultationFee: a.ConsultationFee.StringFixed(2),
		Status:          string(a.Status),
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toDetailResponse(d appointment.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(d.Appointment)
	if d.Patient != nil {
		resp.Patient = &PatientSummary{
			ID:     d.Patient.ID,
			Name:   d.Patient.Name,
			Email:  d.Patient.Email,
			Mobile: d.Patient.Mobile,
		}
	}
	if d.Doctor != nil {
		resp.Doctor = &DoctorSummary{
			ID:             d.Doctor.ID,
			Name:           d.Doctor.Name,
			Specialization: d.Doctor.Specialization,
		}
	}
	return resp
}

func toCategorizedResponse(c *appointment.Categorized) CategorizedResponse {
	resp := CategorizedResponse{
		Upcoming: make([]AppointmentResponse, 0, len(c.Upcoming)),
		Previous: make([]AppointmentResponse, 0, len(c.Previous)),
	}
	for _, d := range c.Upcoming {
		resp.Upcoming = append(resp.Upcoming, toDetailResponse(d))
	}
	for _, d := range c.Previous {
		resp.Previous = append(resp.Previous, toDetailResponse(d))
	}
	return resp
}
