package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/auth"
	"github.com/hackgods/mediquick-scheduling/internal/metrics"
)

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func availabilityHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "invalid_doctor_id")
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "date is required")
			return
		}

		av, err := svc.GetAvailability(r.Context(), doctorID, date)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, av)
	}
}

func openSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "invalid_doctor_id")
		if !ok {
			return
		}

		open, err := svc.ListOpenSlots(r.Context(), doctorID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, open)
	}
}

func bookedSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "invalid_doctor_id")
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "date is required")
			return
		}

		times, err := svc.BookedTimes(r.Context(), doctorID, date)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, BookedSlotsResponse{DoctorID: doctorID, Date: date, Times: times})
	}
}

func blockedSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "doctorID", "invalid_doctor_id")
		if !ok {
			return
		}

		blocked, err := svc.ListBlockedSlots(r.Context(), doctorID, r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, blocked)
	}
}

func bookAppointmentHandler(svc *appointment.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := auth.PatientID(r.Context())
		if patientID == uuid.Nil {
			handleServiceError(w, r, appointment.ErrPatientSessionRequired)
			return
		}

		var req BookAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		var doctorID uuid.UUID
		if req.DoctorID != "" {
			id, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			doctorID = id
		}

		appt, err := svc.BookAppointment(r.Context(), patientID, appointment.BookingRequest{
			DoctorID: doctorID,
			Date:     req.Date,
			Time:     req.Time,
			Type:     req.Type,
			Notes:    req.Notes,
		})
		m.ObserveBooking(bookingOutcome(err))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, appointment.ErrSlotAlreadyBooked), errors.Is(err, appointment.ErrSlotNotAvailable):
		return metrics.OutcomeConflict
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		return metrics.OutcomeBusy
	}

	if status, _ := classify(err); status < http.StatusInternalServerError {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

func doctorAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCategorizedForDoctor(r.Context(), auth.DoctorID(r.Context()), r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toCategorizedResponse(list))
	}
}

func patientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCategorizedForPatient(r.Context(), auth.PatientID(r.Context()))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toCategorizedResponse(list))
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := auth.DoctorID(r.Context())
		if doctorID == uuid.Nil {
			handleServiceError(w, r, appointment.ErrDoctorSessionRequired)
			return
		}

		id, ok := parseUUIDParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		detail, err := svc.UpdateStatus(r.Context(), doctorID, id, req.Status)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(*detail))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := auth.PatientID(r.Context())
		if patientID == uuid.Nil {
			handleServiceError(w, r, appointment.ErrPatientSessionRequired)
			return
		}

		id, ok := parseUUIDParam(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		detail, err := svc.CancelByPatient(r.Context(), patientID, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(*detail))
	}
}

func blockSlotHandler(svc *appointment.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := auth.DoctorID(r.Context())
		if doctorID == uuid.Nil {
			handleServiceError(w, r, appointment.ErrDoctorSessionRequired)
			return
		}

		var req BlockSlotRequest
		if !decodeBody(w, r, &req) {
			return
		}

		id, err := svc.BlockSlot(r.Context(), doctorID, req.Date, req.Time)
		m.ObserveBlock(bookingOutcome(err))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BlockSlotResponse{ID: id})
	}
}

func unblockSlotHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := auth.DoctorID(r.Context())
		if doctorID == uuid.Nil {
			handleServiceError(w, r, appointment.ErrDoctorSessionRequired)
			return
		}

		id, ok := parseUUIDParam(w, r, "id", "invalid_blocked_slot_id")
		if !ok {
			return
		}

		if err := svc.UnblockSlot(r.Context(), doctorID, id); err != nil {
			handleServiceError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
