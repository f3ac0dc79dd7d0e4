package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// errorTable is checked in order, first match wins.
var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{appointment.ErrPatientSessionRequired, http.StatusUnauthorized, "unauthorized"},
	{appointment.ErrDoctorSessionRequired, http.StatusUnauthorized, "unauthorized"},

	{appointment.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{appointment.ErrMissingSlotFields, http.StatusBadRequest, "missing_fields"},
	{appointment.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{appointment.ErrInvalidType, http.StatusBadRequest, "invalid_type"},
	{slot.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{slot.ErrInvalidTime, http.StatusBadRequest, "invalid_time"},
	{appointment.ErrInvalidSlot, http.StatusBadRequest, "invalid_slot"},
	{appointment.ErrSlotInPast, http.StatusBadRequest, "slot_in_past"},

	{appointment.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
	{appointment.ErrNotFoundOrForbidden, http.StatusNotFound, "appointment_not_found"},
	{appointment.ErrNotCancellable, http.StatusNotFound, "appointment_not_cancellable"},
	{appointment.ErrBlockedSlotNotFound, http.StatusNotFound, "blocked_slot_not_found"},

	{appointment.ErrSlotAlreadyBooked, http.StatusConflict, "slot_already_booked"},
	{appointment.ErrSlotBeingBooked, http.StatusConflict, "slot_being_booked"},
	{appointment.ErrSlotNotAvailable, http.StatusConflict, "slot_not_available"},
	{appointment.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},
}

// classify returns the status and error code for a known error. Unknown errors
// classify as 500.
func classify(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// handleServiceError writes the response for a failed service call. Internal errors
// are logged and their details never reach the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, code, "internal server error")
		return
	}

	resp := ErrorResponse{Error: code, Details: err.Error()}

	var conflict *appointment.SlotConflictError
	if errors.As(err, &conflict) {
		resp.Reason = conflict.Reason
	}
	// Wrapped lookups carry our own context prefix; report the sentinel alone.
	if errors.Is(err, appointment.ErrDoctorNotFound) {
		resp.Details = appointment.ErrDoctorNotFound.Error()
	}

	writeJSON(w, status, resp)
}
