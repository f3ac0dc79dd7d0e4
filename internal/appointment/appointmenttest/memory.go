// Package appointmenttest provides in-memory fakes for exercising the appointment
// service without Postgres or Redis.
package appointmenttest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
)

// MemoryRepository mirrors the Postgres repository, including the unique index over
// occupying (doctor, date, time) rows.
type MemoryRepository struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]appointment.Doctor
	patients     map[uuid.UUID]appointment.Patient
	appointments map[uuid.UUID]appointment.Appointment
	events       []appointment.EventLog
	now          func() time.Time
}

var _ appointment.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]appointment.Doctor),
		patients:     make(map[uuid.UUID]appointment.Patient),
		appointments: make(map[uuid.UUID]appointment.Appointment),
		now:          time.Now,
	}
}

func (r *MemoryRepository) AddDoctor(d appointment.Doctor) appointment.Doctor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.OnlineStatus == "" {
		d.OnlineStatus = appointment.TypeOffline
	}
	r.doctors[d.ID] = d
	return d
}

func (r *MemoryRepository) AddPatient(p appointment.Patient) appointment.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
	return p
}

// AddAppointment stores a row as is, bypassing the exclusivity check. Useful for
// seeding historic or legacy data.
func (r *MemoryRepository) AddAppointment(a appointment.Appointment) appointment.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.appointments[a.ID] = a
	return a
}

func (r *MemoryRepository) Appointments() []appointment.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]appointment.Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		out = append(out, a)
	}
	return out
}

func (r *MemoryRepository) Events() []appointment.EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]appointment.EventLog(nil), r.events...)
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, appointment.ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	d := r.detail(a)
	return &d, nil
}

func (r *MemoryRepository) FindOccupying(_ context.Context, key appointment.SlotKey) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.occupying(key); ok {
		return &a, nil
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (r *MemoryRepository) ListOccupying(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []appointment.Appointment
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || !a.Occupies() {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Occupies() {
		key := appointment.SlotKey{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
		if _, taken := r.occupying(key); taken {
			return nil, appointment.ErrSlotTaken
		}
	}

	row := *a
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := r.now()
	row.CreatedAt = now
	row.UpdatedAt = now
	r.appointments[row.ID] = row

	return &row, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to appointment.AppointmentStatus) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = r.now()
	r.appointments[id] = a

	return &a, nil
}

func (r *MemoryRepository) ListBlockedSlots(_ context.Context, doctorID uuid.UUID, date *time.Time) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []appointment.Appointment
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || !a.IsBlockedSlot {
			continue
		}
		if date != nil && !a.Date.Equal(*date) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryRepository) DeleteBlockedSlot(_ context.Context, id, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || !a.IsBlockedSlot || a.DoctorID != doctorID {
		return appointment.ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *MemoryRepository) DeleteBlockedBefore(_ context.Context, before time.Time) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []appointment.Appointment
	for id, a := range r.appointments {
		if a.IsBlockedSlot && a.Date.Before(before) {
			purged = append(purged, a)
			delete(r.appointments, id)
		}
	}
	return purged, nil
}

func (r *MemoryRepository) ListForDoctor(_ context.Context, doctorID uuid.UUID, filter appointment.ListFilter) ([]appointment.AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []appointment.AppointmentDetail
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || a.IsBlockedSlot {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, r.detail(a))
	}
	return out, nil
}

func (r *MemoryRepository) ListForPatient(_ context.Context, patientID uuid.UUID) ([]appointment.AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []appointment.AppointmentDetail
	for _, a := range r.appointments {
		if a.IsBlockedSlot || a.PatientID == nil || *a.PatientID != patientID {
			continue
		}
		out = append(out, r.detail(a))
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func (r *MemoryRepository) occupying(key appointment.SlotKey) (appointment.Appointment, bool) {
	for _, a := range r.appointments {
		if a.DoctorID == key.DoctorID && a.Date.Equal(key.Date) && a.Time == key.Time && a.Occupies() {
			return a, true
		}
	}
	return appointment.Appointment{}, false
}

func (r *MemoryRepository) detail(a appointment.Appointment) appointment.AppointmentDetail {
	d := appointment.AppointmentDetail{Appointment: a}
	if doc, ok := r.doctors[a.DoctorID]; ok {
		d.Doctor = &doc
	}
	if a.PatientID != nil {
		if p, ok := r.patients[*a.PatientID]; ok {
			d.Patient = &p
		}
	}
	return d
}
