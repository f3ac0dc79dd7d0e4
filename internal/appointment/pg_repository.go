package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation = "23505"

	// occupiedSlotIndex is the partial unique index over (doctor_id, date, time)
	// for pending, confirmed and blocked rows.
	occupiedSlotIndex = "appointments_occupied_slot_uq"
)

const appointmentColumns = `
	a.id, a.doctor_id, a.patient_id, a.date, a.time, a.type,
	a.consultation_fee::text, a.status, a.is_blocked_slot, a.notes,
	a.created_at, a.updated_at`

const detailColumns = appointmentColumns + `,
	p.id, p.name, p.email, p.mobile,
	d.name, d.specialization, d.online_status, d.consultation_fee::text`

const detailFrom = `
	FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	LEFT JOIN patients p ON p.id = a.patient_id`

const occupyingPredicate = `(a.status IN ('pending', 'confirmed') OR a.is_blocked_slot)`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func parseFee(raw string) (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse consultation fee %q: %w", raw, err)
	}
	return fee, nil
}

func isOccupiedSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == occupiedSlotIndex
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Mobile,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var fee string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.OnlineStatus,
		&fee,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if d.ConsultationFee, err = parseFee(fee); err != nil {
		return nil, err
	}
	return &d, nil
}

func appointmentDest(a *Appointment, fee *string) []any {
	return []any{
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&a.Time,
		&a.Type,
		fee,
		&a.Status,
		&a.IsBlockedSlot,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var fee string

	if err := row.Scan(appointmentDest(&a, &fee)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	var err error
	if a.ConsultationFee, err = parseFee(fee); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var fee, doctorFee string
	var patientID *uuid.UUID
	var patientName *string
	var patient Patient
	doctor := Doctor{}

	dest := appointmentDest(&d.Appointment, &fee)
	dest = append(dest,
		&patientID,
		&patientName,
		&patient.Email,
		&patient.Mobile,
		&doctor.Name,
		&doctor.Specialization,
		&doctor.OnlineStatus,
		&doctorFee,
	)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	var err error
	if d.ConsultationFee, err = parseFee(fee); err != nil {
		return nil, err
	}
	if doctor.ConsultationFee, err = parseFee(doctorFee); err != nil {
		return nil, err
	}

	doctor.ID = d.DoctorID
	d.Doctor = &doctor

	if patientID != nil {
		patient.ID = *patientID
		if patientName != nil {
			patient.Name = *patientName
		}
		d.Patient = &patient
	}

	return &d, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, mobile, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, online_status, consultation_fee::text, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+detailColumns+detailFrom+`
		WHERE a.id = $1
	`, id)
	return scanAppointmentDetail(row)
}

func (r *PgRepository) FindOccupying(ctx context.Context, key SlotKey) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.date = $2
		  AND a.time = $3
		  AND `+occupyingPredicate+`
		LIMIT 1
	`, key.DoctorID, key.Date, key.Time)
	return scanAppointment(row)
}

func (r *PgRepository) ListOccupying(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.date BETWEEN $2 AND $3
		  AND `+occupyingPredicate+`
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments AS a
			(id, doctor_id, patient_id, date, time, type, consultation_fee, status, is_blocked_slot, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns,
		id, a.DoctorID, a.PatientID, a.Date, a.Time, string(a.Type),
		a.ConsultationFee.String(), string(a.Status), a.IsBlockedSlot, a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		if isOccupiedSlotViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments AS a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns,
		id, string(to), string(from))

	return scanAppointment(row)
}

func (r *PgRepository) ListBlockedSlots(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.is_blocked_slot
		  AND ($2::date IS NULL OR a.date = $2::date)
		ORDER BY a.date, a.time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) DeleteBlockedSlot(ctx context.Context, id, doctorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		  AND doctor_id = $2
		  AND is_blocked_slot
	`, id, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) DeleteBlockedBefore(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM appointments AS a
		WHERE a.is_blocked_slot
		  AND a.date < $1
		RETURNING `+appointmentColumns,
		before)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, filter ListFilter) ([]AppointmentDetail, error) {
	var status *string
	if filter.Status != nil {
		st := string(*filter.Status)
		status = &st
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+detailFrom+`
		WHERE a.doctor_id = $1
		  AND NOT a.is_blocked_slot
		  AND ($2::text IS NULL OR a.status = $2::text)
		ORDER BY a.date, a.created_at
	`, doctorID, status)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+detailColumns+detailFrom+`
		WHERE a.patient_id = $1
		  AND NOT a.is_blocked_slot
		ORDER BY a.date, a.created_at
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
