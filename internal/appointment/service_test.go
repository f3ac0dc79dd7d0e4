package appointment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/mediquick-scheduling/internal/appointment"
	"github.com/hackgods/mediquick-scheduling/internal/appointment/appointmenttest"
	"github.com/hackgods/mediquick-scheduling/internal/config"
	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fixture struct {
	svc       *appointment.Service
	repo      *appointmenttest.MemoryRepository
	publisher *appointmenttest.RecordingPublisher
	doctor    appointment.Doctor
	patient   appointment.Patient
	other     appointment.Patient
}

func newFixture(t *testing.T, now time.Time, locker redisclient.Locker) *fixture {
	t.Helper()

	repo := appointmenttest.NewMemoryRepository()
	pub := &appointmenttest.RecordingPublisher{}

	cfg := config.Config{
		ListingDays:    14,
		BlockRetention: 30 * 24 * time.Hour,
	}.WithLocation(ist)

	if locker == nil {
		locker = appointmenttest.NewLocalLocker()
	}

	f := &fixture{
		svc: appointment.NewService(repo, locker, cfg,
			appointment.WithClock(func() time.Time { return now }),
			appointment.WithPublisher(pub),
		),
		repo:      repo,
		publisher: pub,
	}

	f.doctor = repo.AddDoctor(appointment.Doctor{
		Name:            "Dr. Asha Rao",
		OnlineStatus:    appointment.TypeOnline,
		ConsultationFee: decimal.RequireFromString("499.00"),
	})
	f.patient = repo.AddPatient(appointment.Patient{Name: "Ravi"})
	f.other = repo.AddPatient(appointment.Patient{Name: "Meera"})

	return f
}

// 2025-06-09 10:00 IST, the day before the scenario dates.
var scenarioNow = time.Date(2025, 6, 9, 10, 0, 0, 0, ist)

func (f *fixture) book(t *testing.T, patientID uuid.UUID, date, label string) *appointment.Appointment {
	t.Helper()

	appt, err := f.svc.BookAppointment(context.Background(), patientID, appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     date,
		Time:     label,
		Type:     "offline",
	})
	require.NoError(t, err)
	return appt
}

func countOccupying(repo *appointmenttest.MemoryRepository, doctorID uuid.UUID, date, label string) int {
	n := 0
	for _, a := range repo.Appointments() {
		if a.DoctorID == doctorID && slot.FormatDate(a.Date) == date && a.Time == label && a.Occupies() {
			n++
		}
	}
	return n
}

func findState(av *appointment.Availability, label string) (appointment.SlotState, bool) {
	for _, group := range [][]appointment.SlotState{av.Morning, av.Afternoon, av.Evening} {
		for _, st := range group {
			if st.Time == label {
				return st, true
			}
		}
	}
	return appointment.SlotState{}, false
}

func TestAvailabilityEmptyDay(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	av, err := f.svc.GetAvailability(context.Background(), f.doctor.ID, "2025-06-10")
	require.NoError(t, err)

	assert.Len(t, av.Morning, 11)
	assert.Len(t, av.Afternoon, 8)
	assert.Len(t, av.Evening, 8)
	assert.Equal(t, "09:00 AM", av.Morning[0].Time)
	assert.Equal(t, "07:45 PM", av.Evening[len(av.Evening)-1].Time)

	for _, group := range [][]appointment.SlotState{av.Morning, av.Afternoon, av.Evening} {
		for _, st := range group {
			assert.False(t, st.Booked, st.Time)
			assert.False(t, st.Past, st.Time)
			assert.False(t, st.Disabled, st.Time)
		}
	}
}

func TestAvailabilityUnknownDoctor(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	_, err := f.svc.GetAvailability(context.Background(), uuid.New(), "2025-06-10")
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)
}

func TestAvailabilityInvalidDate(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	_, err := f.svc.GetAvailability(context.Background(), f.doctor.ID, "10/06/2025")
	assert.ErrorIs(t, err, slot.ErrInvalidDate)
}

func TestAvailabilityPastOnlyToday(t *testing.T) {
	// 10:00 exactly: 10:00 AM is past (instant <= now), 10:15 AM is not.
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	today, err := f.svc.GetAvailability(ctx, f.doctor.ID, "2025-06-09")
	require.NoError(t, err)

	st, ok := findState(today, "09:45 AM")
	require.True(t, ok)
	assert.True(t, st.Past)
	assert.True(t, st.Disabled)

	st, _ = findState(today, "10:00 AM")
	assert.True(t, st.Past)

	st, _ = findState(today, "10:15 AM")
	assert.False(t, st.Past)
	assert.False(t, st.Disabled)

	// A date before today is not evaluated for past at all.
	yesterday, err := f.svc.GetAvailability(ctx, f.doctor.ID, "2025-06-08")
	require.NoError(t, err)
	st, _ = findState(yesterday, "09:00 AM")
	assert.False(t, st.Past)
}

func TestBookingConflict(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	first := f.book(t, f.patient.ID, "2025-06-10", "09:00 AM")
	assert.Equal(t, appointment.StatusPending, first.Status)

	_, err := f.svc.BookAppointment(ctx, f.other.ID, appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     "2025-06-10",
		Time:     "09:00 AM",
		Type:     "online",
	})
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
	assert.Equal(t, 1, countOccupying(f.repo, f.doctor.ID, "2025-06-10", "09:00 AM"))

	av, err := f.svc.GetAvailability(ctx, f.doctor.ID, "2025-06-10")
	require.NoError(t, err)
	st, _ := findState(av, "09:00 AM")
	assert.True(t, st.Booked)
	assert.True(t, st.Disabled)
}

func TestBookingSnapshotsDoctorTypeAndFee(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	appt := f.book(t, f.patient.ID, "2025-06-10", "9:15 am")

	assert.Equal(t, appointment.TypeOnline, appt.Type, "doctor's live status wins over the request")
	assert.True(t, decimal.RequireFromString("499").Equal(appt.ConsultationFee))
	assert.Equal(t, "09:15 AM", appt.Time)
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, f.patient.ID, *appt.PatientID)
	assert.Equal(t, []string{appointment.EventAppointmentBooked}, f.publisher.Types())
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	valid := appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     "2025-06-10",
		Time:     "09:00 AM",
		Type:     "online",
	}

	tests := []struct {
		name      string
		patientID uuid.UUID
		mutate    func(r *appointment.BookingRequest)
		want      error
	}{
		{"anonymous", uuid.Nil, nil, appointment.ErrPatientSessionRequired},
		{"unknown patient", uuid.New(), nil, appointment.ErrPatientSessionRequired},
		{"missing time", f.patient.ID, func(r *appointment.BookingRequest) { r.Time = " " }, appointment.ErrMissingFields},
		{"missing doctor", f.patient.ID, func(r *appointment.BookingRequest) { r.DoctorID = uuid.Nil }, appointment.ErrMissingFields},
		{"missing type", f.patient.ID, func(r *appointment.BookingRequest) { r.Type = "" }, appointment.ErrMissingFields},
		{"bad type", f.patient.ID, func(r *appointment.BookingRequest) { r.Type = "video" }, appointment.ErrInvalidType},
		{"bad date", f.patient.ID, func(r *appointment.BookingRequest) { r.Date = "2025-13-40" }, slot.ErrInvalidDate},
		{"bad time", f.patient.ID, func(r *appointment.BookingRequest) { r.Time = "25:00" }, slot.ErrInvalidTime},
		{"time not offered", f.patient.ID, func(r *appointment.BookingRequest) { r.Time = "09:10 AM" }, appointment.ErrInvalidSlot},
		{"unknown doctor", f.patient.ID, func(r *appointment.BookingRequest) { r.DoctorID = uuid.New() }, appointment.ErrDoctorNotFound},
		{"slot started", f.patient.ID, func(r *appointment.BookingRequest) { r.Date = "2025-06-09"; r.Time = "10:00 AM" }, appointment.ErrSlotInPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			_, err := f.svc.BookAppointment(ctx, tt.patientID, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.repo.Appointments(), "failed validation must not write")
}

func TestBookingListingOnlySlot(t *testing.T) {
	// 04:30 PM is only in the 30-minute listing catalog.
	f := newFixture(t, scenarioNow, nil)

	appt := f.book(t, f.patient.ID, "2025-06-10", "04:30 PM")
	assert.Equal(t, "04:30 PM", appt.Time)
}

func TestBookingLockBusy(t *testing.T) {
	f := newFixture(t, scenarioNow, appointmenttest.BusyLocker{})

	_, err := f.svc.BookAppointment(context.Background(), f.patient.ID, appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     "2025-06-10",
		Time:     "09:00 AM",
		Type:     "online",
	})
	assert.ErrorIs(t, err, appointment.ErrSlotBeingBooked)
	assert.Empty(t, f.repo.Appointments())
}

func TestBookingFallsBackWhenLockUnavailable(t *testing.T) {
	f := newFixture(t, scenarioNow, appointmenttest.DownLocker{})
	ctx := context.Background()

	appt := f.book(t, f.patient.ID, "2025-06-10", "09:00 AM")
	assert.Equal(t, appointment.StatusPending, appt.Status)

	_, err := f.svc.BookAppointment(ctx, f.other.ID, appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     "2025-06-10",
		Time:     "09:00 AM",
		Type:     "online",
	})
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
	assert.NotErrorIs(t, err, redisclient.ErrLockUnavailable)

	id, err := f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-10", "09:15 AM")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	_, err = f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-10", "09:00 AM")
	var conflict *appointment.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, appointment.ReasonAlreadyBooked, conflict.Reason)

	assert.Equal(t, 1, countOccupying(f.repo, f.doctor.ID, "2025-06-10", "09:00 AM"))
}

func TestServiceWithoutLocker(t *testing.T) {
	repo := appointmenttest.NewMemoryRepository()
	cfg := config.Config{ListingDays: 14, BlockRetention: 30 * 24 * time.Hour}.WithLocation(ist)
	svc := appointment.NewService(repo, nil, cfg,
		appointment.WithClock(func() time.Time { return scenarioNow }))

	doctor := repo.AddDoctor(appointment.Doctor{Name: "Dr. Kiran", OnlineStatus: appointment.TypeOffline})
	patient := repo.AddPatient(appointment.Patient{Name: "Anil"})

	req := appointment.BookingRequest{DoctorID: doctor.ID, Date: "2025-06-10", Time: "10:00 AM", Type: "offline"}
	_, err := svc.BookAppointment(context.Background(), patient.ID, req)
	require.NoError(t, err)

	_, err = svc.BookAppointment(context.Background(), patient.ID, req)
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)
}

func TestConcurrentBookingExclusive(t *testing.T) {
	lockers := map[string]redisclient.Locker{
		"slot lock":   appointmenttest.NewLocalLocker(),
		"store guard": appointmenttest.NoopLocker{},
		"lock down":   appointmenttest.DownLocker{},
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, scenarioNow, locker)

			const racers = 16
			patients := make([]uuid.UUID, racers)
			for i := range patients {
				patients[i] = f.repo.AddPatient(appointment.Patient{Name: "racer"}).ID
			}

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			for _, pid := range patients {
				wg.Add(1)
				go func(pid uuid.UUID) {
					defer wg.Done()
					_, err := f.svc.BookAppointment(context.Background(), pid, appointment.BookingRequest{
						DoctorID: f.doctor.ID,
						Date:     "2025-06-10",
						Time:     "11:30 AM",
						Type:     "online",
					})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes++
					} else if assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked) {
						conflicts++
					}
				}(pid)
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, racers-1, conflicts)
			assert.Equal(t, 1, countOccupying(f.repo, f.doctor.ID, "2025-06-10", "11:30 AM"))
		})
	}
}

func TestBlockedSlotRejectsBooking(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	id, err := f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-11", "02:00 PM")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	av, err := f.svc.GetAvailability(ctx, f.doctor.ID, "2025-06-11")
	require.NoError(t, err)
	st, ok := findState(av, "02:00 PM")
	require.True(t, ok)
	assert.True(t, st.Disabled)
	assert.True(t, st.Booked)

	_, err = f.svc.BookAppointment(ctx, f.patient.ID, appointment.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     "2025-06-11",
		Time:     "02:00 PM",
		Type:     "online",
	})
	assert.ErrorIs(t, err, appointment.ErrSlotAlreadyBooked)

	blocked, err := f.repo.GetAppointmentByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusBlocked, blocked.Status)
	assert.True(t, blocked.IsBlockedSlot)
	assert.Nil(t, blocked.PatientID)
	assert.True(t, blocked.ConsultationFee.IsZero())
}

func TestBlockSlotConflictReasons(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	f.book(t, f.patient.ID, "2025-06-11", "09:30 AM")
	_, err := f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-11", "09:30 AM")
	require.ErrorIs(t, err, appointment.ErrSlotNotAvailable)
	var conflict *appointment.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, appointment.ReasonAlreadyBooked, conflict.Reason)

	_, err = f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-11", "06:00 PM")
	require.NoError(t, err)
	_, err = f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-11", "06:00 PM")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, appointment.ReasonAlreadyBlocked, conflict.Reason)
}

func TestBlockSlotValidation(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	_, err := f.svc.BlockSlot(ctx, uuid.Nil, "2025-06-11", "09:00 AM")
	assert.ErrorIs(t, err, appointment.ErrDoctorSessionRequired)

	_, err = f.svc.BlockSlot(ctx, f.doctor.ID, "", "09:00 AM")
	assert.ErrorIs(t, err, appointment.ErrMissingSlotFields)

	_, err = f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-09", "09:00 AM")
	assert.ErrorIs(t, err, appointment.ErrSlotInPast)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	first := f.book(t, f.patient.ID, "2025-06-10", "03:00 PM")
	_, err := f.svc.CancelByPatient(ctx, f.patient.ID, first.ID)
	require.NoError(t, err)

	second := f.book(t, f.other.ID, "2025-06-10", "03:00 PM")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUnblockOtherDoctorsSlot(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	other := f.repo.AddDoctor(appointment.Doctor{Name: "Dr. Other"})

	id, err := f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-12", "10:00 AM")
	require.NoError(t, err)

	err = f.svc.UnblockSlot(ctx, other.ID, id)
	assert.ErrorIs(t, err, appointment.ErrBlockedSlotNotFound)

	still, err := f.repo.GetAppointmentByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusBlocked, still.Status)

	require.NoError(t, f.svc.UnblockSlot(ctx, f.doctor.ID, id))
	_, err = f.repo.GetAppointmentByID(ctx, id)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestUnblockRealBooking(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	appt := f.book(t, f.patient.ID, "2025-06-12", "10:00 AM")

	err := f.svc.UnblockSlot(context.Background(), f.doctor.ID, appt.ID)
	assert.ErrorIs(t, err, appointment.ErrBlockedSlotNotFound)
}

func TestListBlockedSlots(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	for _, s := range []struct{ date, label string }{
		{"2025-06-12", "02:00 PM"},
		{"2025-06-11", "06:00 PM"},
		{"2025-06-12", "09:00 AM"},
	} {
		_, err := f.svc.BlockSlot(ctx, f.doctor.ID, s.date, s.label)
		require.NoError(t, err)
	}

	all, err := f.svc.ListBlockedSlots(ctx, f.doctor.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-06-11", all[0].Date)
	assert.Equal(t, "09:00 AM", all[1].Time)
	assert.Equal(t, "02:00 PM", all[2].Time)

	oneDay, err := f.svc.ListBlockedSlots(ctx, f.doctor.ID, "2025-06-12")
	require.NoError(t, err)
	assert.Len(t, oneDay, 2)
}

func TestBookedTimesSorted(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	f.book(t, f.patient.ID, "2025-06-10", "02:00 PM")
	f.book(t, f.other.ID, "2025-06-10", "09:45 AM")
	_, err := f.svc.BlockSlot(ctx, f.doctor.ID, "2025-06-10", "11:00 AM")
	require.NoError(t, err)

	times, err := f.svc.BookedTimes(ctx, f.doctor.ID, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:45 AM", "11:00 AM", "02:00 PM"}, times)
}

func TestListOpenSlots(t *testing.T) {
	// 2025-06-09 13:10 IST: today's listing slots through 01:00 PM are gone.
	now := time.Date(2025, 6, 9, 13, 10, 0, 0, ist)
	f := newFixture(t, now, nil)
	ctx := context.Background()

	f.book(t, f.patient.ID, "2025-06-10", "09:00 AM")

	open, err := f.svc.ListOpenSlots(ctx, f.doctor.ID)
	require.NoError(t, err)

	// 16 per day over 14 days, minus 9 started today, minus 1 booked.
	assert.Len(t, open, 16*14-9-1)

	assert.Equal(t, appointment.OpenSlot{Date: "2025-06-09", Time: "01:30 PM", DateTime: "2025-06-09T13:30:00"}, open[0])
	last := open[len(open)-1]
	assert.Equal(t, "2025-06-22", last.Date)
	assert.Equal(t, "04:30 PM", last.Time)

	for _, o := range open {
		assert.False(t, o.Date == "2025-06-10" && o.Time == "09:00 AM", "booked slot listed as open")
	}
}

func TestListOpenSlotsUnknownDoctor(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)

	_, err := f.svc.ListOpenSlots(context.Background(), uuid.New())
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)
}

func TestPurgeStaleBlocks(t *testing.T) {
	f := newFixture(t, scenarioNow, nil)
	ctx := context.Background()

	old := f.repo.AddAppointment(appointment.Appointment{
		DoctorID:      f.doctor.ID,
		Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Time:          "09:00 AM",
		Status:        appointment.StatusBlocked,
		IsBlockedSlot: true,
	})
	recent := f.repo.AddAppointment(appointment.Appointment{
		DoctorID:      f.doctor.ID,
		Date:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Time:          "09:00 AM",
		Status:        appointment.StatusBlocked,
		IsBlockedSlot: true,
	})
	booking := f.repo.AddAppointment(appointment.Appointment{
		DoctorID: f.doctor.ID,
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Time:     "09:00 AM",
		Status:   appointment.StatusCompleted,
	})

	n, err := f.svc.PurgeStaleBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, appointment.EventSlotUnblocked, events[0].EventType)
	require.NotNil(t, events[0].AppointmentID)
	assert.Equal(t, old.ID, *events[0].AppointmentID)
	assert.JSONEq(t, `{"doctor_id":"`+f.doctor.ID.String()+`","date":"2025-04-01","time":"09:00 AM","reason":"expired"}`,
		string(events[0].Payload))
	assert.Equal(t, []string{appointment.EventSlotUnblocked}, f.publisher.Types())

	_, err = f.repo.GetAppointmentByID(ctx, old.ID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	_, err = f.repo.GetAppointmentByID(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = f.repo.GetAppointmentByID(ctx, booking.ID)
	assert.NoError(t, err)
}
