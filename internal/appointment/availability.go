package appointment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

// GetAvailability partitions the daily catalog for a doctor and date into booked,
// past and disabled slots. Past is only evaluated when date is today in the
// configured zone.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID, date string) (*Availability, error) {
	day, err := slot.ParseDate(date)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	occupying, err := s.repo.ListOccupying(ctx, doctorID, day, day)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}

	booked := make(map[string]bool, len(occupying))
	for _, a := range occupying {
		booked[canonicalLabel(a.Time)] = true
	}

	now := s.now()
	loc := s.location()
	isToday := slot.SameDate(day, slot.Today(now, loc))

	av := &Availability{
		DoctorID:  doctorID,
		Date:      slot.FormatDate(day),
		Morning:   []SlotState{},
		Afternoon: []SlotState{},
		Evening:   []SlotState{},
	}

	for _, w := range slot.Daily.Windows {
		states := make([]SlotState, 0, len(w.Times()))
		for _, tod := range w.Times() {
			label := tod.Label()
			st := SlotState{Time: label, Booked: booked[label]}
			if isToday {
				st.Past = !tod.On(day, loc).After(now)
			}
			st.Disabled = st.Booked || st.Past
			states = append(states, st)
		}

		switch w.Name {
		case slot.WindowMorning:
			av.Morning = states
		case slot.WindowAfternoon:
			av.Afternoon = states
		case slot.WindowEvening:
			av.Evening = states
		}
	}

	return av, nil
}

// ListOpenSlots lists every still-open listing slot for the doctor from today
// through the configured number of days.
func (s *Service) ListOpenSlots(ctx context.Context, doctorID uuid.UUID) ([]OpenSlot, error) {
	if _, err := s.loadDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	now := s.now()
	loc := s.location()
	today := slot.Today(now, loc)
	last := today.AddDate(0, 0, s.cfg.ListingDays-1)

	occupying, err := s.repo.ListOccupying(ctx, doctorID, today, last)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}

	taken := make(map[string]bool, len(occupying))
	for _, a := range occupying {
		taken[slot.FormatDate(a.Date)+"_"+canonicalLabel(a.Time)] = true
	}

	open := []OpenSlot{}
	for d := 0; d < s.cfg.ListingDays; d++ {
		day := today.AddDate(0, 0, d)
		date := slot.FormatDate(day)

		for _, tod := range slot.Listing.Times() {
			if !tod.On(day, loc).After(now) {
				continue
			}
			label := tod.Label()
			if taken[date+"_"+label] {
				continue
			}
			open = append(open, OpenSlot{
				Date:     date,
				Time:     label,
				DateTime: date + "T" + tod.Clock24() + ":00",
			})
		}
	}

	return open, nil
}

// BookedTimes returns the occupied labels for a doctor on date, earliest first.
func (s *Service) BookedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := slot.ParseDate(date)
	if err != nil {
		return nil, err
	}

	if _, err := s.loadDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	occupying, err := s.repo.ListOccupying(ctx, doctorID, day, day)
	if err != nil {
		return nil, fmt.Errorf("list occupied slots: %w", err)
	}

	times := make([]string, 0, len(occupying))
	for _, a := range occupying {
		times = append(times, a.Time)
	}
	sortLabels(times)

	return times, nil
}

// ListBlockedSlots returns a doctor's blocks, optionally for one date.
func (s *Service) ListBlockedSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]BlockedSlot, error) {
	var day *time.Time
	if !blank(date) {
		d, err := slot.ParseDate(date)
		if err != nil {
			return nil, err
		}
		day = &d
	}

	rows, err := s.repo.ListBlockedSlots(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return labelMinutes(rows[i].Time) < labelMinutes(rows[j].Time)
	})

	out := make([]BlockedSlot, 0, len(rows))
	for _, a := range rows {
		out = append(out, BlockedSlot{
			ID:   a.ID,
			Date: slot.FormatDate(a.Date),
			Time: a.Time,
		})
	}
	return out, nil
}

// canonicalLabel tolerates rows written before labels were normalized.
func canonicalLabel(label string) string {
	if c, err := slot.NormalizeLabel(label); err == nil {
		return c
	}
	return label
}

func labelMinutes(label string) int {
	tod, err := slot.ParseLabel(label)
	if err != nil {
		return -1
	}
	return tod.Hour*60 + tod.Minute
}

func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return labelMinutes(labels[i]) < labelMinutes(labels[j])
	})
}
