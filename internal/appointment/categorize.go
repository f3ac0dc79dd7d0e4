package appointment

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/mediquick-scheduling/internal/slot"
)

type timed struct {
	at     time.Time
	detail AppointmentDetail
}

// categorize derives upcoming/previous on every read. An appointment is upcoming
// iff its slot instant is at or after now and it is neither cancelled nor completed.
// Upcoming is earliest first, previous is latest first.
func (s *Service) categorize(ctx context.Context, list []AppointmentDetail) *Categorized {
	now := s.now()
	loc := s.location()

	var upcoming, previous []timed
	for _, d := range list {
		at, err := slot.Instant(d.Date, d.Time, loc)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Stringer("appointment_id", d.ID).
				Msg("unparseable appointment time, treating as previous")
			previous = append(previous, timed{at: d.Date, detail: d})
			continue
		}

		if !at.Before(now) && !d.Status.Closed() {
			upcoming = append(upcoming, timed{at: at, detail: d})
		} else {
			previous = append(previous, timed{at: at, detail: d})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })
	sort.SliceStable(previous, func(i, j int) bool { return previous[i].at.After(previous[j].at) })

	out := &Categorized{
		Upcoming: make([]AppointmentDetail, 0, len(upcoming)),
		Previous: make([]AppointmentDetail, 0, len(previous)),
	}
	for _, t := range upcoming {
		out.Upcoming = append(out.Upcoming, t.detail)
	}
	for _, t := range previous {
		out.Previous = append(out.Previous, t.detail)
	}
	return out
}
