package slot

import "time"

const (
	WindowMorning   = "morning"
	WindowAfternoon = "afternoon"
	WindowEvening   = "evening"
	WindowDay       = "day"
)

// Window is a run of labels from First to Last inclusive, Step apart.
type Window struct {
	Name  string
	First TimeOfDay
	Last  TimeOfDay
	Step  time.Duration
}

func (w Window) Times() []TimeOfDay {
	if w.Step <= 0 {
		return []TimeOfDay{w.First}
	}
	var out []TimeOfDay
	for t := w.First; !w.Last.Before(t); t = t.add(w.Step) {
		out = append(out, t)
	}
	return out
}

func (w Window) Labels() []string {
	times := w.Times()
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Label()
	}
	return out
}

// Catalog is the ordered set of windows a screen offers. It never touches storage.
type Catalog struct {
	Windows []Window
}

// Continuous builds a single-window catalog covering [start, end) at step.
func Continuous(name string, start, end TimeOfDay, step time.Duration) Catalog {
	return Catalog{Windows: []Window{{
		Name:  name,
		First: start,
		Last:  end.add(-step),
		Step:  step,
	}}}
}

var (
	// Daily is the per-date booking grid shown to doctors and patients.
	Daily = Catalog{Windows: []Window{
		{Name: WindowMorning, First: TimeOfDay{9, 0}, Last: TimeOfDay{11, 30}, Step: 15 * time.Minute},
		{Name: WindowAfternoon, First: TimeOfDay{14, 0}, Last: TimeOfDay{15, 45}, Step: 15 * time.Minute},
		{Name: WindowEvening, First: TimeOfDay{18, 0}, Last: TimeOfDay{19, 45}, Step: 15 * time.Minute},
	}}

	// Listing backs the multi-day open slot listing.
	Listing = Continuous(WindowDay, TimeOfDay{9, 0}, TimeOfDay{17, 0}, 30*time.Minute)
)

func (c Catalog) Labels() []string {
	var out []string
	for _, w := range c.Windows {
		out = append(out, w.Labels()...)
	}
	return out
}

func (c Catalog) Times() []TimeOfDay {
	var out []TimeOfDay
	for _, w := range c.Windows {
		out = append(out, w.Times()...)
	}
	return out
}

// Contains reports whether the canonical label is offered by c.
func (c Catalog) Contains(label string) bool {
	tod, err := ParseLabel(label)
	if err != nil {
		return false
	}
	for _, t := range c.Times() {
		if t == tod {
			return true
		}
	}
	return false
}

// Offered reports whether any of the catalogs offers label.
func Offered(label string, catalogs ...Catalog) bool {
	for _, c := range catalogs {
		if c.Contains(label) {
			return true
		}
	}
	return false
}
