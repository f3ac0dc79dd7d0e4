package appointment

// Actor is who requests a status change.
type Actor string

const (
	ActorDoctor  Actor = "doctor"
	ActorPatient Actor = "patient"
)

type transition struct {
	from AppointmentStatus
	to   AppointmentStatus
}

// transitions lists every allowed edge per actor. Blocked slots have no edges: they are
// only ever deleted. Completed and cancelled are terminal.
var transitions = map[Actor]map[transition]bool{
	ActorDoctor: {
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
	},
	ActorPatient: {
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCancelled}: true,
	},
}

// doctorTargets are the statuses a doctor may request at all.
var doctorTargets = map[AppointmentStatus]bool{
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

func CanTransition(actor Actor, from, to AppointmentStatus) bool {
	return transitions[actor][transition{from, to}]
}

func checkTransition(actor Actor, from, to AppointmentStatus) error {
	if !CanTransition(actor, from, to) {
		return ErrInvalidStatusTransition
	}
	return nil
}
