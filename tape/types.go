// Package tape implements the command/phase state machine of an abstract
// reel-to-reel magnetic tape controller, driving up to four 9-track
// drives over a byte-addressable tape-image backend.
package tape

// ControllerType selects the command validity table, status-bit mapping,
// and timing table used by a Controller.
type ControllerType int

const (
	NRZI1000 ControllerType = iota
	PE1000
	HP3000
	HPIB

	numControllerTypes = int(HPIB) + 1
)

func (t ControllerType) String() string {
	switch t {
	case NRZI1000:
		return "NRZI-1000"
	case PE1000:
		return "PE-1000"
	case HP3000:
		return "HP3000"
	case HPIB:
		return "HPIB"
	default:
		return "unknown"
	}
}

// State is the controller's top-level run state. Exactly one holds at any
// time.
type State int

const (
	Idle State = iota
	Busy
	DeviceEnd
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Busy:
		return "Busy"
	case DeviceEnd:
		return "DeviceEnd"
	case Error:
		return "Error"
	default:
		return "unknown"
	}
}

// Phase is a drive unit's position within a command's lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWait
	PhaseStart
	PhaseTraverse
	PhaseData
	PhaseStop
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseWait:
		return "Wait"
	case PhaseStart:
		return "Start"
	case PhaseTraverse:
		return "Traverse"
	case PhaseData:
		return "Data"
	case PhaseStop:
		return "Stop"
	case PhaseError:
		return "Error"
	default:
		return "unknown"
	}
}

// ReelSize selects a drive's physical reel capacity.
type ReelSize int

const (
	ReelUnlimited ReelSize = iota
	Reel600ft
	Reel1200ft
	Reel2400ft
)

// feet returns the reel's length in feet, or 0 for Unlimited.
func (r ReelSize) feet() int {
	switch r {
	case Reel600ft:
		return 600
	case Reel1200ft:
		return 1200
	case Reel2400ft:
		return 2400
	default:
		return 0
	}
}

// NumUnits is the number of drives a controller manages.
const NumUnits = 4

// pseudoUnit is the index of the hidden "controller unit" used to schedule
// the command-reject interrupt delay (spec §4.5): it is not one of the
// four addressable drives and never appears in UnitAttention.
const pseudoUnit = NumUnits

// totalUnits is NumUnits plus the pseudo-unit slot.
const totalUnits = NumUnits + 1

// notScheduled marks a unit with no pending event.
const notScheduled = -1
