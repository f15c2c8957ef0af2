package tape

import "errors"

// Sentinel errors returned by package-level setup calls (Attach, unit
// configuration). Conditions that arise during normal command execution
// are reported through StatusBits/ErrorKind on Step's return value, not
// through an error — a tape drive rejecting a command is an expected
// outcome, not a programming fault.
var (
	ErrUnitOutOfRange  = errors.New("tape: unit index out of range")
	ErrUnitAlreadyOpen = errors.New("tape: unit already has an image attached")
	ErrNoImage         = errors.New("tape: unit has no image attached")
	ErrUnsupportedModel = errors.New("tape: unsupported drive model for this controller type")
)
