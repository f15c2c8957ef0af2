package tape

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// unitSnapshot captures a Unit's logical state. The mounted image itself
// is not serialized — Restore returns units with no Image attached; the
// caller re-attaches the same image paths it used before, exactly as the
// original simulator's RESTORE command expects the operator to have the
// same tape images available.
type unitSnapshot struct {
	Model          string
	Density        int
	ReelSize       ReelSize
	Online         bool
	WriteProtected bool
	Rewinding      bool
	Opcode         Opcode
	Phase          Phase
	Status         StatusBits
	Position       int64
	Wait           Ticks
}

type controllerSnapshot struct {
	Type         ControllerType
	Config       Config
	State        State
	Status       StatusBits
	UnitSelected int
	Units        [NumUnits]unitSnapshot
	Waits        [NumUnits]Ticks
	PseudoWait   Ticks
	PendingErr   ErrorKind
	XferError    bool
	CallStatus   CallStatus
	Length       int
	Index        int
	Gaplen       int64
	InitialPos   int64
}

// Snapshot encodes the controller's full logical state (checkpoint/
// restore, supplemented from the original simulator's SAVE command,
// dropped by the distillation). The record buffer's in-flight bytes are
// not preserved — a snapshot is only ever taken between commands in
// practice, and mid-command state is recoverable by reissuing the
// command.
func (c *Controller) Snapshot() ([]byte, error) {
	snap := controllerSnapshot{
		Type:         c.Type,
		Config:       c.Config,
		State:        c.state,
		Status:       c.status,
		UnitSelected: c.unitSelected,
		Waits:        c.waits,
		PseudoWait:   c.pseudoWait,
		PendingErr:   c.pendingErr,
		XferError:    c.xferError,
		CallStatus:   c.callStatus,
		Length:       c.length,
		Index:        c.index,
		Gaplen:       c.gaplen,
		InitialPos:   c.initialPos,
	}
	for i, u := range c.units {
		snap.Units[i] = unitSnapshot{
			Model:          u.Model,
			Density:        u.Density,
			ReelSize:       u.ReelSize,
			Online:         u.Online,
			WriteProtected: u.WriteProtected,
			Rewinding:      u.Rewinding,
			Opcode:         u.Opcode,
			Phase:          u.Phase,
			Status:         u.Status,
			Position:       u.Position,
			Wait:           u.Wait,
		}
	}
	data, err := cbor.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("tape: snapshot: %w", err)
	}
	return data, nil
}

// Restore decodes a Snapshot into a fresh Controller. Units come back
// with their saved Online flag but no Image mounted, so none is ready;
// call Attach on each unit that was online at snapshot time before
// resuming traffic.
func Restore(data []byte) (*Controller, error) {
	var snap controllerSnapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("tape: restore: %w", err)
	}
	c := NewController(snap.Type, snap.Config)
	c.state = snap.State
	c.status = snap.Status
	c.unitSelected = snap.UnitSelected
	c.waits = snap.Waits
	c.pseudoWait = snap.PseudoWait
	c.pendingErr = snap.PendingErr
	c.xferError = snap.XferError
	c.callStatus = snap.CallStatus
	c.length = snap.Length
	c.index = snap.Index
	c.gaplen = snap.Gaplen
	c.initialPos = snap.InitialPos

	for i, us := range snap.Units {
		u := c.units[i]
		u.Model = us.Model
		u.Density = us.Density
		u.ReelSize = us.ReelSize
		u.Online = us.Online
		u.WriteProtected = us.WriteProtected
		u.Rewinding = us.Rewinding
		u.Opcode = us.Opcode
		u.Phase = us.Phase
		u.Status = us.Status
		u.Position = us.Position
		u.Wait = us.Wait
	}
	return c, nil
}
