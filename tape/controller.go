package tape

// Controller is one instance of the command/phase state machine. Every
// field here is owned exclusively by this value — no module-level static
// state, no pointer graph shared with a host data structure (spec §9
// REDESIGN FLAGS): multiple Controllers coexist freely.
type Controller struct {
	Type   ControllerType
	Config Config

	state        State
	status       StatusBits
	unitSelected int

	units  [NumUnits]*Unit
	buffer *RecordBuffer

	callStatus    CallStatus
	length, index int
	gaplen        int64
	initialPos    int64

	delays TimingTable

	waits       [NumUnits]Ticks // per-unit countdown; notScheduled when idle
	pseudoWait  Ticks           // HP3000 reject-interrupt pseudo-unit countdown
	pendingErr  ErrorKind       // error kind latched for the pending interrupt
	xferError   bool            // HP3000: sticks until a master reset (DCONTSTB bit 0)
}

// standardGapLength is the erase-gap length, in bytes, a bare Write_Gap
// or the gap-writing phase of Write_File_Mark/Write_Gap_and_File_Mark
// produces when the host does not otherwise specify one. The original
// interface ties this to a fixed inter-record gap for the drive's
// density; we use one representative constant, documented as tunable
// like the other under-specified timing constants (spec §9).
const standardGapLength = 300

// NewController builds a Controller of the given type with four offline,
// unattached units.
func NewController(ct ControllerType, cfg Config) *Controller {
	c := &Controller{
		Type:         ct,
		Config:       cfg,
		state:        Idle,
		unitSelected: 0,
		buffer:       &RecordBuffer{},
		pseudoWait:   notScheduled,
	}
	for i := range c.units {
		c.units[i] = NewUnit("7970B", 800, ReelUnlimited)
		c.waits[i] = notScheduled
	}
	c.delays = c.activeTable(c.units[0])
	return c
}

// Status reports the controller's status word and the ErrorKind latched
// by the most recently completed command, for a host interface's
// PSTATSTB/DSTATSTB handler to encode via EncodeHP3000. c.status itself
// only accumulates per-command result bits (CondEndOfFile, CondDataError,
// and the like); Status composes those with the conditions that reflect
// live drive/controller state (ready, rewinding, density, ...) read fresh
// off the selected unit so they can never go stale between commands.
func (c *Controller) Status() (StatusBits, ErrorKind) {
	s := c.status
	if c.unitSelected >= 0 && c.unitSelected < NumUnits {
		u := c.units[c.unitSelected]
		s = s.set(CondUnitReady, u.ready()).
			set(CondRewinding, u.Rewinding).
			set(CondWriteProtected, u.WriteProtected).
			set(CondUnitOffline, !u.Online).
			set(CondLoadPoint, u.AtLoadPoint()).
			set(CondDensity1600, u.Density == 1600).
			set(CondUnitSelected0, c.unitSelected&1 != 0).
			set(CondUnitSelected1, c.unitSelected&2 != 0)
	}
	s = s.set(CondCommandRejected, c.pendingErr == ErrReject).
		set(CondInterfaceBusy, c.state == Busy)
	return s, c.pendingErr
}

// SelectedUnit returns the index a prior Select_Unit_n command left
// selected, for a host interface to target unit-event Step calls at.
func (c *Controller) SelectedUnit() int {
	return c.unitSelected
}

// Unit returns unit n for configuration (Attach, SetOnline) outside the
// Step entry point.
func (c *Controller) Unit(n int) (*Unit, error) {
	if n < 0 || n >= NumUnits {
		return nil, ErrUnitOutOfRange
	}
	return c.units[n], nil
}

func (c *Controller) activeTable(u *Unit) TimingTable {
	if c.Config.Timing == TimingRealtime {
		return lookupTiming(c.Type, u.Model, u.Density)
	}
	return fastTimingTable
}

func (c *Controller) resetBuffer() {
	c.buffer.Reset()
	c.length, c.index = 0, 0
}

// Step is the single public entry point (spec §4.1's `step`). unit is
// non-nil when a previously scheduled unit event has expired; flags is
// the current host-side flag set; dataIn is the host data-bus value
// (interpreted as an Opcode when starting a command, or as a word to
// store into the buffer during a write transfer).
func (c *Controller) Step(unit *int, flags FlagSet, dataIn uint16) (Functions, uint16) {
	var fns Functions

	if flags.has(FlagXFRNG) {
		return fns, 0
	}

	switch {
	case unit != nil:
		fns = c.continueCommand(*unit, flags, dataIn)
	case flags.has(FlagCMRDY) || flags.has(FlagCMXEQ):
		fns = c.startCommand(Opcode(int16(dataIn)), flags)
	}

	if c.state == Idle && flags.has(FlagINTOK) && c.Type == HP3000 {
		c.pollDrives(&fns)
	}

	c.syncUnitWaits()

	var dataOut uint16
	for _, f := range fns {
		if f.Kind == FuncIFIN {
			dataOut = f.Word
		}
	}
	return fns, dataOut
}

// syncUnitWaits mirrors the controller's internal countdown array onto
// each Unit's own Wait field, kept for observability (Snapshot, tests)
// even though the scheduler reads the controller's array directly.
func (c *Controller) syncUnitWaits() {
	for i := range c.units {
		c.units[i].Wait = c.waits[i]
	}
}

// pollDrives implements the HP3000 idle-poll entry rule: select the
// lowest-numbered drive with attention pending, clear it, and emit DATTN.
func (c *Controller) pollDrives(fns *Functions) {
	for i := 0; i < NumUnits; i++ {
		if c.units[i].takeAttention() {
			fns.dattn(i)
			return
		}
	}
}

// startCommand validates and dispatches a freshly issued opcode (spec
// §4.1 "Command validation").
func (c *Controller) startCommand(op Opcode, flags FlagSet) Functions {
	var fns Functions

	if c.xferError && op != ClearController {
		return c.reject(&fns)
	}

	if n, ok := isSelectUnit(op); ok {
		if _, known := classify(c.Type, op); !known {
			return c.reject(&fns)
		}
		c.unitSelected = n
		fns.ifgtc(ClassControl)
		fns.rqsrv()
		return fns
	}

	info, known := classify(c.Type, op)
	if !known {
		return c.reject(&fns) // rule 1: opcode not defined for controller type
	}

	if op == ClearController {
		c.doClear()
		fns.ifgtc(ClassControl)
		return fns
	}

	if c.state == Busy {
		return c.reject(&fns) // rule 4: busy and not clear-controller
	}

	unit := c.units[c.unitSelected]
	if info.requiresReady && !unit.ready() {
		return c.reject(&fns) // rule 2
	}
	if info.class == ClassWrite && unit.WriteProtected {
		return c.reject(&fns) // rule 3
	}

	c.resetBuffer() // rule 5: index/length are zero at command start
	c.status = 0
	c.pendingErr = ErrNone
	unit.Opcode = op
	c.state = Busy
	c.callStatus = CallOK
	c.initialPos = unit.Position
	c.delays = c.activeTable(unit)

	fns.ifgtc(info.class)

	if info.transfersData {
		unit.Phase = PhaseWait
		return fns
	}

	unit.Phase = PhaseStart
	c.scheduleUnit(c.unitSelected, c.startDelay(unit, op))
	return fns
}

// reject implements the command-reject path: set Error, emit
// IFGTC(Invalid), and schedule the interrupt. The HP3000 variant defers
// the interrupt onto the pseudo-unit per spec §4.5; other variants have
// no documented delay for this path, so they interrupt immediately.
func (c *Controller) reject(fns *Functions) Functions {
	fns.ifgtc(ClassInvalid)
	c.state = Error
	c.pendingErr = ErrReject
	if c.Type == HP3000 {
		delay := c.Config.RejectDelayOverride
		if delay == 0 {
			delay = c.delays.IRStart
		}
		c.pseudoWait = delay
	} else {
		c.state = Idle
		fns.stint()
	}
	return *fns
}

// doClear implements Clear_Controller / a master reset (spec §4.1
// "Controller clear").
func (c *Controller) doClear() {
	for i := range c.units {
		u := c.units[i]
		remaining := c.waits[i]
		c.waits[i] = notScheduled
		if u.Rewinding {
			continue // rewinds continue across clear
		}
		if u.Phase == PhaseData && u.Opcode == WriteRecord || u.Phase == PhaseData && u.Opcode == WriteRecordWithoutParity {
			if c.index > 0 {
				u.writeRecord(c.buffer.Bytes()[:c.index], true, c.Config)
			}
		} else if u.Phase == PhaseTraverse && c.Config.Timing == TimingRealtime && c.delays.DataXfer > 0 {
			partial := c.gaplen - int64(remaining)/int64(c.delays.DataXfer)
			if u.Position+partial >= 0 {
				u.Position += partial
			}
		}
		u.Phase = PhaseIdle
		u.Opcode = InvalidOpcode
	}
	c.state = Idle
	c.pseudoWait = notScheduled
	c.pendingErr = ErrNone
}

// MasterReset clears the controller and releases the sticky transfer-error
// latch (DCONTSTB bit 0; spec §6, testable property #9).
func (c *Controller) MasterReset() {
	c.xferError = false
	c.doClear()
}

// SetTransferError records a host-reported XFERERROR (spec §6): every
// subsequent command except Clear_Controller is rejected until the next
// MasterReset.
func (c *Controller) SetTransferError() {
	c.xferError = true
}

func (c *Controller) scheduleUnit(n int, delay Ticks) {
	c.waits[n] = delay
}

// startDelay computes the Start-phase delay for a non-transfer (or
// transfer-after-Wait) command (spec §4.1 Timing paragraph).
func (c *Controller) startDelay(u *Unit, op Opcode) Ticks {
	switch op {
	case Rewind, RewindOffline:
		return c.delays.Overhead + c.delays.RewindStart
	default:
		if u.Position == 0 {
			return c.delays.Overhead + c.delays.BOTStart
		}
		return c.delays.Overhead + c.delays.IRStart
	}
}

// continueCommand dispatches a fired unit event (spec §4.1
// "continue_command"), or a host-driven Wait->Start nudge on a
// TOGGLEINXFER/TOGGLEOUTXFER rising edge (same entry point, since both
// are "this unit has something to do next").
func (c *Controller) continueCommand(which int, flags FlagSet, dataIn uint16) Functions {
	var fns Functions

	if which == pseudoUnit {
		c.pseudoWait = notScheduled
		c.state = Idle
		fns.stint() // pendingErr (ErrReject) stays latched for a later status read
		return fns
	}

	unit := c.units[which]
	switch unit.Phase {
	case PhaseWait:
		unit.Phase = PhaseStart
		c.scheduleUnit(which, c.startDelay(unit, unit.Opcode))
	case PhaseStart:
		c.runStart(unit, which, &fns)
	case PhaseTraverse:
		c.runTraverse(unit, which, &fns)
	case PhaseData:
		c.runData(unit, which, flags, dataIn, &fns)
	case PhaseStop:
		c.runStop(unit, which, flags, &fns)
	}
	return fns
}

// runStart performs the opcode's Start-phase backend action and decides
// the next phase, per the transition table of spec §4.1.
func (c *Controller) runStart(u *Unit, which int, fns *Functions) {
	switch u.Opcode {
	case Rewind, RewindOffline:
		c.gaplen = u.Position
		u.Rewinding = true
		c.state = Idle
		u.Phase = PhaseTraverse
		rate := c.delays.RewindRate
		if rate <= 0 {
			rate = 1
		}
		inches := c.gaplen
		if u.Density > 0 {
			inches = c.gaplen / int64(u.Density)
		}
		c.waits[which] = Ticks(inches) * rate
		return

	case ForwardSpaceRecord, ForwardSpaceFile:
		res := u.spaceForward(c.Config)
		c.afterSpaceStart(u, which, res, fns)
		return
	case BackspaceRecord, BackspaceFile:
		res := u.spaceReverse(c.Config)
		c.afterSpaceStart(u, which, res, fns)
		return

	case ReadRecord, ReadRecordWithCRCC, ReadFileForward:
		res := u.readForward(c.buffer.Raw(), c.Config)
		c.afterReadStart(u, which, res, fns)
		return
	case ReadRecordBackward:
		res := u.readReverse(c.buffer.Raw(), c.Config)
		c.afterReadStart(u, which, res, fns)
		return

	case WriteRecord, WriteRecordWithoutParity:
		if u.Position == 0 && c.Config.Timing == TimingRealtime {
			u.Phase = PhaseTraverse
			c.waits[which] = c.delays.BOTStart
			return
		}
		u.Phase = PhaseData
		c.waits[which] = 0
		return

	case WriteFileMark:
		if u.Position == 0 && c.Config.Timing == TimingRealtime {
			u.Phase = PhaseTraverse
			c.gaplen = standardGapLength
			c.waits[which] = Ticks(c.gaplen) * c.delays.DataXfer
			return
		}
		u.Phase = PhaseData
		c.waits[which] = 0
		return

	case WriteGap:
		res := u.writeGap(standardGapLength, c.Config)
		c.gaplen = res.GapLen + int64(standardGapLength)
		if !c.handleFatal(u, res, fns) {
			u.Phase = PhaseTraverse
			c.waits[which] = c.delays.DataXfer * Ticks(c.gaplen)
		}
		return
	case WriteGapAndFileMark:
		res := u.writeGap(standardGapLength, c.Config)
		c.gaplen = res.GapLen + int64(standardGapLength)
		if !c.handleFatal(u, res, fns) {
			u.Phase = PhaseTraverse
			c.waits[which] = c.delays.DataXfer * Ticks(c.gaplen)
		}
		return
	}
}

func (c *Controller) afterSpaceStart(u *Unit, which int, res BackendResult, fns *Functions) {
	if c.handleFatal(u, res, fns) {
		return
	}
	c.length = res.RecordLen
	c.gaplen = res.GapLen
	if res.Status == CallTapeMark {
		c.status = c.status.set(CondEndOfFile, true)
	}
	if isFileClass(u.Opcode) && res.Status != CallTapeMark && res.Status != CallEndOfMedium {
		// File-class spacing loops record-by-record until a tape mark or
		// end of medium; collapsed into repeated backend calls within this
		// Start invocation rather than one scheduled phase per record.
		for res.Status == CallOK || res.Status == CallOKBadRecord {
			if u.Opcode == ForwardSpaceFile {
				res = u.spaceForward(c.Config)
			} else {
				res = u.spaceReverse(c.Config)
			}
			if c.handleFatal(u, res, fns) {
				return
			}
			c.gaplen += res.GapLen
			if res.Status == CallTapeMark {
				c.status = c.status.set(CondEndOfFile, true)
				break
			}
		}
	}
	if c.gaplen > 0 {
		u.Phase = PhaseTraverse
		c.waits[which] = c.delays.DataXfer * Ticks(c.gaplen)
		return
	}
	u.Phase = PhaseData
	c.waits[which] = c.delays.DataXfer * Ticks(c.length)
}

func (c *Controller) afterReadStart(u *Unit, which int, res BackendResult, fns *Functions) {
	if c.handleFatal(u, res, fns) {
		return
	}
	c.length = res.RecordLen
	c.buffer.Length = c.length
	c.gaplen = res.GapLen
	c.index = 0
	switch res.Status {
	case CallTapeMark:
		c.status = c.status.set(CondEndOfFile, true)
		c.finishCommand(u, which, fns)
		return
	case CallEndOfMedium:
		c.status = c.status.set(CondEndOfFile, true).set(CondEndOfTape, true).set(CondLoadPoint, u.AtLoadPoint())
		c.finishCommand(u, which, fns)
		return
	case CallOKBadRecord:
		c.status = c.status.set(CondDataError, true)
	}
	if u.Opcode == ReadRecordWithCRCC || (c.Type == NRZI1000 && u.Density == 800) {
		crcc, lrcc := ComputeCRCCLRCC(c.buffer.Bytes()[:c.length])
		c.buffer.Append(crcc, lrcc)
		if u.Opcode == ReadRecordWithCRCC {
			c.length += 2
		}
	}
	if c.length%2 != 0 {
		c.status = c.status.set(CondOddLength, true)
	}
	if c.gaplen > 0 {
		u.Phase = PhaseTraverse
		c.waits[which] = c.delays.DataXfer * Ticks(c.gaplen)
		return
	}
	u.Phase = PhaseData
	c.waits[which] = 0
}

func (u *Unit) AtLoadPoint() bool { return u.Position == 0 }

// handleFatal classifies a BackendResult, emitting SCPE and parking the
// unit in Error phase for fatal outcomes, or recording a recoverable
// status and letting the caller continue. Returns true if the call
// should stop processing this event further.
func (c *Controller) handleFatal(u *Unit, res BackendResult, fns *Functions) bool {
	c.callStatus = res.Status
	switch res.Status {
	case CallFormatCorrupt, CallIOError, CallUnattached:
		c.status = c.status.set(CondDataError, true)
		u.Phase = PhaseError
		c.state = Error
		c.pendingErr = ErrTapeError
		fns.scpe(ErrTapeError)
		return true
	case CallWriteProtected:
		c.status = c.status.set(CondWriteProtected, true)
		u.Phase = PhaseError
		c.state = Error
		c.pendingErr = ErrReject
		fns.scpe(ErrReject)
		return true
	case CallRunaway:
		if c.Type == HP3000 && u.Opcode == BackspaceRecord {
			return false // HP3000 reverse-space tolerates runaway (spec §4.4)
		}
		c.status = c.status.set(CondTapeRunaway, true)
		u.Phase = PhaseError
		c.state = Error
		c.pendingErr = ErrRunaway
		fns.scpe(ErrRunaway)
		return true
	}
	return false
}

// runTraverse waits out the gap-traversal delay, then advances to Data
// or, for rewinds and Write_Gap, to Stop.
func (c *Controller) runTraverse(u *Unit, which int, fns *Functions) {
	if u.Opcode == Rewind || u.Opcode == RewindOffline {
		res := u.rewind(c.Config)
		u.Phase = PhaseStop
		c.waits[which] = c.delays.RewindStop
		_ = res
		return
	}
	switch u.Opcode {
	case WriteGap:
		u.Phase = PhaseStop
		c.waits[which] = c.delays.IRStart
	case WriteGapAndFileMark:
		u.Phase = PhaseData
		c.waits[which] = 0
	case WriteRecord, WriteRecordWithoutParity:
		u.Phase = PhaseData
		c.waits[which] = 0
	case WriteFileMark:
		u.Phase = PhaseData
		c.waits[which] = 0
	default:
		u.Phase = PhaseData
		c.waits[which] = c.delays.DataXfer * Ticks(c.length)
	}
}

// runData performs one transfer element's worth of work (spec §4.1
// Timing: "at Data (transfer) it is data_xfer per byte or 2×data_xfer per
// word"), or, for non-transfer commands that reuse the Data phase as
// their backend-action phase, performs that action directly.
func (c *Controller) runData(u *Unit, which int, flags FlagSet, dataIn uint16, fns *Functions) {
	info, _ := classify(c.Type, u.Opcode)

	switch u.Opcode {
	case WriteFileMark:
		res := u.writeTapeMark(c.Config)
		c.handleFatal(u, res, fns)
		c.finishCommand(u, which, fns)
		return
	case WriteGapAndFileMark:
		res := u.writeTapeMark(c.Config)
		c.handleFatal(u, res, fns)
		c.finishCommand(u, which, fns)
		return
	case ForwardSpaceRecord, ForwardSpaceFile, BackspaceRecord, BackspaceFile:
		c.finishCommand(u, which, fns)
		return
	}

	if !info.transfersData {
		c.finishCommand(u, which, fns)
		return
	}

	switch info.class {
	case ClassRead:
		// End-of-data semantics (spec §4.1; hp_tapelib.c's Data_Phase
		// Read_Record case): the record can end before the channel (the
		// host keeps transferring past a short record) or the channel can
		// end before the record (EOD arrives with bytes still unread). The
		// former parks the controller in DeviceEnd so the Stop phase
		// raises DVEND instead of STINT; either way the Stop-phase wait
		// is extended by the record bytes the host never actually read.
		if c.index >= c.length || flags.has(FlagEOD) {
			remaining := c.length - c.index
			if remaining < 0 {
				remaining = 0
			}
			if !flags.has(FlagEOD) {
				c.state = DeviceEnd
			}
			c.finishCommand(u, which, fns)
			c.waits[which] += c.delays.DataXfer * Ticks(remaining)
			return
		}
		word := uint16(c.buffer.Bytes()[c.index])
		if c.index+1 < c.length && perWordBytes(c.Type) == 2 {
			word = word<<8 | uint16(c.buffer.Bytes()[c.index+1])
			c.index += 2
		} else {
			c.index++
		}
		fns.ifin(word)
		fns.rqsrv()
		c.waits[which] = c.delays.DataXfer * Ticks(perWordBytes(c.Type))

	case ClassWrite:
		if flags.has(FlagEOD) {
			c.finishCommand(u, which, fns)
			return
		}
		n := perWordBytes(c.Type)
		if n == 2 {
			c.buffer.WriteByte(byte(dataIn >> 8))
		}
		c.buffer.WriteByte(byte(dataIn))
		c.index += int(n)
		if c.index > c.length {
			c.length = c.index
		}
		fns.ifout()
		if c.index >= maxRecordBytes {
			c.finishCommand(u, which, fns)
			return
		}
		fns.rqsrv()
		c.waits[which] = c.delays.DataXfer * Ticks(n)
	}
}

// finishCommand transitions into Stop and schedules the Interrecord-Start
// delay; callers that end a transfer early (spec §4.1 "End-of-data
// semantics") extend c.waits[which] afterward by the untransferred record
// remainder.
func (c *Controller) finishCommand(u *Unit, which int, fns *Functions) {
	u.Phase = PhaseStop
	c.waits[which] = c.delays.IRStart
	if u.Opcode == WriteRecord || u.Opcode == WriteRecordWithoutParity {
		res := u.writeRecord(c.buffer.Bytes()[:c.length], false, c.Config)
		c.handleFatal(u, res, fns)
	}
}

// runStop finishes the command: reports status and returns the
// controller to Idle, raising DVEND if the record ended before the
// channel did (c.state == DeviceEnd, set by runData) or STINT otherwise.
func (c *Controller) runStop(u *Unit, which int, flags FlagSet, fns *Functions) {
	if flags.has(FlagOVRUN) {
		c.status = c.status.set(CondTimingError, true)
		c.pendingErr = ErrTimingError
	}

	if u.Opcode == Rewind || u.Opcode == RewindOffline {
		u.Rewinding = false
		u.Position = 0
		if u.Opcode == RewindOffline {
			u.Online = false
		}
		u.unitAttention = true
		u.Phase = PhaseIdle
		u.Opcode = InvalidOpcode
		return
	}

	u.Phase = PhaseIdle
	u.Opcode = InvalidOpcode
	if c.state == DeviceEnd {
		fns.dvend()
	} else {
		fns.stint() // pendingErr, if any, stays latched until the next command starts
	}
	c.state = Idle
}
