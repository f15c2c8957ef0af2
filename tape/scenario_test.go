package tape

import (
	"bytes"
	"testing"

	"tapectl.dev/tape/tapeimage"
)

// TestScenarioOverrunOnRead covers the end-to-end overrun scenario: a
// Read_Record completes normally at the backend, but the host signals
// OVRUN on the Stop-phase call (it failed to ACKSR in time). Expected:
// Timing-Error is latched, an interrupt is still raised, and the tape
// position has already advanced past the full record.
func TestScenarioOverrunOnRead(t *testing.T) {
	c, _ := newTestController(t, false)
	record := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	u, _ := c.Unit(0)
	u.Image.(*tapeimage.TapFile).WriteRecord(record, false)
	u.Image.(*tapeimage.TapFile).Rewind(0)
	u.Position = 0

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))

	which := 0
	c.Step(&which, 0, 0) // Wait -> Start

	var fns Functions
	for i := 0; i < len(record)+4 && c.state != Idle; i++ {
		flags := FlagSet(0)
		switch {
		case u.Phase == PhaseStop:
			flags = FlagOVRUN
		case u.Phase == PhaseData && c.index >= c.length:
			flags = FlagEOD // host ends the channel exactly at the record boundary
		}
		fns, _ = c.Step(&which, flags, 0)
	}
	if c.state != Idle {
		t.Fatalf("expected the command to complete, state=%v", c.state)
	}
	if !fns.Has(FuncSTINT) {
		t.Fatalf("expected an interrupt on the Stop-phase call, got %+v", fns)
	}
	_, errKind := c.Status()
	if errKind != ErrTimingError {
		t.Fatalf("expected ErrTimingError latched, got %v", errKind)
	}
	if u.Position == 0 {
		t.Fatalf("expected tape position to have advanced past the full record")
	}
}

// TestScenarioShortRecordRaisesDeviceEnd covers spec §4.1's "record ends
// before the channel" end-of-data case: the host never signals EOD, so
// the record runs out first. Expected: the controller parks in
// DeviceEnd and the Stop-phase call raises DVEND instead of STINT.
func TestScenarioShortRecordRaisesDeviceEnd(t *testing.T) {
	c, _ := newTestController(t, false)
	record := []byte{1, 2, 3, 4}
	u, _ := c.Unit(0)
	u.Image.(*tapeimage.TapFile).WriteRecord(record, false)
	u.Image.(*tapeimage.TapFile).Rewind(0)
	u.Position = 0

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))

	which := 0
	c.Step(&which, 0, 0) // Wait -> Start

	var fns Functions
	for i := 0; i < len(record)+4 && c.state != Idle; i++ {
		fns, _ = c.Step(&which, 0, 0) // never signals FlagEOD
	}
	if c.state != Idle {
		t.Fatalf("expected the command to complete, state=%v", c.state)
	}
	if !fns.Has(FuncDVEND) {
		t.Fatalf("expected DVEND on the Stop-phase call, got %+v", fns)
	}
	if fns.Has(FuncSTINT) {
		t.Fatalf("expected no STINT alongside DVEND, got %+v", fns)
	}
}

// TestScenarioMasterResetDuringWrite covers the end-to-end master-reset
// scenario: a Write_Record is interrupted mid-transfer by a master
// reset. Expected: the partial record is flushed with a bad-record
// marker, every controller latch clears, and a subsequent Read_Record
// at the position the write started from returns the partial bytes with
// a data-error status bit set.
func TestScenarioMasterResetDuringWrite(t *testing.T) {
	c, _ := newTestController(t, false)
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(WriteRecord)))

	which := 0
	c.Step(&which, 0, 0) // Wait -> Start
	c.Step(&which, 0, 0) // Start -> Data
	c.Step(&which, 0, uint16(0x0102))

	c.MasterReset()

	if c.state != Idle {
		t.Fatalf("expected Idle after master reset, got %v", c.state)
	}
	u, _ := c.Unit(0)
	if u.Phase != PhaseIdle {
		t.Fatalf("expected unit 0 back at Idle phase, got %v", u.Phase)
	}

	// The write began at load point; return there to read the flushed record.
	u.Image.(*tapeimage.TapFile).Rewind(0)
	u.Position = 0

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))
	var gotBytes []byte
	for i := 0; i < 8 && c.state != Idle; i++ {
		fns, _ := c.Step(&which, 0, 0)
		for _, f := range fns {
			if f.Kind == FuncIFIN {
				gotBytes = append(gotBytes, byte(f.Word>>8), byte(f.Word))
			}
		}
	}
	if !bytes.Equal(gotBytes, []byte{0x01, 0x02}) {
		t.Fatalf("got %x, want the 2 bytes flushed before the reset", gotBytes)
	}
	if !c.status.has(CondDataError) {
		t.Fatalf("expected the bad-record marker to surface as a data-error status bit")
	}
}

// TestLawClearControllerIdempotent covers spec's "clear_controller is
// idempotent" law. Clear_Controller is defined only for the 1000-series
// controllers, so this uses an NRZI-1000 controller.
func TestLawClearControllerIdempotent(t *testing.T) {
	c := NewController(NRZI1000, DefaultConfig())
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ClearController)))
	first := c.state
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ClearController)))
	if c.state != first {
		t.Fatalf("expected clear_controller to be idempotent, got %v then %v", first, c.state)
	}
}

// TestLawWriteGapThenBackspaceEntersGap covers spec's
// "write_gap(n); backspace_record() repositions into the gap" law.
func TestLawWriteGapThenBackspaceEntersGap(t *testing.T) {
	c, _ := newTestController(t, false)
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(WriteGap)))
	which := 0
	for i := 0; i < 4 && c.state != Idle; i++ {
		c.Step(&which, 0, 0)
	}
	u, _ := c.Unit(0)
	afterGap := u.Position
	if afterGap == 0 {
		t.Fatalf("expected the gap write to advance tape position")
	}

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(BackspaceRecord)))
	for i := 0; i < 4 && c.state != Idle; i++ {
		c.Step(&which, 0, 0)
	}
	if u.Position >= afterGap {
		t.Fatalf("expected backspace to reposition strictly before the gap, got %d (was %d)", u.Position, afterGap)
	}
}
