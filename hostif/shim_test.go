package hostif

import (
	"io"
	"testing"

	"tapectl.dev/tape"
	"tapectl.dev/tape/tapeimage"
)

type memSeeker struct {
	buf []byte
	pos int64
}

func (m *memSeeker) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	}
	m.pos = target
	return target, nil
}

func newTestShim(t *testing.T) *Shim {
	t.Helper()
	ctrl := tape.NewController(tape.HP3000, tape.DefaultConfig())
	img, err := tapeimage.NewTapFile(&memSeeker{}, 0, false, 0)
	if err != nil {
		t.Fatalf("NewTapFile: %v", err)
	}
	u, err := ctrl.Unit(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Attach(img, false); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return NewShim(ctrl)
}

func TestDecodeControlWordSelectsUnit(t *testing.T) {
	// command code 0 (Select_Unit_n), unit field = 2.
	word := uint16(2) << cnUnitShift
	cw := DecodeControlWord(word)
	if cw.Opcode != tape.SelectUnit2 {
		t.Fatalf("got opcode %v, want Select_Unit_2", cw.Opcode)
	}
	if cw.MasterReset || cw.ResetInterrupt || cw.Reserved {
		t.Fatalf("unexpected latch bits decoded from a plain select word")
	}
}

func TestDecodeControlWordRejectsReservedBits(t *testing.T) {
	cw := DecodeControlWord(cnReservedMask)
	if !cw.Reserved {
		t.Fatalf("expected the reserved field to decode as set")
	}
}

func TestDecodeControlWordCommandTable(t *testing.T) {
	cases := map[uint16]tape.Opcode{
		4:  tape.WriteRecord,
		5:  tape.WriteGap,
		6:  tape.ReadRecord,
		8:  tape.Rewind,
		9:  tape.RewindOffline,
		13: tape.WriteFileMark,
		15: tape.ForwardSpaceFile,
	}
	for code, want := range cases {
		cw := DecodeControlWord(code)
		if cw.Opcode != want {
			t.Fatalf("code %#o: got %v, want %v", code, cw.Opcode, want)
		}
	}
}

func TestShimSelectThenReadEmptyRecord(t *testing.T) {
	s := newTestShim(t)

	out := s.ContStrobe(uint16(0) << cnUnitShift) // Select_Unit_0
	if !out.Has(OutSRn) {
		t.Fatalf("select: expected an SRn for the accept, got %+v", out)
	}

	readWord := uint16(6) // Read_Record
	out = s.ContStrobe(readWord)
	if !out.Has(OutSRn) {
		t.Fatalf("expected an SRn after accepting Read_Record, got %+v", out)
	}

	s.ToggleInXfer(true)
	out = s.Advance(0, 0, 0) // Wait -> Start
	for i := 0; i < 8 && !out.Has(OutINTREQ); i++ {
		out = s.Advance(0, 0, 0)
	}
	if !out.Has(OutINTREQ) {
		t.Fatalf("expected an interrupt request once the empty read completes")
	}

	word := s.StatStrobe()
	_, errKind := s.ctrl.Status()
	if errKind == tape.ErrReject {
		t.Fatalf("did not expect a reject on a plain read")
	}
	if word == 0 {
		t.Fatalf("expected a non-zero status word (end-of-file, ready bits set)")
	}
}

func TestShimMasterResetClearsLatches(t *testing.T) {
	s := newTestShim(t)
	s.interruptReq = true
	s.channelSR = true
	s.sioOK = false

	s.ContStrobe(cnMasterReset)

	if s.interruptReq || s.channelSR {
		t.Fatalf("expected master reset to clear the interrupt/service-request latches")
	}
	if !s.sioOK {
		t.Fatalf("expected master reset to restore SIO-OK")
	}
}

func TestShimPollInterruptHandshake(t *testing.T) {
	s := newTestShim(t)
	s.interruptReq = true

	out := s.PollInterrupt()
	if !out.Has(OutINTACK) {
		t.Fatalf("expected INTACK on a poll while an interrupt is pending, got %+v", out)
	}
	if !s.interruptActive {
		t.Fatalf("expected interruptActive to latch once the poll is claimed")
	}

	out = s.PollInterrupt()
	if out.Has(OutINTACK) {
		t.Fatalf("expected no second INTACK once the poll has already been claimed")
	}
}

func TestShimWriteOnProtectedDriveRejects(t *testing.T) {
	ctrl := tape.NewController(tape.HP3000, tape.DefaultConfig())
	img, _ := tapeimage.NewTapFile(&memSeeker{}, 0, true, 0)
	u, _ := ctrl.Unit(0)
	u.Attach(img, true)
	s := NewShim(ctrl)

	s.ContStrobe(uint16(0) << cnUnitShift) // Select_Unit_0
	out := s.ContStrobe(4)                 // Write_Record
	if !out.Has(OutSRn) {
		t.Fatalf("expected a service request even on reject, got %+v", out)
	}
	_, errKind := s.ctrl.Status()
	if errKind != tape.ErrReject {
		t.Fatalf("expected ErrReject latched, got %v", errKind)
	}
}
