package tape

import (
	"bytes"
	"io"
	"testing"

	"tapectl.dev/tape/tapeimage"
)

// memSeeker is the in-memory io.ReadWriteSeeker fake stand-in for a real
// tape-image file, the same trick the teacher's simulator tests use to
// run without real hardware.
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

func newTestController(t *testing.T, writeProtect bool) (*Controller, *memSeeker) {
	t.Helper()
	c := NewController(HP3000, DefaultConfig())
	mem := &memSeeker{}
	img, err := tapeimage.NewTapFile(mem, 0, writeProtect, 0)
	if err != nil {
		t.Fatalf("NewTapFile: %v", err)
	}
	u, err := c.Unit(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Attach(img, writeProtect); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return c, mem
}

func hasFunc(batches []Functions, kind FuncKind) bool {
	for _, b := range batches {
		if b.Has(kind) {
			return true
		}
	}
	return false
}

func TestSelectThenReadEmptyRecord(t *testing.T) {
	c, _ := newTestController(t, false)
	fns, _ := c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	if !fns.Has(FuncIFGTC) || !fns.Has(FuncRQSRV) {
		t.Fatalf("select: got %+v", fns)
	}

	fns, _ = c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))
	if !fns.Has(FuncIFGTC) {
		t.Fatalf("read start: got %+v", fns)
	}

	// TOGGLEINXFER rising: enter Wait->Start.
	which := 0
	c.Step(&which, 0, 0)

	sched := NewScheduler(c)
	batches := sched.Run(0, 64)
	if !hasFunc(batches, FuncSTINT) {
		t.Fatalf("expected STINT after empty read, batches=%+v", batches)
	}
	if c.state != Idle {
		t.Fatalf("expected Idle after command completes, got %v", c.state)
	}
	if !c.status.has(CondEndOfFile) {
		t.Fatalf("expected EOF status bit set on empty-tape read")
	}
}

func TestWriteThenReadBack(t *testing.T) {
	c, _ := newTestController(t, false)
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(WriteRecord)))
	which := 0
	c.Step(&which, 0, 0) // Wait -> Start
	c.Step(&which, 0, 0) // Start -> Data (HP3000 transfers one 16-bit word at a time)

	words := []uint16{0x0102, 0x0304}
	for _, w := range words {
		c.Step(&which, 0, w)
	}
	c.Step(&which, FlagEOD, 0) // TOGGLEOUTXFER falling: flush the record
	c.Step(&which, 0, 0)       // Stop -> Idle

	if c.state != Idle {
		t.Fatalf("expected Idle after write completes, got %v", c.state)
	}
	u, _ := c.Unit(0)
	if u.Position == 0 {
		t.Fatalf("expected tape position to advance past the written record")
	}

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(BackspaceRecord)))
	which = 0
	c.Step(&which, 0, 0) // Start: backend space
	c.Step(&which, 0, 0) // Data (no host transfer)
	c.Step(&which, 0, 0) // Stop -> Idle

	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))
	c.Step(&which, 0, 0) // Wait -> Start
	c.Step(&which, 0, 0) // Start: backend read fills the buffer

	var gotWords []uint16
	for i := 0; i < 4 && c.state != Idle; i++ {
		batch, _ := c.Step(&which, 0, 0)
		for _, f := range batch {
			if f.Kind == FuncIFIN {
				gotWords = append(gotWords, f.Word)
			}
		}
	}
	if len(gotWords) != len(words) {
		t.Fatalf("got %d words, want %d: %v", len(gotWords), len(words), gotWords)
	}
	for i, w := range words {
		if gotWords[i] != w {
			t.Fatalf("word %d: got %#x want %#x", i, gotWords[i], w)
		}
	}
}

func TestWriteOnProtectedDriveRejects(t *testing.T) {
	c, _ := newTestController(t, true)
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	fns, _ := c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(WriteRecord)))
	if !fns.Has(FuncIFGTC) {
		t.Fatalf("expected IFGTC(Invalid) on reject, got %+v", fns)
	}
	found := false
	for _, f := range fns {
		if f.Kind == FuncIFGTC && f.Class == ClassInvalid {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ClassInvalid classification, got %+v", fns)
	}
	u, _ := c.Unit(0)
	if u.Position != 0 {
		t.Fatalf("expected tape position unchanged on reject, got %d", u.Position)
	}
}

func TestRewindOverlap(t *testing.T) {
	c1 := NewController(HP3000, DefaultConfig())
	mem0 := &memSeeker{}
	img0, _ := tapeimage.NewTapFile(mem0, 0, false, 0)
	u0, _ := c1.Unit(0)
	u0.Attach(img0, false)
	u0.Position = 0
	img0.WriteRecord([]byte{1, 2, 3, 4}, false)
	img0.Rewind(0)
	u0.Position = 0

	mem1 := &memSeeker{}
	img1, _ := tapeimage.NewTapFile(mem1, 0, false, 0)
	u1, _ := c1.Unit(1)
	u1.Attach(img1, false)
	u1.Position = 500

	c1.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit1)))
	c1.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(Rewind)))
	if c1.state != Busy {
		t.Fatalf("expected controller busy until the Start-phase event fires")
	}

	which := 1
	c1.Step(&which, 0, 0) // Start: release the controller, set drive rewinding
	if !u1.Rewinding {
		t.Fatalf("expected unit 1 rewinding")
	}
	if c1.state != Idle {
		t.Fatalf("expected controller released once rewind enters Traverse")
	}

	c1.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	fns, _ := c1.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(ReadRecord)))
	if !fns.Has(FuncIFGTC) {
		t.Fatalf("unit 0 read should be accepted while unit 1 rewinds")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c, _ := newTestController(t, false)
	c.Step(nil, FlagCMRDY|FlagCMXEQ, uint16(int16(SelectUnit0)))
	data, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	restored, err := Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.unitSelected != c.unitSelected {
		t.Fatalf("unitSelected mismatch: got %d want %d", restored.unitSelected, c.unitSelected)
	}
	if restored.Type != c.Type {
		t.Fatalf("Type mismatch")
	}
}

func TestComputeCRCCLRCCDeterministic(t *testing.T) {
	data := []byte("HELLO")
	c1, l1 := ComputeCRCCLRCC(data)
	c2, l2 := ComputeCRCCLRCC(append([]byte{}, data...))
	if c1 != c2 || l1 != l2 {
		t.Fatalf("CRCC/LRCC not deterministic")
	}
	if bytes.Equal([]byte{c1, l1}, []byte{0, 0}) {
		t.Fatalf("expected a non-trivial CRC/LRC for non-empty data")
	}
}
