package tape

import "fmt"

// maxRecordBytes bounds a single transfer; it is generous enough for any
// HP 7970-class record plus CRCC/LRCC trailer bytes.
const maxRecordBytes = 65536

// recordBufferCapacity is maxRecordBytes plus the two trailing CRCC/LRCC
// bytes spec §2 requires room for.
const recordBufferCapacity = maxRecordBytes + 2

// RecordBuffer is the controller's single per-instance staging buffer for
// a record in flight. Only one command occupies it at a time; ownership is
// enforced by Controller.state, not by a lock (see spec §5).
type RecordBuffer struct {
	data          [recordBufferCapacity]byte
	Length, Index int
}

// Reset clears the buffer for a new command.
func (b *RecordBuffer) Reset() {
	b.Length = 0
	b.Index = 0
}

// Bytes returns the valid portion of the buffer.
func (b *RecordBuffer) Bytes() []byte {
	return b.data[:b.Length]
}

// Raw returns the full backing array, for backend calls that fill the
// buffer and report how much of it they used (the caller sets Length
// from that count afterward).
func (b *RecordBuffer) Raw() []byte {
	return b.data[:]
}

// Set replaces the buffer contents, failing if the record is too large.
func (b *RecordBuffer) Set(data []byte) error {
	if len(data) > len(b.data) {
		return fmt.Errorf("tape: record of %d bytes exceeds buffer capacity %d", len(data), len(b.data))
	}
	copy(b.data[:], data)
	b.Length = len(data)
	b.Index = 0
	return nil
}

// Append adds trailer bytes (CRCC/LRCC) past Length without counting them
// into Length, unless the caller bumps Length itself (Read_Record_with_CRCC
// counts them in; a plain Read_Record does not).
func (b *RecordBuffer) Append(trailer ...byte) {
	copy(b.data[b.Length:], trailer)
}

// ReadByte returns the next byte to stream to the host and advances Index.
func (b *RecordBuffer) ReadByte() (byte, bool) {
	if b.Index >= b.Length {
		return 0, false
	}
	v := b.data[b.Index]
	b.Index++
	return v, true
}

// WriteByte appends a byte received from the host and advances Index and
// Length together.
func (b *RecordBuffer) WriteByte(v byte) bool {
	if b.Length >= len(b.data) {
		return false
	}
	b.data[b.Length] = v
	b.Length++
	b.Index = b.Length
	return true
}

// Remaining reports how many bytes are left to stream on a read.
func (b *RecordBuffer) Remaining() int {
	return b.Length - b.Index
}
