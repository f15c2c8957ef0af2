//go:build !tinygo

package hostif

import (
	"encoding/binary"
	"errors"
	"io"
	"runtime"

	"github.com/tarm/serial"
)

// wireFrame is the on-the-wire encoding of one signal crossing the
// serial link to a real test-rig host interface card: a one-byte
// signal id followed by its 16-bit little-endian argument.
const wireFrame = 3

// OpenSerial opens a serial line to a host-interface test rig, trying
// dev if given or a list of per-OS candidate device paths otherwise.
func OpenSerial(dev string) (io.ReadWriteCloser, error) {
	const baudRate = 115200

	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3")
		case "linux":
			devices = append(devices, "/dev/ttyUSB0", "/dev/ttyUSB1")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("hostif: no serial device specified")
	}
	var firstErr error
	for _, d := range devices {
		c := &serial.Config{Name: d, Baud: baudRate}
		s, err := serial.OpenPort(c)
		if err == nil {
			return s, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// SignalID identifies one inbound or outbound signal on the wire. Only
// the signal kinds a SerialTransport actually carries need an id; this
// is a transport concern, separate from OutSignal/FuncKind.
type SignalID byte

const (
	SigContStrobe SignalID = iota
	SigStatStrobe
	SigStartIO
	SigWriteStrobe
	SigReadNextWord
	SigINTACK
	SigINTPOLLOUT
	SigINTREQ
	SigSRn
	SigDEVEND
)

// SerialTransport carries the host flag/function byte protocol over a
// real serial line, grounded on the same tarm/serial-backed device
// handle the teacher's stepper-motor link uses, so the controller core
// can be driven against real RS-232 hardware in a test rig rather than
// only in-process.
type SerialTransport struct {
	rw io.ReadWriteCloser
}

// NewSerialTransport wraps an already-open serial handle (typically
// the result of OpenSerial).
func NewSerialTransport(rw io.ReadWriteCloser) *SerialTransport {
	return &SerialTransport{rw: rw}
}

// Send writes one signal frame to the wire.
func (t *SerialTransport) Send(id SignalID, arg uint16) error {
	var frame [wireFrame]byte
	frame[0] = byte(id)
	binary.LittleEndian.PutUint16(frame[1:], arg)
	_, err := t.rw.Write(frame[:])
	return err
}

// Recv reads one signal frame from the wire.
func (t *SerialTransport) Recv() (SignalID, uint16, error) {
	var frame [wireFrame]byte
	if _, err := io.ReadFull(t.rw, frame[:]); err != nil {
		return 0, 0, err
	}
	return SignalID(frame[0]), binary.LittleEndian.Uint16(frame[1:]), nil
}

// Close releases the underlying serial handle.
func (t *SerialTransport) Close() error { return t.rw.Close() }
