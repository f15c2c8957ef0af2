package tape

import "tapectl.dev/tape/tapeimage"

// CallStatus is the 9-way result category spec §4.4 requires the backend
// adapter translate every tapeimage.Image call into, independent of which
// container format the image happens to use.
type CallStatus int

const (
	CallOK CallStatus = iota
	CallOKBadRecord
	CallTapeMark
	CallEndOfMedium // load point or end of medium, direction-dependent
	CallRunaway
	CallFormatCorrupt
	CallIOError
	CallUnattached
	CallWriteProtected
)

// BackendResult is what one adapted backend call reports to the phase
// engine: the outcome category, how many record/gap bytes were involved,
// and how many of those were erase-gap rather than data.
type BackendResult struct {
	Status    CallStatus
	RecordLen int   // data or tape-mark record length
	GapLen    int64 // erase-gap bytes traversed reaching this record
}

func translateStatus(s tapeimage.Status) CallStatus {
	switch s {
	case tapeimage.StatusOK:
		return CallOK
	case tapeimage.StatusBadRecord:
		return CallOKBadRecord
	case tapeimage.StatusTapeMark:
		return CallTapeMark
	case tapeimage.StatusEndOfMedium, tapeimage.StatusLoadPoint:
		return CallEndOfMedium
	case tapeimage.StatusRunaway:
		return CallRunaway
	case tapeimage.StatusFormatCorrupt:
		return CallFormatCorrupt
	case tapeimage.StatusIOError:
		return CallIOError
	case tapeimage.StatusWriteProtected:
		return CallWriteProtected
	default:
		return CallIOError
	}
}

// backendCall wraps one Image primitive, syncing Unit.Position from the
// backend's own position afterward and reclassifying an excessively long
// position jump as CallRunaway per spec §4.4 ("tape runaway" is a
// miscalibrated-or-corrupt-gap condition, not something the image format
// itself reports).
func (u *Unit) backendCall(cfg Config, fn func() (recLen int, s tapeimage.Status, err error)) BackendResult {
	if !u.attached() {
		return BackendResult{Status: CallUnattached}
	}
	before := u.Image.Position()
	recLen, status, err := fn()
	after := u.Image.Position()
	delta := after - before
	if delta < 0 {
		delta = -delta
	}
	u.Position = after

	result := BackendResult{Status: translateStatus(status), RecordLen: recLen}
	if err != nil && result.Status != CallWriteProtected {
		result.Status = CallIOError
		return result
	}
	if result.Status == CallOK || result.Status == CallOKBadRecord {
		dataBytes := int64(recLen)
		if dataBytes%2 != 0 {
			dataBytes++
		}
		if dataBytes > 0 {
			dataBytes += 2 * markerSizeBytes
		}
		if gap := delta - dataBytes; gap > 0 {
			result.GapLen = gap
		}
	}
	if window := int64(cfg.RunawayWindow); window > 0 && result.GapLen > window {
		result.Status = CallRunaway
	}
	return result
}

// markerSizeBytes mirrors tapeimage's own framing overhead; kept here
// (rather than importing an unexported constant) since the gap-length
// formula is a property of the adapter's accounting, not of any one
// container format.
const markerSizeBytes = 4

func (u *Unit) readForward(buf []byte, cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		n, s, err := u.Image.ReadForward(buf)
		return n, s, err
	})
}

func (u *Unit) readReverse(buf []byte, cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		n, s, err := u.Image.ReadReverse(buf)
		return n, s, err
	})
}

func (u *Unit) spaceForward(cfg Config) BackendResult {
	return u.backendCall(cfg, u.Image.SpaceForward)
}

func (u *Unit) spaceReverse(cfg Config) BackendResult {
	return u.backendCall(cfg, u.Image.SpaceReverse)
}

func (u *Unit) writeRecord(data []byte, bad bool, cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		s, err := u.Image.WriteRecord(data, bad)
		return len(data), s, err
	})
}

func (u *Unit) writeGap(length int, cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		s, err := u.Image.WriteGap(length)
		return 0, s, err
	})
}

func (u *Unit) writeTapeMark(cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		s, err := u.Image.WriteTapeMark()
		return 0, s, err
	})
}

func (u *Unit) rewind(cfg Config) BackendResult {
	return u.backendCall(cfg, func() (int, tapeimage.Status, error) {
		_, s, err := u.Image.Rewind(0)
		return 0, s, err
	})
}
