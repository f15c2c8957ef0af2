package tape

// Condition is one reported status condition (spec §4.3). The concrete bit
// position a condition occupies is controller-type specific; Condition
// itself is just a name.
type Condition int

const (
	CondUnitSelected0 Condition = iota // low bit of the 2-bit unit-selected field
	CondUnitSelected1                 // high bit
	CondCommandRejected
	CondDataError
	CondDensity1600
	CondEndOfFile
	CondEndOfTape
	CondInterfaceBusy
	CondLoadPoint
	CondOddLength
	CondWriteProtected
	CondRewinding
	CondTapeRunaway
	CondTimingError
	CondUnitBusy
	CondUnitOffline
	CondUnitReady
	CondWriteStatus

	numConditions
)

// StatusBits is the aggregated status reported to the host: one bit per
// Condition, regardless of whether the active controller type maps that
// condition to a real wire position. Encode projects it onto the wire
// layout for a given ControllerType.
type StatusBits uint32

func (s StatusBits) has(c Condition) bool { return s&(1<<uint(c)) != 0 }

func (s StatusBits) set(c Condition, v bool) StatusBits {
	if v {
		return s | 1<<uint(c)
	}
	return s &^ (1 << uint(c))
}

// ErrorKind is the 3-bit encoded-error field of spec §6, reported on the
// wire complemented for the HP3000 variant.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrReserved
	ErrTapeError
	ErrTimingError
	ErrRunaway
	ErrReject
	ErrTransferError
	ErrUnitInterrupt
)

// wireCode returns the 3-bit code spec §6 assigns to each ErrorKind.
func (e ErrorKind) wireCode() uint16 {
	switch e {
	case ErrUnitInterrupt:
		return 0b111
	case ErrTransferError:
		return 0b110
	case ErrReject:
		return 0b101
	case ErrRunaway:
		return 0b100
	case ErrTimingError:
		return 0b011
	case ErrTapeError:
		return 0b010
	case ErrReserved:
		return 0b001
	default:
		return 0b000
	}
}

// statusLayout maps each Condition to a 1-based bit position in the 16-bit
// status word for one ControllerType; 0 means "not reported" (spec §4.3).
type statusLayout [numConditions]uint8

// statusLayouts is the (condition, controller_type) table spec §4.3
// requires. Bit positions for the HP3000 variant follow the status word
// layout of spec §6 exactly; the three 1000-series variants and HPIB use a
// reduced layout consistent with their narrower register sets in the
// original interface (NRZI-1000/PE-1000/HPIB do not report a 2-bit
// unit-selected field or a separate write-status bit on their status
// word, for example).
var statusLayouts = [numControllerTypes]statusLayout{
	HP3000: {
		CondUnitSelected0:   3,
		CondUnitSelected1:   4,
		CondCommandRejected: 0, // folded into the 3-bit encoded-error field
		CondDataError:       0,
		CondDensity1600:     9,
		CondEndOfFile:       16,
		CondEndOfTape:       5,
		CondInterfaceBusy:   15,
		CondLoadPoint:       8,
		CondOddLength:       14,
		CondWriteProtected:  6,
		CondRewinding:       0,
		CondTapeRunaway:     0,
		CondTimingError:     0,
		CondUnitBusy:        0,
		CondUnitOffline:     0,
		CondUnitReady:       7,
		CondWriteStatus:     10,
	},
	NRZI1000: {
		CondCommandRejected: 1,
		CondDataError:       2,
		CondEndOfFile:       3,
		CondEndOfTape:       4,
		CondInterfaceBusy:   5,
		CondLoadPoint:       6,
		CondOddLength:       7,
		CondWriteProtected:  8,
		CondRewinding:       9,
		CondTapeRunaway:     10,
		CondTimingError:     11,
		CondUnitBusy:        12,
		CondUnitOffline:     13,
		CondUnitReady:       14,
		CondWriteStatus:     15,
	},
	PE1000: {
		CondCommandRejected: 1,
		CondDataError:       2,
		CondDensity1600:     3,
		CondEndOfFile:       4,
		CondEndOfTape:       5,
		CondInterfaceBusy:   6,
		CondLoadPoint:       7,
		CondWriteProtected:  9,
		CondRewinding:       10,
		CondTapeRunaway:     11,
		CondTimingError:     12,
		CondUnitBusy:        13,
		CondUnitOffline:     14,
		CondUnitReady:       15,
		CondWriteStatus:     16,
	},
	HPIB: {
		CondCommandRejected: 1,
		CondDataError:       2,
		CondEndOfFile:       3,
		CondEndOfTape:       4,
		CondInterfaceBusy:   5,
		CondLoadPoint:       6,
		CondWriteProtected:  7,
		CondRewinding:       8,
		CondTapeRunaway:     9,
		CondTimingError:     10,
		CondUnitBusy:        11,
		CondUnitOffline:     12,
		CondUnitReady:       13,
		CondWriteStatus:     14,
	},
}

// Encode projects StatusBits onto a 16-bit wire word for the given
// controller type, per the (condition, controller_type) mapping table.
// Conditions mapped to position 0 are dropped (not reported for that
// type).
func (s StatusBits) Encode(ct ControllerType) uint16 {
	var word uint16
	layout := statusLayouts[ct]
	for c := Condition(0); c < numConditions; c++ {
		pos := layout[c]
		if pos == 0 || !s.has(c) {
			continue
		}
		word |= 1 << (pos - 1)
	}
	return word
}

// EncodeHP3000 builds the full HP3000 status word of spec §6, including
// the complemented 3-bit encoded-error field, SIO-OK, odd-byte-count and
// interrupt-requested bits which live outside the generic Condition set
// because they reflect host-interface latches rather than drive/controller
// status.
func EncodeHP3000(status StatusBits, err ErrorKind, sioOK, oddByteCount, interruptRequested bool) uint16 {
	word := status.Encode(HP3000)
	if sioOK {
		word |= 1 << 0
	}
	if oddByteCount {
		word |= 1 << 1
	}
	if interruptRequested {
		word |= 1 << 2
	}
	word |= (^err.wireCode() & 0b111) << 11
	return word
}
