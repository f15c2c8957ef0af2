package hostif

import "tapectl.dev/tape"

// Control-word bit layout for the DCONTSTB register, HP3000 channel
// variant: a master-reset bit, a reset-interrupt bit, a 2-bit unit
// field, a reserved field that must read zero, and a 4-bit command
// code. Names and bit positions follow the CN_* constants of the
// original interface card's control-word decode.
const (
	cnMasterReset    uint16 = 1 << 15
	cnResetInterrupt uint16 = 1 << 14
	cnUnitShift             = 8
	cnUnitMask       uint16 = 0x3 << cnUnitShift
	cnReservedMask   uint16 = 0xF0
	cnCommandMask    uint16 = 0x0F
)

func cnUnit(word uint16) int    { return int(word&cnUnitMask) >> cnUnitShift }
func cnCommand(word uint16) int { return int(word & cnCommandMask) }

// toOpcode is the 16-entry command-code-to-opcode table the control
// word's 4-bit command field indexes into. Entries 1-3 have no meaning
// and decode as invalid; Select_Unit_n is a single entry here, offset
// by the unit field at decode time since the four Select_Unit_n
// opcodes are contiguous.
var toOpcode = [16]tape.Opcode{
	0:  tape.SelectUnit0,
	1:  tape.InvalidOpcode,
	2:  tape.InvalidOpcode,
	3:  tape.InvalidOpcode,
	4:  tape.WriteRecord,
	5:  tape.WriteGap,
	6:  tape.ReadRecord,
	7:  tape.ForwardSpaceRecord,
	8:  tape.Rewind,
	9:  tape.RewindOffline,
	10: tape.BackspaceRecord,
	11: tape.BackspaceFile,
	12: tape.WriteRecordWithoutParity,
	13: tape.WriteFileMark,
	14: tape.ReadRecordWithCRCC,
	15: tape.ForwardSpaceFile,
}

// ControlWord is a decoded DCONTSTB strobe.
type ControlWord struct {
	MasterReset    bool
	ResetInterrupt bool
	Unit           int
	Reserved       bool // true if the must-be-zero field was nonzero
	Opcode         tape.Opcode
}

// DecodeControlWord decodes a DCONTSTB strobe's 16-bit argument.
// A select opcode is resolved to the Select_Unit_n matching the
// control word's unit field, not always Select_Unit_0 — to
// the controller, selecting unit 2 is the opcode Select_Unit_2,
// never Select_Unit_0 plus a side channel.
func DecodeControlWord(word uint16) ControlWord {
	cw := ControlWord{
		MasterReset:    word&cnMasterReset != 0,
		ResetInterrupt: word&cnResetInterrupt != 0,
		Unit:           cnUnit(word),
		Reserved:       word&cnReservedMask != 0,
	}
	op := toOpcode[cnCommand(word)]
	if op == tape.SelectUnit0 {
		op = tape.SelectUnit0 + tape.Opcode(cw.Unit)
	}
	cw.Opcode = op
	return cw
}

// EncodeOpcode packs an opcode into the int16 Step's dataIn parameter
// expects for a command-accept call (Controller.Step treats it as a
// signed Opcode, not a raw control word).
func EncodeOpcode(op tape.Opcode) uint16 { return uint16(int16(op)) }
