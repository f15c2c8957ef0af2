package tape

// Opcode enumerates every command the controller core recognizes. The set
// of opcodes valid for a given ControllerType is fixed at construction
// (opcodeTable below) and never mutated, per spec §3's invariant.
type Opcode int

const (
	SelectUnit0 Opcode = iota
	SelectUnit1
	SelectUnit2
	SelectUnit3
	ClearController
	ReadRecord
	ReadRecordWithCRCC
	ReadRecordBackward
	ReadFileForward
	WriteRecord
	WriteRecordWithoutParity
	WriteFileMark
	WriteGap
	WriteGapAndFileMark
	ForwardSpaceRecord
	ForwardSpaceFile
	BackspaceRecord
	BackspaceFile
	Rewind
	RewindOffline

	InvalidOpcode Opcode = -1
)

func (o Opcode) String() string {
	switch o {
	case SelectUnit0:
		return "Select_Unit_0"
	case SelectUnit1:
		return "Select_Unit_1"
	case SelectUnit2:
		return "Select_Unit_2"
	case SelectUnit3:
		return "Select_Unit_3"
	case ClearController:
		return "Clear_Controller"
	case ReadRecord:
		return "Read_Record"
	case ReadRecordWithCRCC:
		return "Read_Record_with_CRCC"
	case ReadRecordBackward:
		return "Read_Record_Backward"
	case ReadFileForward:
		return "Read_File_Forward"
	case WriteRecord:
		return "Write_Record"
	case WriteRecordWithoutParity:
		return "Write_Record_without_Parity"
	case WriteFileMark:
		return "Write_File_Mark"
	case WriteGap:
		return "Write_Gap"
	case WriteGapAndFileMark:
		return "Write_Gap_and_File_Mark"
	case ForwardSpaceRecord:
		return "Forward_Space_Record"
	case ForwardSpaceFile:
		return "Forward_Space_File"
	case BackspaceRecord:
		return "Backspace_Record"
	case BackspaceFile:
		return "Backspace_File"
	case Rewind:
		return "Rewind"
	case RewindOffline:
		return "Rewind_Offline"
	default:
		return "Invalid_Opcode"
	}
}

// Class classifies an opcode for validation and for the IFGTC payload.
type Class int

const (
	ClassControl Class = iota
	ClassRead
	ClassWrite
	ClassRewind
	ClassInvalid
)

func (c Class) String() string {
	switch c {
	case ClassControl:
		return "Control"
	case ClassRead:
		return "Read"
	case ClassWrite:
		return "Write"
	case ClassRewind:
		return "Rewind"
	default:
		return "Invalid"
	}
}

type opcodeInfo struct {
	class         Class
	requiresReady bool
	transfersData bool
	// validFor is indexed by ControllerType.
	validFor [numControllerTypes]bool
}

// opcodeTable is the command set and classification of spec §4.2: one
// entry for each of the four select-unit opcodes (identical rows) plus
// every transfer/control/rewind opcode.
var opcodeTable = map[Opcode]opcodeInfo{
	SelectUnit0: {ClassControl, false, false, [4]bool{true, true, true, true}},
	SelectUnit1: {ClassControl, false, false, [4]bool{true, true, true, true}},
	SelectUnit2: {ClassControl, false, false, [4]bool{true, true, true, true}},
	SelectUnit3: {ClassControl, false, false, [4]bool{true, true, true, true}},
	ClearController: {ClassControl, false, false, [4]bool{true, true, false, false}},

	ReadRecord:         {ClassRead, true, true, [4]bool{true, true, true, true}},
	ReadRecordWithCRCC: {ClassRead, true, true, [4]bool{false, false, true, false}},
	ReadRecordBackward: {ClassRead, true, true, [4]bool{true, true, false, false}},
	ReadFileForward:    {ClassRead, true, true, [4]bool{true, true, false, false}},

	WriteRecord:              {ClassWrite, true, true, [4]bool{true, true, true, true}},
	WriteRecordWithoutParity: {ClassWrite, true, true, [4]bool{false, false, true, false}},
	WriteFileMark:            {ClassWrite, true, false, [4]bool{true, true, true, true}},
	WriteGap:                 {ClassWrite, true, false, [4]bool{true, true, true, true}},
	WriteGapAndFileMark:      {ClassWrite, true, false, [4]bool{true, true, false, false}},

	ForwardSpaceRecord: {ClassControl, true, false, [4]bool{true, true, true, true}},
	ForwardSpaceFile:   {ClassControl, true, false, [4]bool{true, true, true, true}},
	BackspaceRecord:    {ClassControl, true, false, [4]bool{true, true, true, true}},
	BackspaceFile:      {ClassControl, true, false, [4]bool{true, true, true, true}},

	Rewind:        {ClassRewind, true, false, [4]bool{true, true, true, true}},
	RewindOffline: {ClassRewind, true, false, [4]bool{true, true, true, true}},
}

// classify returns the classification for an opcode under a controller
// type, or (ClassInvalid, false) if the opcode does not exist for that
// type (or at all).
func classify(ct ControllerType, op Opcode) (info opcodeInfo, ok bool) {
	info, exists := opcodeTable[op]
	if !exists || !info.validFor[ct] {
		return opcodeInfo{class: ClassInvalid}, false
	}
	return info, true
}

// isSelectUnit reports whether op is one of the four Select_Unit_n
// opcodes, and if so which unit index it selects.
func isSelectUnit(op Opcode) (int, bool) {
	switch op {
	case SelectUnit0:
		return 0, true
	case SelectUnit1:
		return 1, true
	case SelectUnit2:
		return 2, true
	case SelectUnit3:
		return 3, true
	default:
		return 0, false
	}
}

// isFileClass reports whether op is one of the file-oriented opcodes. Its
// one caller, afterSpaceStart, uses it to loop the *_File variants of
// space/backspace record by record until a tape mark.
func isFileClass(op Opcode) bool {
	switch op {
	case ForwardSpaceFile, BackspaceFile, ReadFileForward, WriteGapAndFileMark:
		return true
	default:
		return false
	}
}
