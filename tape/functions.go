package tape

// FlagSet is the host-side flag word Step reads on each call (spec §4.1,
// §4.5). Bits are consumed in a fixed order, never insertion order.
type FlagSet uint16

const (
	FlagINTOK FlagSet = 1 << iota
	FlagCMRDY
	FlagCMXEQ
	FlagDTRDY
	FlagEOD
	FlagOVRUN
	FlagXFRNG
)

func (f FlagSet) has(bit FlagSet) bool { return f&bit != 0 }

// FuncKind replaces the teacher-derived source's untagged
// function-bits|data-bits word (spec §9 REDESIGN FLAGS) with a sum type:
// one named function per entry, carrying a typed payload in FuncEvent
// rather than packed into an ad-hoc data_out integer.
type FuncKind int

const (
	FuncIFIN FuncKind = iota
	FuncIFOUT
	FuncIFGTC
	FuncRQSRV
	FuncDVEND
	FuncSTINT
	FuncDATTN
	FuncSCPE
)

func (k FuncKind) String() string {
	switch k {
	case FuncIFIN:
		return "IFIN"
	case FuncIFOUT:
		return "IFOUT"
	case FuncIFGTC:
		return "IFGTC"
	case FuncRQSRV:
		return "RQSRV"
	case FuncDVEND:
		return "DVEND"
	case FuncSTINT:
		return "STINT"
	case FuncDATTN:
		return "DATTN"
	case FuncSCPE:
		return "SCPE"
	default:
		return "?"
	}
}

// FuncEvent is one emitted function and its payload. Only the fields
// relevant to Kind are meaningful; callers switch on Kind first.
type FuncEvent struct {
	Kind  FuncKind
	Word  uint16    // IFIN: the data word offered to the host
	Class Class     // IFGTC: the accepted command's classification
	Err   ErrorKind // SCPE: the fatal error kind
	Unit  int       // DATTN: the drive raising attention
}

// Functions is the ordered set of events one Step call produces.
type Functions []FuncEvent

// Has reports whether any event of the given kind is present.
func (fs Functions) Has(kind FuncKind) bool {
	for _, f := range fs {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func (fs *Functions) emit(ev FuncEvent) { *fs = append(*fs, ev) }

func (fs *Functions) ifgtc(class Class) { fs.emit(FuncEvent{Kind: FuncIFGTC, Class: class}) }
func (fs *Functions) rqsrv()            { fs.emit(FuncEvent{Kind: FuncRQSRV}) }
func (fs *Functions) ifin(word uint16)  { fs.emit(FuncEvent{Kind: FuncIFIN, Word: word}) }
func (fs *Functions) ifout()            { fs.emit(FuncEvent{Kind: FuncIFOUT}) }
func (fs *Functions) dvend()            { fs.emit(FuncEvent{Kind: FuncDVEND}) }
func (fs *Functions) stint()            { fs.emit(FuncEvent{Kind: FuncSTINT}) }
func (fs *Functions) dattn(unit int)    { fs.emit(FuncEvent{Kind: FuncDATTN, Unit: unit}) }
func (fs *Functions) scpe(err ErrorKind) {
	fs.emit(FuncEvent{Kind: FuncSCPE, Err: err})
}
