// Package hostif implements the host-interface shim that sits between a
// host CPU's channel program and a tape.Controller: it owns the latches
// a real HP30215 channel interface card would hold in hardware, and
// translates register reads/writes and channel-transfer strobes into
// controller flags and Step calls, and controller Functions back into
// the outbound signals a channel program waits on.
package hostif

// OutSignal is one of the outbound signals the shim raises toward the
// host channel, grouped the same way as the controller's own FuncKind.
type OutSignal int

const (
	OutINTACK OutSignal = iota
	OutINTPOLLOUT
	OutINTREQ
	OutSRn
	OutDEVEND
	OutJMPMET
)

func (s OutSignal) String() string {
	switch s {
	case OutINTACK:
		return "INTACK"
	case OutINTPOLLOUT:
		return "INTPOLLOUT"
	case OutINTREQ:
		return "INTREQ"
	case OutSRn:
		return "SRn"
	case OutDEVEND:
		return "DEVEND"
	case OutJMPMET:
		return "JMPMET"
	default:
		return "?"
	}
}

// OutEvent is one outbound signal and its payload, where relevant
// (device number for INTACK/DEVEND, the SR number for SRn).
type OutEvent struct {
	Kind OutSignal
	Word uint16
}

// OutEvents is the ordered set of outbound signals one Shim call
// produces.
type OutEvents []OutEvent

// Has reports whether any event of the given kind is present.
func (es OutEvents) Has(kind OutSignal) bool {
	for _, e := range es {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func (es *OutEvents) emit(ev OutEvent) { *es = append(*es, ev) }

func (es *OutEvents) intack(unit uint16) { es.emit(OutEvent{Kind: OutINTACK, Word: unit}) }
func (es *OutEvents) intpollout()        { es.emit(OutEvent{Kind: OutINTPOLLOUT}) }
func (es *OutEvents) intreq()            { es.emit(OutEvent{Kind: OutINTREQ}) }
func (es *OutEvents) srn(n uint16)       { es.emit(OutEvent{Kind: OutSRn, Word: n}) }
func (es *OutEvents) devend(addr uint16) { es.emit(OutEvent{Kind: OutDEVEND, Word: addr}) }
func (es *OutEvents) jmpmet()            { es.emit(OutEvent{Kind: OutJMPMET}) }
