package hostif

import "tapectl.dev/tape"

// Shim is the host-interface card itself: it owns every latch a real
// channel interface would hold (SIO-OK, the channel/device
// service-request flip-flops, the transfer-direction latches, the
// interrupt mask/request/active triple) and translates each inbound
// channel signal into tape.FlagSet bits and Controller.Step calls,
// folding the resulting tape.Functions back into outbound signals a
// channel program is waiting on. It never touches a tape image or the
// phase table directly — that is entirely the Controller's business;
// the Shim only ever sees Step's inputs and outputs.
type Shim struct {
	ctrl *tape.Controller

	sioOK           bool
	channelSR       bool
	deviceSR        bool
	inputXfer       bool
	outputXfer      bool
	interruptMask   uint16
	interruptReq    bool
	interruptActive bool
	oddByteCount    bool

	dataBuffer uint16
}

// NewShim returns a Shim driving ctrl, with every latch at its
// power-on value (SIO-OK set, everything else clear).
func NewShim(ctrl *tape.Controller) *Shim {
	return &Shim{ctrl: ctrl, sioOK: true}
}

// ContStrobe handles a DCONTSTB pulse: the channel writing the 16-bit
// control word. A master reset clears every latch this Shim owns and
// resets the Controller; otherwise the word is decoded and, unless it
// is a bare reset-interrupt pulse, fed to Step as a command accept.
func (s *Shim) ContStrobe(word uint16) OutEvents {
	cw := DecodeControlWord(word)
	if cw.MasterReset {
		s.ctrl.MasterReset()
		s.channelSR, s.deviceSR = false, false
		s.inputXfer, s.outputXfer = false, false
		s.interruptReq, s.interruptActive = false, false
		s.interruptMask = 0
		s.sioOK = true
		return nil
	}
	var out OutEvents
	if cw.ResetInterrupt {
		s.interruptReq = false
		s.interruptActive = false
		if !s.ctrl.Config.PollOnResetInt {
			return out
		}
		fns, _ := s.ctrl.Step(nil, tape.FlagINTOK, 0)
		return s.translate(fns, out)
	}
	op := cw.Opcode
	if cw.Reserved {
		op = tape.InvalidOpcode
	}
	fns, _ := s.ctrl.Step(nil, tape.FlagCMRDY|tape.FlagCMXEQ, EncodeOpcode(op))
	return s.translate(fns, out)
}

// StatStrobe answers a PSTATSTB/DSTATSTB pulse with the encoded status
// word, composing the Controller's own condition bits with the
// interface-latch bits (SIO-OK, odd byte count, interrupt requested)
// that live in the Shim rather than the Controller.
func (s *Shim) StatStrobe() uint16 {
	bits, err := s.ctrl.Status()
	return tape.EncodeHP3000(bits, err, s.sioOK, s.oddByteCount, s.interruptReq)
}

// SetMask handles a DSETMASK pulse, latching the interrupt mask word.
func (s *Shim) SetMask(mask uint16) { s.interruptMask = mask }

// StartIO handles a DSTARTIO pulse: the channel asking whether the
// interface can accept a new command right now.
func (s *Shim) StartIO() bool { return s.sioOK }

// PollInterrupt answers an INTPOLLIN pulse. If this interface is the
// one requesting interrupt service it claims the poll with INTACK and
// latches interruptActive; otherwise it passes the poll downstream
// with INTPOLLOUT.
func (s *Shim) PollInterrupt() OutEvents {
	var out OutEvents
	if s.interruptReq && !s.interruptActive {
		s.interruptActive = true
		out.intack(uint16(s.ctrl.SelectedUnit()))
		return out
	}
	out.intpollout()
	return out
}

// Advance delivers a scheduled unit (or pseudo-unit) event to the
// Controller and translates the resulting Functions, the same
// dispatch a Scheduler performs for tests but routed through the
// Shim's latches for a live interface.
func (s *Shim) Advance(unit int, flags tape.FlagSet, dataIn uint16) OutEvents {
	fns, _ := s.ctrl.Step(&unit, flags, dataIn)
	return s.translate(fns, nil)
}

// ToggleInXfer handles TOGGLEINXFER: the channel flipping the
// input-transfer latch to start or stop an IFIN-direction transfer.
func (s *Shim) ToggleInXfer(on bool) { s.inputXfer = on }

// ToggleOutXfer handles TOGGLEOUTXFER: same, for the IFOUT direction.
func (s *Shim) ToggleOutXfer(on bool) { s.outputXfer = on }

// AckSR handles ACKSR: the channel acknowledging the interface's
// pending service request, clearing the device-side flip-flop every
// controller function (IFIN/IFOUT/IFGTC/RQSRV) sets.
func (s *Shim) AckSR() { s.deviceSR = false }

// ToggleSR handles TOGGLESR, used by some channel variants to flip
// the channel-side service-request flip-flop directly.
func (s *Shim) ToggleSR() { s.channelSR = !s.channelSR }

// ToggleSIOOK handles TOGGLESIOOK, the channel forcing SIO-OK low
// while a command is outstanding elsewhere on the bus.
func (s *Shim) ToggleSIOOK(ok bool) { s.sioOK = ok }

// WriteStrobe handles PWRITESTB: the channel depositing one word in
// the data buffer for the next output-transfer Step call to pick up.
func (s *Shim) WriteStrobe(word uint16) { s.dataBuffer = word }

// ReadNextWord handles READNEXTWD/PREADSTB: the channel claiming the
// word this Shim last latched from an IFIN event.
func (s *Shim) ReadNextWord() uint16 { return s.dataBuffer }

// DeviceNoDB reports DEVNODB: true once neither transfer direction is
// active, meaning the interface has nothing left to offer the bus.
func (s *Shim) DeviceNoDB() bool { return !s.inputXfer && !s.outputXfer }

// XferError handles XFERERROR: a channel-detected transfer fault,
// which on the HP3000 variant sticks until the next master reset.
func (s *Shim) XferError() {
	s.ctrl.SetTransferError()
	s.channelSR = true
}

// translate folds one Step call's Functions into outbound signals and
// Shim latch updates, appending to out.
func (s *Shim) translate(fns tape.Functions, out OutEvents) OutEvents {
	for _, f := range fns {
		switch f.Kind {
		case tape.FuncIFIN:
			s.dataBuffer = f.Word
			s.deviceSR = true
		case tape.FuncIFOUT:
			s.deviceSR = true
		case tape.FuncIFGTC:
			s.deviceSR = true
		case tape.FuncRQSRV:
			s.deviceSR = true
		case tape.FuncDVEND:
			out.devend(uint16(s.ctrl.SelectedUnit()))
		case tape.FuncSTINT, tape.FuncDATTN, tape.FuncSCPE:
			s.interruptReq = true
			out.intreq()
		}
	}
	if s.channelSR || s.deviceSR {
		out.srn(uint16(s.ctrl.SelectedUnit()))
	}
	return out
}
