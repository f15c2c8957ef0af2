package tape

import "tapectl.dev/tape/tapeimage"

// Unit is one of the up to NumUnits drives a Controller addresses. Each
// unit tracks its own phase independently — a rewind on unit 2 runs to
// completion on its own schedule while unit 0 is mid-transfer — but only
// one unit is ever the "selected" unit a command actually targets.
type Unit struct {
	Model    string // drive model, e.g. "7970B" or "7970E"
	Density  int    // bits per inch: 800 (NRZI) or 1600 (PE)
	ReelSize ReelSize

	Online         bool
	WriteProtected bool
	Rewinding      bool
	unitAttention  bool // set on the offline->online edge, cleared on first poll

	Opcode Opcode
	Phase  Phase
	Status StatusBits

	// Position tracks the unit's tape position in bytes, maintained
	// independently of the image backend's own file offset so Snapshot
	// can record it without round-tripping through the backend.
	Position int64

	Wait Ticks // ticks remaining before this unit's phase next advances

	Image tapeimage.Image
}

// NewUnit returns an offline, unattached unit ready for Attach.
func NewUnit(model string, density int, reel ReelSize) *Unit {
	return &Unit{Model: model, Density: density, ReelSize: reel, Phase: PhaseIdle}
}

// Attach mounts img as this unit's tape image, marking the unit online and
// raising unit attention (spec §3 Lifecycles: "an offline->online
// transition sets unit attention, polled and cleared by the next
// poll_drives pass").
func (u *Unit) Attach(img tapeimage.Image, writeProtected bool) error {
	if u.Image != nil {
		return ErrUnitAlreadyOpen
	}
	u.Image = img
	u.WriteProtected = writeProtected || img.WriteProtected()
	wasOnline := u.Online
	u.Online = true
	if !wasOnline {
		u.unitAttention = true
	}
	u.Position = img.Position()
	return nil
}

// Detach unmounts the image and takes the unit offline.
func (u *Unit) Detach() error {
	if u.Image == nil {
		return ErrNoImage
	}
	err := u.Image.Close()
	u.Image = nil
	u.Online = false
	u.Rewinding = false
	u.Phase = PhaseIdle
	return err
}

// SetOnline forces the online/offline latch directly (a front-panel
// "ready" switch, not an attach/detach). Taking a unit offline clears any
// in-flight phase.
func (u *Unit) SetOnline(online bool) {
	wasOnline := u.Online
	u.Online = online
	if online && !wasOnline {
		u.unitAttention = true
	}
	if !online {
		u.Phase = PhaseIdle
		u.Rewinding = false
	}
}

// attached reports whether the unit has a usable image.
func (u *Unit) attached() bool {
	return u.Image != nil
}

// ready reports the classic "ready" condition: online, attached, and not
// itself mid-rewind.
func (u *Unit) ready() bool {
	return u.Online && u.attached() && !u.Rewinding
}

// takeAttention consumes and clears the unit-attention latch, as
// poll_drives does once per polling pass.
func (u *Unit) takeAttention() bool {
	v := u.unitAttention
	u.unitAttention = false
	return v
}
