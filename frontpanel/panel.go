//go:build linux

// Package frontpanel drives an optional GPIO console for a tape
// controller: one ready/attention lamp pair per drive and a rewind
// switch per drive, for a Raspberry-Pi-hosted test console. It is a
// pure observer and single-command issuer — it never touches the tape
// image or the phase table, only Controller.Unit and a channel of
// rewind requests a caller feeds into the Shim/Controller loop.
package frontpanel

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"tapectl.dev/tape"
)

// RewindRequest is one rewind-switch press, reported with the unit
// index it came from.
type RewindRequest struct {
	Unit int
}

// DrivePins names the three GPIO lines wired to one drive's lamps and
// switch.
type DrivePins struct {
	ReadyLamp     gpio.PinOut
	AttentionLamp gpio.PinOut
	RewindSwitch  gpio.PinIn
}

// defaultPins is the pin assignment for a four-drive panel on a
// Raspberry Pi's BCM283x header, one GPIO per lamp/switch, matching
// the board-support style of assigning one fixed pin per control.
var defaultPins = [tape.NumUnits]DrivePins{
	{bcm283x.GPIO5, bcm283x.GPIO6, bcm283x.GPIO13},
	{bcm283x.GPIO19, bcm283x.GPIO26, bcm283x.GPIO21},
	{bcm283x.GPIO20, bcm283x.GPIO16, bcm283x.GPIO12},
	{bcm283x.GPIO7, bcm283x.GPIO8, bcm283x.GPIO25},
}

// Panel is an opened front panel, ready to be polled (Refresh) and to
// report rewind-switch presses (Rewinds).
type Panel struct {
	pins [tape.NumUnits]DrivePins
	rew  chan RewindRequest

	pressed [tape.NumUnits]bool
}

// Open initializes the GPIO host and starts one debounced watcher
// goroutine per rewind switch (pull-up input, both-edge detection, and a
// 10 ms debounce timeout).
func Open() (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	p := &Panel{pins: defaultPins, rew: make(chan RewindRequest, tape.NumUnits)}
	for i, dp := range p.pins {
		if err := dp.RewindSwitch.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, fmt.Errorf("frontpanel: setup unit %d rewind switch: %w", i, err)
		}
		unit := i
		pin := dp.RewindSwitch
		go p.watchRewind(unit, pin)
	}
	return p, nil
}

func (p *Panel) watchRewind(unit int, pin gpio.PinIn) {
	pressed := false
	newPressed := false
	const debounceTimeout = 10 * time.Millisecond
	for {
		timeout := debounceTimeout
		if newPressed == pressed {
			timeout = -1
		}
		if pin.WaitForEdge(timeout) {
			newPressed = pin.Read() == gpio.Low
		} else if newPressed != pressed {
			pressed = newPressed
			if pressed {
				p.rew <- RewindRequest{Unit: unit}
			}
		}
	}
}

// Rewinds is the channel of debounced rewind-switch presses; a caller
// drains it and issues the corresponding Rewind opcode through its own
// Shim/Controller.
func (p *Panel) Rewinds() <-chan RewindRequest { return p.rew }

// Refresh lights each drive's ready and attention lamps from the
// Controller's live state: the ready lamp shows online and not
// rewinding, and the attention lamp is lit for the controller's selected
// unit (never on an HPIB controller); the per-unit attention latch that
// poll_drives consumes is not shown. It takes no lock of its own — callers
// drive it from the same goroutine that owns the Controller, the same
// single-threaded-core convention Step itself requires.
func (p *Panel) Refresh(c *tape.Controller) error {
	for i := 0; i < tape.NumUnits; i++ {
		u, err := c.Unit(i)
		if err != nil {
			return err
		}
		if err := p.pins[i].ReadyLamp.Out(boolLevel(u.Online && !u.Rewinding)); err != nil {
			return fmt.Errorf("frontpanel: unit %d ready lamp: %w", i, err)
		}
		attn := i == c.SelectedUnit() && c.Type != tape.HPIB
		if err := p.pins[i].AttentionLamp.Out(boolLevel(attn)); err != nil {
			return fmt.Errorf("frontpanel: unit %d attention lamp: %w", i, err)
		}
	}
	return nil
}

func boolLevel(on bool) gpio.Level {
	if on {
		return gpio.High
	}
	return gpio.Low
}
