package main

import (
	"os"

	"tapectl.dev/tape"
	"tapectl.dev/tape/tapeimage"
)

// attachUnit opens path (creating it if it does not exist) and attaches
// it to ctrl's unit n, configuring the unit's drive model/density/reel
// from the given flags first.
func attachUnit(ctrl *tape.Controller, n int, path string, density int, reel tape.ReelSize, format imageFormat, writeProtect bool) error {
	u, err := ctrl.Unit(n)
	if err != nil {
		return err
	}
	u.Density = density
	u.ReelSize = reel
	if density == 1600 {
		u.Model = "7970E"
	} else {
		u.Model = "7970B"
	}

	flags := os.O_RDWR | os.O_CREATE
	if writeProtect {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	var img tapeimage.Image
	switch format {
	case formatP7B:
		img, err = tapeimage.NewP7B(f, info.Size(), writeProtect)
	default:
		img, err = tapeimage.NewTapFile(f, info.Size(), writeProtect, 0)
	}
	if err != nil {
		f.Close()
		return err
	}
	return u.Attach(img, writeProtect)
}
