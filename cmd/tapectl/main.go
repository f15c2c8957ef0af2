// Command tapectl is the internal tool for driving the tape controller
// core from the command line: attach image files to drives, run a
// command script against them, and inspect or checkpoint controller
// state, all without a host CPU emulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"tapectl.dev/tape"
)

var (
	controllerType = flag.String("controller", "hp3000", "controller type: nrzi1000, pe1000, hp3000, hpib")
	timing         = flag.String("timing", "fast", "timing mode: fast or realtime")

	unit0Image = flag.String("unit0.image", "", "tape image file for unit 0")
	unit1Image = flag.String("unit1.image", "", "tape image file for unit 1")
	unit2Image = flag.String("unit2.image", "", "tape image file for unit 2")
	unit3Image = flag.String("unit3.image", "", "tape image file for unit 3")

	unit0Density = flag.Int("unit0.density", 800, "unit 0 density, bits per inch")
	unit1Density = flag.Int("unit1.density", 800, "unit 1 density, bits per inch")
	unit2Density = flag.Int("unit2.density", 800, "unit 2 density, bits per inch")
	unit3Density = flag.Int("unit3.density", 800, "unit 3 density, bits per inch")

	unit0Reel = flag.String("unit0.reel", "unlimited", "unit 0 reel size: unlimited, 600, 1200, 2400")
	unit1Reel = flag.String("unit1.reel", "unlimited", "unit 1 reel size: unlimited, 600, 1200, 2400")
	unit2Reel = flag.String("unit2.reel", "unlimited", "unit 2 reel size: unlimited, 600, 1200, 2400")
	unit3Reel = flag.String("unit3.reel", "unlimited", "unit 3 reel size: unlimited, 600, 1200, 2400")

	unit0Format = flag.String("unit0.format", "tap", "unit 0 image container: tap or p7b")
	unit1Format = flag.String("unit1.format", "tap", "unit 1 image container: tap or p7b")
	unit2Format = flag.String("unit2.format", "tap", "unit 2 image container: tap or p7b")
	unit3Format = flag.String("unit3.format", "tap", "unit 3 image container: tap or p7b")

	writeProtect = flag.Bool("writeprotect", false, "attach every given image write-protected")

	snapshotIn  = flag.String("restore", "", "restore controller state from a snapshot file before running")
	snapshotOut = flag.String("save", "", "write the controller's state to a snapshot file after running")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tapectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: tapectl [flags] [script]\n\n")
	flag.PrintDefaults()
}

func run() error {
	ct, err := parseControllerType(*controllerType)
	if err != nil {
		return err
	}
	tm, err := parseTimingMode(*timing)
	if err != nil {
		return err
	}

	cfg := tape.DefaultConfig()
	cfg.Timing = tm

	var ctrl *tape.Controller
	if *snapshotIn != "" {
		data, err := os.ReadFile(*snapshotIn)
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		ctrl, err = tape.Restore(data)
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
	} else {
		ctrl = tape.NewController(ct, cfg)
	}

	images := [tape.NumUnits]string{*unit0Image, *unit1Image, *unit2Image, *unit3Image}
	densities := [tape.NumUnits]int{*unit0Density, *unit1Density, *unit2Density, *unit3Density}
	reels := [tape.NumUnits]string{*unit0Reel, *unit1Reel, *unit2Reel, *unit3Reel}
	formats := [tape.NumUnits]string{*unit0Format, *unit1Format, *unit2Format, *unit3Format}
	for i, path := range images {
		if path == "" {
			continue
		}
		reel, err := parseReelSize(reels[i])
		if err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		format, err := parseImageFormat(formats[i])
		if err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		if err := attachUnit(ctrl, i, path, densities[i], reel, format, *writeProtect); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
	}

	if args := flag.Args(); len(args) > 0 {
		script, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}
		if err := runScript(ctrl, string(script), os.Stdout); err != nil {
			return err
		}
	}

	if *snapshotOut != "" {
		data, err := ctrl.Snapshot()
		if err != nil {
			return fmt.Errorf("snapshotting: %w", err)
		}
		if err := os.WriteFile(*snapshotOut, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	return nil
}

func parseControllerType(s string) (tape.ControllerType, error) {
	switch s {
	case "nrzi1000":
		return tape.NRZI1000, nil
	case "pe1000":
		return tape.PE1000, nil
	case "hp3000":
		return tape.HP3000, nil
	case "hpib":
		return tape.HPIB, nil
	default:
		return 0, fmt.Errorf("-controller must be one of nrzi1000, pe1000, hp3000, hpib, got %q", s)
	}
}

func parseTimingMode(s string) (tape.TimingMode, error) {
	switch s {
	case "fast":
		return tape.TimingFast, nil
	case "realtime":
		return tape.TimingRealtime, nil
	default:
		return 0, fmt.Errorf("-timing must be 'fast' or 'realtime', got %q", s)
	}
}

// imageFormat selects the on-disk container attachUnit opens a path
// with: "tap" (the default, spec.md's documented container) or "p7b"
// (the denser single-marker-byte format original_source/ supports
// alongside it).
type imageFormat int

const (
	formatTAP imageFormat = iota
	formatP7B
)

func parseImageFormat(s string) (imageFormat, error) {
	switch s {
	case "tap", "":
		return formatTAP, nil
	case "p7b":
		return formatP7B, nil
	default:
		return 0, fmt.Errorf("format must be 'tap' or 'p7b', got %q", s)
	}
}

func parseReelSize(s string) (tape.ReelSize, error) {
	switch s {
	case "unlimited", "":
		return tape.ReelUnlimited, nil
	case "600":
		return tape.Reel600ft, nil
	case "1200":
		return tape.Reel1200ft, nil
	case "2400":
		return tape.Reel2400ft, nil
	default:
		return 0, fmt.Errorf("reel size must be one of unlimited, 600, 1200, 2400, got %q", s)
	}
}
