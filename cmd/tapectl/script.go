package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tapectl.dev/tape"
)

// commandTable maps a script's command keyword to the opcode it issues.
// Unlisted keywords (select, write, status) get special handling in
// runScript since they need extra arguments or no Step call at all.
var commandTable = map[string]tape.Opcode{
	"clear":         tape.ClearController,
	"read":          tape.ReadRecord,
	"readcrcc":      tape.ReadRecordWithCRCC,
	"readback":      tape.ReadRecordBackward,
	"readfile":      tape.ReadFileForward,
	"writefm":       tape.WriteFileMark,
	"writenp":       tape.WriteRecordWithoutParity,
	"gap":           tape.WriteGap,
	"gapfm":         tape.WriteGapAndFileMark,
	"forward":       tape.ForwardSpaceRecord,
	"forwardfile":   tape.ForwardSpaceFile,
	"backspace":     tape.BackspaceRecord,
	"backspacefile": tape.BackspaceFile,
	"rewind":        tape.Rewind,
	"rewindoffline": tape.RewindOffline,
}

const maxScriptSteps = 4096

// runScript drives ctrl through the one-command-per-line script text,
// printing a status line after every command reaches Idle again.
func runScript(ctrl *tape.Controller, script string, w io.Writer) error {
	sched := tape.NewScheduler(ctrl)
	lineNo := 0
	sc := bufio.NewScanner(strings.NewReader(script))
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := runLine(ctrl, sched, fields, w); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

func runLine(ctrl *tape.Controller, sched *tape.Scheduler, fields []string, w io.Writer) error {
	switch cmd := fields[0]; cmd {
	case "select":
		unit, err := strconv.Atoi(arg(fields, 1))
		if err != nil || unit < 0 || unit >= tape.NumUnits {
			return fmt.Errorf("select: unit must be 0-%d", tape.NumUnits-1)
		}
		return issue(ctrl, sched, tape.SelectUnit0+tape.Opcode(unit), w)

	case "status":
		fmt.Fprintf(w, "status: %s\n", describeStatus(ctrl))
		return nil

	case "write":
		words := make([]uint16, 0, len(fields)-1)
		for _, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 16, 16)
			if err != nil {
				return fmt.Errorf("write: bad hex word %q: %w", f, err)
			}
			words = append(words, uint16(v))
		}
		return issueWrite(ctrl, sched, words, w)

	default:
		op, ok := commandTable[cmd]
		if !ok {
			return fmt.Errorf("unknown command %q", cmd)
		}
		return issue(ctrl, sched, op, w)
	}
}

// issue accepts a command with no data-transfer phase (or a read, whose
// transfer is host-invisible in this driver and simply drained) and runs
// the scheduler to completion.
func issue(ctrl *tape.Controller, sched *tape.Scheduler, op tape.Opcode, w io.Writer) error {
	unit := ctrl.SelectedUnit()
	ctrl.Step(nil, tape.FlagCMRDY|tape.FlagCMXEQ, uint16(int16(op)))
	if u, err := ctrl.Unit(unit); err == nil && u.Phase == tape.PhaseWait {
		ctrl.Step(&unit, 0, 0) // Wait -> Start, as a transfer-enable edge would
	}
	sched.Run(tape.FlagINTOK, maxScriptSteps)
	fmt.Fprintf(w, "%s: %s\n", op, describeStatus(ctrl))
	return nil
}

// issueWrite accepts Write_Record and manually clocks one Step per data
// word, since a write's Data phase only advances as the host offers
// words (spec §4.1's Data-phase loop), unlike every other opcode this
// driver issues.
func issueWrite(ctrl *tape.Controller, sched *tape.Scheduler, words []uint16, w io.Writer) error {
	unit := ctrl.SelectedUnit()
	ctrl.Step(nil, tape.FlagCMRDY|tape.FlagCMXEQ, uint16(int16(tape.WriteRecord)))
	which := unit
	ctrl.Step(&which, 0, 0) // Wait -> Start
	ctrl.Step(&which, 0, 0) // Start -> Data
	for _, word := range words {
		ctrl.Step(&which, 0, word)
	}
	ctrl.Step(&which, tape.FlagEOD, 0) // flush the record
	sched.Run(tape.FlagINTOK, maxScriptSteps)
	fmt.Fprintf(w, "write: %s\n", describeStatus(ctrl))
	return nil
}

func describeStatus(ctrl *tape.Controller) string {
	bits, errKind := ctrl.Status()
	var word uint16
	if ctrl.Type == tape.HP3000 {
		word = tape.EncodeHP3000(bits, errKind, true, false, errKind != tape.ErrNone)
	} else {
		word = bits.Encode(ctrl.Type)
	}
	return fmt.Sprintf("word=%#04x err=%v", word, errKind)
}

func arg(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
