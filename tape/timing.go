package tape

// Ticks is an abstract delay unit (spec §5: "abstract tick delay"); the
// external driver (host CPU emulator, or the convenience scheduler in
// schedule.go) decides how ticks map to wall-clock or simulated CPU time.
type Ticks int64

// TimingTable holds the per-phase delay constants for one
// (controller, drive, density) combination, spec §4.1.
type TimingTable struct {
	RewindStart Ticks // fixed cost of starting a rewind
	RewindRate  Ticks // per inch of tape rewound
	RewindStop  Ticks // fixed cost of stopping a rewind
	BOTStart    Ticks // Start-phase cost when position is at load point
	IRStart     Ticks // inter-record gap traverse-and-stop cost
	DataXfer    Ticks // per-byte cost of a data transfer
	Overhead    Ticks // fixed per-command overhead, added at Start
}

// TimingMode selects which table a Controller draws delays from.
type TimingMode int

const (
	TimingFast TimingMode = iota
	TimingRealtime
)

// fastTimingTable holds the small constant delays used in fast mode,
// identical across controller/drive/density per spec §4.1 ("owned by the
// interface; small, constant microseconds").
var fastTimingTable = TimingTable{
	RewindStart: 10,
	RewindRate:  1,
	RewindStop:  10,
	BOTStart:    5,
	IRStart:     5,
	DataXfer:    1,
	Overhead:    3,
}

// densityKey indexes the realtime timing table by controller type, drive
// model, and density.
type densityKey struct {
	ct      ControllerType
	model   string
	density int
}

// realtimeTimingTables is the (controller, drive, density) keyed table of
// spec §4.1. Values are representative of the HP 7970B (NRZI, 800 bpi) and
// 7970E (PE, 1600 bpi) drives' documented transfer rates and are
// deliberately approximate — spec §9 flags exact mechanical timing as a
// tunable, not load-bearing, constant.
var realtimeTimingTables = map[densityKey]TimingTable{
	{HP3000, "7970B", 800}: {
		RewindStart: 200, RewindRate: 75, RewindStop: 150,
		BOTStart: 260, IRStart: 480, DataXfer: 4, Overhead: 25,
	},
	{HP3000, "7970E", 1600}: {
		RewindStart: 200, RewindRate: 75, RewindStop: 150,
		BOTStart: 260, IRStart: 300, DataXfer: 2, Overhead: 25,
	},
	{NRZI1000, "7970B", 800}: {
		RewindStart: 220, RewindRate: 80, RewindStop: 160,
		BOTStart: 280, IRStart: 500, DataXfer: 4, Overhead: 20,
	},
	{PE1000, "7970E", 1600}: {
		RewindStart: 220, RewindRate: 80, RewindStop: 160,
		BOTStart: 280, IRStart: 320, DataXfer: 2, Overhead: 20,
	},
	{HPIB, "7970B", 800}: {
		RewindStart: 200, RewindRate: 75, RewindStop: 150,
		BOTStart: 260, IRStart: 480, DataXfer: 6, Overhead: 25,
	},
	{HPIB, "7970E", 1600}: {
		RewindStart: 200, RewindRate: 75, RewindStop: 150,
		BOTStart: 260, IRStart: 300, DataXfer: 3, Overhead: 25,
	},
}

// lookupTiming resolves the realtime timing table for a unit, falling back
// to the 800 bpi/7970B entry for the controller type if the exact
// (model, density) pair is not tabulated — a configuration mismatch the
// caller should already have rejected at Attach time.
func lookupTiming(ct ControllerType, model string, density int) TimingTable {
	if t, ok := realtimeTimingTables[densityKey{ct, model, density}]; ok {
		return t
	}
	return realtimeTimingTables[densityKey{ct, "7970B", 800}]
}

// perWordBytes reports how many bytes the data-transfer delay formula of
// spec §4.1 groups per "word": one for HPIB (byte-at-a-time), two for
// every other controller type.
func perWordBytes(ct ControllerType) Ticks {
	if ct == HPIB {
		return 1
	}
	return 2
}
