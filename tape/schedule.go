package tape

// Scheduler is a convenience driver for Controller's suspension-point
// model (spec §5): it holds no state of its own beyond which Controller
// it drives, and advances abstract time by the minimum outstanding delay
// across all units and the pseudo-unit, firing Step for everything that
// reaches zero in ascending unit-index order (spec §5 ordering
// guarantees). A host CPU emulator's own instruction-cycle loop plays
// this same role in production; this type exists so `cmd/tapectl` and
// tests can drive the controller without one.
type Scheduler struct {
	c *Controller
}

// NewScheduler returns a Scheduler for c.
func NewScheduler(c *Controller) *Scheduler { return &Scheduler{c: c} }

// Pending reports whether any unit event or the pseudo-unit event is
// outstanding.
func (s *Scheduler) Pending() bool {
	for _, w := range s.c.waits {
		if w >= 0 {
			return true
		}
	}
	return s.c.pseudoWait >= 0
}

// Advance finds the soonest outstanding event, fast-forwards every
// countdown by that amount, and fires Step for every unit (and the
// pseudo-unit) whose countdown reached zero, in ascending index order.
// It returns the Functions each fired Step produced, and the number of
// ticks time actually advanced by (0 if nothing was pending).
func (s *Scheduler) Advance(flags FlagSet) ([]Functions, Ticks) {
	min := Ticks(-1)
	for _, w := range s.c.waits {
		if w >= 0 && (min < 0 || w < min) {
			min = w
		}
	}
	if s.c.pseudoWait >= 0 && (min < 0 || s.c.pseudoWait < min) {
		min = s.c.pseudoWait
	}
	if min < 0 {
		return nil, 0
	}

	for i, w := range s.c.waits {
		if w >= 0 {
			s.c.waits[i] = w - min
		}
	}
	if s.c.pseudoWait >= 0 {
		s.c.pseudoWait -= min
	}

	var results []Functions
	for i, w := range s.c.waits {
		if w == 0 {
			s.c.waits[i] = notScheduled
			unit := i
			fns, _ := s.c.Step(&unit, flags, 0)
			results = append(results, fns)
		}
	}
	if s.c.pseudoWait == 0 {
		s.c.pseudoWait = notScheduled
		unit := pseudoUnit
		fns, _ := s.c.Step(&unit, flags, 0)
		results = append(results, fns)
	}
	return results, min
}

// Run repeatedly advances until nothing is pending, a safety bound on
// iterations (guards a mis-wired test driving an infinitely-rescheduling
// command) aside. It returns every fired batch of Functions in order.
func (s *Scheduler) Run(flags FlagSet, maxSteps int) []Functions {
	var all []Functions
	for i := 0; i < maxSteps && s.Pending(); i++ {
		batch, _ := s.Advance(flags)
		if batch == nil {
			break
		}
		all = append(all, batch...)
	}
	return all
}
