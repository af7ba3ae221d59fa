package predictor

// Outcome is the resolved direction of a conditional branch.
type Outcome uint8

const (
	// NotTaken means the branch fell through.
	NotTaken Outcome = 0
	// Taken means the branch jumped to its target.
	Taken Outcome = 1
)

// String returns "T" or "N".
func (o Outcome) String() string {
	if o == Taken {
		return "T"
	}
	return "N"
}

// OutcomeOf converts a taken flag into an Outcome.
func OutcomeOf(taken bool) Outcome {
	if taken {
		return Taken
	}
	return NotTaken
}

// Counter is a 2-bit saturating counter.
// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
//
//	2=Weakly Taken, 3=Strongly Taken
type Counter uint8

const (
	StronglyNotTaken Counter = iota
	WeaklyNotTaken
	WeaklyTaken
	StronglyTaken
)

// Update moves the counter one step toward the outcome, saturating at the
// ends of the range.
func (c Counter) Update(o Outcome) Counter {
	if o == Taken {
		if c < StronglyTaken {
			return c + 1
		}
		return StronglyTaken
	}

	if c > StronglyNotTaken {
		return c - 1
	}
	return StronglyNotTaken
}

// Prediction returns Taken for the weakly and strongly taken states.
func (c Counter) Prediction() Outcome {
	if c >= WeaklyTaken {
		return Taken
	}
	return NotTaken
}

// newCounterTable allocates 2^bits counters, all set to init.
func newCounterTable(bits uint, init Counter) []Counter {
	table := make([]Counter, 1<<bits)
	fillCounters(table, init)
	return table
}

func fillCounters(table []Counter, init Counter) {
	for i := range table {
		table[i] = init
	}
}

// shiftHistory inserts the outcome at bit 0 and keeps the low bits given by
// mask.
func shiftHistory(history uint32, o Outcome, mask uint32) uint32 {
	return (history<<1 | uint32(o)) & mask
}

func bitMask(bits uint) uint32 {
	return uint32(1)<<bits - 1
}
