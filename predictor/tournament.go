package predictor

// Geometry of the hybrid predictor. It ignores the configured widths.
const (
	hybridGlobalBits  = 11
	hybridLocalBits   = 10
	hybridPCIndexBits = 9
)

// Selector states. Values below selectWeaklyGlobal choose the local
// predictor.
const (
	selectStronglyLocal Counter = iota
	selectWeaklyLocal
	selectWeaklyGlobal
	selectStronglyGlobal
)

// tournament combines a per-branch local history predictor with a global
// history predictor. A selector table indexed by global history learns which
// of the two to trust.
type tournament struct {
	localHistory []uint32
	localTable   []Counter
	globalTable  []Counter
	selector     []Counter

	ghr        uint32
	globalMask uint32
	localMask  uint32
	pcMask     uint32

	// xorPC makes the global half gshare-indexed.
	xorPC bool
}

func newTournament(globalBits, localBits, pcIndexBits uint, xorPC bool) *tournament {
	t := &tournament{
		localHistory: make([]uint32, 1<<pcIndexBits),
		localTable:   make([]Counter, 1<<localBits),
		globalTable:  make([]Counter, 1<<globalBits),
		selector:     make([]Counter, 1<<globalBits),
		globalMask:   bitMask(globalBits),
		localMask:    bitMask(localBits),
		pcMask:       bitMask(pcIndexBits),
		xorPC:        xorPC,
	}
	t.Reset()
	return t
}

func (t *tournament) globalIndex(pc uint32) uint32 {
	if t.xorPC {
		return (t.ghr ^ pc) & t.globalMask
	}
	return t.ghr
}

func (t *tournament) localPrediction(pc uint32) Outcome {
	history := t.localHistory[pc&t.pcMask]
	return t.localTable[history].Prediction()
}

func (t *tournament) Predict(pc uint32) Outcome {
	if t.selector[t.ghr] < selectWeaklyGlobal {
		return t.localPrediction(pc)
	}
	return t.globalTable[t.globalIndex(pc)].Prediction()
}

// Train updates both sub-predictors and the selector against the history
// that was current at prediction time, then shifts the outcome into the
// global history.
func (t *tournament) Train(pc uint32, outcome Outcome) {
	slot := pc & t.pcMask
	history := t.localHistory[slot]
	t.localHistory[slot] = shiftHistory(history, outcome, t.localMask)
	localCorrect := t.localTable[history].Prediction() == outcome
	t.localTable[history] = t.localTable[history].Update(outcome)

	gidx := t.globalIndex(pc)
	globalCorrect := t.globalTable[gidx].Prediction() == outcome
	t.globalTable[gidx] = t.globalTable[gidx].Update(outcome)

	// The selector only moves when exactly one side was right.
	switch {
	case localCorrect && !globalCorrect:
		t.selector[t.ghr] = t.selector[t.ghr].Update(NotTaken)
	case globalCorrect && !localCorrect:
		t.selector[t.ghr] = t.selector[t.ghr].Update(Taken)
	}

	t.ghr = shiftHistory(t.ghr, outcome, t.globalMask)
}

func (t *tournament) Reset() {
	for i := range t.localHistory {
		t.localHistory[i] = 0
	}
	fillCounters(t.localTable, WeaklyNotTaken)
	fillCounters(t.globalTable, WeaklyNotTaken)
	fillCounters(t.selector, selectWeaklyGlobal)
	t.ghr = 0
}
