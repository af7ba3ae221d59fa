package predictor

// gshare XORs the global history with the branch address to index a single
// table of 2-bit counters.
type gshare struct {
	table []Counter
	ghr   uint32
	mask  uint32
}

func newGshare(historyBits uint) *gshare {
	return &gshare{
		table: newCounterTable(historyBits, WeaklyNotTaken),
		mask:  bitMask(historyBits),
	}
}

func (g *gshare) index(pc uint32) uint32 {
	return (g.ghr ^ pc) & g.mask
}

func (g *gshare) Predict(pc uint32) Outcome {
	return g.table[g.index(pc)].Prediction()
}

func (g *gshare) Train(pc uint32, outcome Outcome) {
	idx := g.index(pc)
	g.table[idx] = g.table[idx].Update(outcome)
	g.ghr = shiftHistory(g.ghr, outcome, g.mask)
}

func (g *gshare) Reset() {
	fillCounters(g.table, WeaklyNotTaken)
	g.ghr = 0
}
