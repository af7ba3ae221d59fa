// Package profile tracks per-branch misprediction counts in a bounded,
// set-associative table built on Akita cache components.
package profile

import (
	"sort"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds the table geometry.
type Config struct {
	// Sets is the number of sets.
	Sets int
	// Ways is the associativity.
	Ways int
}

// DefaultConfig returns a 64-set, 4-way table (256 branches).
func DefaultConfig() Config {
	return Config{
		Sets: 64,
		Ways: 4,
	}
}

// Entry is the profile of one static branch.
type Entry struct {
	// PC is the branch address.
	PC uint32
	// Executions counts how often the branch resolved while tracked.
	Executions uint64
	// Mispredictions counts the wrong predictions among them.
	Mispredictions uint64
}

// MispredictionRate returns the misprediction rate as a percentage.
func (e Entry) MispredictionRate() float64 {
	if e.Executions == 0 {
		return 0
	}
	return float64(e.Mispredictions) / float64(e.Executions) * 100
}

// Stats holds table activity counters.
type Stats struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// branchAlign is the instruction alignment the set index skips over, so
// that word-aligned branches spread across every set. The tag keeps the
// full address.
const branchAlign = 4

// Table is a bounded profile. When a set is full the least recently seen
// branch is evicted and its counts are dropped.
type Table struct {
	config Config

	// Akita directory for tag and LRU management. The set is chosen by
	// pc / branchAlign.
	directory *akitacache.DirectoryImpl

	// Per-branch counters, indexed by (setID * ways + wayID).
	entries []Entry

	stats Stats
}

// New creates a table with the given geometry.
func New(config Config) *Table {
	return &Table{
		config: config,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Ways,
			branchAlign,
			akitacache.NewLRUVictimFinder(),
		),
		entries: make([]Entry, config.Sets*config.Ways),
	}
}

// Config returns the table geometry.
func (t *Table) Config() Config {
	return t.config
}

// Stats returns table activity counters.
func (t *Table) Stats() Stats {
	return t.stats
}

func (t *Table) entryIndex(block *akitacache.Block) int {
	return block.SetID*t.config.Ways + block.WayID
}

// Record counts one resolved branch.
func (t *Table) Record(pc uint32, correct bool) {
	t.stats.Lookups++
	addr := uint64(pc)

	block := t.directory.Lookup(0, addr)
	if block != nil && block.IsValid {
		t.stats.Hits++
	} else {
		t.stats.Misses++
		block = t.allocate(addr)
		if block == nil {
			return
		}
	}
	t.directory.Visit(block)

	e := &t.entries[t.entryIndex(block)]
	e.Executions++
	if !correct {
		e.Mispredictions++
	}
}

func (t *Table) allocate(addr uint64) *akitacache.Block {
	victim := t.directory.FindVictim(addr)
	if victim == nil {
		return nil
	}

	if victim.IsValid {
		t.stats.Evictions++
	}

	victim.Tag = addr
	victim.IsValid = true
	t.entries[t.entryIndex(victim)] = Entry{PC: uint32(addr)}

	return victim
}

// Lookup returns the profile of the branch at pc if it is tracked.
func (t *Table) Lookup(pc uint32) (Entry, bool) {
	block := t.directory.Lookup(0, uint64(pc))
	if block == nil || !block.IsValid {
		return Entry{}, false
	}
	return t.entries[t.entryIndex(block)], true
}

// Entries returns the profiles of all tracked branches.
func (t *Table) Entries() []Entry {
	var out []Entry
	for _, set := range t.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				out = append(out, t.entries[t.entryIndex(block)])
			}
		}
	}
	return out
}

// Top returns up to n tracked branches ordered by mispredictions, then by
// executions, then by address.
func (t *Table) Top(n int) []Entry {
	entries := t.Entries()
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Mispredictions != b.Mispredictions {
			return a.Mispredictions > b.Mispredictions
		}
		if a.Executions != b.Executions {
			return a.Executions > b.Executions
		}
		return a.PC < b.PC
	})

	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Reset drops all tracked branches and statistics.
func (t *Table) Reset() {
	t.directory.Reset()
	for i := range t.entries {
		t.entries[i] = Entry{}
	}
	t.stats = Stats{}
}
