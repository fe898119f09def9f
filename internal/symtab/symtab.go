// Package symtab assigns and caches symbol names for the addresses seen
// while disassembling a code stream. Branch targets inside the stream
// get local "L<offset>" labels; everything else is resolved through the
// containing object's static symbols or a global frame resolver.
package symtab

import "strconv"

// MemRange describes the code stream being disassembled: the address of
// its first byte and its length.
type MemRange struct {
	Base uint64
	Size uint64
}

// Contains reports whether addr falls inside the range.
func (m MemRange) Contains(addr uint64) bool {
	return addr >= m.Base && addr < m.Base+m.Size
}

// StaticSymbols looks up symbol names recorded in the object file the
// stream was loaded from. Addresses are object addresses, i.e. stream
// addresses with the load slide applied.
type StaticSymbols interface {
	StaticSymbolNameAt(addr uint64) (string, bool)
}

// FrameResolver names addresses outside the object, typically through
// runtime or debug-info knowledge of every loaded function.
type FrameResolver interface {
	ResolveNameAt(addr uint64) (string, bool)
}

// entry distinguishes "never looked up" (absent from the map) from
// "looked up, no name found" (present, resolved, empty name). An
// address that resolved to nothing must never be re-resolved.
type entry struct {
	name     string
	resolved bool
}

// Table is the symbol store for one disassembly. It is not safe for
// concurrent use.
type Table struct {
	entries map[uint64]entry
	mem     MemRange
	slide   int64
	ip      uint64
	static  StaticSymbols
	frames  FrameResolver
}

// New returns an empty table for a stream at mem. slide is added to a
// stream address to obtain the matching object address. static and
// frames may be nil when no object or resolver is available.
func New(mem MemRange, slide int64, static StaticSymbols, frames FrameResolver) *Table {
	return &Table{
		entries: make(map[uint64]entry),
		mem:     mem,
		slide:   slide,
		static:  static,
		frames:  frames,
	}
}

// SetIP records the instruction pointer local labels are named relative
// to.
func (t *Table) SetIP(addr uint64) {
	t.ip = addr
}

// IP returns the most recently set instruction pointer.
func (t *Table) IP() uint64 {
	return t.ip
}

// InsertAddress registers addr as a referenced target. The name is
// assigned later by CreateSymbols.
func (t *Table) InsertAddress(addr uint64) {
	if _, ok := t.entries[addr]; !ok {
		t.entries[addr] = entry{}
	}
}

// CreateSymbols names every registered address. Addresses inside the
// stream become "L<offset>" labels relative to the current instruction
// pointer; the rest are resolved through the frame resolver. Targets
// the resolver cannot name stay resolved-empty so later lookups do not
// retry them.
func (t *Table) CreateSymbols() {
	for addr, e := range t.entries {
		if e.resolved {
			continue
		}
		if t.mem.Contains(addr) {
			t.entries[addr] = entry{
				name:     "L" + strconv.FormatUint(addr-t.ip, 10),
				resolved: true,
			}
			continue
		}
		var name string
		if t.frames != nil {
			if global, ok := t.frames.ResolveNameAt(addr); ok {
				name = global
			}
		}
		t.entries[addr] = entry{name: name, resolved: true}
	}
}

// LookupSymbolName returns a name for addr, resolving and caching it on
// first use: first the object's static symbol at the slid address, then
// the frame resolver. A previous miss is cached too and reported
// without re-resolving.
func (t *Table) LookupSymbolName(addr uint64) (string, bool) {
	if e, ok := t.entries[addr]; ok {
		return e.name, e.name != ""
	}
	var name string
	if t.static != nil {
		name, _ = t.static.StaticSymbolNameAt(uint64(int64(addr) + t.slide))
	}
	if name == "" && t.frames != nil {
		if global, ok := t.frames.ResolveNameAt(addr); ok {
			name = global
		}
	}
	t.entries[addr] = entry{name: name, resolved: true}
	return name, name != ""
}

// LookupSymbol returns the label recorded for addr, if any. Unlike
// LookupSymbolName it never triggers resolution: only names assigned by
// CreateSymbols or cached by an earlier lookup are visible.
func (t *Table) LookupSymbol(addr uint64) (string, bool) {
	e, ok := t.entries[addr]
	if !ok || e.name == "" {
		return "", false
	}
	return e.name, true
}
