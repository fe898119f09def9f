// Package dwarfx reads line tables and inlining chains out of a
// binary's DWARF sections, in the shape the listing driver consumes.
package dwarfx

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"sort"

	"asmlens/internal/annotate"
	"asmlens/internal/disasm"
)

// Data answers line-table and inlining queries against one binary's
// debug info. It implements both the driver's DebugInfo and the symbol
// table's FrameResolver.
type Data struct {
	d *dwarf.Data
}

// Load extracts the DWARF sections of an ELF file.
func Load(f *elf.File) (*Data, error) {
	d, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("dwarfx: %w", err)
	}
	return New(d), nil
}

// New wraps already-parsed DWARF data.
func New(d *dwarf.Data) *Data {
	return &Data{d: d}
}

// LineTableForRange returns one entry per line-table row covering
// [base, base+size), in address order. Each entry carries a flat
// single-frame chain; InliningChainAt supplies the full chain.
func (x *Data) LineTableForRange(base, size uint64) []disasm.LineEntry {
	r := x.d.Reader()
	cu, err := r.SeekPC(base)
	if err != nil || cu == nil {
		return nil
	}
	lr, err := x.d.LineReader(cu)
	if err != nil || lr == nil {
		return nil
	}
	function, _ := x.ResolveNameAt(base)

	var out []disasm.LineEntry
	var le dwarf.LineEntry
	for lr.Next(&le) == nil {
		if le.EndSequence {
			continue
		}
		if le.Address < base || le.Address >= base+size {
			continue
		}
		frame := annotate.Frame{Function: function, Line: uint32(le.Line)}
		if le.File != nil {
			frame.File = le.File.Name
		}
		out = append(out, disasm.LineEntry{Addr: le.Address, Chain: annotate.Chain{frame}})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// InliningChainAt reconstructs the inlining chain at addr, innermost
// frame first. The innermost frame carries the line-table position;
// each enclosing frame carries the call site of the frame it inlined.
func (x *Data) InliningChainAt(addr uint64) annotate.Chain {
	r := x.d.Reader()
	cu, err := r.SeekPC(addr)
	if err != nil || cu == nil {
		return nil
	}
	lr, _ := x.d.LineReader(cu)

	// Collect the subprogram containing addr and the nested inlined
	// subroutines that still contain it, outermost first.
	var dies []*dwarf.Entry
	for {
		e, err := r.Next()
		if err != nil || e == nil || e.Tag == dwarf.TagCompileUnit {
			break
		}
		switch e.Tag {
		case dwarf.TagSubprogram:
			if len(dies) == 0 && x.contains(e, addr) {
				dies = append(dies, e)
			} else {
				r.SkipChildren()
			}
		case dwarf.TagInlinedSubroutine:
			if len(dies) > 0 && x.contains(e, addr) {
				dies = append(dies, e)
			} else {
				r.SkipChildren()
			}
		}
	}
	if len(dies) == 0 {
		return nil
	}

	file := ""
	line := uint32(annotate.LineUnknown)
	if lr != nil {
		var le dwarf.LineEntry
		if lr.SeekPC(addr, &le) == nil {
			if le.File != nil {
				file = le.File.Name
			}
			line = uint32(le.Line)
		}
	}

	chain := make(annotate.Chain, 0, len(dies))
	for i := len(dies) - 1; i >= 0; i-- {
		e := dies[i]
		chain = append(chain, annotate.Frame{Function: x.entryName(e, 0), File: file, Line: line})
		// The enclosing frame sits at this frame's call site.
		if lr != nil {
			if cf, ok := e.Val(dwarf.AttrCallFile).(int64); ok {
				if files := lr.Files(); cf >= 0 && int(cf) < len(files) && files[cf] != nil {
					file = files[cf].Name
				}
			}
		}
		if cl, ok := e.Val(dwarf.AttrCallLine).(int64); ok {
			line = uint32(cl)
		}
	}
	return chain
}

// ResolveNameAt names the function whose range covers addr.
func (x *Data) ResolveNameAt(addr uint64) (string, bool) {
	r := x.d.Reader()
	cu, err := r.SeekPC(addr)
	if err != nil || cu == nil {
		return "", false
	}
	for {
		e, err := r.Next()
		if err != nil || e == nil || e.Tag == dwarf.TagCompileUnit {
			return "", false
		}
		if e.Tag != dwarf.TagSubprogram {
			if e.Children {
				r.SkipChildren()
			}
			continue
		}
		if x.contains(e, addr) {
			if name := x.entryName(e, 0); name != "" {
				return name, true
			}
			return "", false
		}
		r.SkipChildren()
	}
}

func (x *Data) contains(e *dwarf.Entry, addr uint64) bool {
	ranges, err := x.d.Ranges(e)
	if err != nil {
		return false
	}
	for _, rg := range ranges {
		if addr >= rg[0] && addr < rg[1] {
			return true
		}
	}
	return false
}

// entryName resolves a DIE's name, following abstract-origin and
// specification references, which is where inlined subroutines and
// C++ member functions keep theirs.
func (x *Data) entryName(e *dwarf.Entry, depth int) string {
	if name, ok := e.Val(dwarf.AttrName).(string); ok {
		return name
	}
	if depth >= 4 {
		return ""
	}
	for _, attr := range []dwarf.Attr{dwarf.AttrAbstractOrigin, dwarf.AttrSpecification} {
		off, ok := e.Val(attr).(dwarf.Offset)
		if !ok {
			continue
		}
		r := x.d.Reader()
		r.Seek(off)
		ref, err := r.Next()
		if err != nil || ref == nil {
			continue
		}
		if name := x.entryName(ref, depth+1); name != "" {
			return name
		}
	}
	return ""
}
