package disasm

import (
	"errors"
	"fmt"
	"io"

	"asmlens/internal/annotate"
	"asmlens/internal/symtab"
)

// ErrNoDecoder is returned when Deps carries no Decoder for the target.
var ErrNoDecoder = errors.New("disasm: no disassembler for target")

// noAddr is the out-of-band "no pending line entry" marker.
const noAddr = ^uint64(0)

// Disassemble renders stream as an annotated listing on w.
//
// The stream is walked twice. The first pass decodes every instruction
// only to collect branch and call targets; in-stream targets become
// local labels, out-of-stream targets are resolved to global names. The
// second pass produces the listing: interleaved source-line
// annotations, labels, instructions with symbolicated operand comments,
// and data directives for bytes that do not decode. Both passes advance
// through the bytes identically, so the label addresses found in the
// first pass line up with the instructions printed in the second.
func Disassemble(w io.Writer, stream Stream, deps Deps, cfg Config) error {
	if deps.Decoder == nil {
		fmt.Fprintln(w, "ERROR: no disassembler for target")
		return ErrNoDecoder
	}
	lineStart := cfg.LineStart
	if lineStart == "" {
		lineStart = "; "
	}
	dec := deps.Decoder
	size := uint64(len(stream.Bytes))
	fixedWidth := dec.FallbackSize() != 1

	table := symtab.New(
		symtab.MemRange{Base: stream.Base, Size: size},
		stream.Slide, deps.Static, deps.Frames)

	var lineTable []LineEntry
	if deps.Debug != nil {
		lineTable = dedupLineTable(deps.Debug.LineTableForRange(stream.DebugAddr(stream.Base), size))
	}

	if cfg.ShowBytes {
		// Instruction addresses are abbreviated, so print the complete
		// origin once at the top.
		fmt.Fprintf(w, "; code origin: %016x, code size: %d\n", stream.Base, size)
	}

	// Pass 0: record branch and call targets. No output.
	for index := uint64(0); index < size; {
		addr := stream.Base + index
		table.SetIP(addr)
		d, status := dec.Decode(addr, stream.Bytes[index:], nil)
		if status != StatusFail && dec.IsBranchOrCall(d) {
			if target, ok := dec.BranchTarget(d, addr); ok {
				table.InsertAddress(target)
			}
		}
		index += uint64(advance(d, dec))
	}

	// Labels are named relative to the stream start.
	table.SetIP(stream.Base)
	table.CreateSymbols()

	// Pass 1: emit the listing.
	pr := annotate.NewPrinter(lineStart, cfg.BracketOuter)
	pr.SetVerbosity(cfg.DebugInfo)
	pr.SetCollapseRecursive(cfg.CollapseRecursive)

	li := 0
	nextLineAddr := noAddr
	if len(lineTable) > 0 {
		nextLineAddr = lineTable[0].Addr
		if nextLineAddr != stream.DebugAddr(stream.Base) {
			// The first line entry starts past the entry point: print
			// the function-level location up front.
			pr.Instruction(w, lineTable[0].Chain)
		}
	}

	for index := uint64(0); index < size; {
		addr := stream.Base + index

		if nextLineAddr != noAddr && stream.DebugAddr(addr) == nextLineAddr {
			// Prefer the full inlining chain from a live query; the
			// recorded entry may carry only the innermost frame.
			chain := deps.Debug.InliningChainAt(nextLineAddr)
			if len(chain) == 0 {
				chain = lineTable[li].Chain
			}
			pr.Instruction(w, chain)
			li++
			if li < len(lineTable) {
				nextLineAddr = lineTable[li].Addr
			} else {
				nextLineAddr = noAddr
			}
		}

		table.SetIP(addr)
		if label, ok := table.LookupSymbol(addr); ok {
			fmt.Fprintf(w, "%s:\n", label)
		}

		d, status := dec.Decode(addr, stream.Bytes[index:], table)
		if status == StatusFail {
			n := advance(d, dec)
			emitDataDirectives(w, clamp(stream.Bytes, index, n))
			index += uint64(n)
			continue
		}
		if status == StatusSoftFail {
			fmt.Fprintln(w, "potentially undefined instruction encoding:")
		}
		if cfg.ShowBytes {
			fmt.Fprintln(w, RawComment(addr, clamp(stream.Bytes, index, d.Size), fixedWidth))
		}
		fmt.Fprintf(w, "\t%s", d.Text)
		for _, imm := range d.Imms {
			value := imm.Value
			if imm.PCRel {
				value += int64(addr)
			}
			if name, ok := table.LookupSymbolName(uint64(value)); ok {
				fmt.Fprintf(w, " ; %s", name)
			}
		}
		fmt.Fprintln(w)
		index += uint64(advance(d, dec))
	}

	if deps.Debug != nil {
		pr.BlockEnd(w)
	}
	return nil
}

// advance is how far the stream cursor moves past d: its encoded size,
// or the decoder's fallback width when even that is unknown.
func advance(d Decoded, dec Decoder) int {
	if d.Size > 0 {
		return d.Size
	}
	return dec.FallbackSize()
}

func clamp(b []byte, index uint64, n int) []byte {
	end := index + uint64(n)
	if end > uint64(len(b)) {
		end = uint64(len(b))
	}
	return b[index:end]
}

// dedupLineTable drops line entries that cover no instructions: of a
// run of entries at the same address only the last survives.
func dedupLineTable(entries []LineEntry) []LineEntry {
	if len(entries) == 0 {
		return entries
	}
	out := entries[:1]
	for _, e := range entries[1:] {
		if e.Addr == out[len(out)-1].Addr {
			out[len(out)-1] = e
		} else {
			out = append(out, e)
		}
	}
	return out
}
