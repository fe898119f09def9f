// Package disasm drives annotated, symbolicated disassembly of a raw
// code stream. It walks the stream twice: the first pass records every
// branch and call target so that the second pass can print labels,
// source-line annotations and symbolicated operands.
package disasm

import (
	"asmlens/internal/annotate"
	"asmlens/internal/symtab"
)

// Stream is the chunk of machine code to disassemble. Base is the
// address of the first byte as the code sees itself (branch targets are
// relative to it). Slide is added to a stream address to obtain the
// matching address in the object's debug info and symbol table.
type Stream struct {
	Base  uint64
	Bytes []byte
	Slide int64
}

// DebugAddr converts a stream address to a debug-info address.
func (s Stream) DebugAddr(addr uint64) uint64 {
	return uint64(int64(addr) + s.Slide)
}

// DecodeStatus classifies the outcome of decoding one instruction.
type DecodeStatus int

const (
	// StatusSuccess is a cleanly decoded instruction.
	StatusSuccess DecodeStatus = iota
	// StatusSoftFail is a decodable but possibly invalid encoding; the
	// instruction is still printed, preceded by a warning.
	StatusSoftFail
	// StatusFail means the bytes are not an instruction. The driver
	// emits them as data and advances by the decoder's fallback size.
	StatusFail
)

// Imm is an immediate operand. PCRel immediates are relative to the
// instruction's start address.
type Imm struct {
	Value int64
	PCRel bool
}

// Decoded is one decoded instruction.
type Decoded struct {
	// Text is the rendered instruction, without leading tab or
	// trailing newline.
	Text string
	// Size is the encoded length in bytes. Zero on a failed decode
	// when not even the length could be determined.
	Size int
	// Op is the lowercase mnemonic.
	Op string
	// Imms holds the immediate operands in operand order.
	Imms []Imm
}

// SymbolNamer resolves an address to a symbol name, typically a
// *symtab.Table. Decoders may use it to render branch targets
// symbolically during the output pass; it is nil during the
// target-collection pass.
type SymbolNamer interface {
	LookupSymbolName(addr uint64) (string, bool)
}

// Decoder is one instruction-set architecture.
type Decoder interface {
	// Decode decodes the instruction at the start of b, which begins at
	// addr. syms may be nil.
	Decode(addr uint64, b []byte, syms SymbolNamer) (Decoded, DecodeStatus)
	// FallbackSize is how far to advance past undecodable bytes: the
	// instruction width on fixed-width ISAs, 1 otherwise.
	FallbackSize() int
	// IsBranchOrCall reports whether d transfers control.
	IsBranchOrCall(d Decoded) bool
	// BranchTarget evaluates the destination of a branch or call
	// decoded at addr, when it is statically known.
	BranchTarget(d Decoded, addr uint64) (uint64, bool)
}

// LineEntry is one row of a line table: the inlining chain in effect
// starting at Addr (a debug-info address).
type LineEntry struct {
	Addr  uint64
	Chain annotate.Chain
}

// DebugInfo supplies source-line information for the stream.
type DebugInfo interface {
	// LineTableForRange returns the line entries covering
	// [base, base+size), in address order. Addresses are debug-info
	// addresses.
	LineTableForRange(base, size uint64) []LineEntry
	// InliningChainAt returns the full inlining chain at a debug-info
	// address, innermost frame first, or nil if unknown.
	InliningChainAt(addr uint64) annotate.Chain
}

// Deps are the collaborators a disassembly runs against. Decoder is
// required; everything else degrades gracefully when nil.
type Deps struct {
	Decoder Decoder
	Debug   DebugInfo
	Static  symtab.StaticSymbols
	Frames  symtab.FrameResolver
}

// Config controls the rendered listing.
type Config struct {
	// LineStart prefixes every annotation line. Empty means "; ".
	LineStart string
	// BracketOuter opens a bracket for the outermost frame so the
	// block's annotations form a closed tree.
	BracketOuter bool
	// DebugInfo selects how much source information is interleaved.
	DebugInfo annotate.Verbosity
	// CollapseRecursive folds directly recursive inlined frames onto a
	// single annotation line.
	CollapseRecursive bool
	// ShowBytes prints a code-origin header and the raw encoding of
	// each instruction as a comment line.
	ShowBytes bool
}

// DefaultConfig is the configuration used for interactive listings.
func DefaultConfig() Config {
	return Config{
		LineStart:         "; ",
		BracketOuter:      true,
		DebugInfo:         annotate.VerbositySource,
		CollapseRecursive: true,
	}
}
