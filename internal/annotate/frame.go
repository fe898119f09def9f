// Package annotate renders source-location annotations for disassembly
// listings. A Printer tracks the inlining context across successive
// instructions and emits only the difference between one inlining chain
// and the next, using bracket glyphs to show where inlined code begins
// and ends.
package annotate

import "strings"

// LineUnknown marks a frame whose source line could not be determined.
// Frames with this line (or line 0) are printed without a line suffix.
const LineUnknown = ^uint32(0)

// Frame is one level of an inlining chain: a function name plus the
// source position it was instantiated at.
type Frame struct {
	Function string
	File     string
	Line     uint32
}

// TrimmedName returns the function name with trailing ';' markers
// stripped. Frames are compared by this name when collapsing recursion.
func (f Frame) TrimmedName() string {
	return strings.TrimRight(f.Function, ";")
}

// Chain is an inlining chain ordered innermost first: element 0 is the
// most deeply inlined frame and the last element is the outermost
// enclosing function.
type Chain []Frame
