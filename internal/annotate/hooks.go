package annotate

import "io"

// Hooks is the narrow surface a listing driver needs from an
// annotation sink: one call when a function's body starts, one per
// instruction that has debug info, and one when the block ends.
type Hooks interface {
	FunctionStart(w io.Writer, f Frame)
	Instruction(w io.Writer, chain Chain)
	BlockEnd(w io.Writer)
}

// FunctionStart emits the function-level source position.
func (p *Printer) FunctionStart(w io.Writer, f Frame) {
	p.EmitFrame(w, f)
}

// Instruction emits the inlining chain active at an instruction.
func (p *Printer) Instruction(w io.Writer, chain Chain) {
	p.Emit(w, chain)
}

// BlockEnd closes all open annotation brackets.
func (p *Printer) BlockEnd(w io.Writer) {
	p.Finish(w)
}

var _ Hooks = (*Printer)(nil)
