package annotate

import (
	"fmt"
	"io"
	"strings"
)

// Verbosity controls how much source information Emit produces.
type Verbosity int

const (
	// VerbosityNone suppresses all annotation output.
	VerbosityNone Verbosity = iota
	// VerbositySource emits file, line and inlining information.
	VerbositySource
)

// ParseVerbosity maps the user-facing debug-info mode names to a
// Verbosity. The empty string and "default" both mean source-level
// output.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "", "default", "source":
		return VerbositySource, nil
	case "none":
		return VerbosityNone, nil
	}
	return VerbosityNone, fmt.Errorf("annotate: unknown debug-info mode %q", s)
}

// Printer incrementally renders inlining chains as assembler comments.
// It remembers the chain it printed last and, on each Emit, prints only
// the frames that changed: "└" lines close frames that were left, "┌"
// marks frames that were entered, and a plain "@" line refreshes the
// source position inside an unchanged frame.
//
// The zero value is not usable; construct with NewPrinter.
type Printer struct {
	// context holds the currently open frames, outermost first.
	context     []Frame
	inlineDepth uint32

	lineStart         string
	bracketOuter      bool
	collapseRecursive bool
	verbosity         Verbosity
}

// NewPrinter returns a Printer that prefixes every annotation line with
// lineStart. When bracketOuter is set the outermost frame gets an
// opening bracket too, so a disassembly block reads as one closed
// bracket tree. Recursion collapsing is enabled by default.
func NewPrinter(lineStart string, bracketOuter bool) *Printer {
	return &Printer{
		lineStart:         lineStart,
		bracketOuter:      bracketOuter,
		collapseRecursive: true,
		verbosity:         VerbositySource,
	}
}

// SetVerbosity selects how much Emit prints. VerbosityNone turns the
// printer into a no-op.
func (p *Printer) SetVerbosity(v Verbosity) {
	p.verbosity = v
}

// SetCollapseRecursive controls whether directly recursive frames (same
// trimmed function name) are folded onto a single annotation line and a
// single bracket level.
func (p *Printer) SetCollapseRecursive(on bool) {
	p.collapseRecursive = on
}

// Depth reports the number of currently open bracket levels.
func (p *Printer) Depth() uint32 {
	return p.inlineDepth
}

// indent returns the indentation run preceding an annotation: one glyph
// per open bracket level, not counting the level being printed.
func (p *Printer) indent(glyph string) string {
	n := p.inlineDepth
	if p.bracketOuter {
		n++
	}
	if n < 1 {
		n = 1
	}
	return strings.Repeat(glyph, int(n-1))
}

// EmitFrame emits a single-frame chain.
func (p *Printer) EmitFrame(w io.Writer, f Frame) {
	p.Emit(w, Chain{f})
}

// Emit prints the difference between the previously emitted inlining
// chain and chain. An empty chain is skipped entirely so that stretches
// of code without debug info do not disturb the open context.
func (p *Printer) Emit(w io.Writer, chain Chain) {
	if p.verbosity == VerbosityNone {
		return
	}
	nframes := len(chain)
	if nframes == 0 {
		return
	}

	// Longest shared prefix of the open context and the new chain.
	// The context is outermost first, the chain innermost first.
	nctx := 0
	for nctx < len(p.context) && nctx < nframes {
		if p.context[nctx] != chain[nframes-1-nctx] {
			break
		}
		nctx++
	}

	updateLineOnly := false
	if p.collapseRecursive {
		if nctx > 0 {
			// Adding more frames of the method on top of the context,
			// or removing recursive frames that were folded into the
			// last matching line: either way the line must be
			// reprinted, so drop the whole folded run from the match.
			method := p.context[nctx-1].TrimmedName()
			if (nctx < nframes && chain[nframes-nctx-1].TrimmedName() == method) ||
				(nctx < len(p.context) && p.context[nctx].TrimmedName() == method) {
				updateLineOnly = true
				for nctx > 0 && p.context[nctx-1].TrimmedName() == method {
					nctx--
				}
			}
		}
		if !updateLineOnly && nctx < len(p.context) && nctx < nframes {
			// Same function at the first mismatch means only the
			// source position moved.
			if p.context[nctx].TrimmedName() == chain[nframes-1-nctx].TrimmedName() {
				updateLineOnly = true
			}
		}
	} else if nctx < len(p.context) && nctx < nframes {
		ctxLine := p.context[nctx]
		frameLine := chain[nframes-1-nctx]
		if ctxLine.File == frameLine.File && ctxLine.TrimmedName() == frameLine.TrimmedName() {
			updateLineOnly = true
		}
	}

	// Close the frames we are returning from.
	if nctx < len(p.context) {
		var npops uint32
		if p.collapseRecursive {
			npops = 1
			prev := p.context[nctx].TrimmedName()
			for i := nctx + 1; i < len(p.context); i++ {
				next := p.context[i].TrimmedName()
				if prev != next {
					npops++
				}
				prev = next
			}
		} else {
			npops = uint32(len(p.context) - nctx)
		}
		p.context = p.context[:nctx]
		if updateLineOnly {
			npops--
		}
		if npops > 0 {
			p.inlineDepth -= npops
			fmt.Fprintf(w, "%s%s%s\n", p.lineStart, p.indent("│"), strings.Repeat("└", int(npops)))
		}
	}

	// Print the frames we are entering.
	for nctx < nframes {
		frame := chain[nframes-1-nctx]
		fmt.Fprintf(w, "%s%s", p.lineStart, p.indent("│"))
		nctx++
		p.context = append(p.context, frame)
		if updateLineOnly {
			updateLineOnly = false
		} else {
			p.inlineDepth++
			if p.bracketOuter || nctx != 1 {
				io.WriteString(w, "┌")
			}
		}
		fmt.Fprintf(w, " @ %s", frame.File)
		if frame.Line != LineUnknown && frame.Line != 0 {
			fmt.Fprintf(w, ":%d", frame.Line)
		}
		method := frame.TrimmedName()
		fmt.Fprintf(w, " within `%s`", method)
		if p.collapseRecursive {
			// Fold directly recursive callees onto the same line and
			// bracket level.
			for nctx < nframes {
				next := chain[nframes-1-nctx]
				if next.TrimmedName() != method {
					break
				}
				nctx++
				p.context = append(p.context, next)
				fmt.Fprintf(w, " @ %s:%d", next.File, next.Line)
			}
		}
		io.WriteString(w, "\n")
	}
}

// Finish closes every bracket level that is still open and resets the
// printer for the next disassembly block.
func (p *Printer) Finish(w io.Writer) {
	if closes := p.indent("└"); closes != "" {
		fmt.Fprintf(w, "%s%s\n", p.lineStart, closes)
	}
	p.context = p.context[:0]
	p.inlineDepth = 0
}

// contextDepth returns the bracket depth implied by a context slice.
// Emit maintains inlineDepth incrementally; this recomputes it from
// scratch and is used to cross-check the incremental bookkeeping.
func contextDepth(context []Frame, collapseRecursive bool) uint32 {
	if len(context) == 0 {
		return 0
	}
	depth := uint32(1)
	prev := context[0].TrimmedName()
	for _, f := range context[1:] {
		next := f.TrimmedName()
		if !collapseRecursive || prev != next {
			depth++
		}
		prev = next
	}
	return depth
}
