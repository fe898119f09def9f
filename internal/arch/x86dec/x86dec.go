// Package x86dec adapts the x86-64 instruction decoder to the listing
// driver. x86 is variable width, so undecodable input is skipped one
// byte at a time.
package x86dec

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"asmlens/internal/disasm"
)

// Decoder decodes x86 instructions in the configured syntax dialect.
type Decoder struct {
	dialect disasm.Dialect
	mode    int
}

// New returns a 64-bit-mode x86 decoder.
func New(dialect disasm.Dialect) *Decoder {
	return &Decoder{dialect: dialect, mode: 64}
}

// FallbackSize is 1: on a failed decode we slide a single byte forward
// and retry.
func (*Decoder) FallbackSize() int { return 1 }

// Decode decodes the instruction at the start of b. When syms is
// non-nil, PC-relative targets that resolve to a symbol are rendered
// symbolically in the text.
func (d *Decoder) Decode(addr uint64, b []byte, syms disasm.SymbolNamer) (disasm.Decoded, disasm.DecodeStatus) {
	inst, err := x86asm.Decode(b, d.mode)
	if err != nil {
		return disasm.Decoded{}, disasm.StatusFail
	}
	var lookup x86asm.SymLookup
	if syms != nil {
		lookup = func(target uint64) (string, uint64) {
			if name, ok := syms.LookupSymbolName(target); ok {
				return name, target
			}
			return "", 0
		}
	}
	var text string
	if d.dialect == disasm.DialectIntel {
		text = x86asm.IntelSyntax(inst, addr, lookup)
	} else {
		text = x86asm.GNUSyntax(inst, addr, lookup)
	}
	out := disasm.Decoded{
		Text: text,
		Size: inst.Len,
		Op:   strings.ToLower(inst.Op.String()),
	}
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case x86asm.Rel:
			// Rel counts from the end of the instruction; rebase it to
			// the start so target = addr + value.
			out.Imms = append(out.Imms, disasm.Imm{Value: int64(a) + int64(inst.Len), PCRel: true})
		case x86asm.Imm:
			out.Imms = append(out.Imms, disasm.Imm{Value: int64(a)})
		}
	}
	return out, disasm.StatusSuccess
}

// IsBranchOrCall reports whether d transfers control.
func (*Decoder) IsBranchOrCall(d disasm.Decoded) bool {
	if strings.HasPrefix(d.Op, "j") || strings.HasPrefix(d.Op, "loop") {
		return true
	}
	switch d.Op {
	case "call", "lcall", "ret", "lret", "iret":
		return true
	}
	return false
}

// BranchTarget resolves the destination of a direct jump or call.
func (*Decoder) BranchTarget(d disasm.Decoded, addr uint64) (uint64, bool) {
	for _, imm := range d.Imms {
		if imm.PCRel {
			return uint64(int64(addr) + imm.Value), true
		}
	}
	return 0, false
}

var _ disasm.Decoder = (*Decoder)(nil)
