// Package arm64dec adapts the AArch64 instruction decoder to the
// listing driver. AArch64 is a fixed-width ISA, so undecodable words
// are skipped four bytes at a time.
package arm64dec

import (
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"asmlens/internal/disasm"
)

// Decoder decodes AArch64 instructions. AArch64 has a single assembly
// syntax, so the listing dialect does not apply here.
type Decoder struct{}

// New returns an AArch64 decoder.
func New() *Decoder { return &Decoder{} }

// FallbackSize is the fixed instruction width.
func (*Decoder) FallbackSize() int { return 4 }

// Decode decodes the word at the start of b. Branch targets stay
// numeric in the text; the driver attaches their symbol names as
// comments, so syms is unused on this target.
func (*Decoder) Decode(addr uint64, b []byte, syms disasm.SymbolNamer) (disasm.Decoded, disasm.DecodeStatus) {
	if len(b) < 4 {
		return disasm.Decoded{}, disasm.StatusFail
	}
	inst, err := arm64asm.Decode(b[:4])
	if err != nil {
		return disasm.Decoded{}, disasm.StatusFail
	}
	d := disasm.Decoded{
		Text: arm64asm.GNUSyntax(inst),
		Size: 4,
		Op:   strings.ToLower(inst.Op.String()),
	}
	for _, arg := range inst.Args {
		switch a := arg.(type) {
		case arm64asm.PCRel:
			d.Imms = append(d.Imms, disasm.Imm{Value: int64(a), PCRel: true})
		case arm64asm.Imm:
			d.Imms = append(d.Imms, disasm.Imm{Value: int64(a.Imm)})
		case arm64asm.Imm64:
			d.Imms = append(d.Imms, disasm.Imm{Value: int64(a.Imm)})
		}
	}
	return d, disasm.StatusSuccess
}

// IsBranchOrCall reports whether d transfers control.
func (*Decoder) IsBranchOrCall(d disasm.Decoded) bool {
	switch d.Op {
	case "b", "bl", "br", "blr", "ret", "cbz", "cbnz", "tbz", "tbnz":
		return true
	}
	return false
}

// BranchTarget resolves the destination of a direct branch. Register
// branches (br, blr, ret) have no static target.
func (*Decoder) BranchTarget(d disasm.Decoded, addr uint64) (uint64, bool) {
	for _, imm := range d.Imms {
		if imm.PCRel {
			return uint64(int64(addr) + imm.Value), true
		}
	}
	return 0, false
}

var _ disasm.Decoder = (*Decoder)(nil)
