package disasm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// emitDataDirectives prints bytes that did not decode as assembler
// data: a single .long when a whole fixed-width instruction slot is
// covered, individual .byte directives otherwise.
func emitDataDirectives(w io.Writer, b []byte) {
	if len(b) == 4 {
		fmt.Fprintf(w, "\t.long\t0x%08x\n", binary.LittleEndian.Uint32(b))
		return
	}
	for _, c := range b {
		fmt.Fprintf(w, "\t.byte\t0x%02x\n", c)
	}
}

// RawComment renders the encoding of one instruction as a comment,
// headed by the low 16 bits of its address. Fixed-width little-endian
// encodings are printed as one reversed hex word, variable-width ones
// byte by byte.
func RawComment(addr uint64, b []byte, fixedWidth bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; %04x:", addr&0xffff)
	if fixedWidth {
		sb.WriteByte(' ')
		for i := len(b) - 1; i >= 0; i-- {
			fmt.Fprintf(&sb, "%02x", b[i])
		}
	} else {
		for _, c := range b {
			fmt.Fprintf(&sb, " %02x", c)
		}
	}
	return sb.String()
}
