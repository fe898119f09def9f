package disasm

import (
	"strings"
	"testing"
)

func TestRawComment(t *testing.T) {
	tests := []struct {
		name       string
		addr       uint64
		b          []byte
		fixedWidth bool
		want       string
	}{
		{
			name:       "fixed width word is reversed",
			addr:       0x1234abc0,
			b:          []byte{0xc0, 0x03, 0x5f, 0xd6},
			fixedWidth: true,
			want:       "; abc0: d65f03c0",
		},
		{
			name: "variable width is byte by byte",
			addr: 0x401000,
			b:    []byte{0x48, 0x89, 0xe5},
			want: "; 1000: 48 89 e5",
		},
		{
			name:       "address is abbreviated to 16 bits",
			addr:       0xffff00000004,
			b:          []byte{0x1f, 0x20, 0x03, 0xd5},
			fixedWidth: true,
			want:       "; 0004: d503201f",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RawComment(tt.addr, tt.b, tt.fixedWidth); got != tt.want {
				t.Errorf("RawComment = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitDataDirectives(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want string
	}{
		{
			name: "full word",
			b:    []byte{0xde, 0xad, 0xbe, 0xef},
			want: "\t.long\t0xefbeadde\n",
		},
		{
			name: "short tail",
			b:    []byte{0xde, 0xad},
			want: "\t.byte\t0xde\n\t.byte\t0xad\n",
		},
		{
			name: "single byte",
			b:    []byte{0x90},
			want: "\t.byte\t0x90\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			emitDataDirectives(&buf, tt.b)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
