package arm64dec

import (
	"testing"

	"asmlens/internal/disasm"
)

// le returns the little-endian byte order of one encoded instruction.
func le(enc uint32) []byte {
	return []byte{byte(enc), byte(enc >> 8), byte(enc >> 16), byte(enc >> 24)}
}

func TestDecode(t *testing.T) {
	dec := New()
	tests := []struct {
		name       string
		enc        uint32
		wantOp     string
		wantBranch bool
		wantTarget int64 // offset from the instruction, when static
		hasTarget  bool
	}{
		{name: "nop", enc: 0xd503201f, wantOp: "nop"},
		{name: "ret", enc: 0xd65f03c0, wantOp: "ret", wantBranch: true},
		{name: "b forward", enc: 0x14000002, wantOp: "b", wantBranch: true, wantTarget: 8, hasTarget: true},
		{name: "bl backward", enc: 0x97ffffff, wantOp: "bl", wantBranch: true, wantTarget: -4, hasTarget: true},
		{name: "b.ne", enc: 0x54000041, wantOp: "b", wantBranch: true, wantTarget: 8, hasTarget: true},
		{name: "cbz", enc: 0xb4000080, wantOp: "cbz", wantBranch: true, wantTarget: 16, hasTarget: true},
		{name: "add immediate", enc: 0x91000400, wantOp: "add"},
	}
	const addr = 0x10000
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, status := dec.Decode(addr, le(tt.enc), nil)
			if status != disasm.StatusSuccess {
				t.Fatalf("status = %v", status)
			}
			if d.Size != 4 {
				t.Errorf("Size = %d, want 4", d.Size)
			}
			if d.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", d.Op, tt.wantOp)
			}
			if d.Text == "" {
				t.Error("empty text")
			}
			if got := dec.IsBranchOrCall(d); got != tt.wantBranch {
				t.Errorf("IsBranchOrCall = %v, want %v", got, tt.wantBranch)
			}
			target, ok := dec.BranchTarget(d, addr)
			if ok != tt.hasTarget {
				t.Fatalf("BranchTarget ok = %v, want %v", ok, tt.hasTarget)
			}
			if ok && target != uint64(addr+tt.wantTarget) {
				t.Errorf("BranchTarget = %#x, want %#x", target, addr+tt.wantTarget)
			}
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	dec := New()
	tests := []struct {
		name string
		b    []byte
	}{
		{name: "undefined encoding", b: le(0xffffffff)},
		{name: "short buffer", b: []byte{0x1f, 0x20}},
		{name: "empty buffer", b: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, status := dec.Decode(0x1000, tt.b, nil)
			if status != disasm.StatusFail {
				t.Fatalf("status = %v, want StatusFail", status)
			}
			if d.Size != 0 {
				t.Errorf("Size = %d, want 0", d.Size)
			}
		})
	}
	if dec.FallbackSize() != 4 {
		t.Errorf("FallbackSize = %d, want 4", dec.FallbackSize())
	}
}
