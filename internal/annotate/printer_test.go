package annotate

import (
	"strings"
	"testing"
)

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in      string
		want    Verbosity
		wantErr bool
	}{
		{in: "", want: VerbositySource},
		{in: "default", want: VerbositySource},
		{in: "source", want: VerbositySource},
		{in: "none", want: VerbosityNone},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run("in="+tt.in, func(t *testing.T) {
			got, err := ParseVerbosity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVerbosity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// step is one Emit call and the exact text it must produce.
type step struct {
	chain Chain
	want  string
}

func TestPrinterScripts(t *testing.T) {
	tests := []struct {
		name         string
		bracketOuter bool
		noCollapse   bool
		steps        []step
		wantFinish   string
	}{
		{
			name:         "single frame opens and closes",
			bracketOuter: true,
			steps: []step{
				{
					chain: Chain{{Function: "g", File: "f.jl", Line: 10}},
					want:  "; ┌ @ f.jl:10 within `g`\n",
				},
			},
			wantFinish: "; └\n",
		},
		{
			name:         "line number change updates in place",
			bracketOuter: true,
			steps: []step{
				{
					chain: Chain{{Function: "g", File: "f.jl", Line: 10}},
					want:  "; ┌ @ f.jl:10 within `g`\n",
				},
				{
					chain: Chain{{Function: "g", File: "f.jl", Line: 11}},
					want:  "; │ @ f.jl:11 within `g`\n",
				},
			},
			wantFinish: "; └\n",
		},
		{
			name: "unbracketed outer frame",
			steps: []step{
				{
					chain: Chain{{Function: "outer", File: "out.jl", Line: 1}},
					want:  ";  @ out.jl:1 within `outer`\n",
				},
			},
			wantFinish: "",
		},
		{
			name: "sibling inlinee closes and reopens",
			steps: []step{
				{
					chain: Chain{
						{Function: "inner", File: "in.jl", Line: 5},
						{Function: "outer", File: "out.jl", Line: 1},
					},
					want: ";  @ out.jl:1 within `outer`\n" +
						"; ┌ @ in.jl:5 within `inner`\n",
				},
				{
					chain: Chain{
						{Function: "inner2", File: "in2.jl", Line: 7},
						{Function: "outer", File: "out.jl", Line: 1},
					},
					want: "; └\n" +
						"; ┌ @ in2.jl:7 within `inner2`\n",
				},
			},
			wantFinish: "; └\n",
		},
		{
			name: "recursive frames fold onto one line",
			steps: []step{
				{
					chain: Chain{
						{Function: "f", File: "a.jl", Line: 3},
						{Function: "f", File: "a.jl", Line: 2},
						{Function: "g", File: "b.jl", Line: 1},
					},
					want: ";  @ b.jl:1 within `g`\n" +
						"; ┌ @ a.jl:2 within `f` @ a.jl:3\n",
				},
				// Same chain again: nothing changed, nothing printed.
				{
					chain: Chain{
						{Function: "f", File: "a.jl", Line: 3},
						{Function: "f", File: "a.jl", Line: 2},
						{Function: "g", File: "b.jl", Line: 1},
					},
					want: "",
				},
				// One recursion level deeper: still a single bracket
				// level, the whole folded run is reprinted in place.
				{
					chain: Chain{
						{Function: "f", File: "a.jl", Line: 4},
						{Function: "f", File: "a.jl", Line: 3},
						{Function: "f", File: "a.jl", Line: 2},
						{Function: "g", File: "b.jl", Line: 1},
					},
					want: "; │ @ a.jl:2 within `f` @ a.jl:3 @ a.jl:4\n",
				},
			},
			wantFinish: "; └\n",
		},
		{
			name:       "recursion without collapsing nests",
			noCollapse: true,
			steps: []step{
				{
					chain: Chain{
						{Function: "f", File: "a.jl", Line: 3},
						{Function: "f", File: "a.jl", Line: 2},
						{Function: "g", File: "b.jl", Line: 1},
					},
					want: ";  @ b.jl:1 within `g`\n" +
						"; ┌ @ a.jl:2 within `f`\n" +
						"; │┌ @ a.jl:3 within `f`\n",
				},
			},
			wantFinish: "; └└\n",
		},
		{
			name:         "inner line update keeps outer context",
			bracketOuter: true,
			steps: []step{
				{
					chain: Chain{
						{Function: "h", File: "hh.jl", Line: 11},
						{Function: "g", File: "gg.jl", Line: 2},
					},
					want: "; ┌ @ gg.jl:2 within `g`\n" +
						"; │┌ @ hh.jl:11 within `h`\n",
				},
				{
					chain: Chain{
						{Function: "h", File: "hh.jl", Line: 12},
						{Function: "g", File: "gg.jl", Line: 2},
					},
					want: "; ││ @ hh.jl:12 within `h`\n",
				},
			},
			wantFinish: "; └└\n",
		},
		{
			name:         "unknown and zero lines print bare file",
			bracketOuter: true,
			steps: []step{
				{
					chain: Chain{{Function: "g", File: "f.jl", Line: LineUnknown}},
					want:  "; ┌ @ f.jl within `g`\n",
				},
				{
					chain: Chain{{Function: "g", File: "f.jl", Line: 0}},
					want:  "; │ @ f.jl within `g`\n",
				},
			},
			wantFinish: "; └\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPrinter("; ", tt.bracketOuter)
			if tt.noCollapse {
				p.SetCollapseRecursive(false)
			}
			for i, st := range tt.steps {
				var buf strings.Builder
				p.Emit(&buf, st.chain)
				if got := buf.String(); got != st.want {
					t.Fatalf("step %d: got\n%q\nwant\n%q", i, got, st.want)
				}
				if want := contextDepth(p.context, !tt.noCollapse); p.Depth() != want {
					t.Fatalf("step %d: depth = %d, context implies %d", i, p.Depth(), want)
				}
			}
			var buf strings.Builder
			p.Finish(&buf)
			if got := buf.String(); got != tt.wantFinish {
				t.Errorf("Finish: got %q, want %q", got, tt.wantFinish)
			}
			if p.Depth() != 0 || len(p.context) != 0 {
				t.Errorf("Finish left depth=%d context=%d", p.Depth(), len(p.context))
			}
		})
	}
}

func TestPrinterEmptyChainLeavesContextOpen(t *testing.T) {
	p := NewPrinter("; ", true)
	var buf strings.Builder
	p.Emit(&buf, Chain{{Function: "g", File: "f.jl", Line: 10}})
	buf.Reset()

	// A stretch with no debug info must not close anything.
	p.Emit(&buf, nil)
	if buf.String() != "" {
		t.Fatalf("empty chain produced output %q", buf.String())
	}
	p.Emit(&buf, Chain{{Function: "g", File: "f.jl", Line: 10}})
	if buf.String() != "" {
		t.Fatalf("re-emitting the open chain produced output %q", buf.String())
	}
}

func TestPrinterVerbosityNone(t *testing.T) {
	p := NewPrinter("; ", true)
	p.SetVerbosity(VerbosityNone)
	var buf strings.Builder
	p.Emit(&buf, Chain{{Function: "g", File: "f.jl", Line: 10}})
	p.Finish(&buf)
	if buf.String() != "" {
		t.Fatalf("VerbosityNone produced output %q", buf.String())
	}
}

func TestPrinterHooks(t *testing.T) {
	var h Hooks = NewPrinter("; ", false)
	var buf strings.Builder
	h.FunctionStart(&buf, Frame{Function: "main", File: "m.jl", Line: 1})
	h.Instruction(&buf, Chain{
		{Function: "inl", File: "i.jl", Line: 4},
		{Function: "main", File: "m.jl", Line: 2},
	})
	h.BlockEnd(&buf)
	want := ";  @ m.jl:1 within `main`\n" +
		";  @ m.jl:2 within `main`\n" +
		"; ┌ @ i.jl:4 within `inl`\n" +
		"; └\n"
	if got := buf.String(); got != want {
		t.Fatalf("got\n%q\nwant\n%q", got, want)
	}
}
