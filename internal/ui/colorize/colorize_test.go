package colorize

import (
	"strings"
	"testing"
)

const sample = "; ┌ @ f.jl:10 within `g`\n\tmov x0, x1\n\tret\n"

func TestListingDisabledReturnsInput(t *testing.T) {
	t.Setenv("ASMLENS_NO_COLOR", "1")
	if Enabled() {
		t.Fatal("Enabled() = true with ASMLENS_NO_COLOR set")
	}
	if got := Listing(sample); got != sample {
		t.Errorf("Listing changed output while disabled:\n%q", got)
	}
}

func TestListingKeepsContent(t *testing.T) {
	t.Setenv("ASMLENS_NO_COLOR", "")
	got := Listing(sample)
	// Escape sequences may be interleaved, but every token of the input
	// must survive.
	for _, want := range []string{"f.jl", "mov", "ret"} {
		if !strings.Contains(got, want) {
			t.Errorf("Listing output lost %q", want)
		}
	}
}

func TestLineHasNoTrailingNewline(t *testing.T) {
	t.Setenv("ASMLENS_NO_COLOR", "")
	if got := Line("\tret"); strings.HasSuffix(got, "\n") {
		t.Errorf("Line() = %q, want no trailing newline", got)
	}
}

func TestLexerAndStyleAvailable(t *testing.T) {
	if getAssemblyLexer() == nil {
		t.Error("no assembly lexer registered")
	}
	if getListingStyle() == nil {
		t.Error("no listing style available")
	}
	if getTerminalFormatter() == nil {
		t.Error("no terminal formatter available")
	}
}
