// Package colorize applies terminal syntax highlighting to assembly
// listings via chroma. Colors are skipped when ASMLENS_NO_COLOR is set.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	// Try lexers in order of preference (GNU as first, it understands
	// both ARM and x86 listings)
	candidates := []string{"gas", "GAS", "armasm", "nasm"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getListingStyle returns the listing style with fallbacks
func getListingStyle() *chroma.Style {
	candidates := []string{"asmlens-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	// Try high-color first, then fallback
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Enabled reports whether colorized output is allowed.
func Enabled() bool {
	return os.Getenv("ASMLENS_NO_COLOR") == ""
}

// Listing highlights a whole assembly listing. On any failure the
// input is returned unchanged, so callers can print the result
// unconditionally.
func Listing(code string) string {
	if !Enabled() {
		return code
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code
	}

	_ = AsmlensDark // force style registration

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getListingStyle(), iterator); err != nil {
		return code
	}
	return buf.String()
}

// Line highlights a single listing line.
func Line(line string) string {
	out := Listing(line)
	// Tokenising adds no trailing newline for a bare line, but guard
	// against formatter quirks.
	return strings.TrimSuffix(out, "\n")
}
