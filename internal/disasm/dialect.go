package disasm

import "fmt"

// Dialect selects the assembly output syntax.
type Dialect int

const (
	// DialectGNU is AT&T-style syntax on x86 and standard syntax on
	// ARM targets.
	DialectGNU Dialect = iota
	// DialectIntel is Intel-style syntax; only x86 distinguishes it.
	DialectIntel
)

// ParseDialect maps the user-facing syntax names to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "", "att", "gnu":
		return DialectGNU, nil
	case "intel":
		return DialectIntel, nil
	}
	return DialectGNU, fmt.Errorf("disasm: unknown assembly dialect %q", s)
}
