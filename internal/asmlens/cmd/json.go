package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"asmlens/internal/disasm"
	"asmlens/internal/elfx"
)

// Listing is one function's disassembly in the JSON output.
type Listing struct {
	Function string   `json:"function"`
	Mangled  string   `json:"mangled,omitempty"`
	Address  uint64   `json:"address"`
	Size     int      `json:"size"`
	Lines    []string `json:"lines"`
}

func writeJSON(w io.Writer, im *elfx.Image, funcs []elfx.Sym, deps disasm.Deps, cfg disasm.Config, slide int64) error {
	listings := make([]Listing, 0, len(funcs))
	for _, sym := range funcs {
		code, err := im.FuncBytes(sym)
		if err != nil {
			return fmt.Errorf("reading %s: %w", sym.Name, err)
		}

		var buf strings.Builder
		stream := disasm.Stream{Base: sym.Addr, Bytes: code, Slide: slide}
		if err := disasm.Disassemble(&buf, stream, deps, cfg); err != nil {
			return fmt.Errorf("disassembling %s: %w", sym.Name, err)
		}

		l := Listing{
			Function: im.Demangle(sym.Name),
			Address:  sym.Addr,
			Size:     len(code),
			Lines:    strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"),
		}
		if l.Function != sym.Name {
			l.Mangled = sym.Name
		}
		listings = append(listings, l)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listings)
}
