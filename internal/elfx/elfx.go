// Package elfx opens ELF binaries for disassembly: it memory-maps the
// file, locates the text region, and indexes the symbol tables so that
// functions can be found by name and addresses named symbolically.
package elfx

import (
	"debug/elf"
	"fmt"
	"os"
	"sort"
	"syscall"

	"github.com/ianlancetaylor/demangle"
)

type Image struct {
	Path  string
	File  *elf.File
	All   []byte
	Loads []Seg
	Text  Section
	// Syms holds the defined symbols from .symtab and .dynsym merged,
	// sorted by address.
	Syms []Sym

	f         *os.File
	demangled map[string]string
	byAddr    map[uint64]int
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Sym is a defined symbol. Size may be zero when the symbol table does
// not record one; SymbolExtent computes a bound in that case.
type Sym struct {
	Name   string
	Addr   uint64
	Size   uint64
	IsFunc bool
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im := &Image{
		Path:      path,
		File:      f,
		All:       all,
		f:         of,
		demangled: make(map[string]string),
	}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  uint64(p.Vaddr),
			Off:    uint64(p.Off),
			Filesz: uint64(p.Filesz),
			Flags:  p.Flags,
		})
	}

	if s := f.Section(".text"); s != nil {
		im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
	}
	// Fallback if stripped: the first executable load segment.
	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}

	im.loadSymbols()
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Machine reports the target architecture of the binary.
func (im *Image) Machine() elf.Machine {
	return im.File.Machine
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns a subslice of the mapped file corresponding to the virtual address range [va, va+size).
// It returns (nil, false) if the VA is unmapped or the range is out of bounds.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// loadSymbols merges .symtab and .dynsym into one address-sorted list
// of defined symbols. Dynamic symbols only fill gaps: a static symbol
// at the same address wins.
func (im *Image) loadSymbols() {
	im.byAddr = make(map[uint64]int)
	add := func(syms []elf.Symbol, err error) {
		if err != nil {
			return
		}
		for _, sym := range syms {
			if sym.Value == 0 || sym.Name == "" {
				continue
			}
			if _, seen := im.byAddr[sym.Value]; seen {
				continue
			}
			im.byAddr[sym.Value] = len(im.Syms)
			im.Syms = append(im.Syms, Sym{
				Name:   sym.Name,
				Addr:   sym.Value,
				Size:   sym.Size,
				IsFunc: elf.ST_TYPE(sym.Info) == elf.STT_FUNC,
			})
		}
	}
	add(im.File.Symbols())
	add(im.File.DynamicSymbols())

	sort.Slice(im.Syms, func(i, j int) bool { return im.Syms[i].Addr < im.Syms[j].Addr })
	for i, sym := range im.Syms {
		im.byAddr[sym.Addr] = i
	}
}

// Demangle returns the human-readable form of a mangled symbol name,
// caching results. Names that do not demangle are returned unchanged.
func (im *Image) Demangle(name string) string {
	if out, ok := im.demangled[name]; ok {
		return out
	}
	out := demangle.Filter(name, demangle.NoClones)
	im.demangled[name] = out
	return out
}

// StaticSymbolNameAt returns the demangled name of the symbol defined
// exactly at addr, if any.
func (im *Image) StaticSymbolNameAt(addr uint64) (string, bool) {
	i, ok := im.byAddr[addr]
	if !ok {
		return "", false
	}
	return im.Demangle(im.Syms[i].Name), true
}

// FindFunction locates a function symbol by name, matching either the
// raw or the demangled form.
func (im *Image) FindFunction(name string) (Sym, bool) {
	for _, sym := range im.Syms {
		if !sym.IsFunc {
			continue
		}
		if sym.Name == name || im.Demangle(sym.Name) == name {
			return sym, true
		}
	}
	return Sym{}, false
}

// Functions returns the function symbols in the text region, in
// address order.
func (im *Image) Functions() []Sym {
	var out []Sym
	for _, sym := range im.Syms {
		if sym.IsFunc && im.inText(sym.Addr) {
			out = append(out, sym)
		}
	}
	return out
}

func (im *Image) inText(va uint64) bool {
	return im.Text.Size != 0 && va >= im.Text.VA && va < im.Text.VA+im.Text.Size
}

// SymbolExtent returns how many bytes belong to the symbol at addr.
// When the symbol table records no size, the distance to the nearest
// symbol above (or the end of the text region) is used instead.
func (im *Image) SymbolExtent(addr uint64) uint64 {
	if i, ok := im.byAddr[addr]; ok && im.Syms[i].Size != 0 {
		return im.Syms[i].Size
	}
	if !im.inText(addr) {
		return 0
	}
	lo := uint64(0)
	hi := im.Text.VA + im.Text.Size
	setlo := false
	for _, sym := range im.Syms {
		if !im.inText(sym.Addr) {
			continue
		}
		if sym.Addr <= addr && sym.Addr >= lo {
			lo = sym.Addr
			setlo = true
		}
		if sym.Addr > addr && sym.Addr < hi {
			hi = sym.Addr
		}
	}
	if setlo {
		return hi - lo
	}
	return 0
}

// FuncBytes returns the machine code of the function at sym.
func (im *Image) FuncBytes(sym Sym) ([]byte, error) {
	size := sym.Size
	if size == 0 {
		size = im.SymbolExtent(sym.Addr)
	}
	if size == 0 {
		return nil, fmt.Errorf("elfx: could not determine size of %s", sym.Name)
	}
	b, ok := im.SliceVA(sym.Addr, size)
	if !ok {
		return nil, fmt.Errorf("elfx: %s at %#x is not mapped", sym.Name, sym.Addr)
	}
	return b, nil
}
