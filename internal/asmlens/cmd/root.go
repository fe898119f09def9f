// Package cmd implements the asmlens command line interface.
package cmd

import (
	"context"
	"debug/elf"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"asmlens/internal/annotate"
	"asmlens/internal/arch/arm64dec"
	"asmlens/internal/arch/x86dec"
	asmlog "asmlens/internal/asmlens/log"
	"asmlens/internal/disasm"
	"asmlens/internal/dwarfx"
	"asmlens/internal/elfx"
	"asmlens/internal/logging"
	"asmlens/internal/ui/colorize"
)

var rootCmd = &cobra.Command{
	Use:   "asmlens <binary> [function]",
	Short: "Annotated disassembly with source lines and inlining brackets",
	Long: `asmlens disassembles a function (or a whole binary) and interleaves
the listing with source locations from DWARF. Inlined code is shown as
bracketed regions, branch targets get local labels, and call targets
are resolved to symbol names.`,
	Example: `# Disassemble one function with source annotations
asmlens ./mylib.so compute_hash

# Intel syntax, raw bytes, no source info
asmlens --dialect intel --bytes --debuginfo none ./prog main

# Every function in the text section, as JSON
asmlens --json ./prog`,
	Args: cobra.RangeArgs(1, 2),
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")

	rootCmd.Flags().String("arch", "", "Override target architecture: arm64 or amd64")
	rootCmd.Flags().String("dialect", "att", "Assembly syntax: att or intel")
	rootCmd.Flags().String("debuginfo", "source", "Source annotations: source or none")
	rootCmd.Flags().BoolP("bytes", "b", false, "Show raw instruction bytes")
	rootCmd.Flags().BoolP("json", "j", false, "Output listings as JSON")
	rootCmd.Flags().BoolP("whole", "w", false, "Disassemble every text function (default when no function is named)")
	rootCmd.Flags().Int64("slide", 0, "Offset from stream addresses to debug-info addresses")
	rootCmd.Flags().Bool("no-collapse", false, "Do not fold recursive inlined frames")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

func run(cmd *cobra.Command, args []string) error {
	dbg, _ := cmd.Flags().GetBool("debug")
	asmlog.Setup(dbg)

	// Setup CPU profiling if requested
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	// Setup memory profiling if requested
	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		defer func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		}()
	}

	logger := logging.NewLogger()
	defer logger.Close()

	im, err := elfx.Open(args[0])
	if err != nil {
		return err
	}
	defer im.Close()

	deps := disasm.Deps{Static: im}
	if dw, err := dwarfx.Load(im.File); err != nil {
		logger.Warn("No debug info, listing without source annotations", "error", err)
	} else {
		deps.Debug = dw
		deps.Frames = dw
	}

	dialectName, _ := cmd.Flags().GetString("dialect")
	dialect, err := disasm.ParseDialect(dialectName)
	if err != nil {
		return err
	}
	archName, _ := cmd.Flags().GetString("arch")
	machine, err := machineFor(archName, im.Machine())
	if err != nil {
		return err
	}
	deps.Decoder, err = decoderFor(machine, dialect)
	if err != nil {
		return err
	}

	verbosityName, _ := cmd.Flags().GetString("debuginfo")
	verbosity, err := annotate.ParseVerbosity(verbosityName)
	if err != nil {
		return err
	}

	cfg := disasm.DefaultConfig()
	cfg.DebugInfo = verbosity
	cfg.ShowBytes, _ = cmd.Flags().GetBool("bytes")
	noCollapse, _ := cmd.Flags().GetBool("no-collapse")
	cfg.CollapseRecursive = !noCollapse
	slide, _ := cmd.Flags().GetInt64("slide")

	whole, _ := cmd.Flags().GetBool("whole")

	var funcs []elfx.Sym
	if len(args) == 2 && !whole {
		sym, ok := im.FindFunction(args[1])
		if !ok {
			return fmt.Errorf("function %q not found in %s", args[1], args[0])
		}
		funcs = []elfx.Sym{sym}
	} else {
		funcs = im.Functions()
		if len(funcs) == 0 {
			return fmt.Errorf("no function symbols in %s", args[0])
		}
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd.OutOrStdout(), im, funcs, deps, cfg, slide)
	}

	color := colorize.Enabled() && term.IsTerminal(os.Stdout.Fd())
	out := cmd.OutOrStdout()
	for i, sym := range funcs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		listing, err := renderFunction(im, sym, deps, cfg, slide)
		if err != nil {
			logger.Error("Disassembly failed", "function", sym.Name, "error", err)
			continue
		}
		if color {
			listing = colorize.Listing(listing)
		}
		fmt.Fprint(out, listing)
	}
	return nil
}

// renderFunction disassembles one function into a plain-text listing.
func renderFunction(im *elfx.Image, sym elfx.Sym, deps disasm.Deps, cfg disasm.Config, slide int64) (string, error) {
	code, err := im.FuncBytes(sym)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "; function %s @ %#x\n", im.Demangle(sym.Name), sym.Addr)
	stream := disasm.Stream{Base: sym.Addr, Bytes: code, Slide: slide}
	if err := disasm.Disassemble(&buf, stream, deps, cfg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// machineFor resolves an --arch override against the binary's own
// machine field.
func machineFor(name string, native elf.Machine) (elf.Machine, error) {
	switch name {
	case "":
		return native, nil
	case "arm64", "aarch64":
		return elf.EM_AARCH64, nil
	case "amd64", "x86_64", "x86-64":
		return elf.EM_X86_64, nil
	}
	return elf.EM_NONE, fmt.Errorf("unknown architecture %q", name)
}

func decoderFor(m elf.Machine, dialect disasm.Dialect) (disasm.Decoder, error) {
	switch m {
	case elf.EM_AARCH64:
		return arm64dec.New(), nil
	case elf.EM_X86_64:
		return x86dec.New(dialect), nil
	}
	return nil, fmt.Errorf("no disassembler for machine %v", m)
}

func Execute() {
	// fang renders styled help; bypass it when output is piped so
	// listings stay machine-readable
	if !term.IsTerminal(os.Stdout.Fd()) {
		os.Setenv("ASMLENS_NO_COLOR", "1")
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
