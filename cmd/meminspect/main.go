package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/abi"
	"github.com/wippyai/wasm-guestmem/engine"
	"github.com/wippyai/wasm-guestmem/track"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core wasm module")
		dumpSpec    = flag.String("dump", "", "Hex dump of guest memory (ADDR:LEN, decimal or 0x hex)")
		elemType    = flag.String("elem", "", "Typed view element type (u8..s64, f32, f64, bool, char, string)")
		elemAddr    = flag.Uint("addr", 0, "Start address for -elem")
		elemCount   = flag.Uint("count", 1, "Element count for -elem")
		allocSpec   = flag.String("alloc", "", "Guest allocator smoke test (SIZE:ALIGN)")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: meminspect -wasm <file.wasm> [-dump ADDR:LEN]")
		fmt.Fprintln(os.Stderr, "       meminspect -wasm <file.wasm> -elem TYPE -addr A [-count N]")
		fmt.Fprintln(os.Stderr, "       meminspect -wasm <file.wasm> -alloc SIZE:ALIGN")
		fmt.Fprintln(os.Stderr, "       meminspect -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       meminspect -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		engine.SetLogger(logger)
	}

	if *interactive {
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *dumpSpec, *elemType, uint32(*elemAddr), uint32(*elemCount), *allocSpec, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, dumpSpec, elemType string, elemAddr, elemCount uint32, allocSpec string, listOnly bool) error {
	ctx := context.Background()

	// Read module
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	module, err := eng.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	instance, err := module.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer instance.Close(ctx)

	// Show module info
	fmt.Printf("Module: %s\n", wasmFile)
	mem := instance.Memory()
	if sizer, ok := mem.(guestmem.MemorySizer); ok {
		fmt.Printf("Memory: %d bytes\n", sizer.Size())
	}

	exports := instance.ExportedFunctions()
	fmt.Printf("Exports: %d\n", len(exports))

	if listOnly {
		fmt.Printf("\nExported functions:\n")
		for _, name := range exports {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	didWork := false

	if dumpSpec != "" {
		if mem == nil {
			return fmt.Errorf("module exports no memory")
		}
		addr, length, err := parsePair(dumpSpec)
		if err != nil {
			return fmt.Errorf("parse -dump %q: %w", dumpSpec, err)
		}
		data, err := mem.Read(addr, length)
		if err != nil {
			return fmt.Errorf("read memory: %w", err)
		}
		fmt.Printf("\n%s", formatHexDump(data, addr))
		didWork = true
	}

	if elemType != "" {
		if mem == nil {
			return fmt.Errorf("module exports no memory")
		}
		if err := typedView(os.Stdout, mem, elemType, elemAddr, elemCount); err != nil {
			return err
		}
		didWork = true
	}

	if allocSpec != "" {
		size, align, err := parsePair(allocSpec)
		if err != nil {
			return fmt.Errorf("parse -alloc %q: %w", allocSpec, err)
		}
		if err := allocSmoke(instance, size, align); err != nil {
			return err
		}
		didWork = true
	}

	if !didWork {
		fmt.Printf("\nNothing to do. Use -dump, -elem, -alloc, -list or -i.\n")
	}

	return nil
}

// typedView prints elemCount values of the named WIT type starting at
// elemAddr, one per line, stepping by the type's stride.
func typedView(w io.Writer, mem guestmem.Memory, typeName string, elemAddr, elemCount uint32) error {
	t, err := abi.ParseType(typeName)
	if err != nil {
		return err
	}
	stride, err := abi.Stride(t)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s[%d] at 0x%x (stride %d):\n", typeName, elemCount, elemAddr, stride)
	for i := uint32(0); i < elemCount; i++ {
		addr := elemAddr + i*stride
		v, err := abi.ReadValue(mem, addr, t)
		if err != nil {
			return fmt.Errorf("read element %d at 0x%x: %w", i, addr, err)
		}
		fmt.Fprintf(w, "  [%d] 0x%08x  %s\n", i, addr, formatValue(t, v))
	}
	return nil
}

// allocSmoke allocates one span through the guest allocator, frees it,
// and reports the tracked counters.
func allocSmoke(instance *engine.Instance, size, align uint32) error {
	if align == 0 || align&(align-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two", align)
	}

	tracked := track.New(instance.Allocator())
	ptr, err := tracked.Alloc(size, align)
	if err != nil {
		return fmt.Errorf("alloc %d:%d: %w", size, align, err)
	}
	fmt.Printf("\nAllocated %d bytes (align %d) at 0x%x\n", size, align, ptr)
	if ptr%align != 0 {
		fmt.Printf("WARNING: address 0x%x is not %d-aligned\n", ptr, align)
	}

	tracked.Free(ptr, size, align)
	stats := tracked.Stats()
	fmt.Printf("Stats: %d allocs, %d frees, %d live\n", stats.Allocs, stats.Frees, stats.Live)
	return nil
}

// parsePair splits "A:B" and parses both halves as uint32 (base 0, so
// 0x-prefixed hex works).
func parsePair(s string) (uint32, uint32, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want two values separated by a colon")
	}
	a, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseUint(parts[1], 0, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(a), uint32(b), nil
}

// formatHexDump renders data in 16-byte rows with the guest address in the
// left column and printable ASCII on the right.
func formatHexDump(data []byte, base uint32) string {
	var b strings.Builder
	for row := 0; row < len(data); row += 16 {
		end := row + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "%08x  ", base+uint32(row))
		for i := row; i < row+16; i++ {
			if i == row+8 {
				b.WriteByte(' ')
			}
			if i < end {
				fmt.Fprintf(&b, "%02x ", data[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for i := row; i < end; i++ {
			c := data[i]
			if c < 0x20 || c > 0x7E {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// formatValue renders a value read by abi.ReadValue. Chars and strings are
// quoted; everything else prints with %v.
func formatValue(t wit.Type, v any) string {
	switch t.(type) {
	case wit.Char:
		return fmt.Sprintf("%q", v)
	case wit.String:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
