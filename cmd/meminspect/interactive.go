package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/abi"
	"github.com/wippyai/wasm-guestmem/engine"
	"github.com/wippyai/wasm-guestmem/track"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	addrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	defaultDumpLen = 256
	maxTableRows   = 6
	maxViewElems   = 16
)

const helpText = `alloc SIZE ALIGN     allocate through the guest allocator
free ADDR            free a live allocation
peek ADDR [LEN]      move the hex dump window
poke ADDR BYTE...    write bytes into guest memory
view TYPE ADDR [N]   decode N elements of TYPE at ADDR
call FN [ARG...]     call an exported function (u64 args)
quit                 exit`

type inspectModel struct {
	loadErr  error
	err      error
	engine   *engine.Engine
	instance *engine.Instance
	mem      guestmem.Memory
	alloc    *track.Allocator
	filename string
	result   string

	dump        viewport.Model
	dumpContent string
	input       textinput.Model
	dumpAddr    uint32
	dumpLen     uint32
	memSize     uint32
	ready       bool
}

func newInspectModel(filename string) *inspectModel {
	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Prompt = "> "
	ti.Focus()

	return &inspectModel{
		filename: filename,
		input:    ti,
		dumpLen:  defaultDumpLen,
	}
}

type loadedMsg struct {
	err      error
	engine   *engine.Engine
	instance *engine.Instance
}

func (m *inspectModel) Init() tea.Cmd {
	return tea.Batch(m.loadModule, textinput.Blink)
}

func (m *inspectModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := eng.Load(ctx, data)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{engine: eng, instance: inst}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.closeAll()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			return m, m.execute(line)

		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.dump, cmd = m.dump.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		dumpHeight := msg.Height - 16
		if dumpHeight < 4 {
			dumpHeight = 4
		}
		if !m.ready {
			m.dump = viewport.New(msg.Width, dumpHeight)
			m.dump.SetContent(m.dumpContent)
			m.ready = true
		} else {
			m.dump.Width = msg.Width
			m.dump.Height = dumpHeight
		}

	case loadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.engine = msg.engine
		m.instance = msg.instance
		m.mem = m.instance.Memory()
		m.alloc = track.New(m.instance.Allocator())
		if sizer, ok := m.mem.(guestmem.MemorySizer); ok {
			m.memSize = sizer.Size()
		}
		m.refreshDump()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectModel) execute(line string) tea.Cmd {
	m.err = nil
	m.result = ""

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "quit", "q", "exit":
		m.closeAll()
		return tea.Quit

	case "help":
		m.result = helpText
		return nil
	}

	if m.instance == nil {
		m.err = fmt.Errorf("module not loaded yet")
		return nil
	}

	switch cmd := fields[0]; cmd {
	case "alloc":
		m.cmdAlloc(fields[1:])
	case "free":
		m.cmdFree(fields[1:])
	case "peek":
		m.cmdPeek(fields[1:])
	case "poke":
		m.cmdPoke(fields[1:])
	case "view":
		m.cmdView(fields[1:])
	case "call":
		m.cmdCall(fields[1:])
	default:
		m.err = fmt.Errorf("unknown command %q (try: help)", cmd)
	}
	return nil
}

func (m *inspectModel) cmdAlloc(args []string) {
	if len(args) != 2 {
		m.err = fmt.Errorf("usage: alloc SIZE ALIGN")
		return
	}
	size, err1 := parseU32(args[0])
	align, err2 := parseU32(args[1])
	if err1 != nil || err2 != nil {
		m.err = fmt.Errorf("usage: alloc SIZE ALIGN")
		return
	}
	if align == 0 || align&(align-1) != 0 {
		m.err = fmt.Errorf("alignment %d is not a power of two", align)
		return
	}

	ptr, err := m.alloc.Alloc(size, align)
	if err != nil {
		m.err = err
		return
	}
	m.result = fmt.Sprintf("allocated %d bytes at 0x%x", size, ptr)
	m.refreshDump()
}

func (m *inspectModel) cmdFree(args []string) {
	if len(args) != 1 {
		m.err = fmt.Errorf("usage: free ADDR")
		return
	}
	addr, err := parseU32(args[0])
	if err != nil {
		m.err = fmt.Errorf("bad address %q: %v", args[0], err)
		return
	}

	var span track.Span
	found := false
	m.alloc.Each(func(s track.Span) bool {
		if s.Addr == addr {
			span = s
			found = true
			return false
		}
		return true
	})
	if !found {
		m.err = fmt.Errorf("0x%x is not a live allocation", addr)
		return
	}

	m.alloc.Free(span.Addr, span.Size, span.Align)
	m.result = fmt.Sprintf("freed %d bytes at 0x%x", span.Size, span.Addr)
	m.refreshDump()
}

func (m *inspectModel) cmdPeek(args []string) {
	if len(args) < 1 || len(args) > 2 {
		m.err = fmt.Errorf("usage: peek ADDR [LEN]")
		return
	}
	if m.mem == nil {
		m.err = fmt.Errorf("module exports no memory")
		return
	}
	addr, err := parseU32(args[0])
	if err != nil {
		m.err = fmt.Errorf("bad address %q: %v", args[0], err)
		return
	}
	if len(args) == 2 {
		length, err := parseU32(args[1])
		if err != nil {
			m.err = fmt.Errorf("bad length %q: %v", args[1], err)
			return
		}
		m.dumpLen = length
	}

	m.dumpAddr = addr
	m.refreshDump()
	m.result = fmt.Sprintf("dump window at 0x%x (+%d)", m.dumpAddr, m.dumpLen)
}

func (m *inspectModel) cmdPoke(args []string) {
	if len(args) < 2 {
		m.err = fmt.Errorf("usage: poke ADDR BYTE...")
		return
	}
	if m.mem == nil {
		m.err = fmt.Errorf("module exports no memory")
		return
	}
	addr, err := parseU32(args[0])
	if err != nil {
		m.err = fmt.Errorf("bad address %q: %v", args[0], err)
		return
	}

	data := make([]byte, 0, len(args)-1)
	for _, f := range args[1:] {
		v, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			m.err = fmt.Errorf("bad byte %q: %v", f, err)
			return
		}
		data = append(data, byte(v))
	}

	if err := m.mem.Write(addr, data); err != nil {
		m.err = err
		return
	}
	m.result = fmt.Sprintf("wrote %d bytes at 0x%x", len(data), addr)
	m.refreshDump()
}

func (m *inspectModel) cmdView(args []string) {
	if len(args) < 2 || len(args) > 3 {
		m.err = fmt.Errorf("usage: view TYPE ADDR [COUNT]")
		return
	}
	if m.mem == nil {
		m.err = fmt.Errorf("module exports no memory")
		return
	}
	t, err := abi.ParseType(args[0])
	if err != nil {
		m.err = err
		return
	}
	addr, err := parseU32(args[1])
	if err != nil {
		m.err = fmt.Errorf("bad address %q: %v", args[1], err)
		return
	}
	count := uint32(1)
	if len(args) == 3 {
		count, err = parseU32(args[2])
		if err != nil {
			m.err = fmt.Errorf("bad count %q: %v", args[2], err)
			return
		}
	}

	stride, err := abi.Stride(t)
	if err != nil {
		m.err = err
		return
	}

	shown := count
	if shown > maxViewElems {
		shown = maxViewElems
	}
	var b strings.Builder
	for i := uint32(0); i < shown; i++ {
		a := addr + i*stride
		v, err := abi.ReadValue(m.mem, a, t)
		if err != nil {
			m.err = fmt.Errorf("element %d at 0x%x: %w", i, a, err)
			return
		}
		if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "[%d]=%s", i, formatValue(t, v))
	}
	if count > shown {
		fmt.Fprintf(&b, "  ... (%d more)", count-shown)
	}
	m.result = fmt.Sprintf("%s @ %s: %s", args[0], args[1], b.String())
}

func (m *inspectModel) cmdCall(args []string) {
	if len(args) < 1 {
		m.err = fmt.Errorf("usage: call FN [ARG...]")
		return
	}

	params := make([]uint64, 0, len(args)-1)
	for _, f := range args[1:] {
		v, err := strconv.ParseUint(f, 0, 64)
		if err != nil {
			m.err = fmt.Errorf("bad argument %q: %v", f, err)
			return
		}
		params = append(params, v)
	}

	results, err := m.instance.Call(context.Background(), args[0], params...)
	if err != nil {
		m.err = err
		return
	}
	if len(results) == 0 {
		m.result = args[0] + " returned"
	} else {
		m.result = fmt.Sprintf("%s returned %v", args[0], results)
	}
	m.refreshDump()
}

func (m *inspectModel) refreshDump() {
	if m.mem == nil {
		m.dumpContent = "module exports no memory"
		m.dump.SetContent(m.dumpContent)
		return
	}

	length := m.dumpLen
	if m.memSize > 0 {
		if m.dumpAddr >= m.memSize {
			m.dumpContent = fmt.Sprintf("0x%x is beyond memory size %d", m.dumpAddr, m.memSize)
			m.dump.SetContent(m.dumpContent)
			return
		}
		if length > m.memSize-m.dumpAddr {
			length = m.memSize - m.dumpAddr
		}
	}

	data, err := m.mem.Read(m.dumpAddr, length)
	if err != nil {
		m.dumpContent = err.Error()
	} else {
		m.dumpContent = formatHexDump(data, m.dumpAddr)
	}
	m.dump.SetContent(m.dumpContent)
}

func (m *inspectModel) allocTable() string {
	var b strings.Builder
	stats := m.alloc.Stats()
	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"Allocations: %d live, %d bytes (%d allocs, %d frees, %d foreign)",
		stats.Live, stats.LiveBytes, stats.Allocs, stats.Frees, stats.ForeignFrees)))
	b.WriteString("\n")

	var spans []track.Span
	m.alloc.Each(func(s track.Span) bool {
		spans = append(spans, s)
		return true
	})
	sort.Slice(spans, func(i, j int) bool { return spans[i].Addr < spans[j].Addr })

	shown := len(spans)
	if shown > maxTableRows {
		shown = maxTableRows
	}
	for _, s := range spans[:shown] {
		b.WriteString(fmt.Sprintf("  %s  %6d bytes  align %d\n",
			addrStyle.Render(fmt.Sprintf("0x%08x", s.Addr)), s.Size, s.Align))
	}
	if len(spans) > shown {
		b.WriteString(fmt.Sprintf("  ... and %d more\n", len(spans)-shown))
	}
	return b.String()
}

func (m *inspectModel) View() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.loadErr))
	}
	if m.instance == nil || !m.ready {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("guestmem inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	if m.memSize > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %d KiB memory", m.memSize/1024)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.dump.View())
	b.WriteString("\n\n")

	b.WriteString(m.allocTable())
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("enter run • ↑/↓ scroll dump • ctrl+c quit • help for commands"))

	return b.String()
}

func (m *inspectModel) closeAll() {
	ctx := context.Background()
	if m.instance != nil {
		m.instance.Close(ctx)
	}
	if m.engine != nil {
		m.engine.Close(ctx)
	}
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func runInteractive(filename string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newInspectModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
