// Copyright 2025, Adeline Murphy

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/adeline-murphy/rum/cpu"
	"github.com/adeline-murphy/rum/emulator"
)

// Lines of disassembly shown before and after the program counter.
const (
	LISTING_BEFORE = 6
	LISTING_AFTER  = 24
)

// Row is one line of the disassembly listing.
type Row struct {
	Pc     uint32
	LineNo int
	Source string
	Code   cpu.Code
}

// Snapshot is a copy of the machine state, handed from the stepping
// goroutine to the UI goroutine.
type Snapshot struct {
	State    cpu.State
	Fault    error
	Pc       uint32
	Register [cpu.REGISTER_COUNT]uint32
	Ticks    int
	Mapped   int
	Count    int
	Listing  []Row
	Output   string
	Paused   bool
}

type Monitor struct {
	app *tview.Application

	root *tview.Flex

	stateView   *tview.TextView
	listingView *tview.Table
	outputView  *tview.TextView
	statusView  *tview.TextView

	// Owned by the stepping goroutine.
	emu    *emulator.Emulator
	output *bytes.Buffer

	paused   bool
	pausedMu sync.Mutex

	nextStep   bool
	nextStepMu sync.Mutex

	reset   bool
	resetMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewMonitor(ctx context.Context, emu *emulator.Emulator) *Monitor {
	app := tview.NewApplication()

	stateView := tview.NewTextView().SetDynamicColors(true)
	stateView.SetTitle("Machine").SetBorder(true)

	listingView := tview.NewTable().SetBorders(false)
	listingView.SetTitle("Segment 0").SetBorder(true)

	outputView := tview.NewTextView()
	outputView.SetTitle("Console").SetBorder(true)
	outputView.ScrollToEnd()

	statusView := tview.NewTextView().SetDynamicColors(true)

	rightPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(stateView, 0, 2, false).
		AddItem(outputView, 0, 3, false)

	mainPane := tview.NewFlex().
		AddItem(listingView, 0, 3, true).
		AddItem(rightPane, 0, 2, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainPane, 0, 1, true).
		AddItem(statusView, 1, 0, false)

	ctx, cancel := context.WithCancel(ctx)

	output := &bytes.Buffer{}
	emu.Tape.Output = output

	return &Monitor{
		app:  app,
		root: root,

		stateView:   stateView,
		listingView: listingView,
		outputView:  outputView,
		statusView:  statusView,

		emu:    emu,
		output: output,

		ctx:    ctx,
		cancel: cancel,

		paused: true,
	}
}

func (m *Monitor) Stop() {
	m.app.Stop()
	m.cancel()
}

func (m *Monitor) Init() {
	f := func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEscape:
			m.Stop()
			return nil
		}
		switch event.Rune() {
		case 'n':
			m.nextStepMu.Lock()
			m.nextStep = true
			m.nextStepMu.Unlock()
			return nil
		case ' ':
			m.pausedMu.Lock()
			m.paused = !m.paused
			m.pausedMu.Unlock()
			return nil
		case 'r':
			m.resetMu.Lock()
			m.reset = true
			m.resetMu.Unlock()
			return nil
		case 'q':
			m.Stop()
			return nil
		}
		return event
	}
	m.root.SetInputCapture(f)
}

func (m *Monitor) isPaused() bool {
	m.pausedMu.Lock()
	defer m.pausedMu.Unlock()
	return m.paused
}

// Update advances the machine by at most count instructions, and returns
// a snapshot of the result.
func (m *Monitor) Update(count int) (snap Snapshot) {
	forceReset := func() bool {
		m.resetMu.Lock()
		defer m.resetMu.Unlock()
		if m.reset {
			m.reset = false
			return true
		}
		return false
	}
	forceNextStep := func() bool {
		m.nextStepMu.Lock()
		defer m.nextStepMu.Unlock()
		if m.nextStep {
			m.nextStep = false
			return true
		}
		return false
	}

	emu := m.emu

	if forceReset() {
		m.output.Reset()
		emu.Reset()
		m.pausedMu.Lock()
		m.paused = true
		m.pausedMu.Unlock()
	}

	if forceNextStep() {
		count = 1
	} else if m.isPaused() {
		count = 0
	}

	for range count {
		done, _ := emu.Tick()
		if done {
			m.pausedMu.Lock()
			m.paused = true
			m.pausedMu.Unlock()
			break
		}
	}

	snap = Snapshot{
		State:    emu.Cpu.State,
		Fault:    emu.Cpu.Fault,
		Pc:       emu.Cpu.Pc,
		Register: emu.Cpu.Register,
		Ticks:    emu.Ticks(),
		Mapped:   emu.Cpu.Arena.Mapped(),
		Count:    emu.Cpu.Arena.Count(),
		Output:   m.output.String(),
		Paused:   m.isPaused(),
	}

	length, _ := emu.Cpu.Arena.Len(0)
	first := int64(snap.Pc) - LISTING_BEFORE
	first = max(first, 0)
	last := min(int64(snap.Pc)+LISTING_AFTER, int64(length))
	for pc := first; pc < last; pc++ {
		word, err := emu.Cpu.Arena.Load(0, uint32(pc))
		if err != nil {
			break
		}
		row := Row{Pc: uint32(pc), Code: cpu.Code(word)}
		dbg := emu.Program.Debug(uint32(pc))
		if dbg.Statement != nil && dbg.LineNo != 0 && dbg.Index < len(dbg.Codes) && dbg.Codes[dbg.Index] == row.Code {
			row.LineNo = dbg.LineNo
			row.Source = strings.Join(dbg.Words, " ")
		}
		snap.Listing = append(snap.Listing, row)
	}

	return
}

func (m *Monitor) drawState(snap *Snapshot) {
	sv := m.stateView
	sv.Clear()

	fmt.Fprintf(sv, "state:  %v\n", snap.State)
	fmt.Fprintf(sv, "pc:     %08x\n", snap.Pc)
	for n, value := range snap.Register {
		fmt.Fprintf(sv, "r%d:     %08x %d\n", n, value, value)
	}
	fmt.Fprintf(sv, "mapped: %d/%d\n", snap.Mapped, snap.Count)
	fmt.Fprintf(sv, "ticks:  %d\n", snap.Ticks)
	if snap.Fault != nil {
		fmt.Fprintf(sv, "[red]%v[-]\n", tview.Escape(snap.Fault.Error()))
	}
}

func (m *Monitor) drawListing(snap *Snapshot) {
	lv := m.listingView
	lv.Clear()

	for i, elem := range []string{"pc", "code", "disassembly", "line", "source"} {
		cell := tview.NewTableCell(elem).
			SetAttributes(tcell.AttrBold).
			SetAlign(tview.AlignCenter)
		lv.SetCell(0, i, cell).SetFixed(1, i)
	}

	for i, row := range snap.Listing {
		line := ""
		if row.LineNo != 0 {
			line = fmt.Sprintf("%d", row.LineNo)
		}
		for j, content := range []string{
			fmt.Sprintf("%08x", row.Pc),
			fmt.Sprintf("%08x", uint32(row.Code)),
			row.Code.String(),
			line,
			row.Source,
		} {
			cell := tview.NewTableCell(tview.Escape(content))
			if row.Pc == snap.Pc {
				cell.SetAttributes(tcell.AttrReverse)
			} else if row.Code == 0 {
				cell.SetTextColor(tcell.ColorDimGray)
			}
			lv.SetCell(i+1, j, cell)
		}
	}
}

func (m *Monitor) drawStatus(snap *Snapshot) {
	mode := "running"
	if snap.Paused {
		mode = "paused"
	}
	m.statusView.SetText(fmt.Sprintf("[yellow]%s[-]  n: step  space: run/pause  r: reset  q: quit", mode))
}

func (m *Monitor) Draw(snap *Snapshot) {
	m.drawState(snap)
	m.drawListing(snap)
	m.outputView.SetText(snap.Output)
	m.drawStatus(snap)
}

func main() {
	var compile string
	var input string
	var tolerate bool
	var rate int

	flag.StringVar(&compile, "c", "", ".uma file to assemble")
	flag.StringVar(&input, "i", "", "Console input file")
	flag.BoolVar(&tolerate, "tolerate-input-errors", false, "Ignore console input errors")
	flag.IntVar(&rate, "rate", 1000, "Instructions per refresh while running")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Cpu.TolerateInputErrors = tolerate

	switch {
	case len(compile) != 0 && flag.NArg() == 0:
		inf, err := os.Open(compile)
		if err != nil {
			logrus.Fatalf("%v: %v", compile, err)
		}
		asm := &cpu.Assembler{}
		asm.PredefineAll(emu.Defines())
		emu.Program, err = asm.Parse(inf)
		inf.Close()
		if err != nil {
			logrus.Fatalf("%v: %v", compile, err)
		}
	case len(compile) == 0 && flag.NArg() == 1:
		inf, err := os.Open(flag.Arg(0))
		if err != nil {
			logrus.Fatalf("%v: %v", flag.Arg(0), err)
		}
		emu.Program = &cpu.Program{}
		err = emu.Program.Unmarshal(inf)
		inf.Close()
		if err != nil {
			logrus.Fatalf("%v: %v", flag.Arg(0), err)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	m := NewMonitor(context.Background(), emu)

	if len(input) != 0 {
		inf, err := os.Open(input)
		if err != nil {
			logrus.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	err := emu.Reset()
	if err != nil {
		logrus.Fatalf("%v", err)
	}

	m.Init()
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			snap := m.Update(rate)
			m.app.QueueUpdateDraw(func() {
				m.Draw(&snap)
			})

			select {
			case <-ticker.C:
			case <-m.ctx.Done():
				return
			}
		}
	}()

	// The terminal belongs to tview.
	logrus.SetOutput(io.Discard)
	err = m.app.SetRoot(m.root, true).SetFocus(m.root).Run()
	logrus.SetOutput(os.Stderr)
	if err != nil {
		logrus.Fatal(err)
	}
}
