/*
	Copyright 2015 Franc[e]sco (lolisamurai@tfwno.gf)
	This file is part of go-hachi.
	go-hachi is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.
	go-hachi is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.
	You should have received a copy of the GNU General Public License
	along with go-hachi. If not, see <http://www.gnu.org/licenses/>.
*/

// Package tview implements a terminal debugger driver built on tview and
// tcell.
//
// The screen is drawn with half block characters, two pixels per cell, next
// to panes showing the registers, the stack and a disassembly around PC.
// Space pauses, n steps one instruction while paused, Esc or Ctrl+C quits.
// Single steps go through the host, so the fault policy applies to them as
// it does to frames. Keypad input uses host.QwertyLayout.
package tview

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/Francesco149/hachivm/host"
	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rivo/tview"
)

// upper half block: foreground is the top pixel, background the bottom one
const halfBlock = '▀'

var (
	pixelOn  = tcell.ColorWhite
	pixelOff = tcell.ColorBlack
)

// Driver is a tview based debugger.
type Driver struct {
	app     *tview.Application
	screen  tcell.Screen
	display *tview.Box
	state   *tview.TextView
	stack   *tview.TextView
	code    *tview.TextView
	status  *tview.TextView
	c       *hachi.Chip8
	last    hachi.Snapshot
	latch   host.KeyLatch
	beeping bool
	paused  bool
	err     error
	run     host.Runner
}

func (d *Driver) Init(c *hachi.Chip8) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "tcell")
	}

	d.c = c
	d.err = nil
	d.paused = false
	d.screen = s
	d.app = tview.NewApplication().SetScreen(s)

	d.display = tview.NewBox().SetDrawFunc(d.drawDisplay)
	d.display.SetBorder(true).SetTitle(" CHIP-8 ")

	newTextView := func(title string) *tview.TextView {
		tv := tview.NewTextView().SetDynamicColors(true)
		tv.SetBorder(true).SetTitle(title)
		return tv
	}
	d.state = newTextView(" State ")
	d.stack = newTextView(" Stack ")
	d.code = newTextView(" Code ")
	d.status = tview.NewTextView().SetDynamicColors(true)

	top := tview.NewFlex().
		AddItem(d.display, hachi.Width+2, 0, false).
		AddItem(d.state, 0, 1, false)
	bottom := tview.NewFlex().
		AddItem(d.code, 0, 2, false).
		AddItem(d.stack, 0, 1, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, hachi.Height/2+2, 0, false).
		AddItem(bottom, 0, 1, false).
		AddItem(d.status, 1, 0, false)

	d.app.SetRoot(root, true).SetInputCapture(d.handleKey)
	d.refresh()
	return nil
}

func (d *Driver) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		d.app.Stop()
		return nil
	case tcell.KeyRune:
	default:
		return event
	}

	switch r := event.Rune(); r {
	case ' ':
		d.paused = !d.paused
		d.refresh()
	case 'n':
		if d.paused && d.err == nil && d.run != nil {
			if err := d.run.Step(); err != nil {
				d.stop(err)
			}
			d.last = d.c.Snapshot()
			d.refresh()
		}
	default:
		if k, ok := host.KeyForRune(r); ok {
			d.latch.Press(d.c, k, time.Now())
		}
	}
	return nil
}

func (d *Driver) drawDisplay(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	x, y, width, height = d.display.GetInnerRect()
	for row := 0; row < hachi.Height/2 && row < height; row++ {
		for col := 0; col < hachi.Width && col < width; col++ {
			top, bottom := pixelOff, pixelOff
			if d.last.Pixel(col, row*2) != 0 {
				top = pixelOn
			}
			if d.last.Pixel(col, row*2+1) != 0 {
				bottom = pixelOn
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			screen.SetContent(x+col, y+row, halfBlock, nil, style)
		}
	}
	return x, y, width, height
}

// refresh updates the text panes from the machine state.
func (d *Driver) refresh() {
	c := d.c

	var sb strings.Builder
	for i, v := range c.V {
		fmt.Fprintf(&sb, "V%X: %02X", i, v)
		if i%4 == 3 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString("  ")
		}
	}
	fmt.Fprintf(&sb, "\nI: %04X  PC: %04X  SP: %v\n", c.I, c.PC, c.SP)
	fmt.Fprintf(&sb, "DT: %02X  ST: %02X\n", c.Timers.Delay, c.Timers.Sound)
	fmt.Fprintf(&sb, "Keypad: %v\n", c.Keypad)
	d.state.SetText(sb.String())

	sb.Reset()
	for i := c.SP; i >= 0; i-- {
		fmt.Fprintf(&sb, "%2d  %04X\n", i, c.Stack[i])
	}
	d.stack.SetText(sb.String())

	d.code.SetText(d.disassembly(8))

	switch {
	case d.err != nil && !errors.Is(d.err, host.ErrQuit):
		d.status.SetText(fmt.Sprintf("[red]halted:[-] %v  (Esc to exit)", d.err))
	case d.err != nil:
		d.status.SetText("stopped  (Esc to exit)")
	case d.paused:
		d.status.SetText("[yellow]paused[-]  space: resume  n: step")
	default:
		d.status.SetText("running  space: pause  Esc: quit")
	}
}

// disassembly lists n instructions starting at PC.
func (d *Driver) disassembly(n int) string {
	pc := int(d.c.PC)
	end := pc + 2*n
	if end > hachi.MemorySize {
		end = hachi.MemorySize
	}
	if pc >= end {
		return ""
	}

	var sb strings.Builder
	for i, l := range hachi.Disassemble(d.c.Memory[pc:end], uint16(pc)) {
		marker := "  "
		if i == 0 {
			marker = "[green]>[-] "
		}
		fmt.Fprintf(&sb, "%s%04X  %04X  %v\n", marker, l.Address, l.Opcode(), l)
	}
	return sb.String()
}

func (d *Driver) stop(err error) {
	d.err = err
	if errors.Is(err, host.ErrQuit) || errors.Is(err, context.Canceled) {
		d.app.Stop()
	}
}

func (d *Driver) runFrame() {
	if d.err != nil || d.paused || d.run == nil {
		return
	}
	if err := d.run.Frame(); err != nil {
		d.stop(err)
	}
	d.refresh()
}

func (d *Driver) Poll(c *hachi.Chip8) bool {
	d.latch.Expire(c, time.Now())
	return false
}

func (d *Driver) Present(s hachi.Snapshot, c *hachi.Chip8) { d.last = s }

func (d *Driver) Beep(active bool) {
	if active && !d.beeping {
		_ = d.screen.Beep()
	}
	d.beeping = active
}

// Loop runs the tview application. Frames are queued on its event
// goroutine at the host's timer rate so that the machine is only touched
// there.
func (d *Driver) Loop(ctx context.Context, r host.Runner) error {
	d.run = r
	interval := time.Second / time.Duration(r.TimerHz())
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				d.app.QueueUpdate(func() { d.stop(ctx.Err()) })
				return
			case <-ticker.C:
				d.app.QueueUpdateDraw(d.runFrame)
			}
		}
	}()

	if err := d.app.Run(); err != nil {
		return errors.Wrap(err, "tview")
	}
	return d.err
}

func (d *Driver) Close() error {
	d.run = nil
	return nil
}

// -----------------------------------------------------------------------------

func init() {
	err := host.RegisterDriver("tview", &Driver{})
	if err != nil {
		log.Fatal(err)
	}
}
