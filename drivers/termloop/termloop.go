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

// Package termloop implements a terminal driver for termloop.
//
// termloop owns the event loop, so the driver is a host.Looper: host frames
// run from the Draw method of an entity, with termloop's frame rate set to
// the host's timer rate. Keys are read from the qwerty layout in host.QwertyLayout, plus the
// arrow keys and enter for 8, 4, 6, 2 and 5. Ctrl+C quits.
package termloop

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/Francesco149/hachivm/host"
	tl "github.com/JoelOtter/termloop"
	"github.com/pkg/errors"
)

// special keys, on top of the rune layout
var keyMap = map[tl.Key]uint8{
	tl.KeyArrowUp:    0x8,
	tl.KeyArrowLeft:  0x4,
	tl.KeyArrowRight: 0x6,
	tl.KeyArrowDown:  0x2,
	tl.KeyEnter:      0x5,
}

// A TermloopDriver is a terminal-based driver that uses the termloop library.
// It shows the current machine state in real time and the screen.
type TermloopDriver struct {
	g                 *tl.Game
	c                 *hachi.Chip8
	memory            *tl.Text
	registers         *tl.Text
	pointersAndTimers *tl.Text
	devices           *tl.Text
	status            *tl.Text
	stack             []*tl.Text
	events            [10]*tl.Text
	screen            [hachi.Width][hachi.Height]*tl.Rectangle
	lastScreen        hachi.Snapshot
	latch             host.KeyLatch
	beeping           bool
	run               host.Runner
	ctx               context.Context
	err               error
}

func (d *TermloopDriver) printEvent(s string) {
	for i := len(d.events) - 1; i > 0; i-- {
		d.events[i].SetText(d.events[i-1].Text())
	}
	d.events[0].SetText(s)
}

// keyFor maps a termloop event to a keypad key.
func keyFor(ev tl.Event) (uint8, bool) {
	if ev.Type != tl.EventKey {
		return 0, false
	}
	if ev.Ch != 0 {
		return host.KeyForRune(ev.Ch)
	}
	k, ok := keyMap[ev.Key]
	return k, ok
}

// just a wrapper entity to handle input
type inputHandler struct{ d *TermloopDriver }

func (i *inputHandler) Draw(s *tl.Screen) {}

func (i *inputHandler) Tick(ev tl.Event) {
	if k, ok := keyFor(ev); ok {
		i.d.latch.Press(i.d.c, k, time.Now())
	}
}

// just a wrapper entity to run one host frame on every termloop frame
// (Tick is only called on input)
type frameRunner struct{ d *TermloopDriver }

func (f *frameRunner) Tick(ev tl.Event) {}

func (f *frameRunner) Draw(s *tl.Screen) {
	d := f.d
	if d.err != nil || d.run == nil {
		return
	}
	if err := d.ctx.Err(); err != nil {
		d.stop(err)
		return
	}
	if err := d.run.Frame(); err != nil {
		d.stop(err)
		return
	}
	d.updateInfo()
}

// stop freezes the machine; termloop has no way to end its loop from
// inside, so the user has to quit.
func (d *TermloopDriver) stop(err error) {
	d.err = err
	if errors.Is(err, host.ErrQuit) {
		d.status.SetText("Stopped. Press Ctrl+C to exit.")
		return
	}
	d.printEvent("HALT")
	d.status.SetText(fmt.Sprintf("Halted: %v. Press Ctrl+C to exit.", err))
}

func (d *TermloopDriver) Init(c *hachi.Chip8) error {
	d.c = c
	d.err = nil
	d.g = tl.NewGame()
	scr := d.g.Screen()

	scr.AddEntity(&frameRunner{d})
	scr.AddEntity(&inputHandler{d})
	scr.AddEntity(tl.NewText(0, 0, "Stack   Events",
		tl.ColorDefault, tl.ColorDefault))

	// stack
	d.stack = make([]*tl.Text, len(c.Stack))
	for i := 0; i < len(d.stack); i++ {
		d.stack[i] = tl.NewText(
			0, i+1, "", tl.ColorDefault, tl.ColorDefault)
		scr.AddEntity(d.stack[i])
	}

	// event log
	for i := 0; i < len(d.events); i++ {
		d.events[i] = tl.NewText(
			8, i+1, "", tl.ColorDefault, tl.ColorDefault)
		scr.AddEntity(d.events[i])
	}

	// machine info
	d.memory = tl.NewText(20, 0, "", tl.ColorDefault, tl.ColorDefault)
	scr.AddEntity(d.memory)

	d.registers = tl.NewText(20, 1, "", tl.ColorDefault, tl.ColorDefault)
	scr.AddEntity(d.registers)

	d.pointersAndTimers = tl.NewText(20, 2, "",
		tl.ColorDefault, tl.ColorDefault)
	scr.AddEntity(d.pointersAndTimers)

	d.devices = tl.NewText(20, 3, "", tl.ColorDefault, tl.ColorDefault)
	scr.AddEntity(d.devices)

	d.status = tl.NewText(20, 5+hachi.Height+1, "",
		tl.ColorRed, tl.ColorDefault)
	scr.AddEntity(d.status)

	// screen preview at 20,5. lit pixels are added to the screen as
	// entities, unlit ones are removed
	for i := 0; i < hachi.Width; i++ {
		for j := 0; j < hachi.Height; j++ {
			d.screen[i][j] = tl.NewRectangle(20+i, 5+j, 1, 1, tl.ColorWhite)
		}
	}
	d.lastScreen = hachi.Snapshot{}

	d.updateInfo()
	log.Println("TermloopDriver initialized")
	return nil
}

func (d *TermloopDriver) updateInfo() {
	c := d.c
	d.memory.SetText(fmt.Sprintf("Memory: %v bytes", len(c.Memory)))
	d.registers.SetText(fmt.Sprintf("Registers: % 02X", c.V))
	d.pointersAndTimers.SetText(
		fmt.Sprintf("I: %04X SP: %v, PC: %04X, DT: %02X, ST: %02X",
			c.I, c.SP, c.PC, c.Timers.Delay, c.Timers.Sound))
	d.devices.SetText(fmt.Sprintf("Keypad: %v, Screen: %v*%v",
		c.Keypad, hachi.Width, hachi.Height))

	for i := 0; i < len(d.stack); i++ {
		if i <= c.SP {
			d.stack[i].SetText(fmt.Sprintf("%04X", c.Stack[i]))
		} else {
			d.stack[i].SetText("")
		}
	}
}

func (d *TermloopDriver) Poll(c *hachi.Chip8) bool {
	d.latch.Expire(c, time.Now())
	return false
}

func (d *TermloopDriver) Present(s hachi.Snapshot, c *hachi.Chip8) {
	d.printEvent("DRW")

	scr := d.g.Screen()
	for j := 0; j < hachi.Height; j++ {
		// iterate the row and see what changed
		changed := s.Row(j) ^ d.lastScreen.Row(j)
		for i := 0; changed != 0 && i < hachi.Width; i++ {
			mask := uint64(1) << (hachi.Width - 1 - i)
			if changed&mask == 0 {
				continue
			}
			changed &^= mask
			if s.Row(j)&mask != 0 {
				// this pixel was activated
				scr.AddEntity(d.screen[i][j])
			} else {
				// this pixel was deactivated
				scr.RemoveEntity(d.screen[i][j])
			}
		}
	}

	d.lastScreen = s
}

func (d *TermloopDriver) Beep(active bool) {
	if active && !d.beeping {
		d.printEvent("BEEP")
	}
	d.beeping = active
}

// Loop starts termloop and blocks until the user quits. The error that
// stopped the machine, if any, is returned.
func (d *TermloopDriver) Loop(ctx context.Context, r host.Runner) error {
	d.ctx = ctx
	d.run = r
	d.g.Screen().SetFps(float64(r.TimerHz()))
	d.g.Start()
	return d.err
}

func (d *TermloopDriver) Close() error {
	d.run = nil
	return nil
}

// -----------------------------------------------------------------------------

func init() {
	err := host.RegisterDriver("termloop", &TermloopDriver{})
	if err != nil {
		log.Fatal(err)
	}
}
