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

// Package ebiten implements a windowed driver on top of ebiten.
//
// The ebiten tick rate is set to the host's timer rate, so every call to
// Update runs one host frame. Unlike terminals, ebiten reports key
// releases, so the keypad follows the keyboard exactly.
package ebiten

import (
	"context"
	"fmt"
	"log"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/Francesco149/hachivm/host"
	"github.com/hajimehoshi/bitmapfont/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

// Scale is the size of a machine pixel in window pixels.
const Scale = 10

var fontFace = text.NewGoXFace(bitmapfont.Face)

var (
	pixelOn   = colornames.White
	pixelOff  = colornames.Black
	beepColor = colornames.Darkslategray
	haltColor = colornames.Red
)

// same layout as host.QwertyLayout, by physical key
var keyMap = map[ebiten.Key]uint8{
	ebiten.KeyDigit1: 0x1, ebiten.KeyDigit2: 0x2, ebiten.KeyDigit3: 0x3, ebiten.KeyDigit4: 0xC,
	ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xD,
	ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xE,
	ebiten.KeyZ: 0xA, ebiten.KeyX: 0x0, ebiten.KeyC: 0xB, ebiten.KeyV: 0xF,
}

// Driver draws the screen in a window. It implements ebiten.Game.
type Driver struct {
	pixels  []byte
	image   *ebiten.Image
	beeping bool
	ctx     context.Context
	run     host.Runner
	err     error
}

func (d *Driver) Init(c *hachi.Chip8) error {
	d.pixels = make([]byte, hachi.Width*hachi.Height*4)
	d.fill(hachi.Snapshot{})
	d.image = nil
	d.beeping = false
	d.err = nil

	ebiten.SetWindowSize(hachi.Width*Scale, hachi.Height*Scale)
	ebiten.SetWindowTitle("hachi")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return nil
}

func (d *Driver) Poll(c *hachi.Chip8) bool {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return true
	}
	for key, k := range keyMap {
		if ebiten.IsKeyPressed(key) {
			_ = c.KeyDown(k)
		} else {
			_ = c.KeyUp(k)
		}
	}
	return false
}

// fill converts s to RGBA pixels.
func (d *Driver) fill(s hachi.Snapshot) {
	for y := 0; y < hachi.Height; y++ {
		for x := 0; x < hachi.Width; x++ {
			col := pixelOff
			if s.Pixel(x, y) != 0 {
				col = pixelOn
			}
			i := (y*hachi.Width + x) * 4
			d.pixels[i] = col.R
			d.pixels[i+1] = col.G
			d.pixels[i+2] = col.B
			d.pixels[i+3] = col.A
		}
	}
}

func (d *Driver) Present(s hachi.Snapshot, c *hachi.Chip8) { d.fill(s) }

func (d *Driver) Beep(active bool) { d.beeping = active }

// Update runs one host frame per tick. Once the machine has stopped with an
// error the window stays open on the last frame until the user closes it.
func (d *Driver) Update() error {
	if d.err != nil {
		if ebiten.IsKeyPressed(ebiten.KeyEscape) {
			return ebiten.Termination
		}
		return nil
	}
	if err := d.ctx.Err(); err != nil {
		d.err = err
		return ebiten.Termination
	}

	err := d.run.Frame()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, host.ErrQuit):
		return ebiten.Termination
	}
	d.err = err
	return nil
}

func (d *Driver) Draw(screen *ebiten.Image) {
	if d.image == nil {
		d.image = ebiten.NewImage(hachi.Width, hachi.Height)
	}
	d.image.WritePixels(d.pixels)

	if d.beeping {
		screen.Fill(beepColor)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(Scale, Scale)
	if d.beeping {
		// leave a border in the beep color
		op.GeoM.Scale(0.96, 0.92)
		op.GeoM.Translate(hachi.Width*Scale*0.02, hachi.Height*Scale*0.04)
	}
	screen.DrawImage(d.image, op)

	if d.err != nil {
		textOp := &text.DrawOptions{}
		textOp.LineSpacing = fontFace.Metrics().HLineGap +
			fontFace.Metrics().HAscent + fontFace.Metrics().HDescent
		textOp.GeoM.Translate(4, 4)
		textOp.ColorScale.ScaleWithColor(haltColor)
		text.Draw(screen, fmt.Sprintf("halted: %v\nEsc to exit", d.err),
			fontFace, textOp)
	}
}

func (d *Driver) Layout(outsideWidth, outsideHeight int) (int, int) {
	return hachi.Width * Scale, hachi.Height * Scale
}

// Loop runs the ebiten game loop until the window is closed, Escape is
// pressed or ctx is done.
func (d *Driver) Loop(ctx context.Context, r host.Runner) error {
	d.ctx = ctx
	d.run = r
	ebiten.SetTPS(r.TimerHz())
	if err := ebiten.RunGame(d); err != nil {
		return errors.Wrap(err, "ebiten")
	}
	return d.err
}

func (d *Driver) Close() error {
	d.run = nil
	if d.image != nil {
		d.image.Deallocate()
		d.image = nil
	}
	return nil
}

// -----------------------------------------------------------------------------

func init() {
	err := host.RegisterDriver("ebiten", &Driver{})
	if err != nil {
		log.Fatal(err)
	}
}
