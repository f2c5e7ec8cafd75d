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

package hachi

import (
	"math/bits"
	"strings"
)

// Screen resolution in pixels.
const (
	Width  = 64
	Height = 32
)

/*
	Screen memory layout:
	                                     x ->
	  00000000 00000000 00000000 ... (64 bits)
	  00000000 01000000 00000000 ...
	y 00000000 00000000 00000000 ...
	| ...
	v

	Each row is a single uint64 and the most significant bit is x = 0. A
	sprite row is placed at the top of the word and rotated right by x, so
	pixels that fall off the right edge come back in on the left.
*/

// Framebuffer is the 64x32 monochrome screen.
type Framebuffer struct {
	rows [Height]uint64
}

// Clear turns off every pixel.
func (f *Framebuffer) Clear() {
	f.rows = [Height]uint64{}
}

// Blit XORs a sprite onto the screen with its top left corner at x, y. Each
// byte of sprite is one row, most significant bit first. Coordinates wrap
// around both edges. It returns true if any lit pixel was turned off.
func (f *Framebuffer) Blit(x, y uint8, sprite []byte) (collision bool) {
	for r, b := range sprite {
		row := (int(y) + r) % Height
		mask := bits.RotateLeft64(uint64(b)<<56, -(int(x) % Width))
		if f.rows[row]&mask != 0 {
			collision = true
		}
		f.rows[row] ^= mask
	}
	return
}

// Pixel returns 1 if the pixel at x, y is lit, 0 otherwise. Coordinates
// wrap around.
func (f *Framebuffer) Pixel(x, y int) uint8 {
	return pixel(&f.rows, x, y)
}

// Snapshot returns a copy of the current screen contents.
func (f *Framebuffer) Snapshot() Snapshot {
	return Snapshot(f.rows)
}

// Snapshot is an immutable copy of the framebuffer that can be handed to a
// renderer running on another goroutine.
type Snapshot [Height]uint64

// Pixel returns 1 if the pixel at x, y is lit, 0 otherwise. Coordinates
// wrap around.
func (s Snapshot) Pixel(x, y int) uint8 {
	rows := [Height]uint64(s)
	return pixel(&rows, x, y)
}

// Row returns the 64 pixels of row y, x = 0 being the most significant bit.
func (s Snapshot) Row(y int) uint64 {
	return s[mod(y, Height)]
}

// String renders the snapshot as text, one line per row.
func (s Snapshot) String() string {
	var sb strings.Builder
	sb.Grow(Height * (Width + 1))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if s.Pixel(x, y) != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func pixel(rows *[Height]uint64, x, y int) uint8 {
	return uint8(rows[mod(y, Height)] >> (Width - 1 - mod(x, Width)) & 1)
}
