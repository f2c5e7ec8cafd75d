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

package host

import (
	"time"
	"unicode"

	"github.com/Francesco149/hachivm/hachi"
)

// QwertyLayout maps the left side of a qwerty keyboard onto the hex keypad:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var QwertyLayout = map[rune]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// KeyForRune returns the keypad key bound to r in QwertyLayout, ignoring
// case.
func KeyForRune(r rune) (uint8, bool) {
	k, ok := QwertyLayout[unicode.ToLower(r)]
	return k, ok
}

// ReleaseDelay is how long a key stays pressed after its last key-down event
// on terminals, which only report key presses.
const ReleaseDelay = 100 * time.Millisecond

// KeyLatch emulates key-up events for input sources that only report key
// presses (and key repeats) by releasing keys that haven't been seen for
// ReleaseDelay.
type KeyLatch struct {
	pressed map[uint8]time.Time
}

// Press presses k on c and remembers when.
func (l *KeyLatch) Press(c *hachi.Chip8, k uint8, now time.Time) {
	if l.pressed == nil {
		l.pressed = make(map[uint8]time.Time)
	}
	if c.KeyDown(k) == nil {
		l.pressed[k] = now
	}
}

// Expire releases the keys that were last pressed more than ReleaseDelay
// before now.
func (l *KeyLatch) Expire(c *hachi.Chip8, now time.Time) {
	for k, t := range l.pressed {
		if now.Sub(t) > ReleaseDelay {
			_ = c.KeyUp(k)
			delete(l.pressed, k)
		}
	}
}
