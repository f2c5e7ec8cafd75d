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
	"fmt"
	"math/bits"
)

// Key flags for the Keypad bitfield.
const (
	Key0 = 1 << iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyCount is the number of keys on the hex keypad.
const KeyCount = 16

// Key flags mapped by number.
var KeyFlags = [KeyCount]uint16{Key0, Key1, Key2, Key3, Key4, Key5, Key6, Key7,
	Key8, Key9, KeyA, KeyB, KeyC, KeyD, KeyE, KeyF}

// Keypad is a hex keyboard with 16 keys. 8, 4, 6 and 2 are typically used
// for directional input.
// This is a bitfield, see the constants for the flags.
type Keypad uint16

// Press marks key k as held down.
func (p *Keypad) Press(k uint8) error {
	if k >= KeyCount {
		return &InvalidKeyErr{k}
	}
	*p |= Keypad(KeyFlags[k])
	return nil
}

// Release marks key k as up.
func (p *Keypad) Release(k uint8) error {
	if k >= KeyCount {
		return &InvalidKeyErr{k}
	}
	*p &^= Keypad(KeyFlags[k])
	return nil
}

// Pressed reports whether key k is held down. Keys above 0xF are never
// pressed.
func (p Keypad) Pressed(k uint8) bool {
	return k < KeyCount && uint16(p)&KeyFlags[k] != 0
}

// First returns the lowest pressed key.
func (p Keypad) First() (k uint8, ok bool) {
	if p == 0 {
		return 0, false
	}
	return uint8(bits.TrailingZeros16(uint16(p))), true
}

func (p Keypad) String() string {
	return fmt.Sprintf("%016b", uint16(p))
}
