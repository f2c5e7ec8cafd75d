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

// TimerHz is the rate at which the timers count down.
const TimerHz = 60

// Timers holds the two countdown timers. They count down at 60hz when they
// are non-zero.
// DT/Delay is intended to be used for timing events in games, while
// ST/Sound makes a beeping sound as long as its value is non-zero.
type Timers struct {
	Delay uint8
	Sound uint8
}

// Tick advances both timers by one 60hz frame.
func (t *Timers) Tick() {
	if t.Delay > 0 {
		t.Delay--
	}
	if t.Sound > 0 {
		t.Sound--
	}
}

// SoundActive reports whether the tone should be playing.
func (t *Timers) SoundActive() bool { return t.Sound > 0 }
