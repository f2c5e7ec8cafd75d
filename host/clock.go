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

import "time"

// A Clock turns wall time into a number of fixed-rate frames.
type Clock struct {
	// The interval between each frame. 60hz = time.Second / 60.
	Interval time.Duration
	// MaxLag caps the number of frames returned by a single Due call. When
	// the caller fell further behind (sleeping laptop, debugger), the
	// missing frames are dropped instead of replayed.
	MaxLag int

	last time.Time
}

// NewClock returns a clock ticking hz times per second.
func NewClock(hz int) *Clock {
	return &Clock{
		Interval: time.Second / time.Duration(hz),
		MaxLag:   hz / 4,
	}
}

// Due returns how many frames elapsed since the previous call. The first
// call only starts the clock.
func (c *Clock) Due(now time.Time) (n int) {
	if c.last.IsZero() {
		c.last = now
		return 0
	}

	for now.Sub(c.last) >= c.Interval {
		c.last = c.last.Add(c.Interval)
		n++
	}

	if c.MaxLag > 0 && n > c.MaxLag {
		n = c.MaxLag
		c.last = now
	}
	return
}

// Reset stops the clock, the next Due call starts it again.
func (c *Clock) Reset() { c.last = time.Time{} }
