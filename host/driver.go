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
	"context"
	"log"
	"sort"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/pkg/errors"
)

// A Driver is an interface through which the host presents the machine and
// collects input in a platform specific way.
// Drivers should be registered by the RegisterDriver function in init().
type Driver interface {
	// Called before the first frame.
	Init(c *hachi.Chip8) error
	// Called at the start of every frame, should be used for input polling
	// through c.KeyDown and c.KeyUp. Returns true when the user wants to quit.
	Poll(c *hachi.Chip8) (quit bool)
	// Called after a frame that modified the screen. c can be used to show
	// the machine state but must not be modified.
	Present(s hachi.Snapshot, c *hachi.Chip8)
	// Called once per frame with the state of the sound timer.
	Beep(active bool)
	// Called when the host stops.
	Close() error
}

// A Runner is the part of the host a Looper drives.
type Runner interface {
	// Frame runs one timer frame, see Host.Frame.
	Frame() error
	// Step executes a single instruction under the host's fault policy,
	// for debuggers.
	Step() error
	// TimerHz is the rate at which Frame must be called.
	TimerHz() int
}

// A Looper is a Driver that owns its event loop (most GUI and terminal
// libraries do). Instead of being paced by the host, it calls r.Frame at
// r.TimerHz from the goroutine that handles its events, until Frame returns
// an error, the user quits or ctx is done.
type Looper interface {
	Driver
	Loop(ctx context.Context, r Runner) error
}

// -----------------------------------------------------------------------------

var drivers = map[string]Driver{}

// RegisterDriver registers a driver to a name. The driver can then be used
// by setting the Driver field of Config to the driver's name.
// This is not thread-safe, so don't call it concurrently to the host's
// execution.
func RegisterDriver(name string, drv Driver) error {
	if drivers[name] != nil {
		return errors.Errorf("driver %s already exists", name)
	}
	drivers[name] = drv
	return nil
}

// UnregisterDriver unloads a previously registered driver.
// This is not thread-safe, so don't call it concurrently to the host's
// execution.
func UnregisterDriver(name string) error {
	if drivers[name] == nil {
		return errors.Errorf("driver %s does not exist", name)
	}
	delete(drivers, name)
	return nil
}

// LookupDriver returns the driver registered under name.
func LookupDriver(name string) (Driver, error) {
	drv := drivers[name]
	if drv == nil {
		return nil, errors.Errorf("driver %s not found (available: %v)",
			name, Drivers())
	}
	return drv, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// A NullDriver is the headless driver. It has no input, remembers the last
// presented screen and counts beeping frames.
type NullDriver struct {
	Last  hachi.Snapshot
	Beeps int
}

func (d *NullDriver) Init(c *hachi.Chip8) error { return nil }
func (d *NullDriver) Poll(c *hachi.Chip8) bool  { return false }
func (d *NullDriver) Close() error              { return nil }

func (d *NullDriver) Present(s hachi.Snapshot, c *hachi.Chip8) { d.Last = s }

func (d *NullDriver) Beep(active bool) {
	if active {
		d.Beeps++
	}
}

// -----------------------------------------------------------------------------

func init() {
	err := RegisterDriver("null", &NullDriver{})
	if err != nil {
		log.Fatal(err)
	}
}
