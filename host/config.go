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
	"log/slog"
	"math/rand"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/pkg/errors"
)

// FaultPolicy decides what the host does when the machine halts on a fatal
// error.
type FaultPolicy string

// Fault policies.
const (
	// FaultHalt stops the host and returns the error.
	FaultHalt FaultPolicy = "halt"
	// FaultReset logs the error and restarts the program.
	FaultReset FaultPolicy = "reset"
	// FaultContinue logs the error and carries on after the faulting
	// instruction.
	FaultContinue FaultPolicy = "continue"
)

// Config holds everything the host loop needs to run a program.
type Config struct {
	// Path of the ROM to load.
	ROMPath string
	// Name of a registered driver.
	Driver string
	// Instructions executed per timer frame.
	CyclesPerFrame int
	// Timer frame rate, normally hachi.TimerHz.
	TimerHz int
	// Stop after this many frames, 0 runs until quit.
	Frames int
	// Run frames back to back instead of pacing them at TimerHz. Only
	// honoured by drivers that don't own their event loop.
	Unthrottled bool
	// Seed for RND VX,KK, 0 seeds from the clock.
	Seed        int64
	StackSize   int
	Quirks      hachi.Quirks
	FaultPolicy FaultPolicy
	Logger      *slog.Logger
}

// DefaultConfig returns a config that runs at roughly 600 instructions per
// second with the termloop driver.
func DefaultConfig() Config {
	return Config{
		Driver:         "termloop",
		CyclesPerFrame: 10,
		TimerHz:        hachi.TimerHz,
		StackSize:      hachi.MaxStackSize,
		FaultPolicy:    FaultHalt,
	}
}

// Validate validates the config.
// Returns an error when the config isn't valid.
func (c *Config) Validate() error {
	if c.CyclesPerFrame < 1 {
		return errors.Errorf("CyclesPerFrame must be >= 1, got %v",
			c.CyclesPerFrame)
	}
	if c.TimerHz < 1 || c.TimerHz > 1000 {
		return errors.Errorf("TimerHz must be between 1 and 1000, got %v",
			c.TimerHz)
	}
	if c.Frames < 0 {
		return errors.Errorf("Frames must be >= 0, got %v", c.Frames)
	}
	switch c.FaultPolicy {
	case FaultHalt, FaultReset, FaultContinue:
	default:
		return errors.Errorf("unknown fault policy %q", c.FaultPolicy)
	}
	return c.Settings().Validate()
}

// Settings returns the machine settings described by the config.
func (c *Config) Settings() *hachi.Chip8Settings {
	s := &hachi.Chip8Settings{
		StackSize: c.StackSize,
		Quirks:    c.Quirks,
		Logger:    c.Logger,
	}
	if c.Seed != 0 {
		s.Rand = rand.New(rand.NewSource(c.Seed))
	}
	return s
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
