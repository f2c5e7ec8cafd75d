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

// Package host drives a hachi.Chip8: it paces instructions, ticks the timers
// at a fixed rate, and connects the machine to a presentation driver.
//
// All machine state is touched from a single goroutine: either the one
// calling Run, or the event goroutine of a Looper driver.
package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/Francesco149/hachivm/hachi"
	"github.com/pkg/errors"
)

// ErrQuit is returned by Frame when the user asked to quit or the frame
// limit was reached. Run treats it as a clean exit.
var ErrQuit = errors.New("quit")

// Host runs a machine through a driver.
type Host struct {
	cfg    Config
	vm     *hachi.Chip8
	drv    Driver
	clock  *Clock
	logger *slog.Logger
	frames int
}

// New returns a host for vm using the driver named in cfg.
func New(cfg Config, vm *hachi.Chip8) (*Host, error) {
	drv, err := LookupDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return NewWithDriver(cfg, vm, drv)
}

// NewWithDriver returns a host for vm using drv, ignoring cfg.Driver.
func NewWithDriver(cfg Config, vm *hachi.Chip8, drv Driver) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Host{
		cfg:    cfg,
		vm:     vm,
		drv:    drv,
		clock:  NewClock(cfg.TimerHz),
		logger: cfg.logger(),
	}, nil
}

// Machine returns the machine driven by the host.
func (h *Host) Machine() *hachi.Chip8 { return h.vm }

// Driver returns the driver used by the host.
func (h *Host) Driver() Driver { return h.drv }

// Frames returns the number of frames run so far.
func (h *Host) Frames() int { return h.frames }

// TimerHz returns the configured timer frame rate.
func (h *Host) TimerHz() int { return h.cfg.TimerHz }

// Step executes a single instruction outside of a frame. A fatal machine
// error is handled according to the fault policy, like in Frame.
func (h *Host) Step() error {
	if err := h.vm.Step(); err != nil {
		return h.fault(err)
	}
	return nil
}

// Frame runs one timer frame: input polling, CyclesPerFrame instructions,
// one timer tick, then presentation. A fatal machine error is handled
// according to the fault policy; with FaultHalt it is returned.
func (h *Host) Frame() error {
	if h.drv.Poll(h.vm) {
		return ErrQuit
	}

	for i := 0; i < h.cfg.CyclesPerFrame; i++ {
		if err := h.vm.Step(); err != nil {
			if err = h.fault(err); err != nil {
				return err
			}
			break
		}
	}

	h.vm.TickTimers()
	if h.vm.ScreenDirty() {
		h.drv.Present(h.vm.Snapshot(), h.vm)
	}
	h.drv.Beep(h.vm.SoundActive())

	h.frames++
	if h.cfg.Frames > 0 && h.frames >= h.cfg.Frames {
		return ErrQuit
	}
	return nil
}

func (h *Host) fault(err error) error {
	switch h.cfg.FaultPolicy {
	case FaultReset:
		h.logger.Warn("resetting after fault", "err", err, "frame", h.frames)
		h.vm.Reset()
		return nil
	case FaultContinue:
		h.logger.Warn("continuing after fault", "err", err, "frame", h.frames)
		h.vm.Resume()
		return nil
	}
	return err
}

// Run initializes the driver and runs frames until the user quits, the
// frame limit is reached, ctx is done or the machine halts. Quitting and
// cancellation are not errors.
func (h *Host) Run(ctx context.Context) (err error) {
	if err = h.drv.Init(h.vm); err != nil {
		return errors.Wrap(err, "driver init")
	}
	defer func() {
		if cerr := h.drv.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "driver close")
		}
	}()

	h.logger.Debug("host started", "driver", h.cfg.Driver,
		"cycles_per_frame", h.cfg.CyclesPerFrame, "timer_hz", h.cfg.TimerHz)

	if l, ok := h.drv.(Looper); ok {
		err = l.Loop(ctx, h)
	} else {
		err = h.loop(ctx)
	}

	h.logger.Debug("host stopped", "frames", h.frames, "err", err)
	if errors.Is(err, ErrQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *Host) loop(ctx context.Context) error {
	if h.cfg.Unthrottled {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := h.Frame(); err != nil {
				return err
			}
		}
	}

	ticker := time.NewTicker(h.clock.Interval)
	defer ticker.Stop()
	h.clock.Reset()
	h.clock.Due(time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			for n := h.clock.Due(now); n > 0; n-- {
				if err := h.Frame(); err != nil {
					return err
				}
			}
		}
	}
}
